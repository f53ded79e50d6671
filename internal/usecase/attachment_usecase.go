package usecase

import (
	"context"
	"io"
	"net/http"

	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
)

const MaxAttachmentSize = 10 << 20

var allowedAttachmentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"text/plain":      true,
}

type AttachmentUseCase struct {
	chatRepo repository.ChatRepository
	store    AttachmentStore
}

func NewAttachmentUseCase(chatRepo repository.ChatRepository, store AttachmentStore) *AttachmentUseCase {
	return &AttachmentUseCase{
		chatRepo: chatRepo,
		store:    store,
	}
}

// Upload stores a file for chatID and returns the URL to put in Message.Attachments.
func (uc *AttachmentUseCase) Upload(ctx context.Context, chatID, userID string, file io.Reader, contentType string, size int64) (string, error) {
	if uc.store == nil {
		return "", errors.New("ATTACHMENTS_UNAVAILABLE", "Attachments are not configured", http.StatusServiceUnavailable, nil)
	}
	if size > MaxAttachmentSize {
		return "", errors.Validation("file must be at most 10MB")
	}
	if !allowedAttachmentTypes[contentType] {
		return "", errors.Validation("file type " + contentType + " is not allowed")
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return "", err
	}
	if !chat.IsParticipant(userID) {
		return "", errors.Forbidden("You are not a participant of this chat", nil)
	}

	url, err := uc.store.UploadAttachment(ctx, chatID, file, contentType)
	if err != nil {
		return "", errors.Store("Failed to upload attachment", err)
	}
	return url, nil
}
