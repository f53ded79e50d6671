package usecase_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
)

type memoryAttachments struct {
	objects map[string]string
	err     error
}

func (m *memoryAttachments) UploadAttachment(ctx context.Context, chatID string, file io.Reader, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	url := "https://files.test/" + chatID + "/" + contentType
	m.objects[url] = string(data)
	return url, nil
}

func TestAttachmentUseCase_Upload(t *testing.T) {
	f := newFixture(t, "alice", "bob", "mallory")
	chatID := newGroup(t, f, "alice", "bob")
	store := &memoryAttachments{objects: map[string]string{}}
	attachments := usecase.NewAttachmentUseCase(f.chats, store)

	url, err := attachments.Upload(context.Background(), chatID, "bob", strings.NewReader("notes"), "text/plain", 5)
	require.NoError(t, err)
	assert.Equal(t, "notes", store.objects[url])

	_, err = attachments.Upload(context.Background(), chatID, "mallory", strings.NewReader("x"), "text/plain", 1)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = attachments.Upload(context.Background(), chatID, "bob", strings.NewReader("x"), "application/x-msdownload", 1)
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = attachments.Upload(context.Background(), chatID, "bob", strings.NewReader("x"), "image/png", usecase.MaxAttachmentSize+1)
	assert.True(t, errors.Is(err, errors.CodeValidation))

	store.err = io.ErrUnexpectedEOF
	_, err = attachments.Upload(context.Background(), chatID, "bob", strings.NewReader("x"), "image/png", 1)
	assert.True(t, errors.Is(err, errors.CodeStore))
}

func TestAttachmentUseCase_Unconfigured(t *testing.T) {
	f := newFixture(t, "alice")
	_, err := usecase.NewAttachmentUseCase(f.chats, nil).Upload(context.Background(), "c", "alice", strings.NewReader("x"), "text/plain", 1)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)
}
