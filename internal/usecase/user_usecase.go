package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
)

type UserUseCase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
	}
}

type UpdateProfileInput struct {
	DisplayName *string
	Username    *string
	Status      *string
}

func (uc *UserUseCase) GetUserProfile(ctx context.Context, userID string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

func (uc *UserUseCase) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*entity.User, error) {
	var update repository.ProfileUpdate

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			return nil, errors.Validation("display name cannot be empty")
		}
		update.DisplayName = &name
	}
	if input.Username != nil {
		username := entity.NormalizeUsername(*input.Username)
		if n := utf8.RuneCountInString(username); n < minSearchLength || n > 30 {
			return nil, errors.Validation("username must be between 2 and 30 characters")
		}
		update.Username = &username
	}
	if input.Status != nil {
		status := entity.UserStatus(*input.Status)
		if !status.Valid() {
			return nil, errors.Validation("status must be one of: online offline away")
		}
		update.Status = &status
	}

	if update.DisplayName == nil && update.Username == nil && update.Status == nil {
		return nil, errors.Validation("nothing to update")
	}

	if err := uc.userRepo.UpdateProfile(ctx, userID, update); err != nil {
		return nil, err
	}
	return uc.userRepo.GetByID(ctx, userID)
}
