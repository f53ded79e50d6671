package usecase

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"chatterbox/pkg/errors"
)

const maxPromptLength = 8000

type AssistUseCase struct {
	assistant AssistantService
}

func NewAssistUseCase(assistant AssistantService) *AssistUseCase {
	return &AssistUseCase{
		assistant: assistant,
	}
}

// Generate forwards prompt to the assistant. Upstream failures are returned as-is.
func (uc *AssistUseCase) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.Validation("prompt is required")
	}
	if utf8.RuneCountInString(prompt) > maxPromptLength {
		return "", errors.Validation("prompt is too long")
	}
	if uc.assistant == nil {
		return "", errors.New("ASSIST_UNAVAILABLE", "AI assist is not configured", http.StatusServiceUnavailable, nil)
	}
	return uc.assistant.Generate(ctx, prompt)
}
