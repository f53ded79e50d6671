package service

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

// GeminiService calls the Generative Language API with a single user turn.
type GeminiService struct {
	models *generativelanguage.ModelsService
	model  string
}

func NewGeminiService(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiService, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	return &GeminiService{
		models: svc.Models,
		model:  model,
	}, nil
}

func (s *GeminiService) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.models.GenerateContent(s.model, &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{
			{
				Role:  "user",
				Parts: []*generativelanguage.Part{{Text: prompt}},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		logger.Error("Gemini request failed: %v", err)
		return "", UpstreamError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", errors.Upstream("BLOCKED", "The prompt was blocked: "+resp.PromptFeedback.BlockReason, http.StatusBadRequest, nil)
	}
	return candidateText(resp), nil
}

func candidateText(resp *generativelanguage.GenerateContentResponse) string {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			b.WriteString(part.Text)
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

// UpstreamError keeps the provider's status, reason and message.
func UpstreamError(err error) error {
	var apiErr *googleapi.Error
	if !stderrors.As(err, &apiErr) {
		return errors.Upstream("UNAVAILABLE", "AI assist is unavailable", http.StatusBadGateway, err)
	}

	reason := ""
	if len(apiErr.Errors) > 0 {
		reason = apiErr.Errors[0].Reason
	}
	if reason == "" {
		reason = http.StatusText(apiErr.Code)
	}
	reason = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(reason), " ", "_"))

	message := apiErr.Message
	if message == "" {
		message = http.StatusText(apiErr.Code)
	}
	return errors.Upstream(reason, message, apiErr.Code, err)
}
