package service

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/googleapi"

	apperrors "chatterbox/pkg/errors"
)

func TestUpstreamError_KeepsProviderStatus(t *testing.T) {
	err := UpstreamError(&googleapi.Error{
		Code:    http.StatusTooManyRequests,
		Message: "Resource has been exhausted",
		Errors:  []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}},
	})

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusTooManyRequests, appErr.Status)
	assert.Equal(t, "UPSTREAM_RATELIMITEXCEEDED", appErr.Code)
	assert.Equal(t, "Resource has been exhausted", appErr.Message)
}

func TestUpstreamError_FallsBackToStatusText(t *testing.T) {
	err := UpstreamError(&googleapi.Error{Code: http.StatusBadRequest, Message: "API key not valid"})

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "UPSTREAM_BAD_REQUEST", appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestUpstreamError_NonAPIError(t *testing.T) {
	err := UpstreamError(errors.New("dial tcp: timeout"))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestCandidateText(t *testing.T) {
	resp := &generativelanguage.GenerateContentResponse{
		Candidates: []*generativelanguage.Candidate{
			{Content: nil},
			{Content: &generativelanguage.Content{Parts: []*generativelanguage.Part{{Text: "Hello "}, {Text: "there"}}}},
		},
	}
	assert.Equal(t, "Hello there", candidateText(resp))
	assert.Equal(t, "", candidateText(&generativelanguage.GenerateContentResponse{}))
}
