package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/oukeidos/bisrt/internal/apperrors"
	"google.golang.org/api/googleapi"
)

func classifyGeminiError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	wrapped := fmt.Errorf("gemini generate content failed: %w", err)

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return apperrors.New(apperrors.KindBadRequest, "Gemini blocked the request or its response.", wrapped)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 400:
			return apperrors.New(apperrors.KindBadRequest, "Gemini request rejected (400).", wrapped)
		case gerr.Code == 404:
			return apperrors.New(apperrors.KindBadRequest, "Gemini model not found or no access (404).", wrapped)
		case gerr.Code == 401 || gerr.Code == 403:
			return apperrors.New(apperrors.KindAuth, fmt.Sprintf("Gemini authentication/authorization failed (%d).", gerr.Code), wrapped)
		case gerr.Code == 429:
			return apperrors.New(apperrors.KindRateLimit, "Gemini rate limit exceeded (429).", wrapped)
		case gerr.Code >= 500:
			return apperrors.New(apperrors.KindTransient, fmt.Sprintf("Gemini service temporary error (%d).", gerr.Code), wrapped)
		default:
			return apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("Gemini API error (%d).", gerr.Code), wrapped)
		}
	}

	// DNS, socket and deadline failures are usually transient.
	return apperrors.New(apperrors.KindTransient, "Gemini request failed due to a temporary network/runtime error.", wrapped)
}
