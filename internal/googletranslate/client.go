// Package googletranslate is a sequential backend on the Cloud Translation v2 API.
package googletranslate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oukeidos/bisrt/internal/apperrors"
	"github.com/oukeidos/bisrt/internal/language"
	"github.com/oukeidos/bisrt/internal/metadata"
	"github.com/rivo/uniseg"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"
)

type Client struct {
	svc    *translate.Service
	source string
	target string

	mu    sync.Mutex
	usage metadata.Usage
}

// NewClient builds a client for source (zero Language for auto-detect) and
// target. endpoint overrides the service base URL when non-empty.
func NewClient(ctx context.Context, apiKey string, source, target language.Language, endpoint string) (*Client, error) {
	if target.Google == "" {
		return nil, fmt.Errorf("Google Translate does not support target language %q", target.Code)
	}
	// option.WithHTTPClient would bypass the transport that attaches the key.
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := translate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translate service: %w", err)
	}
	return &Client{svc: svc, source: source.Google, target: target.Google}, nil
}

func (c *Client) Name() string { return metadata.BackendGoogle }

func (c *Client) Usage() metadata.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

func (c *Client) TranslateOne(ctx context.Context, text string) (string, error) {
	call := c.svc.Translations.List([]string{text}, c.target).Format("text").Context(ctx)
	if c.source != "" {
		call = call.Source(c.source)
	}
	resp, err := call.Do()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", classifyGoogleError(err)
	}

	c.mu.Lock()
	c.usage.Add(metadata.Usage{Requests: 1, Characters: int64(uniseg.GraphemeClusterCount(text))})
	c.mu.Unlock()

	if len(resp.Translations) != 1 {
		return "", apperrors.New(apperrors.KindValidation,
			fmt.Sprintf("Google Translate returned %d translations for 1 input.", len(resp.Translations)), nil)
	}
	out := strings.TrimSpace(resp.Translations[0].TranslatedText)
	if out == "" {
		return "", apperrors.New(apperrors.KindValidation, "Google Translate returned an empty translation.", nil)
	}
	return out, nil
}

func classifyGoogleError(err error) error {
	wrapped := fmt.Errorf("google translate request failed: %w", err)

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401 || gerr.Code == 403:
			switch forbiddenReason(gerr) {
			case apperrors.KindQuota:
				return apperrors.New(apperrors.KindQuota, "Google Translate quota exceeded.", wrapped)
			case apperrors.KindRateLimit:
				return apperrors.New(apperrors.KindRateLimit, fmt.Sprintf("Google Translate rate limit exceeded (%d).", gerr.Code), wrapped)
			}
			return apperrors.New(apperrors.KindAuth, fmt.Sprintf("Google Translate authentication failed (%d).", gerr.Code), wrapped)
		case gerr.Code == 429:
			return apperrors.New(apperrors.KindRateLimit, "Google Translate rate limit exceeded (429).", wrapped)
		case gerr.Code >= 500:
			return apperrors.New(apperrors.KindTransient, fmt.Sprintf("Google Translate temporary error (%d).", gerr.Code), wrapped)
		default:
			return apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("Google Translate request rejected (%d).", gerr.Code), wrapped)
		}
	}
	return apperrors.New(apperrors.KindTransient, "Google Translate request failed due to a temporary network/runtime error.", wrapped)
}

// forbiddenReason tells daily quota exhaustion, which retries cannot fix,
// apart from per-user rate limits, which clear after a short wait. Google
// reports both as 403.
func forbiddenReason(gerr *googleapi.Error) apperrors.Kind {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "dailyLimitExceeded", "quotaExceeded":
			return apperrors.KindQuota
		case "userRateLimitExceeded", "rateLimitExceeded":
			return apperrors.KindRateLimit
		}
	}
	return apperrors.KindAuth
}
