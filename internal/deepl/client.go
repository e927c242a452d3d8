// Package deepl is a sequential translation backend on the DeepL REST API.
package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/oukeidos/bisrt/internal/apperrors"
	"github.com/oukeidos/bisrt/internal/httpclient"
	"github.com/oukeidos/bisrt/internal/language"
	"github.com/oukeidos/bisrt/internal/metadata"
	"github.com/rivo/uniseg"
)

const (
	FreeBaseURL = "https://api-free.deepl.com/v2"
	ProBaseURL  = "https://api.deepl.com/v2"

	// StatusQuotaExceeded is DeepL's non-standard status for an exhausted character quota.
	StatusQuotaExceeded = 456
)

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Client translates one text per request. DeepL has no batch mode here
// because it gives no contextual benefit over single calls.
type Client struct {
	apiKey     string
	baseURL    string
	sourceLang string
	targetLang string

	mu    sync.Mutex
	usage metadata.Usage
}

// NewClient resolves the DeepL language codes for source (zero Language for
// auto-detect) and target. Keys ending in ":fx" use the free endpoint.
func NewClient(apiKey string, source, target language.Language) (*Client, error) {
	if target.DeepLTarget == "" {
		return nil, fmt.Errorf("DeepL does not support target language %q", target.Code)
	}
	if source.Code != "" && source.DeepLSource == "" {
		return nil, fmt.Errorf("DeepL does not support source language %q", source.Code)
	}
	base := ProBaseURL
	if strings.HasSuffix(apiKey, ":fx") {
		base = FreeBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    base,
		sourceLang: source.DeepLSource,
		targetLang: target.DeepLTarget,
	}, nil
}

func (c *Client) Name() string { return metadata.BackendDeepL }

// SetBaseURL points the client at another API root, e.g. a proxy.
func (c *Client) SetBaseURL(base string) { c.baseURL = strings.TrimRight(base, "/") }

// Usage returns requests made and source characters billed so far.
func (c *Client) Usage() metadata.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

func (c *Client) TranslateOne(ctx context.Context, text string) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", c.targetLang)
	if c.sourceLang != "" {
		form.Set("source_lang", c.sourceLang)
	}

	req, err := httpclient.NewFormRequest(ctx, c.baseURL+"/translate", form)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	body, resp, err := httpclient.DoAndRead(httpclient.GetDefaultClient(), req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apperrors.New(apperrors.KindTransient,
			"DeepL request failed due to a temporary network/runtime error.",
			fmt.Errorf("request failed: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyDeepLError(resp.StatusCode, resp.Status)
	}

	c.mu.Lock()
	c.usage.Add(metadata.Usage{Requests: 1, Characters: int64(uniseg.GraphemeClusterCount(text))})
	c.mu.Unlock()

	var out translateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", apperrors.New(apperrors.KindValidation, "DeepL response format was invalid.",
			fmt.Errorf("failed to decode response: %w", err))
	}
	if len(out.Translations) != 1 || strings.TrimSpace(out.Translations[0].Text) == "" {
		return "", apperrors.New(apperrors.KindValidation, "DeepL returned no translation.", nil)
	}
	return strings.TrimSpace(out.Translations[0].Text), nil
}

func classifyDeepLError(statusCode int, status string) error {
	cause := fmt.Errorf("deepl status=%s", status)
	switch {
	case statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		return apperrors.New(apperrors.KindAuth, fmt.Sprintf("DeepL authentication failed (%d): please verify your auth key.", statusCode), cause)
	case statusCode == StatusQuotaExceeded:
		return apperrors.New(apperrors.KindQuota, "DeepL character quota exceeded (456).", cause)
	case statusCode == http.StatusTooManyRequests || statusCode == 529:
		return apperrors.New(apperrors.KindRateLimit, fmt.Sprintf("DeepL rate limit exceeded (%d).", statusCode), cause)
	case statusCode >= 500:
		return apperrors.New(apperrors.KindTransient, fmt.Sprintf("DeepL server error (%d).", statusCode), cause)
	default:
		return apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("DeepL API error (%d).", statusCode), cause)
	}
}
