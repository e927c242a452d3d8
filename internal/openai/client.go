package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/oukeidos/bisrt/internal/apperrors"
	"github.com/oukeidos/bisrt/internal/batchjson"
	"github.com/oukeidos/bisrt/internal/httpclient"
	"github.com/oukeidos/bisrt/internal/metadata"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// RequestData is the body of a Responses API call.
type RequestData struct {
	Model           string      `json:"model"`
	Input           []InputItem `json:"input"`
	Temperature     *float64    `json:"temperature,omitempty"`
	MaxOutputTokens int         `json:"max_output_tokens,omitempty"`
}

type InputItem struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ResponseData is the subset of the Responses API reply we read.
type ResponseData struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
	Output            []OutputItem       `json:"output"`
	Usage             Usage              `json:"usage"`
}

type IncompleteDetails struct {
	Reason string `json:"reason"`
}

type OutputItem struct {
	Type    string            `json:"type"`
	Status  string            `json:"status,omitempty"`
	Role    string            `json:"role,omitempty"`
	Content []ResponseContent `json:"content,omitempty"`
}

type ResponseContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// OutputText concatenates the output_text parts of all message items.
func (r *ResponseData) OutputText() string {
	var b strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				b.WriteString(c.Text)
			}
		}
	}
	return b.String()
}

type errorEnvelope struct {
	Error errorDetails `json:"error"`
}

type errorDetails struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"`
}

func (e errorDetails) codeString() string {
	if e.Code == nil {
		return ""
	}
	return fmt.Sprint(e.Code)
}

// Client is a batch-capable translation backend on the OpenAI Responses API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	sourceName string
	targetName string

	mu    sync.Mutex
	usage metadata.Usage
}

type Option func(*Client)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url = strings.TrimRight(strings.TrimSpace(url), "/"); url != "" {
			c.baseURL = url
		}
	}
}

// NewClient creates a client translating from sourceName (empty for
// auto-detect) into targetName.
func NewClient(apiKey, model, sourceName, targetName string, opts ...Option) *Client {
	if model == "" {
		model = metadata.DefaultOpenAIModel
	}
	c := &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    DefaultBaseURL,
		sourceName: sourceName,
		targetName: targetName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return metadata.BackendOpenAI }

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string { return c.model }

// TranslateBatch sends texts as one separator-joined message and expects a
// JSON array of exactly len(texts) translations back.
func (c *Client) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	resp, err := c.Generate(ctx, c.request(batchjson.SystemPrompt(c.sourceName, c.targetName, len(texts)), batchjson.Join(texts), 4000))
	if err != nil {
		return nil, err
	}
	return batchjson.Parse(resp.OutputText(), len(texts))
}

// TranslateOne translates a single line.
func (c *Client) TranslateOne(ctx context.Context, text string) (string, error) {
	resp, err := c.Generate(ctx, c.request(batchjson.SinglePrompt(c.sourceName, c.targetName), text, 1000))
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", apperrors.New(apperrors.KindValidation, "OpenAI returned an empty translation.", nil)
	}
	return out, nil
}

func (c *Client) request(system, user string, maxTokens int) RequestData {
	temp := batchjson.Temperature
	return RequestData{
		Input: []InputItem{
			{Type: "message", Role: "system", Content: system},
			{Type: "message", Role: "user", Content: user},
		},
		Temperature:     &temp,
		MaxOutputTokens: maxTokens,
	}
}

// Usage returns the tokens consumed so far.
func (c *Client) Usage() metadata.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

func (c *Client) Generate(ctx context.Context, req RequestData) (*ResponseData, error) {
	req.Model = c.model

	httpReq, err := httpclient.NewJSONRequest(ctx, c.baseURL+"/responses", req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	body, resp, err := httpclient.DoAndRead(httpclient.GetDefaultClient(), httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.New(
			apperrors.KindTransient,
			"OpenAI request failed due to a temporary network/runtime error.",
			fmt.Errorf("request failed: %w", err),
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyOpenAIError(resp.StatusCode, resp.Status, parseErrorDetails(body))
	}

	var result ResponseData
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperrors.New(
			apperrors.KindValidation,
			"OpenAI response format was invalid.",
			fmt.Errorf("failed to decode response: %w", err),
		)
	}

	c.mu.Lock()
	c.usage.Add(metadata.Usage{
		Requests:     1,
		InputTokens:  int64(result.Usage.InputTokens),
		OutputTokens: int64(result.Usage.OutputTokens),
	})
	c.mu.Unlock()

	slog.Debug("OpenAI API Response", "status", resp.Status, "usage_total", result.Usage.TotalTokens, "response_id", result.ID)

	if result.Status == "incomplete" {
		reason := ""
		if result.IncompleteDetails != nil {
			reason = result.IncompleteDetails.Reason
		}
		return nil, apperrors.New(apperrors.KindValidation,
			"OpenAI response was incomplete.", fmt.Errorf("incomplete response: %s", reason))
	}

	return &result, nil
}

func parseErrorDetails(body []byte) errorDetails {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errorDetails{}
	}
	return envelope.Error
}

func classifyOpenAIError(statusCode int, status string, details errorDetails) error {
	code := details.codeString()
	cause := fmt.Errorf("openai status=%s type=%s code=%s message=%s", status, details.Type, code, details.Message)

	switch statusCode {
	case http.StatusTooManyRequests:
		if code == "insufficient_quota" || details.Type == "insufficient_quota" {
			return apperrors.New(
				apperrors.KindQuota,
				"OpenAI quota exhausted (429): check your plan and billing details.",
				cause,
			)
		}
		return apperrors.New(
			apperrors.KindRateLimit,
			"OpenAI API rate limit exceeded (429): backing off before retrying.",
			cause,
		)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.New(
			apperrors.KindAuth,
			fmt.Sprintf("OpenAI API authentication/authorization failed (%d): please verify your API key and permissions.", statusCode),
			cause,
		)
	case http.StatusNotFound:
		if isOpenAIModelNotFound(details) {
			return apperrors.New(
				apperrors.KindBadRequest,
				"The model does not exist or you do not have access to it.",
				cause,
			)
		}
		return apperrors.New(
			apperrors.KindBadRequest,
			"OpenAI resource not found (404).",
			cause,
		)
	case http.StatusRequestTimeout:
		return apperrors.New(
			apperrors.KindTransient,
			"OpenAI request timed out (408).",
			cause,
		)
	default:
		if statusCode >= 500 {
			return apperrors.New(
				apperrors.KindTransient,
				fmt.Sprintf("OpenAI server error (%d): please try again later.", statusCode),
				cause,
			)
		}
		return apperrors.New(
			apperrors.KindBadRequest,
			fmt.Sprintf("OpenAI API error (%d): %s", statusCode, status),
			cause,
		)
	}
}

func isOpenAIModelNotFound(details errorDetails) bool {
	needle := strings.ToLower(details.codeString() + " " + details.Type + " " + details.Message)
	if strings.Contains(needle, "model_not_found") {
		return true
	}
	return strings.Contains(needle, "does not exist or you do not have access to it")
}
