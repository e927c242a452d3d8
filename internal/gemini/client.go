package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/oukeidos/bisrt/internal/apperrors"
	"github.com/oukeidos/bisrt/internal/batchjson"
	"github.com/oukeidos/bisrt/internal/httpclient"
	"github.com/oukeidos/bisrt/internal/metadata"
	"google.golang.org/api/option"
)

// generator is the part of *genai.GenerativeModel the client uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client is a batch-capable translation backend on the Gemini API.
type Client struct {
	client     *genai.Client
	modelName  string
	sourceName string
	targetName string
	newModel   func(system string, jsonArray bool) generator

	mu    sync.Mutex
	usage metadata.Usage
}

// NewClient creates a Gemini client translating from sourceName (empty for
// auto-detect) into targetName.
func NewClient(ctx context.Context, apiKey, modelName, sourceName, targetName string) (*Client, error) {
	// option.WithHTTPClient would bypass genai's API key header injection,
	// so request timeouts are applied through the context instead.
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = metadata.DefaultGeminiModel
	}
	c := &Client{
		client:     client,
		modelName:  modelName,
		sourceName: sourceName,
		targetName: targetName,
	}
	c.newModel = c.configureModel
	return c, nil
}

func (c *Client) configureModel(system string, jsonArray bool) generator {
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(float32(batchjson.Temperature))
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	if jsonArray {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		}
	}
	return model
}

// Close closes the underlying genai client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) Name() string { return metadata.BackendGemini }

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string { return c.modelName }

// TranslateBatch asks for a JSON array of exactly len(texts) strings.
func (c *Client) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	model := c.newModel(batchjson.SystemPrompt(c.sourceName, c.targetName, len(texts)), true)
	text, err := c.generate(ctx, model, batchjson.Join(texts))
	if err != nil {
		return nil, err
	}
	return batchjson.Parse(text, len(texts))
}

// TranslateOne translates a single line as plain text.
func (c *Client) TranslateOne(ctx context.Context, text string) (string, error) {
	model := c.newModel(batchjson.SinglePrompt(c.sourceName, c.targetName), false)
	out, err := c.generate(ctx, model, text)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", apperrors.New(apperrors.KindValidation, "Gemini returned an empty translation.", nil)
	}
	return out, nil
}

// Usage returns the tokens consumed so far.
func (c *Client) Usage() metadata.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

func (c *Client) generate(ctx context.Context, model generator, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, httpclient.DefaultTimeout)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genai.Text(input))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	u := metadata.Usage{Requests: 1}
	if resp != nil && resp.UsageMetadata != nil {
		u.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		u.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	c.mu.Lock()
	c.usage.Add(u)
	c.mu.Unlock()

	text, err := extractResponseText(resp)
	if err != nil {
		return "", apperrors.Validation(err)
	}
	return text, nil
}

func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no response received from Gemini")
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			continue
		}
		var combined strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				combined.WriteString(string(text))
			}
		}
		if combined.Len() > 0 {
			return combined.String(), nil
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}
