package pipeline

import (
	"context"
	"fmt"

	"github.com/oukeidos/bisrt/internal/deepl"
	"github.com/oukeidos/bisrt/internal/gemini"
	"github.com/oukeidos/bisrt/internal/googletranslate"
	"github.com/oukeidos/bisrt/internal/metadata"
	"github.com/oukeidos/bisrt/internal/openai"
	"github.com/oukeidos/bisrt/internal/translator"
)

// NewBackend builds the translation client named by cfg.Backend. The returned
// close func releases SDK resources and is never nil.
func NewBackend(ctx context.Context, cfg Config, apiKey string) (translator.Translator, func() error, error) {
	noop := func() error { return nil }
	if apiKey == "" {
		return nil, noop, fmt.Errorf("API key is required")
	}
	src, tgt, err := cfg.Languages()
	if err != nil {
		return nil, noop, err
	}

	switch cfg.Backend {
	case metadata.BackendOpenAI:
		var opts []openai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.NewClient(apiKey, cfg.ModelID(), src.Name, tgt.Name, opts...), noop, nil
	case metadata.BackendGemini:
		c, err := gemini.NewClient(ctx, apiKey, cfg.ModelID(), src.Name, tgt.Name)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return c, c.Close, nil
	case metadata.BackendDeepL:
		c, err := deepl.NewClient(apiKey, src, tgt)
		if err != nil {
			return nil, noop, err
		}
		if cfg.BaseURL != "" {
			c.SetBaseURL(cfg.BaseURL)
		}
		return c, noop, nil
	case metadata.BackendGoogle:
		c, err := googletranslate.NewClient(ctx, apiKey, src, tgt, cfg.BaseURL)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown backend %q", cfg.Backend)
}
