package pipeline

import (
	"fmt"
	"strings"

	"github.com/oukeidos/bisrt/internal/language"
	"github.com/oukeidos/bisrt/internal/metadata"
	"github.com/oukeidos/bisrt/internal/translator"
)

// Config holds everything a run needs besides its input and output.
type Config struct {
	// Languages
	SourceLang string
	TargetLang string

	// Translation service
	Backend string
	Model   string
	Mode    translator.Mode
	BaseURL string // Optional: overrides the service endpoint

	// Budgets
	BatchChars  int
	BatchCount  int
	MaxAttempts int
	BackoffBase float64
}

const (
	DefaultBatchChars = 1800
	DefaultBatchCount = 20
	DefaultSourceLang = language.Auto
	DefaultTargetLang = "zh"

	MinBatchChars  = 100
	MaxBatchChars  = 8000
	MinBatchCount  = 1
	MaxBatchCount  = 100
	MinAttempts    = 1
	MaxAttempts    = 10
	MinBackoffBase = 1.0
	MaxBackoffBase = 5.0
)

// DefaultConfig returns the built-in defaults, the first configuration layer.
func DefaultConfig() Config {
	return Config{
		SourceLang:  DefaultSourceLang,
		TargetLang:  DefaultTargetLang,
		Backend:     metadata.BackendOpenAI,
		Mode:        translator.ModeBatch,
		BatchChars:  DefaultBatchChars,
		BatchCount:  DefaultBatchCount,
		MaxAttempts: translator.DefaultMaxAttempts,
		BackoffBase: translator.DefaultBackoffBase,
	}
}

func clampInt(name string, v, lo, hi int, notes *[]string) int {
	switch {
	case v < lo:
		*notes = append(*notes, fmt.Sprintf("%s raised from %d to %d (min %d)", name, v, lo, lo))
		return lo
	case v > hi:
		*notes = append(*notes, fmt.Sprintf("%s clamped from %d to %d (max %d)", name, v, hi, hi))
		return hi
	}
	return v
}

// Normalize applies safe bounds to config values and returns any adjustments.
func (c Config) Normalize() (Config, []string) {
	var notes []string
	c.BatchChars = clampInt("batch-chars", c.BatchChars, MinBatchChars, MaxBatchChars, &notes)
	c.BatchCount = clampInt("batch-count", c.BatchCount, MinBatchCount, MaxBatchCount, &notes)
	c.MaxAttempts = clampInt("attempts", c.MaxAttempts, MinAttempts, MaxAttempts, &notes)
	if c.BackoffBase < MinBackoffBase {
		notes = append(notes, fmt.Sprintf("backoff base raised from %g to %g", c.BackoffBase, MinBackoffBase))
		c.BackoffBase = MinBackoffBase
	} else if c.BackoffBase > MaxBackoffBase {
		notes = append(notes, fmt.Sprintf("backoff base clamped from %g to %g", c.BackoffBase, MaxBackoffBase))
		c.BackoffBase = MaxBackoffBase
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Mode == "" {
		c.Mode = DefaultMode(c.Backend)
	}
	return c, notes
}

// DefaultMode is batch for services that can translate a list in one request
// and sequential for the rest.
func DefaultMode(backend string) translator.Mode {
	switch backend {
	case metadata.BackendDeepL, metadata.BackendGoogle:
		return translator.ModeSequential
	}
	return translator.ModeBatch
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	src, err := language.Resolve(c.SourceLang, true)
	if err != nil {
		return fmt.Errorf("source language: %w", err)
	}
	tgt, err := language.Resolve(c.TargetLang, false)
	if err != nil {
		return fmt.Errorf("target language: %w", err)
	}
	if src.Code == tgt.Code {
		return fmt.Errorf("source and target languages must be different (%s)", tgt.Code)
	}
	switch c.Backend {
	case metadata.BackendOpenAI, metadata.BackendGemini:
	case metadata.BackendDeepL, metadata.BackendGoogle:
		if c.Mode == translator.ModeBatch {
			return fmt.Errorf("backend %q does not support batch mode; use sequential", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q (want openai, gemini, deepl or google)", c.Backend)
	}
	if _, err := translator.ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.BatchChars <= 0 {
		return fmt.Errorf("batch-chars must be greater than 0, got %d", c.BatchChars)
	}
	if c.BatchCount <= 0 {
		return fmt.Errorf("batch-count must be greater than 0, got %d", c.BatchCount)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("attempts must be greater than 0, got %d", c.MaxAttempts)
	}
	if c.BackoffBase < 1 {
		return fmt.Errorf("backoff base must be at least 1, got %g", c.BackoffBase)
	}
	return nil
}

// Languages resolves the configured codes. The source is the zero Language
// when it is auto-detected.
func (c Config) Languages() (source, target language.Language, err error) {
	if source, err = language.Resolve(c.SourceLang, true); err != nil {
		return
	}
	target, err = language.Resolve(c.TargetLang, false)
	return
}

// ModelID returns the configured model or the backend default.
func (c Config) ModelID() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Backend {
	case metadata.BackendOpenAI:
		return metadata.DefaultOpenAIModel
	case metadata.BackendGemini:
		return metadata.DefaultGeminiModel
	}
	return ""
}
