package translator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/oukeidos/bisrt/internal/apperrors"
	"github.com/oukeidos/bisrt/internal/chunker"
	"github.com/oukeidos/bisrt/internal/logger"
	"github.com/oukeidos/bisrt/internal/metadata"
)

// Translator is the capability every backend has: one text in, one out.
type Translator interface {
	Name() string
	TranslateOne(ctx context.Context, text string) (string, error)
}

// BatchTranslator backends translate an ordered batch in a single request and
// return exactly one translation per input, in order.
type BatchTranslator interface {
	Translator
	TranslateBatch(ctx context.Context, texts []string) ([]string, error)
}

// UsageReporter is implemented by backends that meter what they consumed.
type UsageReporter interface {
	Usage() metadata.Usage
}

// Mode selects how segments are sent to the backend for a whole run.
type Mode string

const (
	ModeBatch      Mode = "batch"
	ModeSequential Mode = "sequential"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBatch:
		return ModeBatch, nil
	case ModeSequential:
		return ModeSequential, nil
	}
	return "", fmt.Errorf("unknown translation mode %q (want batch or sequential)", s)
}

// FailureMarker prefixes the original text of a segment that could not be translated.
const FailureMarker = "[TRANSLATION FAILED] "

func MarkFailed(text string) string {
	return FailureMarker + text
}

func IsFailureMarker(s string) bool {
	return strings.HasPrefix(s, FailureMarker)
}

const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 1.2
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the real SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Observer is told when a batch starts and how far progress advanced after it.
type Observer interface {
	BatchStarted(index, total int)
	Advance(by int)
}

// Stats summarizes what the controller absorbed during a run.
type Stats struct {
	Batches  int
	Degraded int
	Failed   int
	Calls    int
}

// Controller drives a backend with bounded retries and batch-to-segment fallback.
// It never returns a translation error to its caller: segments that cannot be
// translated come back as MarkFailed(original).
type Controller struct {
	backend     Translator
	batch       BatchTranslator
	mode        Mode
	maxAttempts int
	backoffBase float64
	sleep       SleepFunc

	mu    sync.Mutex
	stats Stats
}

type Option func(*Controller)

func WithMaxAttempts(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithBackoffBase(base float64) Option {
	return func(c *Controller) {
		if base >= 1 {
			c.backoffBase = base
		}
	}
}

// WithSleeper replaces the backoff sleep; tests pass a no-op.
func WithSleeper(fn SleepFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// NewController binds a backend to a mode. Batch mode requires a BatchTranslator.
func NewController(backend Translator, mode Mode, opts ...Option) (*Controller, error) {
	if backend == nil {
		return nil, errors.New("translator backend is nil")
	}
	c := &Controller{
		backend:     backend,
		mode:        mode,
		maxAttempts: DefaultMaxAttempts,
		backoffBase: DefaultBackoffBase,
		sleep:       SleepContext,
	}
	switch mode {
	case ModeBatch:
		bt, ok := backend.(BatchTranslator)
		if !ok {
			return nil, fmt.Errorf("backend %q does not support batch mode; use sequential", backend.Name())
		}
		c.batch = bt
	case ModeSequential:
	default:
		return nil, fmt.Errorf("unknown translation mode %q", mode)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) Mode() Mode { return c.mode }

// Backoff is the pause after the failed attempt with 0-based index attempt.
func (c *Controller) Backoff(attempt int) time.Duration {
	ms := math.Round(math.Pow(c.backoffBase, float64(attempt)) * 1000)
	return time.Duration(ms) * time.Millisecond
}

// TranslateOne translates a single text with up to maxAttempts tries, sleeping
// Backoff(i) between try i and i+1. Blank input is returned as "" without a call.
// Auth, quota and bad-request errors and context cancellation end the loop early.
func (c *Controller) TranslateOne(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.Backoff(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}
		attempts++
		c.count(func(s *Stats) { s.Calls++ })

		out, err := c.backend.TranslateOne(ctx, text)
		if err == nil {
			out = strings.TrimSpace(out)
			if out != "" {
				return out
			}
			err = apperrors.Validation(errors.New("empty translation"))
		}
		lastErr = err
		logger.Debug("Segment attempt failed", "backend", c.backend.Name(), "attempt", attempt+1, "error", apperrors.PublicMessage(err))

		if ctx.Err() != nil || apperrors.IsPermanent(err) {
			break
		}
	}

	c.count(func(s *Stats) { s.Failed++ })
	logger.Error("Segment translation failed", "backend", c.backend.Name(), "attempts", attempts, "error", apperrors.PublicMessage(lastErr))
	return MarkFailed(text)
}

// TranslateAll translates n segments planned into batches and returns n
// strings placed by segment index. In batch mode each batch is one request;
// if that request fails or returns the wrong count, every segment of that batch
// goes through TranslateOne instead. Progress advances once per batch in batch
// mode and once per segment in sequential mode. The returned error is non-nil
// only when ctx was cancelled; slots not reached are filled with markers.
func (c *Controller) TranslateAll(ctx context.Context, n int, batches []chunker.Batch, obs Observer) ([]string, error) {
	out := make([]string, n)
	done := make([]bool, n)

	for bi, b := range batches {
		if ctx.Err() != nil {
			break
		}
		if obs != nil {
			obs.BatchStarted(bi, len(batches))
		}
		c.count(func(s *Stats) { s.Batches++ })

		if c.mode == ModeBatch {
			results := c.translateBatch(ctx, b)
			for j, idx := range b.Indices {
				out[idx] = results[j]
				done[idx] = true
			}
			if obs != nil {
				obs.Advance(len(b.Indices))
			}
			continue
		}

		for j, idx := range b.Indices {
			if ctx.Err() != nil {
				break
			}
			out[idx] = c.TranslateOne(ctx, b.Texts[j])
			done[idx] = true
			if obs != nil {
				obs.Advance(1)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		for _, b := range batches {
			for j, idx := range b.Indices {
				if !done[idx] {
					out[idx] = MarkFailed(b.Texts[j])
				}
			}
		}
		return out, err
	}
	return out, nil
}

// translateBatch sends the non-blank texts of b in one request and falls back
// to per-segment translation on any failure.
func (c *Controller) translateBatch(ctx context.Context, b chunker.Batch) []string {
	results := make([]string, len(b.Texts))
	var send []string
	var pos []int
	for j, t := range b.Texts {
		if strings.TrimSpace(t) != "" {
			send = append(send, t)
			pos = append(pos, j)
		}
	}
	if len(send) == 0 {
		return results
	}

	c.count(func(s *Stats) { s.Calls++ })
	got, err := c.batch.TranslateBatch(ctx, send)
	if err == nil {
		err = validateBatch(send, got)
	}
	if err == nil {
		for k, j := range pos {
			results[j] = strings.TrimSpace(got[k])
		}
		return results
	}
	if ctx.Err() != nil {
		for _, j := range pos {
			results[j] = MarkFailed(b.Texts[j])
		}
		return results
	}

	c.count(func(s *Stats) { s.Degraded++ })
	logger.Warn("Batch rejected; translating segments one by one",
		"backend", c.backend.Name(), "batch", b.Index+1, "segments", len(send), "error", apperrors.PublicMessage(err))
	for _, j := range pos {
		results[j] = c.TranslateOne(ctx, b.Texts[j])
	}
	return results
}

func validateBatch(sent, got []string) error {
	if len(got) != len(sent) {
		return apperrors.New(apperrors.KindValidation,
			fmt.Sprintf("Translation count mismatch: expected %d, got %d.", len(sent), len(got)), nil)
	}
	for i, t := range got {
		if strings.TrimSpace(t) == "" {
			return apperrors.Validation(fmt.Errorf("empty translation at position %d", i+1))
		}
	}
	return nil
}

func (c *Controller) count(fn func(*Stats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Usage returns the backend's metered usage, or a request count when the
// backend does not meter.
func (c *Controller) Usage() metadata.Usage {
	if ur, ok := c.backend.(UsageReporter); ok {
		return ur.Usage()
	}
	return metadata.Usage{Requests: c.Stats().Calls}
}
