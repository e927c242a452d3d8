package translator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oukeidos/bisrt/internal/apperrors"
	"github.com/oukeidos/bisrt/internal/chunker"
)

// fakeBackend answers TranslateOne from a queue of errors and then by
// upper-casing the input. TranslateBatch is controlled by batchFn.
type fakeBackend struct {
	mu        sync.Mutex
	oneErrs   []error
	oneCalls  []string
	batchFn   func(texts []string) ([]string, error)
	batchSeen [][]string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) TranslateOne(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oneCalls = append(f.oneCalls, text)
	if len(f.oneErrs) > 0 {
		err := f.oneErrs[0]
		f.oneErrs = f.oneErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return strings.ToUpper(text), nil
}

func (f *fakeBackend) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	f.mu.Lock()
	f.batchSeen = append(f.batchSeen, append([]string(nil), texts...))
	fn := f.batchFn
	f.mu.Unlock()
	if fn == nil {
		out := make([]string, len(texts))
		for i, t := range texts {
			out[i] = "B:" + t
		}
		return out, nil
	}
	return fn(texts)
}

// sequentialOnly hides the batch capability of a fakeBackend.
type sequentialOnly struct{ inner *fakeBackend }

func (s sequentialOnly) Name() string { return "seq" }
func (s sequentialOnly) TranslateOne(ctx context.Context, text string) (string, error) {
	return s.inner.TranslateOne(ctx, text)
}

type recordingSleeper struct {
	slept []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return ctx.Err()
}

type recordingObserver struct {
	started  []int
	advances []int
}

func (o *recordingObserver) BatchStarted(index, total int) { o.started = append(o.started, index) }
func (o *recordingObserver) Advance(by int)                { o.advances = append(o.advances, by) }

func alwaysFail(n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = apperrors.Transient(errors.New("boom"))
	}
	return errs
}

func TestNewController_BatchRequiresCapability(t *testing.T) {
	if _, err := NewController(sequentialOnly{&fakeBackend{}}, ModeBatch); err == nil {
		t.Fatalf("expected error for batch mode on a sequential backend")
	}
	if _, err := NewController(sequentialOnly{&fakeBackend{}}, ModeSequential); err != nil {
		t.Fatalf("sequential mode should accept any backend: %v", err)
	}
	if _, err := NewController(&fakeBackend{}, Mode("parallel")); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestTranslateOne_AlwaysFailing(t *testing.T) {
	backend := &fakeBackend{oneErrs: alwaysFail(10)}
	sleeper := &recordingSleeper{}
	c, err := NewController(backend, ModeSequential, WithSleeper(sleeper.sleep))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	got := c.TranslateOne(context.Background(), "Hallo")
	if !IsFailureMarker(got) || !strings.Contains(got, "Hallo") {
		t.Fatalf("expected failure marker with original text, got %q", got)
	}
	if len(backend.oneCalls) != DefaultMaxAttempts {
		t.Fatalf("expected exactly %d attempts, got %d", DefaultMaxAttempts, len(backend.oneCalls))
	}
	want := []time.Duration{time.Second, 1200 * time.Millisecond}
	if len(sleeper.slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), sleeper.slept)
	}
	for i := range want {
		if sleeper.slept[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, sleeper.slept[i], want[i])
		}
	}
	if c.Stats().Failed != 1 {
		t.Errorf("Stats().Failed = %d, want 1", c.Stats().Failed)
	}
}

func TestTranslateOne_RecoversAfterTransient(t *testing.T) {
	backend := &fakeBackend{oneErrs: alwaysFail(2)}
	c, _ := NewController(backend, ModeSequential, WithSleeper(func(context.Context, time.Duration) error { return nil }))

	if got := c.TranslateOne(context.Background(), "welt"); got != "WELT" {
		t.Fatalf("TranslateOne = %q, want WELT", got)
	}
	if len(backend.oneCalls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(backend.oneCalls))
	}
}

func TestTranslateOne_PermanentStopsEarly(t *testing.T) {
	for _, err := range []error{
		apperrors.Auth(errors.New("401")),
		apperrors.New(apperrors.KindQuota, "", nil),
		apperrors.BadRequest(errors.New("400")),
	} {
		backend := &fakeBackend{oneErrs: []error{err, err, err}}
		sleeper := &recordingSleeper{}
		c, _ := NewController(backend, ModeSequential, WithSleeper(sleeper.sleep))

		got := c.TranslateOne(context.Background(), "x")
		if !IsFailureMarker(got) {
			t.Fatalf("expected marker, got %q", got)
		}
		if len(backend.oneCalls) != 1 || len(sleeper.slept) != 0 {
			t.Fatalf("%v: expected one call and no sleep, got %d calls %d sleeps", err, len(backend.oneCalls), len(sleeper.slept))
		}
	}
}

func TestTranslateOne_BlankInput(t *testing.T) {
	backend := &fakeBackend{}
	c, _ := NewController(backend, ModeSequential)
	if got := c.TranslateOne(context.Background(), "   "); got != "" {
		t.Fatalf("TranslateOne(blank) = %q, want empty", got)
	}
	if len(backend.oneCalls) != 0 {
		t.Fatalf("backend should not be called for blank input")
	}
}

func TestTranslateOne_MaxAttemptsOption(t *testing.T) {
	backend := &fakeBackend{oneErrs: alwaysFail(10)}
	c, _ := NewController(backend, ModeSequential, WithMaxAttempts(5), WithBackoffBase(2),
		WithSleeper(func(context.Context, time.Duration) error { return nil }))
	c.TranslateOne(context.Background(), "x")
	if len(backend.oneCalls) != 5 {
		t.Fatalf("expected 5 attempts, got %d", len(backend.oneCalls))
	}
	if got := c.Backoff(3); got != 8*time.Second {
		t.Fatalf("Backoff(3) with base 2 = %v, want 8s", got)
	}
}

func TestTranslateOne_CancelledDuringBackoff(t *testing.T) {
	backend := &fakeBackend{oneErrs: alwaysFail(10)}
	ctx, cancel := context.WithCancel(context.Background())
	c, _ := NewController(backend, ModeSequential, WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	got := c.TranslateOne(ctx, "x")
	if !IsFailureMarker(got) {
		t.Fatalf("expected marker, got %q", got)
	}
	if len(backend.oneCalls) != 1 {
		t.Fatalf("expected retries to stop after cancellation, got %d calls", len(backend.oneCalls))
	}
}

func threeBatches() (int, []chunker.Batch) {
	texts := []string{"a", "b", "c", "d", "e"}
	return len(texts), chunker.Plan(texts, 1000, 2)
}

func TestTranslateAll_BatchMode(t *testing.T) {
	backend := &fakeBackend{}
	c, _ := NewController(backend, ModeBatch)
	obs := &recordingObserver{}
	n, batches := threeBatches()

	out, err := c.TranslateAll(context.Background(), n, batches, obs)
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	if strings.Join(out, ",") != "B:a,B:b,B:c,B:d,B:e" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(backend.batchSeen) != 3 || len(backend.oneCalls) != 0 {
		t.Fatalf("expected 3 batch calls and no single calls, got %d/%d", len(backend.batchSeen), len(backend.oneCalls))
	}
	if got := obs.advances; len(got) != 3 || got[0] != 2 || got[1] != 2 || got[2] != 1 {
		t.Fatalf("expected one advance per batch, got %v", got)
	}
}

func TestTranslateAll_CountMismatchFallsBack(t *testing.T) {
	backend := &fakeBackend{batchFn: func(texts []string) ([]string, error) {
		if len(texts) == 2 && texts[0] == "c" {
			return []string{"only one"}, nil
		}
		out := make([]string, len(texts))
		for i, t := range texts {
			out[i] = "B:" + t
		}
		return out, nil
	}}
	c, _ := NewController(backend, ModeBatch)
	n, batches := threeBatches()

	out, err := c.TranslateAll(context.Background(), n, batches, nil)
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	if strings.Join(out, ",") != "B:a,B:b,C,D,B:e" {
		t.Fatalf("mismatched batch must be fully replaced by fallback, got %q", out)
	}
	if strings.Join(backend.oneCalls, ",") != "c,d" {
		t.Fatalf("fallback should cover exactly the bad batch, got %v", backend.oneCalls)
	}
	if c.Stats().Degraded != 1 {
		t.Fatalf("Degraded = %d, want 1", c.Stats().Degraded)
	}
}

func TestTranslateAll_BatchErrorFallsBack(t *testing.T) {
	backend := &fakeBackend{batchFn: func([]string) ([]string, error) {
		return nil, apperrors.Transient(errors.New("503"))
	}}
	c, _ := NewController(backend, ModeBatch)
	obs := &recordingObserver{}
	n, batches := threeBatches()

	out, err := c.TranslateAll(context.Background(), n, batches, obs)
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	if strings.Join(out, ",") != "A,B,C,D,E" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(obs.advances) != 3 {
		t.Fatalf("batch mode should advance once per batch even after fallback, got %v", obs.advances)
	}
}

func TestTranslateAll_EmptyTranslationRejectsBatch(t *testing.T) {
	backend := &fakeBackend{batchFn: func(texts []string) ([]string, error) {
		out := make([]string, len(texts))
		out[0] = "ok"
		return out, nil
	}}
	c, _ := NewController(backend, ModeBatch)
	out, _ := c.TranslateAll(context.Background(), 2, chunker.Plan([]string{"x", "y"}, 100, 20), nil)
	if strings.Join(out, ",") != "X,Y" {
		t.Fatalf("expected fallback output, got %q", out)
	}
}

func TestTranslateAll_BlankSegmentsSkipped(t *testing.T) {
	backend := &fakeBackend{}
	c, _ := NewController(backend, ModeBatch)
	texts := []string{"a", "", "b"}
	out, _ := c.TranslateAll(context.Background(), 3, chunker.Plan(texts, 100, 20), nil)
	if out[0] != "B:a" || out[1] != "" || out[2] != "B:b" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(backend.batchSeen) != 1 || len(backend.batchSeen[0]) != 2 {
		t.Fatalf("blank segments should not be sent, got %v", backend.batchSeen)
	}
}

func TestTranslateAll_SequentialMode(t *testing.T) {
	backend := &fakeBackend{}
	c, _ := NewController(sequentialOnly{backend}, ModeSequential)
	obs := &recordingObserver{}
	texts := []string{"a", "b", "c"}

	out, err := c.TranslateAll(context.Background(), 3, chunker.Plan(texts, 100, 1), obs)
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	if strings.Join(out, ",") != "A,B,C" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(obs.advances) != 3 {
		t.Fatalf("sequential mode should advance once per segment, got %v", obs.advances)
	}
}

func TestTranslateAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &fakeBackend{batchFn: func(texts []string) ([]string, error) {
		cancel()
		return nil, context.Canceled
	}}
	c, _ := NewController(backend, ModeBatch)
	n, batches := threeBatches()

	out, err := c.TranslateAll(ctx, n, batches, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(out) != n {
		t.Fatalf("expected %d slots, got %d", n, len(out))
	}
	for i, s := range out {
		if !IsFailureMarker(s) {
			t.Fatalf("slot %d should be a marker after cancellation, got %q", i, s)
		}
	}
	if len(backend.batchSeen) != 1 {
		t.Fatalf("no further batches should run after cancellation, got %d", len(backend.batchSeen))
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" Batch "); err != nil || m != ModeBatch {
		t.Fatalf("ParseMode(Batch) = %q, %v", m, err)
	}
	if _, err := ParseMode("stream"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
