// Package pipeline runs one plan, translate and assemble pass on a background
// worker and reports progress as events.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/oukeidos/bisrt/internal/chunker"
	"github.com/oukeidos/bisrt/internal/files"
	"github.com/oukeidos/bisrt/internal/logger"
	"github.com/oukeidos/bisrt/internal/metadata"
	"github.com/oukeidos/bisrt/internal/progress"
	"github.com/oukeidos/bisrt/internal/subtitle"
	"github.com/oukeidos/bisrt/internal/translator"
)

// ErrNoSpeech is returned for a run whose segment list is empty.
var ErrNoSpeech = errors.New("no speech detected")

// Stage is a state of the run state machine.
type Stage string

const (
	StageIdle        Stage = "Idle"
	StageChunking    Stage = "Chunking"
	StageTranslating Stage = "Translating"
	StageAssembling  Stage = "Assembling"
	StageDone        Stage = "Done"
	StageFailed      Stage = "Failed"
)

// Terminal reports whether no event follows one in this stage.
func (s Stage) Terminal() bool { return s == StageDone || s == StageFailed }

// Status is the terminal outcome of a run.
type Status string

const (
	StatusSuccess  Status = "Success"
	StatusNoSpeech Status = "No Speech"
	StatusFailed   Status = "Failed"
)

// Result describes a finished run.
type Result struct {
	Status     Status
	OutputPath string
	Cues       []subtitle.Cue
	Batches    int
	Failed     int // cues carrying a failure marker
	Degraded   int // batches that fell back to per-segment translation
	Usage      metadata.Usage
}

// Event is sent from the worker to its observer. Batch is 1-based and only
// set while translating. Result is set on Done and Failed, Err only on Failed.
type Event struct {
	Stage     Stage
	Completed int
	Total     int
	Batch     int
	Batches   int
	Result    *Result
	Err       error
}

// Request is the input of one run. Segments with blank text carry nothing to
// translate and are dropped before planning, so every cue has a non-empty
// original and translation.
type Request struct {
	Segments   []subtitle.Segment
	Backend    translator.Translator
	Config     Config
	OutputPath string // empty: assemble only, write nothing
	InputPath  string // optional, guards against overwriting the input

	// Sleep replaces the retry backoff wait; nil means real time.
	Sleep translator.SleepFunc
}

// EventBuffer is the capacity of the channel returned by Start.
const EventBuffer = 64

// Start launches the run on its own goroutine and returns immediately.
// Progress events are dropped when the observer falls behind; the terminal
// Done or Failed event is always delivered, after which the channel closes.
// The worker never blocks on the channel: the last buffer slot is kept for
// the terminal event, so an observer that stops reading does not strand it.
func Start(ctx context.Context, req Request) <-chan Event {
	ch := make(chan Event, EventBuffer)
	go func() {
		defer close(ch)
		emit := func(ev Event) {
			// Only this goroutine sends, so len can only shrink under us.
			if len(ch) >= cap(ch)-1 {
				return
			}
			ch <- ev
		}
		res, err := run(ctx, req, emit)
		ch <- terminalEvent(res, err, len(speechSegments(req.Segments)))
	}()
	return ch
}

// Run executes the request on the calling goroutine.
func Run(ctx context.Context, req Request) (Result, error) {
	return run(ctx, req, func(Event) {})
}

func terminalEvent(res Result, err error, total int) Event {
	if err != nil {
		return Event{Stage: StageFailed, Total: total, Result: &res, Err: err}
	}
	return Event{Stage: StageDone, Completed: total, Total: total, Batches: res.Batches, Result: &res}
}

func speechSegments(segs []subtitle.Segment) []subtitle.Segment {
	out := make([]subtitle.Segment, 0, len(segs))
	for _, seg := range segs {
		if strings.TrimSpace(seg.Text) != "" {
			out = append(out, seg)
		}
	}
	return out
}

type observer struct {
	emit     func(Event)
	reporter *progress.Reporter
	batch    int
	batches  int
}

func (o *observer) BatchStarted(index, total int) {
	o.batch, o.batches = index+1, total
	s := o.reporter.Snapshot()
	o.emit(Event{Stage: StageTranslating, Completed: s.Completed, Total: s.Total, Batch: o.batch, Batches: total})
}

func (o *observer) Advance(by int) { o.reporter.Advance(by) }

func run(ctx context.Context, req Request, emit func(Event)) (Result, error) {
	log := logger.L().With("run", uuid.NewString())
	failed := Result{Status: StatusFailed}

	cfg, notes := req.Config.Normalize()
	for _, note := range notes {
		log.Warn("Config normalized", "detail", note)
	}
	if err := cfg.Validate(); err != nil {
		return failed, fmt.Errorf("invalid configuration: %w", err)
	}
	if req.Backend == nil {
		return failed, errors.New("translation backend is required")
	}
	if req.OutputPath != "" {
		if err := checkOutputPath(req.InputPath, req.OutputPath); err != nil {
			return failed, err
		}
	}

	segments := speechSegments(req.Segments)
	if dropped := len(req.Segments) - len(segments); dropped > 0 {
		log.Warn("Dropped blank segments", "dropped", dropped, "kept", len(segments))
	}

	emit(Event{Stage: StageChunking, Total: len(segments)})
	if len(segments) == 0 {
		log.Warn("No speech segments to translate")
		return Result{Status: StatusNoSpeech}, ErrNoSpeech
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	maxCount := cfg.BatchCount
	if cfg.Mode == translator.ModeSequential {
		maxCount = 1
	}
	batches := chunker.Plan(texts, cfg.BatchChars, maxCount)
	for _, b := range batches {
		if b.Oversized(cfg.BatchChars) {
			log.Warn("Segment exceeds batch budget; sending alone", "batch", b.Index+1, "segment", b.Indices[0]+1, "chars", b.Chars())
		}
	}
	log.Info("Planned batches", "segments", len(texts), "batches", len(batches), "mode", cfg.Mode, "backend", req.Backend.Name())

	opts := []translator.Option{
		translator.WithMaxAttempts(cfg.MaxAttempts),
		translator.WithBackoffBase(cfg.BackoffBase),
	}
	if req.Sleep != nil {
		opts = append(opts, translator.WithSleeper(req.Sleep))
	}
	ctrl, err := translator.NewController(req.Backend, cfg.Mode, opts...)
	if err != nil {
		return failed, err
	}

	obs := &observer{emit: emit}
	obs.reporter = progress.New(len(texts), func(s progress.State) {
		emit(Event{Stage: StageTranslating, Completed: s.Completed, Total: s.Total, Batch: obs.batch, Batches: obs.batches})
	})

	translations, err := ctrl.TranslateAll(ctx, len(texts), batches, obs)
	stats := ctrl.Stats()
	failed.Batches = stats.Batches
	failed.Degraded = stats.Degraded
	failed.Usage = ctrl.Usage()
	if err != nil {
		log.Warn("Translation canceled", "completed", obs.reporter.Snapshot().Completed, "total", len(texts))
		return failed, fmt.Errorf("translation canceled: %w", err)
	}

	emit(Event{Stage: StageAssembling, Completed: len(texts), Total: len(texts)})
	cues := subtitle.Assemble(segments, translations)
	res := Result{
		Status:   StatusSuccess,
		Cues:     cues,
		Batches:  len(batches),
		Failed:   subtitle.CountFailed(cues),
		Degraded: stats.Degraded,
		Usage:    failed.Usage,
	}
	if res.Failed > 0 {
		log.Warn("Some segments could not be translated", "failed", res.Failed, "total", len(cues))
	}

	if req.OutputPath != "" {
		if err := subtitle.Save(req.OutputPath, cues); err != nil {
			failed.Cues = cues
			failed.Failed = res.Failed
			return failed, fmt.Errorf("failed to save output file: %w", err)
		}
		res.OutputPath = req.OutputPath
		log.Info("Saved bilingual subtitles", "path", req.OutputPath, "cues", len(cues))
	}
	return res, nil
}

func checkOutputPath(inputPath, outputPath string) error {
	if !subtitle.SupportedOutput(outputPath) {
		return fmt.Errorf("unsupported output format %q (want .srt or .vtt)", filepath.Ext(outputPath))
	}
	if err := files.RejectSymlinkPath(outputPath); err != nil {
		return err
	}
	if inputPath == "" {
		return nil
	}
	absIn, err := filepath.Abs(inputPath)
	if err != nil {
		return fmt.Errorf("failed to resolve input path: %w", err)
	}
	absOut, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}
	if absIn == absOut {
		return fmt.Errorf("input and output files are the same (%s)", absIn)
	}
	inInfo, err := os.Stat(absIn)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat input path: %w", err)
	}
	outInfo, err := os.Stat(absOut)
	if err == nil && os.SameFile(inInfo, outInfo) {
		return fmt.Errorf("input and output files are the same (%s)", absIn)
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat output path: %w", err)
	}
	return nil
}
