package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oukeidos/bisrt/internal/cleanup"
	"github.com/oukeidos/bisrt/internal/config"
	"github.com/oukeidos/bisrt/internal/files"
	"github.com/oukeidos/bisrt/internal/logger"
	"github.com/oukeidos/bisrt/internal/pipeline"
	"github.com/oukeidos/bisrt/internal/prompt"
	"github.com/oukeidos/bisrt/internal/transcript"
	"github.com/oukeidos/bisrt/internal/translator"
	"github.com/spf13/cobra"
)

type translateOptions struct {
	backend     string
	mode        string
	modelName   string
	baseURL     string
	source      string
	target      string
	batchChars  int
	batchCount  int
	attempts    int
	backoffBase float64
	yes         bool
	logFilePath string
	configPath  string
	allowEnv    bool
	envOnly     bool
	debug       bool
}

var confirmer = prompt.DefaultConfirmer()

func newTranslateCmd() *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate <transcript> [output.srt]",
		Short: "Build a bilingual subtitle file from a transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				_ = cmd.Usage()
				return fmt.Errorf("input transcript is required")
			}
			return runTranslate(cmd, args, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTranslateFlags(cmd, &opts)
	return cmd
}

func addTranslateFlags(cmd *cobra.Command, opts *translateOptions) {
	d := pipeline.DefaultConfig()
	cmd.Flags().StringVar(&opts.backend, "backend", d.Backend, "Translation service (openai, gemini, deepl, google)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "batch or sequential (default: batch for openai/gemini, sequential otherwise)")
	cmd.Flags().StringVar(&opts.modelName, "model", "", "Model name for openai/gemini (default per service)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Override the service endpoint")
	cmd.Flags().StringVar(&opts.source, "source", d.SourceLang, "Source language code, or auto")
	cmd.Flags().StringVar(&opts.target, "target", d.TargetLang, "Target language code")
	cmd.Flags().IntVar(&opts.batchChars, "batch-chars", d.BatchChars, "Character budget per batch")
	cmd.Flags().IntVar(&opts.batchCount, "batch-count", d.BatchCount, "Maximum segments per batch")
	cmd.Flags().IntVar(&opts.attempts, "attempts", d.MaxAttempts, "Attempts per segment before marking it failed (1-10)")
	cmd.Flags().Float64Var(&opts.backoffBase, "backoff", d.BackoffBase, "Backoff base; waits base^n seconds between attempts")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Overwrite output file without asking")
	cmd.Flags().StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/bisrt/config.toml)")
	cmd.Flags().BoolVar(&opts.allowEnv, "allow-env", false, "Allow reading API key from environment variables")
	cmd.Flags().BoolVar(&opts.envOnly, "env-only", false, "Use only environment variables for API keys")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
}

// buildConfig layers defaults, the config file and explicitly set flags.
func buildConfig(cmd *cobra.Command, opts *translateOptions, file config.File) (pipeline.Config, error) {
	cfg := file.Apply(pipeline.DefaultConfig())
	flags := cmd.Flags()

	if flags.Changed("backend") {
		cfg.Backend = strings.ToLower(opts.backend)
		cfg.Mode = pipeline.DefaultMode(cfg.Backend)
	}
	if flags.Changed("mode") {
		mode, err := translator.ParseMode(opts.mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if flags.Changed("model") {
		cfg.Model = opts.modelName
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if flags.Changed("source") {
		cfg.SourceLang = opts.source
	}
	if flags.Changed("target") {
		cfg.TargetLang = opts.target
	}
	if flags.Changed("batch-chars") {
		cfg.BatchChars = opts.batchChars
	}
	if flags.Changed("batch-count") {
		cfg.BatchCount = opts.batchCount
	}
	if flags.Changed("attempts") {
		cfg.MaxAttempts = opts.attempts
	}
	if flags.Changed("backoff") {
		cfg.BackoffBase = opts.backoffBase
	}

	cfg, notes := cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return logger.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return logger.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func openLogFile(path string) (io.Writer, error) {
	if err := files.RejectSymlinkPath(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	cleanup.Register(f.Close)
	return f, nil
}

func validatePaths(inputPath, outputPath string) error {
	if !transcript.SupportedInput(inputPath) {
		return fmt.Errorf("unsupported input extension %q (supported: .json, .srt, .vtt, .ass, .ssa, .stl, .ttml)", extLabel(inputPath))
	}
	if outputPath != "" {
		if err := validateOutputExtension(outputPath); err != nil {
			return err
		}
	}
	return nil
}

// resolveOutputPath returns where the result is written. An existing file is
// replaced only with --yes or an interactive yes; otherwise a free sibling
// name is used.
func resolveOutputPath(outputPath string, yes bool) (string, error) {
	if _, err := os.Stat(outputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return outputPath, nil
		}
		return "", fmt.Errorf("failed to stat output path: %w", err)
	}
	overwrite, err := confirmer.ConfirmOverwrite(outputPath, yes)
	if err != nil {
		return "", err
	}
	if overwrite {
		logger.Info("Overwriting output file", "path", outputPath)
		return outputPath, nil
	}
	safe, changed, err := files.SafePath(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}
	if changed {
		logger.Warn("Output path adjusted to avoid overwrite", "requested", outputPath, "effective", safe)
	}
	return safe, nil
}

func runTranslate(cmd *cobra.Command, args []string, opts *translateOptions) error {
	if len(args) > 2 {
		fmt.Fprintf(os.Stderr, "Warning: expected at most 2 arguments but got %d. Did you forget quotes around file paths?\n", len(args))
	}
	inputPath := args[0]
	outputPath := ""
	if len(args) > 1 {
		outputPath = args[1]
	}
	if err := validatePaths(inputPath, outputPath); err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = files.DefaultOutputPath(inputPath)
	}

	file, cfgPath, cfgExists, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	level, err := parseLevel(file.Log.Level)
	if err != nil {
		return err
	}
	if opts.debug {
		level = logger.LevelDebug
	}
	logPath := file.Log.File
	if opts.logFilePath != "" {
		logPath = opts.logFilePath
	}
	var logFileW io.Writer
	if logPath != "" {
		if logFileW, err = openLogFile(logPath); err != nil {
			return err
		}
	}
	logger.Init(level, logFileW)
	if cfgExists {
		logger.Debug("Loaded config file", "path", cfgPath)
	}

	cfg, err := buildConfig(cmd, opts, file)
	if err != nil {
		return err
	}

	startTime := time.Now()

	segments, err := transcript.Load(inputPath)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}
	logger.Info("Loaded transcript", "segments", len(segments), "path", inputPath)

	apiKey, source, err := resolveAPIKey(cfg.Backend, opts.allowEnv, opts.envOnly)
	if err != nil {
		return err
	}
	logger.Info("Using API Key", "service", cfg.Backend, "source", string(source))

	outputPath, err = resolveOutputPath(outputPath, opts.yes)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	backend, closeBackend, err := pipeline.NewBackend(ctx, cfg, apiKey)
	if err != nil {
		return err
	}
	cleanup.Register(closeBackend)

	logger.Info("Starting translation", "service", cfg.Backend, "model", cfg.ModelID(), "mode", cfg.Mode,
		"source", cfg.SourceLang, "target", cfg.TargetLang)
	events := pipeline.Start(ctx, pipeline.Request{
		Segments:   segments,
		Backend:    backend,
		Config:     cfg,
		InputPath:  inputPath,
		OutputPath: outputPath,
	})
	final := watchProgress(events)

	if final.Result != nil {
		printUsageStats(cmd.OutOrStdout(), final.Result.Usage, time.Since(startTime), cfg.Backend, cfg.ModelID())
	}
	return finalError(ctx.Err() != nil, final)
}

// watchProgress logs progress events and returns the terminal one.
func watchProgress(events <-chan pipeline.Event) pipeline.Event {
	var final pipeline.Event
	lastCompleted := -1
	for ev := range events {
		switch ev.Stage {
		case pipeline.StageTranslating:
			if ev.Completed != lastCompleted {
				lastCompleted = ev.Completed
				logger.Info("Progress", "completed", ev.Completed, "total", ev.Total, "batch", ev.Batch, "batches", ev.Batches)
			}
		case pipeline.StageChunking, pipeline.StageAssembling:
			logger.Debug("Stage", "stage", string(ev.Stage))
		}
		if ev.Stage.Terminal() {
			final = ev
		}
	}
	return final
}

func finalError(canceled bool, ev pipeline.Event) error {
	if ev.Stage == pipeline.StageDone && ev.Result != nil {
		res := ev.Result
		if res.Failed > 0 {
			logger.Warn("Finished with untranslated segments", "failed", res.Failed, "cues", len(res.Cues), "path", res.OutputPath)
		} else {
			logger.Info("Finished", "cues", len(res.Cues), "degraded_batches", res.Degraded, "path", res.OutputPath)
		}
		return nil
	}
	if canceled {
		logger.Warn("Translation canceled; no output written", "error", ev.Err)
		return nil
	}
	if errors.Is(ev.Err, pipeline.ErrNoSpeech) {
		return fmt.Errorf("nothing to translate: %w", ev.Err)
	}
	if ev.Err == nil {
		return errors.New("translation ended without a result")
	}
	return ev.Err
}
