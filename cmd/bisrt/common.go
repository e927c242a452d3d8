package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oukeidos/bisrt/internal/auth"
	"github.com/oukeidos/bisrt/internal/logger"
	"github.com/oukeidos/bisrt/internal/metadata"
	"golang.org/x/term"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey
)

const sourcePrompt auth.Source = "Terminal Prompt"

var serviceLabels = map[string]string{
	metadata.BackendOpenAI: "OpenAI",
	metadata.BackendGemini: "Gemini",
	metadata.BackendDeepL:  "DeepL",
	metadata.BackendGoogle: "Google Translate",
}

func serviceLabel(service string) string {
	if l, ok := serviceLabels[service]; ok {
		return l
	}
	return service
}

// resolveAPIKey handles the logic for finding the API key.
func resolveAPIKey(service string, allowEnv, envOnly bool) (string, auth.Source, error) {
	if envOnly {
		if key, ok := getEnvKey(service); ok {
			return key, auth.SourceEnv, nil
		}
		return "", auth.SourceNone, fmt.Errorf("env-only set but %s is not set", auth.EnvVar(service))
	}

	key, source, err := getKey(service, false)
	if err != nil {
		return "", auth.SourceNone, err
	}
	if key != "" {
		return key, source, nil
	}

	if allowEnv {
		if key, ok := getEnvKey(service); ok {
			return key, auth.SourceEnv, nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", auth.SourceNone, fmt.Errorf("no API key available (non-interactive shell); run 'bisrt env setup --service %s' or use --allow-env", service)
	}
	key, err = promptForKey(fmt.Sprintf("%s API Key (press Enter to skip): ", serviceLabel(service)))
	if err != nil {
		return "", auth.SourceNone, fmt.Errorf("error reading API key: %w", err)
	}
	if key = strings.TrimSpace(key); key != "" {
		return key, sourcePrompt, nil
	}

	if allowEnv {
		return "", auth.SourceNone, fmt.Errorf("API key is required; not found in keychain or %s", auth.EnvVar(service))
	}
	return "", auth.SourceNone, fmt.Errorf("API key is required; not found in keychain (environment disabled by default; use --allow-env)")
}

func printUsageStats(w io.Writer, usage metadata.Usage, duration time.Duration, backend, model string) {
	fmt.Fprintln(w, "\n--- Execution Stats ---")
	fmt.Fprintf(w, "Time: %s\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Service: %s\n", serviceLabel(backend))
	if model != "" {
		fmt.Fprintf(w, "Model: %s\n", model)
	}
	fmt.Fprintf(w, "Requests: %d\n", usage.Requests)

	pricing, known := metadata.Pricing(backend, model)
	switch {
	case usage.TotalTokens() > 0:
		fmt.Fprintf(w, "Tokens: In=%d, Out=%d, Total=%d\n", usage.InputTokens, usage.OutputTokens, usage.TotalTokens())
	case usage.Characters > 0:
		fmt.Fprintf(w, "Characters: %d\n", usage.Characters)
	default:
		return
	}
	note := ""
	if !known {
		note = " (unknown model; default rates)"
	}
	fmt.Fprintf(w, "Estimated Cost: $%.5f%s\n", pricing.Cost(usage), note)
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
