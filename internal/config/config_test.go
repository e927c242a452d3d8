package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oukeidos/bisrt/internal/pipeline"
	"github.com/oukeidos/bisrt/internal/translator"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Apply(t *testing.T) {
	path := writeConfig(t, `
source = "de"
target = "ja"
backend = "deepl"

[batch]
chars = 900

[retry]
attempts = 5
backoff_base = 2.0
`)
	f, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("Load() = (%q, %v)", resolved, exists)
	}

	cfg := f.Apply(pipeline.DefaultConfig())
	if cfg.SourceLang != "de" || cfg.TargetLang != "ja" || cfg.Backend != "deepl" {
		t.Fatalf("languages/backend not applied: %+v", cfg)
	}
	if cfg.Mode != translator.ModeSequential {
		t.Fatalf("mode = %q, want sequential for deepl", cfg.Mode)
	}
	if cfg.BatchChars != 900 || cfg.BatchCount != pipeline.DefaultBatchCount {
		t.Fatalf("batch = %d/%d", cfg.BatchChars, cfg.BatchCount)
	}
	if cfg.MaxAttempts != 5 || cfg.BackoffBase != 2.0 {
		t.Fatalf("retry = %d/%g", cfg.MaxAttempts, cfg.BackoffBase)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, "tagret = \"ja\"\n")
	if _, _, _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unknown setting") {
		t.Fatalf("Load() err = %v, want unknown setting", err)
	}
}

func TestLoad_BadMode(t *testing.T) {
	path := writeConfig(t, "mode = \"parallel\"\n")
	if _, _, _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestLoad_MissingFiles(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	f, path, exists, err := Load("")
	if err != nil || exists {
		t.Fatalf("Load(\"\") = (%v, %v), want missing default tolerated", exists, err)
	}
	if !strings.HasSuffix(path, filepath.Join("bisrt", "config.toml")) {
		t.Fatalf("default path = %q", path)
	}
	if got := f.Apply(pipeline.DefaultConfig()); got != pipeline.DefaultConfig() {
		t.Fatalf("empty file changed defaults: %+v", got)
	}

	if _, _, _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestCreateSample_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	f, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if got := f.Apply(pipeline.Config{}); got.BatchChars != pipeline.DefaultBatchChars || got.TargetLang != pipeline.DefaultTargetLang {
		t.Fatalf("sample does not carry defaults: %+v", got)
	}
}
