// Package config reads the optional TOML settings file. File values sit
// between the built-in defaults and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/oukeidos/bisrt/internal/files"
	"github.com/oukeidos/bisrt/internal/pipeline"
	"github.com/oukeidos/bisrt/internal/translator"
	"github.com/pelletier/go-toml/v2"
)

// File mirrors config.toml. Zero values mean "not set".
type File struct {
	Source  string `toml:"source"`
	Target  string `toml:"target"`
	Backend string `toml:"backend"`
	Model   string `toml:"model,omitempty"`
	Mode    string `toml:"mode"`
	BaseURL string `toml:"base_url,omitempty"`

	Batch Batch `toml:"batch"`
	Retry Retry `toml:"retry"`
	Log   Log   `toml:"log"`
}

type Batch struct {
	Chars int `toml:"chars"`
	Count int `toml:"count"`
}

type Retry struct {
	Attempts    int     `toml:"attempts"`
	BackoffBase float64 `toml:"backoff_base"`
}

type Log struct {
	File  string `toml:"file,omitempty"`
	Level string `toml:"level"`
}

// DefaultPath is $XDG_CONFIG_HOME/bisrt/config.toml, or the platform's
// user config directory.
func DefaultPath() (string, error) {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve config directory: %w", err)
		}
		base = dir
	}
	return filepath.Join(base, "bisrt", "config.toml"), nil
}

// Load reads path, or DefaultPath when path is empty. A missing default file
// is not an error; a missing explicit file is.
func Load(path string) (File, string, bool, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return File{}, "", false, err
		}
		path = p
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return File{}, path, false, nil
		}
		return File{}, path, false, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg File
	decoder := toml.NewDecoder(f)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return File{}, path, true, fmt.Errorf("parse config %s: unknown setting:\n%s", path, strict.String())
		}
		return File{}, path, true, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Mode != "" {
		if _, err := translator.ParseMode(cfg.Mode); err != nil {
			return File{}, path, true, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return cfg, path, true, nil
}

// Apply overlays the values set in f onto base.
func (f File) Apply(base pipeline.Config) pipeline.Config {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&base.SourceLang, f.Source)
	set(&base.TargetLang, f.Target)
	set(&base.Model, f.Model)
	set(&base.BaseURL, f.BaseURL)
	if b := strings.TrimSpace(f.Backend); b != "" {
		base.Backend = strings.ToLower(b)
		// The backend's natural mode unless the file also names one.
		base.Mode = pipeline.DefaultMode(base.Backend)
	}
	if m, err := translator.ParseMode(f.Mode); err == nil {
		base.Mode = m
	}
	if f.Batch.Chars != 0 {
		base.BatchChars = f.Batch.Chars
	}
	if f.Batch.Count != 0 {
		base.BatchCount = f.Batch.Count
	}
	if f.Retry.Attempts != 0 {
		base.MaxAttempts = f.Retry.Attempts
	}
	if f.Retry.BackoffBase != 0 {
		base.BackoffBase = f.Retry.BackoffBase
	}
	return base
}

// Sample renders the built-in defaults as a config file.
func Sample() ([]byte, error) {
	d := pipeline.DefaultConfig()
	data, err := toml.Marshal(File{
		Source:  d.SourceLang,
		Target:  d.TargetLang,
		Backend: d.Backend,
		Mode:    string(d.Mode),
		Batch:   Batch{Chars: d.BatchChars, Count: d.BatchCount},
		Retry:   Retry{Attempts: d.MaxAttempts, BackoffBase: d.BackoffBase},
		Log:     Log{Level: "info"},
	})
	if err != nil {
		return nil, fmt.Errorf("render sample config: %w", err)
	}
	return data, nil
}

// CreateSample writes Sample to path, creating its directory.
func CreateSample(path string) error {
	data, err := Sample()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := files.AtomicWrite(path, data, 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
