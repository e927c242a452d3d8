package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oukeidos/bisrt/internal/subtitle"
)

func extLabel(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "(none)"
	}
	return ext
}

func validateOutputExtension(path string) error {
	if subtitle.SupportedOutput(path) {
		return nil
	}
	return fmt.Errorf("unsupported output extension %q (supported: .srt, .vtt)", extLabel(path))
}
