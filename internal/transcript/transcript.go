// Package transcript loads recognized speech as ordered timed segments.
//
// Two sources are supported: JSON written by whisper-style recognizers, either
// {"segments": [{"start", "end", "text"}, ...]} or a bare array of the same
// objects, and any subtitle file astisub can read (.srt, .vtt, .ass, .ssa,
// .stl, .ttml), whose cue lines are joined with a space.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/asticode/go-astisub"
	"github.com/oukeidos/bisrt/internal/logger"
	"github.com/oukeidos/bisrt/internal/subtitle"
	"github.com/oukeidos/bisrt/internal/timecode"
)

// MaxFileBytes bounds how much of a transcript is read into memory.
const MaxFileBytes = 64 << 20

type jsonSegment struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  string   `json:"text"`
}

type jsonDocument struct {
	Segments []jsonSegment `json:"segments"`
}

// Load reads path and returns its segments ordered by start time. Segments
// whose text is blank are dropped.
func Load(path string) ([]subtitle.Segment, error) {
	var segs []subtitle.Segment
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		segs, err = loadJSON(path)
	} else {
		segs, err = loadSubtitle(path)
	}
	if err != nil {
		return nil, err
	}
	return normalize(segs)
}

// SupportedInput reports whether Load understands path's extension.
func SupportedInput(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".srt", ".vtt", ".ass", ".ssa", ".stl", ".ttml":
		return true
	}
	return false
}

func loadJSON(path string) ([]subtitle.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	if len(data) > MaxFileBytes {
		return nil, fmt.Errorf("transcript too large (limit %d bytes)", MaxFileBytes)
	}
	return ParseJSON(data)
}

// ParseJSON decodes a whisper-style transcript.
func ParseJSON(data []byte) ([]subtitle.Segment, error) {
	data = bytes.TrimSpace(data)
	var raw []jsonSegment
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid transcript JSON: %w", err)
		}
	} else {
		var doc jsonDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid transcript JSON: %w", err)
		}
		raw = doc.Segments
	}

	segs := make([]subtitle.Segment, 0, len(raw))
	for i, r := range raw {
		if r.Start == nil || r.End == nil {
			return nil, fmt.Errorf("segment %d: missing start or end", i+1)
		}
		segs = append(segs, subtitle.Segment{Start: *r.Start, End: *r.End, Text: r.Text})
	}
	return segs, nil
}

func loadSubtitle(path string) ([]subtitle.Segment, error) {
	subs, err := astisub.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitles: %w", err)
	}
	segs := make([]subtitle.Segment, 0, len(subs.Items))
	for _, item := range subs.Items {
		lines := make([]string, 0, len(item.Lines))
		for _, l := range item.Lines {
			if s := strings.TrimSpace(l.String()); s != "" {
				lines = append(lines, s)
			}
		}
		segs = append(segs, subtitle.Segment{
			Start: timecode.FromDuration(item.StartAt),
			End:   timecode.FromDuration(item.EndAt),
			Text:  strings.Join(lines, " "),
		})
	}
	return segs, nil
}

func normalize(segs []subtitle.Segment) ([]subtitle.Segment, error) {
	out := segs[:0]
	dropped := 0
	for i, s := range segs {
		if s.Start < 0 || s.End < s.Start {
			return nil, fmt.Errorf("segment %d: invalid time range %s --> %s", i+1, timecode.Format(s.Start), timecode.Format(s.End))
		}
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			dropped++
			continue
		}
		out = append(out, s)
	}
	if dropped > 0 {
		logger.Debug("Dropped blank segments", "count", dropped)
	}
	if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Start < out[j].Start }) {
		logger.Warn("Transcript segments out of order; sorting by start time")
		sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	}
	return out, nil
}
