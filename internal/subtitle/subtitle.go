// Package subtitle pairs recognized segments with their translations and
// writes the bilingual document.
package subtitle

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/asticode/go-astisub"
	"github.com/oukeidos/bisrt/internal/files"
	"github.com/oukeidos/bisrt/internal/timecode"
	"github.com/oukeidos/bisrt/internal/translator"
)

// Segment is one timed utterance from the recognizer. Times are seconds from
// the start of the media.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Cue is one numbered block of the output document.
type Cue struct {
	Index      int
	Start      float64
	End        float64
	Original   string
	Translated string
}

func (c Cue) StartStamp() string { return timecode.Format(c.Start) }
func (c Cue) EndStamp() string   { return timecode.Format(c.End) }

// Assemble builds one cue per segment, in order, numbered from 1. Missing
// translations are filled with failure markers; extra ones are ignored.
// Both texts are folded onto a single line.
func Assemble(segments []Segment, translations []string) []Cue {
	cues := make([]Cue, len(segments))
	for i, seg := range segments {
		original := oneLine(seg.Text)
		tr := translator.MarkFailed(original)
		if i < len(translations) {
			tr = oneLine(translations[i])
		}
		cues[i] = Cue{
			Index:      i + 1,
			Start:      seg.Start,
			End:        seg.End,
			Original:   original,
			Translated: tr,
		}
	}
	return cues
}

// oneLine joins the non-blank lines of s with single spaces. A cue block
// holds exactly one original and one translated line; a blank line inside it
// would end the cue early.
func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return strings.TrimSpace(s)
	}
	var parts []string
	for _, line := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// CountFailed returns how many cues carry a failure marker.
func CountFailed(cues []Cue) int {
	n := 0
	for _, c := range cues {
		if translator.IsFailureMarker(c.Translated) {
			n++
		}
	}
	return n
}

// RenderSRT serializes cues as SRT blocks: index, time range, original line,
// translated line, blank line.
func RenderSRT(cues []Cue) []byte {
	var b bytes.Buffer
	for _, c := range cues {
		b.WriteString(strconv.Itoa(c.Index))
		b.WriteByte('\n')
		b.WriteString(c.StartStamp())
		b.WriteString(" --> ")
		b.WriteString(c.EndStamp())
		b.WriteByte('\n')
		b.WriteString(oneLine(c.Original))
		b.WriteByte('\n')
		b.WriteString(oneLine(c.Translated))
		b.WriteString("\n\n")
	}
	return b.Bytes()
}

// RenderVTT serializes cues as WebVTT with the same two lines per cue.
func RenderVTT(cues []Cue) ([]byte, error) {
	subs := astisub.NewSubtitles()
	for _, c := range cues {
		item := &astisub.Item{
			StartAt: timecode.ToDuration(c.Start),
			EndAt:   timecode.ToDuration(c.End),
		}
		for _, text := range []string{c.Original, c.Translated} {
			item.Lines = append(item.Lines, astisub.Line{Items: []astisub.LineItem{{Text: text}}})
		}
		subs.Items = append(subs.Items, item)
	}
	var buf bytes.Buffer
	if err := subs.WriteToWebVTT(&buf); err != nil {
		return nil, fmt.Errorf("failed to render WebVTT: %w", err)
	}
	return buf.Bytes(), nil
}

// Render picks the format from the path extension. Anything but .vtt is SRT.
func Render(path string, cues []Cue) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".vtt") {
		return RenderVTT(cues)
	}
	return RenderSRT(cues), nil
}

// Save renders cues and writes them atomically: on error no file, or the
// previous file, is left at path.
func Save(path string, cues []Cue) error {
	data, err := Render(path, cues)
	if err != nil {
		return err
	}
	if err := files.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SupportedOutput reports whether path has an extension Save can write.
func SupportedOutput(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt", ".vtt":
		return true
	}
	return false
}
