// Package batchjson defines the request and reply contract shared by the
// LLM backends: texts joined by a separator on the way out, a JSON array of
// the same length on the way back.
package batchjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oukeidos/bisrt/internal/apperrors"
)

// Separator goes between segments in a batch request. It does not occur in
// recognized speech.
const Separator = "\n<<SPLIT>>\n"

// Temperature is the sampling temperature used for every translation request.
const Temperature = 0.15

// Join merges a batch into the single user message sent to the model.
func Join(texts []string) string {
	return strings.Join(texts, Separator)
}

// SystemPrompt instructs the model to translate a separator-joined batch and
// answer with a bare JSON array.
func SystemPrompt(sourceName, targetName string, count int) string {
	from := "the source language"
	if sourceName != "" {
		from = sourceName
	}
	return fmt.Sprintf(`You are a professional video subtitle translator.
The user message contains %d subtitle lines in %s, separated by the marker %q.
Translate every line, in the original order, into natural and fluent %s.

Rules:
- Respond ONLY with a strict JSON array of %d strings and nothing else.
- Element i of the array is the translation of line i.
- Do not merge, split, skip or reorder lines. Do not include the separator.
- Do not include the source text.`,
		count, from, strings.TrimSpace(Separator), targetName, count)
}

// SinglePrompt instructs the model to translate one line and return only the translation.
func SinglePrompt(sourceName, targetName string) string {
	from := ""
	if sourceName != "" {
		from = " from " + sourceName
	}
	return fmt.Sprintf("You are a professional video subtitle translator. Translate the following text%s into natural and fluent %s. Reply with the translation only.", from, targetName)
}

type envelope struct {
	Translations []string `json:"translations"`
}

// Parse extracts the translations from a model reply and accepts them only
// when there are exactly want of them. It tries, in order: the whole reply as
// an array, the whole reply as {"translations": [...]}, and finally the last
// position in the reply where a well-formed string array begins. Anything
// else is a KindValidation error; a partial result is never returned.
func Parse(reply string, want int) ([]string, error) {
	body := strings.TrimSpace(stripFence(reply))
	if body == "" {
		return nil, apperrors.New(apperrors.KindValidation, "Model returned an empty reply.", nil)
	}

	list, ok := decodeArray([]byte(body))
	if !ok {
		var env envelope
		if err := json.Unmarshal([]byte(body), &env); err == nil && env.Translations != nil {
			list, ok = env.Translations, true
		}
	}
	if !ok {
		list, ok = lastArray(body)
	}
	if !ok {
		return nil, apperrors.New(apperrors.KindValidation, "Model reply is not a JSON array.", fmt.Errorf("unparseable reply of %d bytes", len(reply)))
	}
	if len(list) != want {
		return nil, apperrors.New(apperrors.KindValidation,
			fmt.Sprintf("Translation count mismatch: expected %d, got %d.", want, len(list)), nil)
	}
	return list, nil
}

func decodeArray(data []byte) ([]string, bool) {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil || list == nil {
		return nil, false
	}
	return list, true
}

// lastArray walks '[' positions from the end of s and returns the first one
// that starts a complete string array. Trailing text after the array is ignored.
func lastArray(s string) ([]string, bool) {
	data := []byte(s)
	for i := bytes.LastIndexByte(data, '['); i >= 0; i = bytes.LastIndexByte(data[:i], '[') {
		dec := json.NewDecoder(bytes.NewReader(data[i:]))
		var list []string
		if err := dec.Decode(&list); err == nil && list != nil {
			return list, true
		}
	}
	return nil, false
}

// stripFence removes a surrounding ```json ... ``` block if present.
func stripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	t = strings.TrimSuffix(strings.TrimPrefix(t, "```"), "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 && !strings.ContainsAny(t[:nl], "[{\"") {
		t = t[nl+1:]
	}
	return t
}
