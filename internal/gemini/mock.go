package gemini

import (
	"context"
	"sync"

	"github.com/google/generative-ai-go/genai"
)

// MockGenerator replays canned replies in order; the last one repeats.
type MockGenerator struct {
	mu      sync.Mutex
	Replies []MockReply
	Inputs  []string
}

type MockReply struct {
	Text string
	Err  error
}

func (m *MockGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range parts {
		if t, ok := p.(genai.Text); ok {
			m.Inputs = append(m.Inputs, string(t))
		}
	}
	idx := len(m.Inputs) - 1
	if idx >= len(m.Replies) {
		idx = len(m.Replies) - 1
	}
	r := m.Replies[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text(r.Text)}}}},
		UsageMetadata: &genai.UsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 5,
			TotalTokenCount:      15,
		},
	}, nil
}

// NewMockClient returns a Client whose models are all gen. The system prompts
// and JSON flags requested for each call are recorded in the returned slices.
func NewMockClient(gen *MockGenerator, sourceName, targetName string) (*Client, *[]string, *[]bool) {
	var systems []string
	var jsonFlags []bool
	c := &Client{
		modelName:  "mock-model",
		sourceName: sourceName,
		targetName: targetName,
	}
	c.newModel = func(system string, jsonArray bool) generator {
		systems = append(systems, system)
		jsonFlags = append(jsonFlags, jsonArray)
		return gen
	}
	return c, &systems, &jsonFlags
}
