package metadata

// Model is a priced translation model or service tier. LLMs bill per token;
// machine-translation services bill per source character.
type Model struct {
	Backend          string
	ID               string
	Label            string
	InputPerMillion  float64
	OutputPerMillion float64
	CharsPerMillion  float64
}

const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
	BackendDeepL  = "deepl"
	BackendGoogle = "google"
)

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.5-flash"
)

var Models = []Model{
	{Backend: BackendOpenAI, ID: "gpt-4o-mini", Label: "GPT-4o mini", InputPerMillion: 0.15, OutputPerMillion: 0.60},
	{Backend: BackendOpenAI, ID: "gpt-4o", Label: "GPT-4o", InputPerMillion: 2.50, OutputPerMillion: 10.00},
	{Backend: BackendOpenAI, ID: "gpt-4.1-mini", Label: "GPT-4.1 mini", InputPerMillion: 0.40, OutputPerMillion: 1.60},
	{Backend: BackendGemini, ID: "gemini-2.5-flash", Label: "Gemini 2.5 Flash", InputPerMillion: 0.30, OutputPerMillion: 2.50},
	{Backend: BackendGemini, ID: "gemini-2.5-pro", Label: "Gemini 2.5 Pro", InputPerMillion: 1.25, OutputPerMillion: 10.00},
	{Backend: BackendDeepL, ID: "deepl", Label: "DeepL API", CharsPerMillion: 25.00},
	{Backend: BackendGoogle, ID: "nmt", Label: "Cloud Translation (NMT)", CharsPerMillion: 20.00},
}

// Fallback prices for models missing from the table.
const (
	DefaultOpenAIInputPerMillion  = 2.50
	DefaultOpenAIOutputPerMillion = 10.00
	DefaultGeminiInputPerMillion  = 1.25
	DefaultGeminiOutputPerMillion = 10.00
)

// ModelIDs lists the known models of one backend.
func ModelIDs(backend string) []string {
	var ids []string
	for _, m := range Models {
		if m.Backend == backend {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Pricing returns the table entry for backend/modelID. Unknown LLM models get
// conservative default prices and ok=false. DeepL and Google have a single tier.
func Pricing(backend, modelID string) (Model, bool) {
	for _, m := range Models {
		if m.Backend != backend {
			continue
		}
		if m.ID == modelID || backend == BackendDeepL || backend == BackendGoogle {
			return m, true
		}
	}
	switch backend {
	case BackendGemini:
		return Model{Backend: backend, ID: "default", Label: "Default Gemini",
			InputPerMillion: DefaultGeminiInputPerMillion, OutputPerMillion: DefaultGeminiOutputPerMillion}, false
	default:
		return Model{Backend: backend, ID: "default", Label: "Default OpenAI",
			InputPerMillion: DefaultOpenAIInputPerMillion, OutputPerMillion: DefaultOpenAIOutputPerMillion}, false
	}
}

// Usage accumulates what a run consumed from the translation service.
type Usage struct {
	Requests     int
	InputTokens  int64
	OutputTokens int64
	Characters   int64
}

func (u *Usage) Add(o Usage) {
	u.Requests += o.Requests
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.Characters += o.Characters
}

func (u Usage) TotalTokens() int64 { return u.InputTokens + u.OutputTokens }

// Cost estimates the price in USD of u under m.
func (m Model) Cost(u Usage) float64 {
	cost := float64(u.InputTokens)/1e6*m.InputPerMillion + float64(u.OutputTokens)/1e6*m.OutputPerMillion
	cost += float64(u.Characters) / 1e6 * m.CharsPerMillion
	return cost
}
