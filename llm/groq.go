package llm

// groqProvider implements Provider for Groq's inference API. Groq uses the
// OpenAI-compatible format and provides fast inference for open-source
// models; it has no file API and no embeddings, so extraction goes through
// the local-text path and embedding calls are rejected.
//
// API key: set via config or GROQ_API_KEY env var.
type groqProvider struct {
	openAICompatProvider
}

// NewGroq creates a provider for Groq.
func NewGroq(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	return &groqProvider{openAICompatProvider{c: newOpenAICompatClient(cfg)}}
}

var _ Provider = (*groqProvider)(nil)
