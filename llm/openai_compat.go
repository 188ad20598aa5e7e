package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devMohamedYusri/Recruit-Rag/parser"
)

// openAICompatClient is the shared base for OpenAI-compatible providers
// (Groq, self-hosted gateways). These have chat completions with JSON mode
// but no file API, so structured extraction loads the document text locally
// and sends it inline.
type openAICompatClient struct {
	base  httpClient
	model string
}

func newOpenAICompatClient(cfg Config) openAICompatClient {
	return openAICompatClient{
		base:  newHTTPClient(cfg.BaseURL, cfg.APIKey, authBearer),
		model: cfg.Model,
	}
}

// NewOpenAICompat creates a generic OpenAI-compatible provider.
func NewOpenAICompat(cfg Config) Provider {
	return &openAICompatProvider{c: newOpenAICompatClient(cfg)}
}

type openAICompatProvider struct {
	c openAICompatClient
}

func (p *openAICompatProvider) ModelID() string         { return p.c.model }
func (p *openAICompatProvider) EmbeddingDimension() int { return 0 }

func (p *openAICompatProvider) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (*Response, error) {
	return p.c.chat(ctx, nil, prompt, cfg)
}

func (p *openAICompatProvider) UploadFile(ctx context.Context, path, mimeType string) (*FileRef, error) {
	return p.c.uploadLocal(path, mimeType)
}

func (p *openAICompatProvider) ExtractResume(ctx context.Context, ref *FileRef) (*ExtractResult, error) {
	return p.c.extractLocal(ctx, ref)
}

func (p *openAICompatProvider) StructureResumeBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	return p.c.structureBatch(ctx, texts)
}

func (p *openAICompatProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("embeddings not supported by %s", p.c.model)
}

func (p *openAICompatProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embeddings not supported by %s", p.c.model)
}

// --- shared implementation ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// chat sends a chat completion. system may be empty.
func (c *openAICompatClient) chat(ctx context.Context, system []chatMessage, prompt string, cfg GenerateConfig) (*Response, error) {
	msgs := append([]chatMessage{}, system...)
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	body := chatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = 2048
	}
	if cfg.JSONResponse {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	respBody, err := c.base.postJSON(ctx, "/v1/chat/completions", data, "")
	if err != nil {
		return nil, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Usage:   resp.Usage,
	}, nil
}

// uploadLocal checks the file exists and returns a local-path reference;
// there is no hosted file API to push to.
func (c *openAICompatClient) uploadLocal(path, mimeType string) (*FileRef, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}
	return &FileRef{Path: path, MIMEType: mimeType}, nil
}

// extractLocal loads the document text with the local parsers and runs the
// structure prompt in JSON mode.
func (c *openAICompatClient) extractLocal(ctx context.Context, ref *FileRef) (*ExtractResult, error) {
	if ref == nil || ref.Path == "" {
		return nil, fmt.Errorf("no local path available for extraction")
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(ref.Path), "."))
	content, err := parser.Load(ref.Path, ext)
	if err != nil {
		return nil, fmt.Errorf("loading %s for extraction: %w", ref.Path, err)
	}
	if content == "" {
		return nil, fmt.Errorf("no text extracted from %s", ref.Path)
	}

	system := []chatMessage{{Role: "system", Content: "You are a resume parser dealing with JSON output only."}}
	prompt := ResumeStructurePrompt + "\n\nRESUME CONTENT:\n" + content

	resp, err := c.chat(ctx, system, prompt, GenerateConfig{
		Temperature:     0.1,
		MaxOutputTokens: 4096,
		JSONResponse:    true,
	})
	if err != nil {
		return nil, err
	}

	items, err := normalizeBatch([]byte(resp.Content))
	if err != nil || len(items) == 0 {
		return nil, fmt.Errorf("extraction returned no structured object: %w", err)
	}
	return &ExtractResult{Content: items[0], Usage: resp.Usage}, nil
}

// structureBatch structures N resume texts in one JSON-mode call.
func (c *openAICompatClient) structureBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	var sb strings.Builder
	sb.WriteString(ResumeStructurePrompt)
	fmt.Fprintf(&sb, "\n\nThere are %d resumes below. Return a JSON object with a key 'resumes' containing an array of objects, one per resume.\n\n", len(texts))
	for i, text := range texts {
		fmt.Fprintf(&sb, "=== RESUME %d ===\n%s\n=== END RESUME %d ===\n\n", i+1, text, i+1)
	}

	system := []chatMessage{{Role: "system", Content: "You are a bulk resume parser. Return JSON."}}
	resp, err := c.chat(ctx, system, sb.String(), GenerateConfig{
		Temperature:     0.1,
		MaxOutputTokens: 8192,
		JSONResponse:    true,
	})
	if err != nil {
		return nil, err
	}

	items, err := normalizeBatch([]byte(resp.Content))
	if err != nil {
		return nil, err
	}
	return &BatchResult{Items: items, Usage: resp.Usage}, nil
}
