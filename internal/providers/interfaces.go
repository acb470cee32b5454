package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Operation   string        `json:"operation"`
	Messages    []ChatMessage `json:"messages"`
	JSONObject  bool          `json:"json_object"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type ChatResponse struct {
	Text string `json:"text"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

type DescribeRequest struct {
	Image     []byte `json:"-"`
	MimeType  string `json:"mime_type"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type LLMProvider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

// VisionProvider describes figure and table images from papers.
type VisionProvider interface {
	Describe(ctx context.Context, req DescribeRequest) (string, ProviderInfo, error)
}
