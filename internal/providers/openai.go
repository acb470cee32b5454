package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// OpenAIProvider talks to OpenAI-compatible REST APIs for chat, embeddings
// and vision description.
type OpenAIProvider struct {
	keyName     string
	apiKey      string
	baseURL     string
	chatModel   string
	embedModel  string
	visionModel string
	client      *http.Client
}

func NewOpenAIProvider(keyName string, timeout time.Duration) *OpenAIProvider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		keyName:     keyName,
		apiKey:      resolveOpenAIKey(keyName),
		baseURL:     strings.TrimRight(baseURL, "/"),
		chatModel:   getenvDefault("LITSCOUT_OPENAI_MODEL", "gpt-4o-mini"),
		embedModel:  getenvDefault("LITSCOUT_OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		visionModel: getenvDefault("LITSCOUT_OPENAI_VISION_MODEL", "gpt-4o-mini"),
		client:      &http.Client{Timeout: timeout},
	}
}

func (o *OpenAIProvider) info(model string) ProviderInfo {
	return ProviderInfo{Name: "openai", Model: model, Key: o.keyName}
}

func (o *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error) {
	info := o.info(o.chatModel)
	if o.apiKey == "" {
		return ChatResponse{}, info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}
	body := map[string]any{
		"model":       o.chatModel,
		"messages":    req.Messages,
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.JSONObject {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	text, err := o.postChat(ctx, body)
	if err != nil {
		return ChatResponse{}, info, err
	}
	return ChatResponse{Text: text}, info, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := o.info(o.embedModel)
	if o.apiKey == "" {
		return nil, info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}
	payload, _ := json.Marshal(map[string]any{"model": o.embedModel, "input": req.Inputs})
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(payload))
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, info, fmt.Errorf("openai embedding request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, info, fmt.Errorf("openai embedding error %d: %s", resp.StatusCode, string(body))
	}
	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, info, fmt.Errorf("decode embedding response: %w", err)
	}
	out := make([][]float32, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		out = append(out, d.Embedding)
	}
	return out, info, nil
}

func (o *OpenAIProvider) Describe(ctx context.Context, req DescribeRequest) (string, ProviderInfo, error) {
	info := o.info(o.visionModel)
	if o.apiKey == "" {
		return "", info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}
	mime := req.MimeType
	if mime == "" {
		mime = "image/png"
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	imageURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Image)
	body := map[string]any{
		"model":       o.visionModel,
		"temperature": 0.0,
		"max_tokens":  maxTokens,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": req.Prompt},
					{"type": "image_url", "image_url": map[string]any{"url": imageURL, "detail": "low"}},
				},
			},
		},
	}
	text, err := o.postChat(ctx, body)
	if err != nil {
		return "", info, err
	}
	return strings.TrimSpace(text), info, nil
}

func (o *OpenAIProvider) postChat(ctx context.Context, body map[string]any) (string, error) {
	payload, _ := json.Marshal(body)
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai chat request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("openai chat error %d: %s", resp.StatusCode, string(raw))
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai returned empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		if k := os.Getenv("LITSCOUT_OPENAI_KEY_" + strings.ToUpper(alias)); k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}

func getenvDefault(k, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return fallback
}
