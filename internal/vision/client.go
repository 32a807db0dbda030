package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"photo-curator/internal/config"
	"photo-curator/internal/logging"
	"photo-curator/internal/metrics"
)

// DefaultEmbeddingDim is used when the probe call cannot reach the
// embedding model.
const DefaultEmbeddingDim = 1024

// Client talks to the vision/embedding model service. It supports the
// Ollama API and OpenAI-compatible servers (vLLM, LM Studio) for the
// vision calls; embeddings always use the Ollama embed endpoint.
type Client struct {
	host           string
	apiType        string
	visionModel    string
	embeddingModel string
	temperature    float64
	httpClient     *http.Client
}

// NewClient creates a model service client from the configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		host:           strings.TrimRight(cfg.APIHost, "/"),
		apiType:        cfg.APIType,
		visionModel:    cfg.VisionModel,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
		httpClient:     &http.Client{Timeout: cfg.RPCTimeout},
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Embedding  []float32   `json:"embedding"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string          `json:"role"`
	Content []openAIContent `json:"content"`
}

type openAIContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends a base64 JPEG plus an instruction to the vision model
// and returns its free-text response.
func (c *Client) Generate(ctx context.Context, prompt, imageB64 string) (string, error) {
	if c.apiType == config.APITypeOpenAI {
		return c.generateOpenAI(ctx, prompt, imageB64)
	}
	return c.generateOllama(ctx, prompt, imageB64)
}

func (c *Client) generateOllama(ctx context.Context, prompt, imageB64 string) (string, error) {
	req := ollamaGenerateRequest{
		Model:   c.visionModel,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]any{"temperature": c.temperature},
	}
	if imageB64 != "" {
		req.Images = []string{imageB64}
	}

	var resp ollamaGenerateResponse
	if err := c.post(ctx, "generate", "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Response), nil
}

func (c *Client) generateOpenAI(ctx context.Context, prompt, imageB64 string) (string, error) {
	content := []openAIContent{{Type: "text", Text: prompt}}
	if imageB64 != "" {
		content = append(content, openAIContent{
			Type:     "image_url",
			ImageURL: &openAIImageURL{URL: "data:image/jpeg;base64," + imageB64},
		})
	}

	req := openAIChatRequest{
		Model:       c.visionModel,
		Messages:    []openAIMessage{{Role: "user", Content: content}},
		Temperature: c.temperature,
		MaxTokens:   500,
	}

	var resp openAIChatResponse
	if err := c.post(ctx, "generate", "/v1/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// AskYesNo asks the vision model whether the image contains the given
// object and interprets the answer strictly.
func (c *Client) AskYesNo(ctx context.Context, object, imageB64 string) (bool, error) {
	prompt := fmt.Sprintf("Analyze the provided image carefully. Does this image contain a %s? Please answer with only 'YES' or 'NO'.", object)
	answer, err := c.Generate(ctx, prompt, imageB64)
	if err != nil {
		return false, err
	}
	upper := strings.ToUpper(answer)
	return strings.Contains(upper, "YES") && !strings.Contains(upper, "NO"), nil
}

// Embed converts text into a fixed-length embedding vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	req := ollamaEmbedRequest{Model: c.embeddingModel, Input: text}

	var resp ollamaEmbedResponse
	if err := c.post(ctx, "embed", "/api/embed", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Embeddings) > 0 && len(resp.Embeddings[0]) > 0 {
		return resp.Embeddings[0], nil
	}
	if len(resp.Embedding) > 0 {
		return resp.Embedding, nil
	}
	return nil, fmt.Errorf("no embedding in model response")
}

// ProbeDimension detects the embedding dimensionality with a test call.
// Detection failure falls back to DefaultEmbeddingDim so a table can
// still be created; the probe runs once per process.
func (c *Client) ProbeDimension(ctx context.Context) int {
	vec, err := c.Embed(ctx, "test")
	if err != nil || len(vec) == 0 {
		logging.Warn("Could not detect embedding dimension (%v), falling back to %d", err, DefaultEmbeddingDim)
		return DefaultEmbeddingDim
	}
	logging.Info("Detected embedding dimension: %d", len(vec))
	return len(vec)
}

// post sends a JSON request and decodes a JSON response. Non-2xx
// statuses, timeouts, and malformed bodies are all returned as errors;
// callers treat them as per-item failures.
func (c *Client) post(ctx context.Context, call, endpoint string, reqBody, respBody any) error {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.RPCRequestsTotal.WithLabelValues(call, status).Inc()
		metrics.RPCDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	}()

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("model returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("failed to parse model response: %w", err)
	}

	status = "ok"
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
