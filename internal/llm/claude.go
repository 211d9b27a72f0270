package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mailvoice/internal/domain"
)

const claudeDefaultMaxTokens = 1024

type ClaudeProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewClaudeProvider(client *http.Client, baseURL, apiKey, model string) *ClaudeProvider {
	return &ClaudeProvider{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, model: model}
}

type claudeRequest struct {
	Model         string          `json:"model"`
	MaxTokens     int             `json:"max_tokens"`
	Temperature   float64         `json:"temperature"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Messages      []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type claudeResponse struct {
	Content []claudeBlock `json:"content"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *ClaudeProvider) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = claudeDefaultMaxTokens
	}
	payload := claudeRequest{
		Model:         p.model,
		MaxTokens:     maxTokens,
		Temperature:   req.Temperature,
		StopSequences: req.Stop,
		Messages: []claudeMessage{{
			Role:    "user",
			Content: []claudeBlock{{Type: "text", Text: req.Prompt}},
		}},
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("claude status %d: %s", resp.StatusCode, string(body))
	}

	var parsed claudeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("claude error: %s", parsed.Error.Message)
	}

	var out strings.Builder
	for _, block := range parsed.Content {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString(block.Text)
	}
	return out.String(), nil
}
