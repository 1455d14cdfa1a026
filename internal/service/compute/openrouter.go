package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenRouterProvider 通过 OpenRouter 的 chat/completions 接口做推理
type OpenRouterProvider struct {
	apiKey       string
	baseURL      string
	defaultModel string
	appURL       string
	client       *http.Client
}

func NewOpenRouterProvider(apiKey, baseURL, defaultModel, appURL string) *OpenRouterProvider {
	return &OpenRouterProvider{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultModel: defaultModel,
		appURL:       appURL,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content messageContent `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// messageContent 兼容两种返回形态: 纯字符串，或 [{type:"text",text:"..."}] 分段数组
type messageContent string

func (m *messageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = messageContent(s)
		return nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	*m = messageContent(b.String())
	return nil
}

func (p *OpenRouterProvider) resolveModel(requested string) string {
	model := strings.TrimSpace(requested)
	if model == "" || model == "openrouter/free" {
		return p.defaultModel
	}
	return model
}

func (p *OpenRouterProvider) RunInference(ctx context.Context, systemPrompt, knowledge, userInput, model string) (*Result, error) {
	system := systemPrompt
	if knowledge != "" {
		system = system + "\n\nKnowledge:\n" + knowledge
	}

	selected := p.resolveModel(model)
	body, err := json.Marshal(chatRequest{
		Model: selected,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: userInput},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", p.appURL)
	req.Header.Set("X-Title", "Ajently")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter call failed: %w", err)
	}
	defer resp.Body.Close()

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("openrouter decode failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if payload.Error != nil && payload.Error.Message != "" {
			msg = payload.Error.Message
		}
		return nil, fmt.Errorf("openrouter call failed (%d): %s", resp.StatusCode, msg)
	}

	if len(payload.Choices) == 0 {
		return nil, fmt.Errorf("openrouter returned no choices")
	}
	output := strings.TrimSpace(string(payload.Choices[0].Message.Content))
	if output == "" {
		return nil, fmt.Errorf("openrouter returned an empty response payload")
	}

	return &Result{
		Output:          output,
		Mode:            ModeOpenRouter,
		Model:           selected,
		ProviderAddress: "openrouter",
	}, nil
}
