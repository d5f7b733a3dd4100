package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mfcastellanos/negobot/internal/domain"
)

const (
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	chatModel     = "gpt-4o-mini"

	systemPrompt = `Eres un asistente de negociación de cartera. Reescribe el mensaje ` +
		`dado en un tono cálido y profesional, en español, sin cambiar cifras, fechas, ` +
		`condiciones ni opciones. Responde únicamente con el mensaje reescrito.`
)

type OpenAIEnhancer struct {
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIEnhancer(apiKey string) *OpenAIEnhancer {
	return &OpenAIEnhancer{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Enhance asks the model to rewrite the message. The conversation
// context travels as plain key:value lines so the model keeps names
// and figures consistent.
func (c *OpenAIEnhancer) Enhance(ctx context.Context, msg string, cctx *domain.ConversationContext) (string, error) {
	var sb strings.Builder
	sb.WriteString("Mensaje: ")
	sb.WriteString(msg)
	if cctx != nil && cctx.Len() > 0 {
		sb.WriteString("\nContexto:\n")
		for _, key := range cctx.Keys() {
			sb.WriteString(key)
			sb.WriteString(": ")
			sb.WriteString(cctx.Get(key).Text())
			sb.WriteString("\n")
		}
	}

	return c.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: sb.String()},
	}, 0.4)
}

func (c *OpenAIEnhancer) complete(ctx context.Context, messages []chatMessage, temp float32) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       chatModel,
		Messages:    messages,
		Temperature: temp,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIChatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("chat API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
