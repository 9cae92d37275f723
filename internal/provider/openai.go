package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/prompt"
)

const openAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAI calls the Chat Completions API.
type OpenAI struct {
	apiKey string
	model  string
	url    string
	client *http.Client
}

func newOpenAI(cfg model.ProviderConfig, client *http.Client) *OpenAI {
	return &OpenAI{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		url:    openAIURL,
		client: client,
	}
}

// Name returns the vendor identifier.
func (o *OpenAI) Name() string { return model.ProviderOpenAI }

// Generate sends a system+user chat completion request and returns the
// first choice's message content.
func (o *OpenAI) Generate(ctx context.Context, pkg prompt.Package) (string, error) {
	reqBody := openAIRequest{
		Model:       o.model,
		MaxTokens:   pkg.MaxTokens,
		Temperature: pkg.Temperature,
		Messages: []openAIMessage{
			{Role: "system", Content: pkg.SystemPrompt},
			{Role: "user", Content: pkg.Context},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, o.url, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", transportError(o.Name(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(o.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr openAIErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", statusError(o.Name(), resp.StatusCode, apiErr.Error.Message)
		}
		return "", statusError(o.Name(), resp.StatusCode, string(respBody))
	}

	var result openAIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", &GenerationError{
			Provider: o.Name(),
			Message:  "no choices in completion",
		}
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", &GenerationError{
			Provider: o.Name(),
			Message:  "empty completion",
		}
	}

	return text, nil
}

// --- Chat Completions API types ---

type openAIRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
