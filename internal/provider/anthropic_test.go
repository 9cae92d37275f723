package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/prompt"
)

func testPackage() prompt.Package {
	return prompt.Package{
		SystemPrompt: "You answer mail politely.",
		Context:      "New email to respond to:\nFrom: bob@example.com\n",
		Temperature:  0.7,
		MaxTokens:    1024,
	}
}

func TestAnthropicGenerate(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		resp := anthropicResponse{
			Content: []anthropicContentBlock{
				{Type: "text", Text: "Hi Bob, "},
				{Type: "text", Text: "Thursday works."},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	gen := newAnthropic(validConfig(model.ProviderAnthropic), srv.Client())
	gen.url = srv.URL

	text, err := gen.Generate(context.Background(), testPackage())
	require.NoError(t, err)
	assert.Equal(t, "Hi Bob, Thursday works.", text)

	assert.Equal(t, "some-model", got.Model)
	assert.Equal(t, 1024, got.MaxTokens)
	assert.Equal(t, "You answer mail politely.", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestAnthropicGenerateRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	gen := newAnthropic(validConfig(model.ProviderAnthropic), srv.Client())
	gen.url = srv.URL

	_, err := gen.Generate(context.Background(), testPackage())
	require.Error(t, err)
	assert.True(t, IsRetryable(err))

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 429, genErr.StatusCode)
	assert.Equal(t, "slow down", genErr.Message)
}

func TestAnthropicGenerateAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	gen := newAnthropic(validConfig(model.ProviderAnthropic), srv.Client())
	gen.url = srv.URL

	_, err := gen.Generate(context.Background(), testPackage())
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestAnthropicGenerateEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(anthropicResponse{}))
	}))
	defer srv.Close()

	gen := newAnthropic(validConfig(model.ProviderAnthropic), srv.Client())
	gen.url = srv.URL

	_, err := gen.Generate(context.Background(), testPackage())
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.False(t, genErr.Retryable)
}

func TestAnthropicGenerateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	gen := newAnthropic(validConfig(model.ProviderAnthropic), &http.Client{})
	gen.url = srv.URL

	_, err := gen.Generate(context.Background(), testPackage())
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}
