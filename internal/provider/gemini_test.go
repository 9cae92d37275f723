package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-assistant/internal/model"
)

func TestGeminiGenerate(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.URL.Path, "some-model:generateContent"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"Thursday works."}]}}]}`,
		))
	}))
	defer srv.Close()

	gen := newGemini(validConfig(model.ProviderGemini), srv.Client())
	gen.baseURL = srv.URL

	text, err := gen.Generate(context.Background(), testPackage())
	require.NoError(t, err)
	assert.Equal(t, "Thursday works.", text)

	require.NotNil(t, got.SystemInstruction)
	require.Len(t, got.SystemInstruction.Parts, 1)
	assert.Equal(t, "You answer mail politely.", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, 0.7, got.GenerationConfig.Temperature)
	assert.Equal(t, 1024, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiGenerateOverloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"status":"UNAVAILABLE","message":"overloaded"}}`))
	}))
	defer srv.Close()

	gen := newGemini(validConfig(model.ProviderGemini), srv.Client())
	gen.baseURL = srv.URL

	_, err := gen.Generate(context.Background(), testPackage())
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestGeminiGenerateNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	gen := newGemini(validConfig(model.ProviderGemini), srv.Client())
	gen.baseURL = srv.URL

	_, err := gen.Generate(context.Background(), testPackage())
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}
