// Package provider adapts hosted language-model APIs behind a single
// generation capability. One variant exists per vendor; selection
// happens once at startup from configuration.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/prompt"
)

// httpTimeout bounds a single generation call end to end.
const httpTimeout = 120 * time.Second

// GenerationError is the normalized failure shape for provider and
// transport errors. Retryable errors (rate limits, transient network or
// server faults) may be attempted again; the rest must not be.
type GenerationError struct {
	Provider   string
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s generation failed (%d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s generation failed: %s", e.Provider, e.Message)
}

// IsRetryable reports whether err is a GenerationError marked retryable.
// Errors outside the taxonomy are treated as non-retryable.
func IsRetryable(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Retryable
}

// Generator is the capability every vendor variant implements: turn a
// prompt package into reply text. Implementations hold no mutable state
// beyond their HTTP client.
type Generator interface {
	// Name returns the vendor identifier ("anthropic", "openai", "gemini").
	Name() string

	// Generate produces reply text for the assembled package, failing
	// with a *GenerationError on provider or transport problems.
	Generate(ctx context.Context, pkg prompt.Package) (string, error)
}

// New selects and constructs the configured vendor variant. Generation
// options are validated here, before any network call; violations are
// *model.ConfigurationError.
func New(cfg model.ProviderConfig) (Generator, error) {
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, &model.ConfigurationError{
			Field:   "provider.temperature",
			Message: fmt.Sprintf("%v outside [0, 2]", cfg.Temperature),
		}
	}
	if cfg.MaxTokens <= 0 {
		return nil, &model.ConfigurationError{
			Field:   "provider.max_tokens",
			Message: fmt.Sprintf("%d must be positive", cfg.MaxTokens),
		}
	}
	if cfg.APIKey == "" {
		return nil, &model.ConfigurationError{
			Field:   "provider.api_key",
			Message: "required",
		}
	}

	client := &http.Client{Timeout: httpTimeout}

	switch cfg.Name {
	case model.ProviderAnthropic:
		return newAnthropic(cfg, client), nil
	case model.ProviderOpenAI:
		return newOpenAI(cfg, client), nil
	case model.ProviderGemini:
		return newGemini(cfg, client), nil
	default:
		return nil, &model.ConfigurationError{
			Field:   "provider.name",
			Message: fmt.Sprintf("unknown provider %q", cfg.Name),
		}
	}
}

// transportError wraps a failed round trip as a retryable GenerationError.
func transportError(providerName string, err error) *GenerationError {
	return &GenerationError{
		Provider:  providerName,
		Message:   err.Error(),
		Retryable: true,
	}
}

// statusError classifies an HTTP error status. Rate limits, request
// timeouts, and server faults are retryable; authentication and
// malformed-request errors are not.
func statusError(providerName string, status int, message string) *GenerationError {
	retryable := status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
	return &GenerationError{
		Provider:   providerName,
		StatusCode: status,
		Message:    message,
		Retryable:  retryable,
	}
}
