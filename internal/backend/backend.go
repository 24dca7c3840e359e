package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	assistantPersonaConstant            = "You are an AI security auditor. Help with dependency management, code analysis, vulnerability assessment, and remediation planning."
	contextPrefixConstant               = "Context: "
	defaultMaxTokensConstant            = 2000
	defaultMaxRetriesConstant           = 2
	defaultOpenAIBaseURLConstant        = "https://api.openai.com"
	defaultAnthropicBaseURLConstant     = "https://api.anthropic.com"
	defaultOpenAIModelConstant          = "gpt-4-turbo-preview"
	defaultAnthropicModelConstant       = "claude-3-opus-20240229"
	defaultOpenAITemperatureConstant    = 0.7
	defaultRequestTimeoutConstant       = 120 * time.Second
	defaultOpenAITokenSourceConstant    = "env:OPENAI_API_KEY"
	defaultAnthropicTokenSourceConstant = "env:ANTHROPIC_API_KEY"
)

// Provider identifies a backend implementation.
type Provider string

// Supported providers.
const (
	ProviderAuto      Provider = "auto"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// InferenceBackend produces free-form text for a prompt and optional context.
type InferenceBackend interface {
	Generate(executionContext context.Context, prompt string, promptContext string) (string, error)
}

// NewHTTPClient constructs an HTTP client bounded by the provided timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeoutConstant
	}
	return &http.Client{Timeout: timeout}
}

func baseURLOrDefault(baseURL string, defaultBaseURL string) string {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if len(trimmedBaseURL) == 0 {
		return defaultBaseURL
	}
	return trimmedBaseURL
}

// classifyClientError separates transport failures from undecodable responses once
// provider API errors have been handled.
func classifyClientError(provider Provider, clientError error) error {
	var urlError *url.Error
	if errors.As(clientError, &urlError) || errors.Is(clientError, context.Canceled) || errors.Is(clientError, context.DeadlineExceeded) {
		return RequestError{Provider: provider, Cause: clientError}
	}
	return DecodeError{Provider: provider, Cause: clientError}
}

func valueOrDefault(value string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return defaultValue
	}
	return trimmedValue
}

func maxTokensOrDefault(maxTokens int) int {
	if maxTokens <= 0 {
		return defaultMaxTokensConstant
	}
	return maxTokens
}
