package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	anthropicContextSeparator  = " "
	anthropicTextBlockConstant = "text"
	baseURLSeparatorConstant   = "/"
)

// AnthropicBackend generates text through the Anthropic messages API.
type AnthropicBackend struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewAnthropicBackend constructs an Anthropic backend from provider settings and a resolved API key.
// Rate-limit and server errors are retried by the client up to settings.MaxRetries times.
func NewAnthropicBackend(httpClient *http.Client, apiKey string, settings ProviderConfiguration) *AnthropicBackend {
	clientOptions := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURLOrDefault(settings.BaseURL, defaultAnthropicBaseURLConstant) + baseURLSeparatorConstant),
		option.WithMaxRetries(max(settings.MaxRetries, 0)),
	}
	if httpClient != nil {
		clientOptions = append(clientOptions, option.WithHTTPClient(httpClient))
	}

	return &AnthropicBackend{
		client:      anthropic.NewClient(clientOptions...),
		model:       valueOrDefault(settings.Model, defaultAnthropicModelConstant),
		maxTokens:   maxTokensOrDefault(settings.MaxTokens),
		temperature: settings.Temperature,
	}
}

// Generate sends the prompt with the optional context appended to the system prompt.
func (anthropicBackend *AnthropicBackend) Generate(executionContext context.Context, prompt string, promptContext string) (string, error) {
	systemPrompt := assistantPersonaConstant
	if len(strings.TrimSpace(promptContext)) > 0 {
		systemPrompt = systemPrompt + anthropicContextSeparator + contextPrefixConstant + promptContext
	}

	messageParameters := anthropic.MessageNewParams{
		Model:     anthropic.Model(anthropicBackend.model),
		MaxTokens: int64(anthropicBackend.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	}
	if anthropicBackend.temperature > 0 {
		messageParameters.Temperature = anthropic.Float(anthropicBackend.temperature)
	}

	message, messageError := anthropicBackend.client.Messages.New(executionContext, messageParameters)
	if messageError != nil {
		return "", classifyAnthropicError(messageError)
	}

	for _, contentBlock := range message.Content {
		if contentBlock.Type == anthropicTextBlockConstant {
			return contentBlock.Text, nil
		}
	}
	return "", DecodeError{Provider: ProviderAnthropic}
}

func classifyAnthropicError(messageError error) error {
	var apiError *anthropic.Error
	if errors.As(messageError, &apiError) {
		return ResponseError{Provider: ProviderAnthropic, StatusCode: apiError.StatusCode, Body: excerpt(apiError.Error()), Cause: messageError}
	}
	return classifyClientError(ProviderAnthropic, messageError)
}
