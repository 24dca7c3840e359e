package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const openAIAPIVersionPathConstant = "/v1"

// OpenAIBackend generates text through the OpenAI chat completions API.
type OpenAIBackend struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIBackend constructs an OpenAI backend from provider settings and a resolved API key.
func NewOpenAIBackend(httpClient *http.Client, apiKey string, settings ProviderConfiguration) *OpenAIBackend {
	temperature := settings.Temperature
	if temperature <= 0 {
		temperature = defaultOpenAITemperatureConstant
	}

	clientConfiguration := openai.DefaultConfig(apiKey)
	clientConfiguration.BaseURL = baseURLOrDefault(settings.BaseURL, defaultOpenAIBaseURLConstant) + openAIAPIVersionPathConstant
	if httpClient != nil {
		clientConfiguration.HTTPClient = httpClient
	}

	return &OpenAIBackend{
		client:      openai.NewClientWithConfig(clientConfiguration),
		model:       valueOrDefault(settings.Model, defaultOpenAIModelConstant),
		maxTokens:   maxTokensOrDefault(settings.MaxTokens),
		temperature: float32(temperature),
	}
}

// Generate sends the prompt, with the optional context as a second system message.
func (openAIBackend *OpenAIBackend) Generate(executionContext context.Context, prompt string, promptContext string) (string, error) {
	messages := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: assistantPersonaConstant}}
	if len(strings.TrimSpace(promptContext)) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: contextPrefixConstant + promptContext})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	response, completionError := openAIBackend.client.CreateChatCompletion(executionContext, openai.ChatCompletionRequest{
		Model:       openAIBackend.model,
		Messages:    messages,
		Temperature: openAIBackend.temperature,
		MaxTokens:   openAIBackend.maxTokens,
	})
	if completionError != nil {
		return "", classifyOpenAIError(completionError)
	}

	if len(response.Choices) == 0 {
		return "", DecodeError{Provider: ProviderOpenAI}
	}
	return response.Choices[0].Message.Content, nil
}

func classifyOpenAIError(completionError error) error {
	var apiError *openai.APIError
	if errors.As(completionError, &apiError) {
		return ResponseError{Provider: ProviderOpenAI, StatusCode: apiError.HTTPStatusCode, Body: excerpt(apiError.Message), Cause: completionError}
	}
	var requestError *openai.RequestError
	if errors.As(completionError, &requestError) {
		return ResponseError{Provider: ProviderOpenAI, StatusCode: requestError.HTTPStatusCode, Body: excerpt(requestError.Error()), Cause: completionError}
	}
	return classifyClientError(ProviderOpenAI, completionError)
}
