package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/secaudit/internal/backend"
)

const (
	testAPIKeyConstant        = "sk-test"
	testPromptConstant        = "List all dependencies"
	testContextConstant       = "requirements.txt: flask==2.0.0"
	testGeneratedTextConstant = "flask 2.0.0"
	testOpenAIPathConstant    = "/v1/chat/completions"
	testAnthropicPathConstant = "/v1/messages"
	testModelConstant         = "test-model"
	testErrorBodyConstant     = `{"error":{"message":"quota exceeded","type":"insufficient_quota","code":"insufficient_quota"}}`
	testAnthropicErrorBody    = `{"type":"error","error":{"type":"rate_limit_error","message":"quota exceeded"}}`
	testMalformedBodyConstant = `not json`
)

type capturedRequest struct {
	path    string
	headers http.Header
	body    map[string]any
}

func newCapturingServer(testInstance *testing.T, statusCode int, responseBody string, captured *capturedRequest) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		requestBody, readError := io.ReadAll(request.Body)
		require.NoError(testInstance, readError)
		captured.path = request.URL.Path
		captured.headers = request.Header.Clone()
		require.NoError(testInstance, json.Unmarshal(requestBody, &captured.body))
		responseWriter.Header().Set("Content-Type", "application/json")
		responseWriter.WriteHeader(statusCode)
		_, _ = responseWriter.Write([]byte(responseBody))
	}))
	testInstance.Cleanup(server.Close)
	return server
}

func TestOpenAIBackendGenerate(testInstance *testing.T) {
	captured := &capturedRequest{}
	server := newCapturingServer(testInstance, http.StatusOK, `{"choices":[{"message":{"content":"`+testGeneratedTextConstant+`"}}]}`, captured)

	openAIBackend := backend.NewOpenAIBackend(server.Client(), testAPIKeyConstant, backend.ProviderConfiguration{BaseURL: server.URL, Model: testModelConstant})
	generatedText, generateError := openAIBackend.Generate(context.Background(), testPromptConstant, testContextConstant)
	require.NoError(testInstance, generateError)
	require.Equal(testInstance, testGeneratedTextConstant, generatedText)

	require.Equal(testInstance, testOpenAIPathConstant, captured.path)
	require.Equal(testInstance, "Bearer "+testAPIKeyConstant, captured.headers.Get("Authorization"))
	require.Equal(testInstance, testModelConstant, captured.body["model"])
	require.EqualValues(testInstance, 2000, captured.body["max_tokens"])

	messages, messagesPresent := captured.body["messages"].([]any)
	require.True(testInstance, messagesPresent)
	require.Len(testInstance, messages, 3)
	contextMessage := messages[1].(map[string]any)
	require.Equal(testInstance, "system", contextMessage["role"])
	require.Equal(testInstance, "Context: "+testContextConstant, contextMessage["content"])
	userMessage := messages[2].(map[string]any)
	require.Equal(testInstance, "user", userMessage["role"])
	require.Equal(testInstance, testPromptConstant, userMessage["content"])
}

func TestOpenAIBackendOmitsEmptyContext(testInstance *testing.T) {
	captured := &capturedRequest{}
	server := newCapturingServer(testInstance, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`, captured)

	openAIBackend := backend.NewOpenAIBackend(server.Client(), testAPIKeyConstant, backend.ProviderConfiguration{BaseURL: server.URL})
	_, generateError := openAIBackend.Generate(context.Background(), testPromptConstant, "")
	require.NoError(testInstance, generateError)

	messages := captured.body["messages"].([]any)
	require.Len(testInstance, messages, 2)
}

func TestAnthropicBackendGenerate(testInstance *testing.T) {
	captured := &capturedRequest{}
	server := newCapturingServer(testInstance, http.StatusOK, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-opus-20240229","content":[{"type":"text","text":"`+testGeneratedTextConstant+`"}],"stop_reason":"end_turn"}`, captured)

	anthropicBackend := backend.NewAnthropicBackend(server.Client(), testAPIKeyConstant, backend.ProviderConfiguration{BaseURL: server.URL + "/"})
	generatedText, generateError := anthropicBackend.Generate(context.Background(), testPromptConstant, testContextConstant)
	require.NoError(testInstance, generateError)
	require.Equal(testInstance, testGeneratedTextConstant, generatedText)

	require.Equal(testInstance, testAnthropicPathConstant, captured.path)
	require.Equal(testInstance, testAPIKeyConstant, captured.headers.Get("x-api-key"))
	require.Equal(testInstance, "2023-06-01", captured.headers.Get("anthropic-version"))
	require.Equal(testInstance, "claude-3-opus-20240229", captured.body["model"])
	require.EqualValues(testInstance, 2000, captured.body["max_tokens"])
	_, temperaturePresent := captured.body["temperature"]
	require.False(testInstance, temperaturePresent)

	systemBlocks, systemPresent := captured.body["system"].([]any)
	require.True(testInstance, systemPresent)
	require.Len(testInstance, systemBlocks, 1)
	systemBlock := systemBlocks[0].(map[string]any)
	require.Equal(testInstance, "text", systemBlock["type"])
	require.Contains(testInstance, systemBlock["text"], "Context: "+testContextConstant)

	messages := captured.body["messages"].([]any)
	require.Len(testInstance, messages, 1)
	require.Equal(testInstance, "user", messages[0].(map[string]any)["role"])
}

func TestAnthropicBackendReportsRateLimit(testInstance *testing.T) {
	captured := &capturedRequest{}
	server := newCapturingServer(testInstance, http.StatusTooManyRequests, testAnthropicErrorBody, captured)

	anthropicBackend := backend.NewAnthropicBackend(server.Client(), testAPIKeyConstant, backend.ProviderConfiguration{BaseURL: server.URL, MaxRetries: 0})
	_, generateError := anthropicBackend.Generate(context.Background(), testPromptConstant, "")
	require.Error(testInstance, generateError)

	var responseError backend.ResponseError
	require.True(testInstance, errors.As(generateError, &responseError))
	require.Equal(testInstance, backend.ProviderAnthropic, responseError.Provider)
	require.Equal(testInstance, http.StatusTooManyRequests, responseError.StatusCode)
	require.Contains(testInstance, responseError.Body, "quota exceeded")
}

func TestAnthropicBackendRejectsMessageWithoutText(testInstance *testing.T) {
	captured := &capturedRequest{}
	server := newCapturingServer(testInstance, http.StatusOK, `{"id":"msg_1","type":"message","role":"assistant","content":[]}`, captured)

	anthropicBackend := backend.NewAnthropicBackend(server.Client(), testAPIKeyConstant, backend.ProviderConfiguration{BaseURL: server.URL})
	_, generateError := anthropicBackend.Generate(context.Background(), testPromptConstant, "")

	var decodeError backend.DecodeError
	require.True(testInstance, errors.As(generateError, &decodeError))
	require.Equal(testInstance, backend.ProviderAnthropic, decodeError.Provider)
}

func TestOpenAIBackendReportsCancelledRequest(testInstance *testing.T) {
	captured := &capturedRequest{}
	server := newCapturingServer(testInstance, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`, captured)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	openAIBackend := backend.NewOpenAIBackend(server.Client(), testAPIKeyConstant, backend.ProviderConfiguration{BaseURL: server.URL})
	_, generateError := openAIBackend.Generate(cancelledContext, testPromptConstant, "")

	var requestError backend.RequestError
	require.True(testInstance, errors.As(generateError, &requestError))
	require.ErrorIs(testInstance, generateError, context.Canceled)
}

func TestBackendFailures(testInstance *testing.T) {
	testCases := []struct {
		name          string
		statusCode    int
		responseBody  string
		expectedError any
	}{
		{name: "non_success_status", statusCode: http.StatusTooManyRequests, responseBody: testErrorBodyConstant, expectedError: &backend.ResponseError{}},
		{name: "malformed_body", statusCode: http.StatusOK, responseBody: testMalformedBodyConstant, expectedError: &backend.DecodeError{}},
		{name: "no_choices", statusCode: http.StatusOK, responseBody: `{"choices":[]}`, expectedError: &backend.DecodeError{}},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			captured := &capturedRequest{}
			server := newCapturingServer(testInstance, testCase.statusCode, testCase.responseBody, captured)
			openAIBackend := backend.NewOpenAIBackend(server.Client(), testAPIKeyConstant, backend.ProviderConfiguration{BaseURL: server.URL})

			_, generateError := openAIBackend.Generate(context.Background(), testPromptConstant, "")
			require.Error(testInstance, generateError)
			switch expected := testCase.expectedError.(type) {
			case *backend.ResponseError:
				require.True(testInstance, errors.As(generateError, expected))
				require.Equal(testInstance, testCase.statusCode, expected.StatusCode)
				require.Contains(testInstance, expected.Body, "quota exceeded")
			case *backend.DecodeError:
				require.True(testInstance, errors.As(generateError, expected))
			}
		})
	}
}

func TestRateLimitedBackendHonorsCancellation(testInstance *testing.T) {
	delegate := &recordingBackend{response: testGeneratedTextConstant}
	rateLimitedBackend := backend.NewRateLimitedBackend(delegate, backend.ProviderOpenAI, 1, 1)

	firstResponse, firstError := rateLimitedBackend.Generate(context.Background(), testPromptConstant, "")
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, testGeneratedTextConstant, firstResponse)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()
	_, secondError := rateLimitedBackend.Generate(cancelledContext, testPromptConstant, "")
	require.Error(testInstance, secondError)
	require.Equal(testInstance, 1, delegate.calls)
}

type recordingBackend struct {
	response string
	calls    int
}

func (recording *recordingBackend) Generate(executionContext context.Context, prompt string, promptContext string) (string, error) {
	recording.calls++
	return recording.response, nil
}
