package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	integrationTimeout              = 2 * time.Minute
	chatCompletionsPathConstant     = "/v1/chat/completions"
	userRoleConstant                = "user"
	synthesisPromptPrefixConstant   = "Perform a comprehensive security audit"
	threatPromptPrefixConstant      = "Based on the current threat landscape"
	defaultEvidenceResponseConstant = "no notable findings"
	threatIntelligenceReplyConstant = "No active campaigns target these components."
)

type integrationResult struct {
	output         string
	standardOutput string
	standardError  string
	exitCode       int
}

type chatRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// startInferenceServer emulates the chat completions API, answering the synthesis prompt with the provided audit document.
func startInferenceServer(testInstance *testing.T, synthesisResponse string) *httptest.Server {
	testInstance.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if request.URL.Path != chatCompletionsPathConstant {
			http.NotFound(responseWriter, request)
			return
		}

		var payload chatRequest
		if decodeError := json.NewDecoder(request.Body).Decode(&payload); decodeError != nil {
			http.Error(responseWriter, decodeError.Error(), http.StatusBadRequest)
			return
		}

		prompt := ""
		for _, message := range payload.Messages {
			if message.Role == userRoleConstant {
				prompt = message.Content
			}
		}

		reply := defaultEvidenceResponseConstant
		switch {
		case strings.HasPrefix(prompt, synthesisPromptPrefixConstant):
			reply = synthesisResponse
		case strings.HasPrefix(prompt, threatPromptPrefixConstant):
			reply = threatIntelligenceReplyConstant
		}

		responseWriter.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(responseWriter).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	testInstance.Cleanup(server.Close)
	return server
}

func runIntegrationCommand(testInstance *testing.T, environment map[string]string, arguments []string) integrationResult {
	testInstance.Helper()
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)
	repositoryRoot := filepath.Dir(workingDirectory)

	executionContext, cancel := context.WithTimeout(context.Background(), integrationTimeout)
	defer cancel()

	command := exec.CommandContext(executionContext, "go", append([]string{"run", "."}, arguments...)...)
	command.Dir = repositoryRoot
	command.Env = append([]string{}, os.Environ()...)
	for environmentKey, environmentValue := range environment {
		command.Env = append(command.Env, environmentKey+"="+environmentValue)
	}

	standardOutput := &bytes.Buffer{}
	standardError := &bytes.Buffer{}
	command.Stdout = standardOutput
	command.Stderr = standardError

	runError := command.Run()
	result := integrationResult{
		output:         standardOutput.String() + standardError.String(),
		standardOutput: standardOutput.String(),
		standardError:  standardError.String(),
	}
	if runError != nil {
		var exitError *exec.ExitError
		if !errors.As(runError, &exitError) {
			testInstance.Fatalf("command failed to start: %v\n%s", runError, result.output)
		}
		result.exitCode = exitError.ExitCode()
	}
	return result
}
