package flags_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/secaudit/internal/utils/flags"
)

func TestFormatChoiceUsage(testInstance *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "default_first_choice",
			defaultChoice:  "text",
			choices:        []string{"text", "json", "sarif", "html"},
			description:    "Report format",
			expectedOutput: "`<TEXT|json|sarif|html>` Report format",
		},
		{
			name:           "default_later_choice",
			defaultChoice:  "sarif",
			choices:        []string{"text", "json", "sarif"},
			description:    "Report format",
			expectedOutput: "`<text|json|SARIF>` Report format",
		},
		{
			name:           "empty_description",
			defaultChoice:  "json",
			choices:        []string{"json", "html"},
			expectedOutput: "`<JSON|html>`",
		},
		{
			name:           "duplicate_choices_ignored",
			defaultChoice:  "html",
			choices:        []string{"html", "HTML", "text", "text"},
			description:    "Report format",
			expectedOutput: "`<HTML|text>` Report format",
		},
		{
			name:           "whitespace_trimmed",
			defaultChoice:  " text ",
			choices:        []string{" text ", " json "},
			description:    "Report format",
			expectedOutput: "`<TEXT|json>` Report format",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			actual := flags.FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description)
			require.Equal(testInstance, testCase.expectedOutput, actual)
		})
	}
}
