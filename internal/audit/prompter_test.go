package audit_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/secaudit/internal/audit"
)

func TestIOConfirmationPrompter(testInstance *testing.T) {
	testCases := []struct {
		name             string
		input            string
		expectedApproval bool
	}{
		{name: "short_yes", input: "y\n", expectedApproval: true},
		{name: "long_yes_mixed_case", input: "  YeS \n", expectedApproval: true},
		{name: "no", input: "n\n", expectedApproval: false},
		{name: "empty_line", input: "\n", expectedApproval: false},
		{name: "end_of_input", input: "", expectedApproval: false},
		{name: "yes_without_newline", input: "yes", expectedApproval: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			output := &bytes.Buffer{}
			prompter := audit.NewIOConfirmationPrompter(strings.NewReader(testCase.input), output)

			approved, confirmError := prompter.Confirm("Update 2 vulnerable dependencies? [y/N] ")
			require.NoError(testInstance, confirmError)
			require.Equal(testInstance, testCase.expectedApproval, approved)
			require.Equal(testInstance, "Update 2 vulnerable dependencies? [y/N] ", output.String())
		})
	}
}
