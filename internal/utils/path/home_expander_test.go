package pathutils_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/secaudit/internal/utils/path"
)

const testHomeDirectoryConstant = "/home/auditor"

func TestHomeExpanderExpand(testInstance *testing.T) {
	testCases := []struct {
		name         string
		provider     pathutils.HomeDirectoryProvider
		input        string
		expectedPath string
	}{
		{name: "bare_tilde", input: "~", expectedPath: testHomeDirectoryConstant},
		{name: "tilde_prefix", input: "~/projects/api", expectedPath: filepath.Join(testHomeDirectoryConstant, "projects/api")},
		{name: "absolute_unchanged", input: "/srv/app", expectedPath: "/srv/app"},
		{name: "relative_unchanged", input: "reports/audit.sarif", expectedPath: "reports/audit.sarif"},
		{name: "other_user_unchanged", input: "~root/app", expectedPath: "~root/app"},
		{
			name:         "provider_failure_unchanged",
			provider:     func() (string, error) { return "", errors.New("no home") },
			input:        "~/app",
			expectedPath: "~/app",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			provider := testCase.provider
			if provider == nil {
				provider = func() (string, error) { return testHomeDirectoryConstant, nil }
			}
			expander := pathutils.NewHomeExpanderWithProvider(provider)
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.input))
		})
	}
}

func TestHomeExpanderResolveDirectory(testInstance *testing.T) {
	projectDirectory := testInstance.TempDir()
	regularFile := filepath.Join(projectDirectory, "requirements.txt")
	require.NoError(testInstance, os.WriteFile(regularFile, []byte("flask==2.0.0\n"), 0o600))

	testCases := []struct {
		name          string
		input         string
		expectedPath  string
		expectedError bool
	}{
		{name: "existing_directory", input: projectDirectory, expectedPath: projectDirectory},
		{name: "empty_path", input: "  ", expectedError: true},
		{name: "missing_directory", input: filepath.Join(projectDirectory, "missing"), expectedError: true},
		{name: "regular_file", input: regularFile, expectedError: true},
	}

	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) { return testHomeDirectoryConstant, nil })
	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			resolvedPath, resolveError := expander.ResolveDirectory(testCase.input)
			if testCase.expectedError {
				require.Error(testInstance, resolveError)
				return
			}
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedPath, resolvedPath)
		})
	}
}
