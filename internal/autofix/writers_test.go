package autofix_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/temirov/secaudit/internal/autofix"
)

const writersFixtureConstant = `
-- requirements.txt --
# web stack
Flask[async]>=2.0 ; python_version >= "3.8"
requests==2.19.0 # pinned for legacy client
urllib3
-- go.mod --
module example.com/service

go 1.22

require (
	github.com/gorilla/websocket v1.4.0
	golang.org/x/text v0.3.0
)
`

func writeFixture(testInstance *testing.T) string {
	testInstance.Helper()
	projectPath := testInstance.TempDir()
	archive := txtar.Parse([]byte(writersFixtureConstant))
	for _, file := range archive.Files {
		require.NoError(testInstance, os.WriteFile(filepath.Join(projectPath, file.Name), file.Data, 0o644))
	}
	return projectPath
}

func TestRequirementsWriter(testInstance *testing.T) {
	testCases := []struct {
		name          string
		packageName   string
		version       string
		expectedLine  string
		expectMissing bool
	}{
		{name: "keeps_comment", packageName: "requests", version: "2.31.0", expectedLine: "requests==2.31.0 # pinned for legacy client"},
		{name: "keeps_extras_and_marker", packageName: "flask", version: "2.3.3", expectedLine: "Flask[async]==2.3.3; python_version >= \"3.8\""},
		{name: "unpinned", packageName: "urllib3", version: "1.26.18", expectedLine: "urllib3==1.26.18"},
		{name: "missing_package", packageName: "django", version: "4.2.0", expectMissing: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			projectPath := writeFixture(testInstance)

			updateError := autofix.RequirementsWriter{}.UpdateDependency(context.Background(), projectPath, testCase.packageName, testCase.version)
			if testCase.expectMissing {
				require.ErrorIs(testInstance, updateError, autofix.ErrDependencyNotDeclared)
				return
			}
			require.NoError(testInstance, updateError)

			content, readError := os.ReadFile(filepath.Join(projectPath, "requirements.txt"))
			require.NoError(testInstance, readError)
			require.Contains(testInstance, string(content), testCase.expectedLine+"\n")
			require.Contains(testInstance, string(content), "# web stack\n")
		})
	}
}

func TestGoModuleWriter(testInstance *testing.T) {
	projectPath := writeFixture(testInstance)

	require.NoError(testInstance, autofix.GoModuleWriter{}.UpdateDependency(context.Background(), projectPath, "github.com/gorilla/websocket", "1.5.1"))

	content, readError := os.ReadFile(filepath.Join(projectPath, "go.mod"))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(content), "github.com/gorilla/websocket v1.5.1")
	require.Contains(testInstance, string(content), "golang.org/x/text v0.3.0")

	missingError := autofix.GoModuleWriter{}.UpdateDependency(context.Background(), projectPath, "github.com/unknown/module", "v1.0.0")
	require.ErrorIs(testInstance, missingError, autofix.ErrDependencyNotDeclared)
}

func TestCompositeWriterFallsThroughManifests(testInstance *testing.T) {
	projectPath := writeFixture(testInstance)
	writer := autofix.NewCompositeWriter()

	require.NoError(testInstance, writer.UpdateDependency(context.Background(), projectPath, "golang.org/x/text", "v0.14.0"))
	require.ErrorIs(testInstance, writer.UpdateDependency(context.Background(), projectPath, "left-pad", "1.3.0"), autofix.ErrDependencyNotDeclared)

	emptyProject := testInstance.TempDir()
	require.ErrorIs(testInstance, writer.UpdateDependency(context.Background(), emptyProject, "requests", "2.31.0"), autofix.ErrDependencyNotDeclared)
}
