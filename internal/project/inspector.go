package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/secaudit/internal/execshell"
)

const (
	defaultFileLimitConstant          = 500
	gitListFilesSubcommandConstant    = "ls-files"
	gitCachedFlagConstant             = "--cached"
	gitOthersFlagConstant             = "--others"
	gitExcludeStandardFlagConstant    = "--exclude-standard"
	gitListingFallbackMessageConstant = "git file listing unavailable; walking directory"
	manifestSkippedMessageConstant    = "dependency manifest skipped"
	inspectionCompletedMessage        = "project inspected"
	logFieldProjectPathConstant       = "project_path"
	logFieldManifestConstant          = "manifest"
	logFieldManifestCountConstant     = "manifest_count"
	logFieldSourceCountConstant       = "source_file_count"
	logFieldConfigurationCountConst   = "configuration_file_count"
	projectPathErrorTemplateConstant  = "unable to inspect project %s: %w"
	dependencyEvidenceHeaderTemplate  = "Manifest %s (%s):\n"
	dependencyEvidenceLineTemplate    = "  %s %s\n"
	fileEvidenceHeaderTemplate        = "%s (%d):\n"
	fileEvidenceLineTemplate          = "- %s\n"
	sourceFilesHeaderConstant         = "Source files"
	configurationFilesHeaderConstant  = "Configuration files"
	truncatedEvidenceTemplate         = "... %d more\n"
)

var errUnsupportedManifest = errors.New("unsupported manifest")

var skippedDirectoryNames = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	".venv":        {},
	"venv":         {},
	"__pycache__":  {},
	"target":       {},
	"dist":         {},
	"build":        {},
}

var sourceFileExtensions = map[string]struct{}{
	".py": {}, ".go": {}, ".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {}, ".rs": {},
	".java": {}, ".rb": {}, ".php": {}, ".c": {}, ".cc": {}, ".cpp": {}, ".cs": {},
}

var configurationFileExtensions = map[string]struct{}{
	".yaml": {}, ".yml": {}, ".toml": {}, ".ini": {}, ".cfg": {}, ".conf": {}, ".env": {}, ".json": {},
}

var configurationFileNames = map[string]struct{}{
	"Dockerfile":         {},
	"docker-compose.yml": {},
	".env":               {},
	"settings.py":        {},
	"nginx.conf":         {},
}

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Snapshot is the local evidence gathered for a project.
type Snapshot struct {
	ProjectPath        string
	Manifests          []Manifest
	SourceFiles        []string
	ConfigurationFiles []string
}

// Inspector builds Snapshots from the project directory.
type Inspector struct {
	gitExecutor GitExecutor
	logger      *zap.Logger
}

// NewInspector constructs an Inspector. A nil gitExecutor always walks the directory tree.
func NewInspector(gitExecutor GitExecutor, logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{gitExecutor: gitExecutor, logger: logger}
}

// Inspect lists project files (via git when available) and parses dependency manifests.
func (inspector *Inspector) Inspect(executionContext context.Context, projectPath string) (Snapshot, error) {
	projectInfo, statError := os.Stat(projectPath)
	if statError != nil {
		return Snapshot{}, fmt.Errorf(projectPathErrorTemplateConstant, projectPath, statError)
	}
	if !projectInfo.IsDir() {
		return Snapshot{}, fmt.Errorf(projectPathErrorTemplateConstant, projectPath, fs.ErrInvalid)
	}

	relativePaths, listError := inspector.listFiles(executionContext, projectPath)
	if listError != nil {
		return Snapshot{}, fmt.Errorf(projectPathErrorTemplateConstant, projectPath, listError)
	}

	snapshot := Snapshot{ProjectPath: projectPath, Manifests: []Manifest{}, SourceFiles: []string{}, ConfigurationFiles: []string{}}
	for _, relativePath := range relativePaths {
		switch {
		case IsManifest(relativePath):
			manifest, manifestError := inspector.readManifest(projectPath, relativePath)
			if manifestError != nil {
				inspector.logger.Warn(manifestSkippedMessageConstant, zap.String(logFieldManifestConstant, relativePath), zap.Error(manifestError))
				continue
			}
			snapshot.Manifests = append(snapshot.Manifests, manifest)
		case isConfigurationFile(relativePath):
			snapshot.ConfigurationFiles = append(snapshot.ConfigurationFiles, relativePath)
		case isSourceFile(relativePath):
			snapshot.SourceFiles = append(snapshot.SourceFiles, relativePath)
		}
	}

	inspector.logger.Debug(
		inspectionCompletedMessage,
		zap.String(logFieldProjectPathConstant, projectPath),
		zap.Int(logFieldManifestCountConstant, len(snapshot.Manifests)),
		zap.Int(logFieldSourceCountConstant, len(snapshot.SourceFiles)),
		zap.Int(logFieldConfigurationCountConst, len(snapshot.ConfigurationFiles)),
	)
	return snapshot, nil
}

func (inspector *Inspector) listFiles(executionContext context.Context, projectPath string) ([]string, error) {
	if inspector.gitExecutor != nil {
		executionResult, gitError := inspector.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
			Arguments:        []string{gitListFilesSubcommandConstant, gitCachedFlagConstant, gitOthersFlagConstant, gitExcludeStandardFlagConstant},
			WorkingDirectory: projectPath,
		})
		if gitError == nil {
			return normalizeListing(strings.Split(executionResult.StandardOutput, "\n")), nil
		}
		inspector.logger.Debug(gitListingFallbackMessageConstant, zap.String(logFieldProjectPathConstant, projectPath), zap.Error(gitError))
	}

	relativePaths := []string{}
	walkError := filepath.WalkDir(projectPath, func(currentPath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		if entry.IsDir() {
			if _, skipped := skippedDirectoryNames[entry.Name()]; skipped && currentPath != projectPath {
				return filepath.SkipDir
			}
			return nil
		}
		relativePath, relativeError := filepath.Rel(projectPath, currentPath)
		if relativeError != nil {
			return relativeError
		}
		relativePaths = append(relativePaths, filepath.ToSlash(relativePath))
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}
	return normalizeListing(relativePaths), nil
}

func (inspector *Inspector) readManifest(projectPath string, relativePath string) (Manifest, error) {
	content, readError := os.ReadFile(filepath.Join(projectPath, filepath.FromSlash(relativePath)))
	if readError != nil {
		return Manifest{}, readError
	}
	return ParseManifest(relativePath, content)
}

// DependencyEvidence renders manifests as backend context.
func (snapshot Snapshot) DependencyEvidence() string {
	var builder strings.Builder
	for _, manifest := range snapshot.Manifests {
		builder.WriteString(fmt.Sprintf(dependencyEvidenceHeaderTemplate, manifest.Path, manifest.Ecosystem))
		for _, dependency := range manifest.Dependencies {
			builder.WriteString(fmt.Sprintf(dependencyEvidenceLineTemplate, dependency.Name, dependency.Version))
		}
	}
	return builder.String()
}

// SourceEvidence renders the source file inventory as backend context.
func (snapshot Snapshot) SourceEvidence(limit int) string {
	return renderFileEvidence(sourceFilesHeaderConstant, snapshot.SourceFiles, limit)
}

// ConfigurationEvidence renders the configuration file inventory as backend context.
func (snapshot Snapshot) ConfigurationEvidence(limit int) string {
	return renderFileEvidence(configurationFilesHeaderConstant, snapshot.ConfigurationFiles, limit)
}

func renderFileEvidence(header string, files []string, limit int) string {
	if len(files) == 0 {
		return ""
	}
	if limit <= 0 {
		limit = defaultFileLimitConstant
	}
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(fileEvidenceHeaderTemplate, header, len(files)))
	for fileIndex, file := range files {
		if fileIndex >= limit {
			builder.WriteString(fmt.Sprintf(truncatedEvidenceTemplate, len(files)-limit))
			break
		}
		builder.WriteString(fmt.Sprintf(fileEvidenceLineTemplate, file))
	}
	return builder.String()
}

func normalizeListing(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	normalized := make([]string, 0, len(paths))
	for _, candidatePath := range paths {
		trimmedPath := strings.TrimSpace(candidatePath)
		if len(trimmedPath) == 0 {
			continue
		}
		if _, duplicate := seen[trimmedPath]; duplicate {
			continue
		}
		seen[trimmedPath] = struct{}{}
		normalized = append(normalized, trimmedPath)
	}
	sort.Strings(normalized)
	return normalized
}

func isSourceFile(relativePath string) bool {
	_, matched := sourceFileExtensions[strings.ToLower(filepath.Ext(relativePath))]
	return matched
}

func isConfigurationFile(relativePath string) bool {
	if _, matched := configurationFileNames[filepath.Base(relativePath)]; matched {
		return true
	}
	_, matched := configurationFileExtensions[strings.ToLower(filepath.Ext(relativePath))]
	return matched
}
