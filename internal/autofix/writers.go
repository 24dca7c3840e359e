package autofix

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/temirov/secaudit/internal/project"
)

const (
	requirementsFileNameConstant   = "requirements.txt"
	goModuleFileNameConstant       = "go.mod"
	requirementPinOperatorConstant = "=="
	requirementMarkerSeparator     = ";"
	requirementInlineCommentMarker = " #"
	goVersionPrefixConstant        = "v"
	lineSeparatorConstant          = "\n"
)

// RequirementsWriter pins a package in requirements.txt.
type RequirementsWriter struct{}

// UpdateDependency rewrites every requirement line naming the package to an exact pin,
// keeping extras, environment markers, and inline comments.
func (RequirementsWriter) UpdateDependency(executionContext context.Context, projectPath string, packageName string, version string) error {
	if contextError := executionContext.Err(); contextError != nil {
		return contextError
	}

	manifestPath := filepath.Join(projectPath, requirementsFileNameConstant)
	content, fileMode, readError := readManifest(manifestPath)
	if readError != nil {
		return readError
	}

	targetName := project.NormalizePackageName(packageName)
	updatedLines := []string{}
	updated := false

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		requirementName, parsed := project.RequirementName(line)
		if !parsed || requirementName != targetName {
			updatedLines = append(updatedLines, line)
			continue
		}
		updatedLines = append(updatedLines, pinRequirement(line, version))
		updated = true
	}
	if scanError := scanner.Err(); scanError != nil {
		return scanError
	}
	if !updated {
		return ErrDependencyNotDeclared
	}

	return os.WriteFile(manifestPath, []byte(strings.Join(updatedLines, lineSeparatorConstant)+lineSeparatorConstant), fileMode)
}

func pinRequirement(line string, version string) string {
	body := line
	comment := ""
	if commentIndex := strings.Index(body, requirementInlineCommentMarker); commentIndex >= 0 {
		comment = body[commentIndex:]
		body = body[:commentIndex]
	}
	marker := ""
	if markerIndex := strings.Index(body, requirementMarkerSeparator); markerIndex >= 0 {
		marker = "; " + strings.TrimSpace(body[markerIndex+1:])
		body = body[:markerIndex]
	}

	dependencies, parseError := project.ParseRequirements([]byte(body))
	if parseError != nil || len(dependencies) == 0 {
		return line
	}
	return dependencies[0].Name + requirementPinOperatorConstant + version + marker + comment
}

// GoModuleWriter raises a module requirement in go.mod.
type GoModuleWriter struct{}

// UpdateDependency sets the required version of a module already listed in go.mod.
func (GoModuleWriter) UpdateDependency(executionContext context.Context, projectPath string, packageName string, version string) error {
	if contextError := executionContext.Err(); contextError != nil {
		return contextError
	}

	manifestPath := filepath.Join(projectPath, goModuleFileNameConstant)
	content, fileMode, readError := readManifest(manifestPath)
	if readError != nil {
		return readError
	}

	moduleFile, parseError := modfile.Parse(manifestPath, content, nil)
	if parseError != nil {
		return parseError
	}

	declared := false
	for _, requirement := range moduleFile.Require {
		if requirement.Mod.Path == packageName {
			declared = true
			break
		}
	}
	if !declared {
		return ErrDependencyNotDeclared
	}

	moduleVersion := version
	if !strings.HasPrefix(moduleVersion, goVersionPrefixConstant) {
		moduleVersion = goVersionPrefixConstant + moduleVersion
	}
	if addError := moduleFile.AddRequire(packageName, moduleVersion); addError != nil {
		return addError
	}
	moduleFile.Cleanup()

	formatted, formatError := moduleFile.Format()
	if formatError != nil {
		return formatError
	}
	return os.WriteFile(manifestPath, formatted, fileMode)
}

// CompositeWriter tries each writer in order until one manifest declares the package.
type CompositeWriter struct {
	writers []ManifestWriter
}

// NewCompositeWriter combines writers; with no arguments it uses every supported manifest writer.
func NewCompositeWriter(writers ...ManifestWriter) *CompositeWriter {
	if len(writers) == 0 {
		writers = []ManifestWriter{RequirementsWriter{}, PyprojectWriter{}, GoModuleWriter{}}
	}
	return &CompositeWriter{writers: writers}
}

// UpdateDependency returns the first outcome other than ErrDependencyNotDeclared.
func (composite *CompositeWriter) UpdateDependency(executionContext context.Context, projectPath string, packageName string, version string) error {
	for _, writer := range composite.writers {
		updateError := writer.UpdateDependency(executionContext, projectPath, packageName, version)
		if errors.Is(updateError, ErrDependencyNotDeclared) {
			continue
		}
		return updateError
	}
	return ErrDependencyNotDeclared
}

func readManifest(manifestPath string) ([]byte, fs.FileMode, error) {
	fileInfo, statError := os.Stat(manifestPath)
	if errors.Is(statError, fs.ErrNotExist) {
		return nil, 0, ErrDependencyNotDeclared
	}
	if statError != nil {
		return nil, 0, statError
	}
	content, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return nil, 0, readError
	}
	return content, fileInfo.Mode().Perm(), nil
}
