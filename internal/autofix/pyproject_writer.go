package autofix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/temirov/secaudit/internal/project"
)

const (
	pyprojectFileNameConstant        = "pyproject.toml"
	pyprojectProjectSectionConstant  = "project"
	pyprojectPoetrySectionConstant   = "tool.poetry.dependencies"
	pyprojectDependenciesKeyConstant = "dependencies"
	tomlTableOpenerConstant          = "["
	tomlArrayCloserConstant          = "]"
	tomlTableTrimCharactersConstant  = "[] \t"
	tomlAssignmentConstant           = "="
	tomlQuoteCharactersConstant      = "\"'"
	poetryInlineTableOpenerConstant  = "{"
	poetryInlineVersionTemplate      = `version = "%s"`
	poetryVersionTemplate            = `"%s"`
)

var (
	tomlQuotedStringPattern    = regexp.MustCompile(`"[^"]*"|'[^']*'`)
	poetryInlineVersionPattern = regexp.MustCompile(`version\s*=\s*"[^"]*"`)
)

type pyprojectManifest struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// PyprojectWriter pins a package in pyproject.toml, covering PEP 621 [project].dependencies
// and Poetry's [tool.poetry.dependencies] table. Lines it does not touch are kept byte for byte.
type PyprojectWriter struct{}

// UpdateDependency rewrites the declarations of the package to an exact pin.
func (PyprojectWriter) UpdateDependency(executionContext context.Context, projectPath string, packageName string, version string) error {
	if contextError := executionContext.Err(); contextError != nil {
		return contextError
	}

	manifestPath := filepath.Join(projectPath, pyprojectFileNameConstant)
	content, fileMode, readError := readManifest(manifestPath)
	if readError != nil {
		return readError
	}

	var manifest pyprojectManifest
	if decodeError := toml.Unmarshal(content, &manifest); decodeError != nil {
		return decodeError
	}

	targetName := project.NormalizePackageName(packageName)
	declaredInProject := false
	for _, specifier := range manifest.Project.Dependencies {
		if requirementName, parsed := project.RequirementName(specifier); parsed && requirementName == targetName {
			declaredInProject = true
		}
	}
	declaredInPoetry := false
	for dependencyName := range manifest.Tool.Poetry.Dependencies {
		if project.NormalizePackageName(dependencyName) == targetName {
			declaredInPoetry = true
		}
	}
	if !declaredInProject && !declaredInPoetry {
		return ErrDependencyNotDeclared
	}

	lines := strings.Split(string(content), lineSeparatorConstant)
	section := ""
	insideDependencyArray := false
	updated := false
	for lineIndex, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !insideDependencyArray && strings.HasPrefix(trimmed, tomlTableOpenerConstant) {
			section = strings.Trim(trimmed, tomlTableTrimCharactersConstant)
			continue
		}

		switch {
		case section == pyprojectProjectSectionConstant && declaredInProject:
			if !insideDependencyArray {
				key, _, assignment := strings.Cut(trimmed, tomlAssignmentConstant)
				if !assignment || strings.TrimSpace(key) != pyprojectDependenciesKeyConstant {
					continue
				}
				insideDependencyArray = true
			}
			rewritten, changed := pinQuotedRequirements(line, targetName, version)
			lines[lineIndex] = rewritten
			updated = updated || changed
			if strings.Contains(tomlQuotedStringPattern.ReplaceAllString(line, ""), tomlArrayCloserConstant) {
				insideDependencyArray = false
			}
		case section == pyprojectPoetrySectionConstant && declaredInPoetry:
			rewritten, changed := pinPoetryDependency(line, targetName, version)
			lines[lineIndex] = rewritten
			updated = updated || changed
		}
	}
	if !updated {
		return ErrDependencyNotDeclared
	}

	return os.WriteFile(manifestPath, []byte(strings.Join(lines, lineSeparatorConstant)), fileMode)
}

// pinQuotedRequirements pins every quoted PEP 508 requirement on the line that names the package.
func pinQuotedRequirements(line string, targetName string, version string) (string, bool) {
	changed := false
	rewritten := tomlQuotedStringPattern.ReplaceAllStringFunc(line, func(quoted string) string {
		quote := quoted[:1]
		specifier := quoted[1 : len(quoted)-1]
		requirementName, parsed := project.RequirementName(specifier)
		if !parsed || requirementName != targetName {
			return quoted
		}
		changed = true
		return quote + pinRequirement(specifier, version) + quote
	})
	return rewritten, changed
}

// pinPoetryDependency handles `name = "^1.0"` and `name = { version = "^1.0", ... }` entries.
func pinPoetryDependency(line string, targetName string, version string) (string, bool) {
	key, value, assignment := strings.Cut(line, tomlAssignmentConstant)
	if !assignment {
		return line, false
	}
	dependencyName := strings.Trim(strings.TrimSpace(key), tomlQuoteCharactersConstant)
	if project.NormalizePackageName(dependencyName) != targetName {
		return line, false
	}

	trimmedValue := strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(trimmedValue, poetryInlineTableOpenerConstant):
		if !poetryInlineVersionPattern.MatchString(value) {
			return line, false
		}
		replacement := fmt.Sprintf(poetryInlineVersionTemplate, version)
		return key + tomlAssignmentConstant + poetryInlineVersionPattern.ReplaceAllLiteralString(value, replacement), true
	case len(trimmedValue) > 0 && strings.ContainsAny(trimmedValue[:1], tomlQuoteCharactersConstant):
		location := tomlQuotedStringPattern.FindStringIndex(value)
		if location == nil {
			return line, false
		}
		return key + tomlAssignmentConstant + value[:location[0]] + fmt.Sprintf(poetryVersionTemplate, version) + value[location[1]:], true
	default:
		return line, false
	}
}
