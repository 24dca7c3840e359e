package project

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
)

const (
	requirementsManifestNameConstant = "requirements.txt"
	pyprojectManifestNameConstant    = "pyproject.toml"
	packageJSONManifestNameConstant  = "package.json"
	goModuleManifestNameConstant     = "go.mod"
	cargoManifestNameConstant        = "Cargo.toml"
	requirementsCommentPrefix        = "#"
	requirementsOptionPrefix         = "-"
	pythonInterpreterDependencyName  = "python"
	manifestParseErrorTemplate       = "unable to parse %s: %w"
)

// Ecosystem names a package ecosystem.
type Ecosystem string

// Supported ecosystems.
const (
	EcosystemPython Ecosystem = "python"
	EcosystemNode   Ecosystem = "node"
	EcosystemGo     Ecosystem = "go"
	EcosystemRust   Ecosystem = "rust"
)

// Dependency is a declared dependency and its version constraint.
type Dependency struct {
	Name    string
	Version string
}

// Manifest is a parsed dependency manifest.
type Manifest struct {
	Path         string
	Ecosystem    Ecosystem
	Dependencies []Dependency
}

type manifestParser func(content []byte) ([]Dependency, error)

type manifestKind struct {
	ecosystem Ecosystem
	parse     manifestParser
}

var manifestKinds = map[string]manifestKind{
	requirementsManifestNameConstant: {ecosystem: EcosystemPython, parse: ParseRequirements},
	pyprojectManifestNameConstant:    {ecosystem: EcosystemPython, parse: parsePyproject},
	packageJSONManifestNameConstant:  {ecosystem: EcosystemNode, parse: parsePackageJSON},
	goModuleManifestNameConstant:     {ecosystem: EcosystemGo, parse: parseGoModule},
	cargoManifestNameConstant:        {ecosystem: EcosystemRust, parse: parseCargo},
}

var requirementLinePattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._\-]*(?:\[[^\]]*\])?)\s*(.*)$`)

// IsManifest reports whether the file name is a supported dependency manifest.
func IsManifest(relativePath string) bool {
	_, supported := manifestKinds[filepath.Base(relativePath)]
	return supported
}

// ParseManifest parses the manifest content according to its file name.
func ParseManifest(relativePath string, content []byte) (Manifest, error) {
	kind, supported := manifestKinds[filepath.Base(relativePath)]
	if !supported {
		return Manifest{}, fmt.Errorf(manifestParseErrorTemplate, relativePath, errUnsupportedManifest)
	}
	dependencies, parseError := kind.parse(content)
	if parseError != nil {
		return Manifest{}, fmt.Errorf(manifestParseErrorTemplate, relativePath, parseError)
	}
	return Manifest{Path: relativePath, Ecosystem: kind.ecosystem, Dependencies: dependencies}, nil
}

// ParseRequirements reads pip requirement lines such as "flask==2.0.1" or "requests>=2".
func ParseRequirements(content []byte) ([]Dependency, error) {
	dependencies := []Dependency{}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if commentIndex := strings.Index(line, " "+requirementsCommentPrefix); commentIndex >= 0 {
			line = strings.TrimSpace(line[:commentIndex])
		}
		if len(line) == 0 || strings.HasPrefix(line, requirementsCommentPrefix) || strings.HasPrefix(line, requirementsOptionPrefix) {
			continue
		}
		dependency, parsed := parseRequirementSpecifier(line)
		if parsed {
			dependencies = append(dependencies, dependency)
		}
	}
	return dependencies, scanner.Err()
}

// RequirementName extracts the normalized package name from a requirement line.
func RequirementName(line string) (string, bool) {
	dependency, parsed := parseRequirementSpecifier(strings.TrimSpace(line))
	if !parsed {
		return "", false
	}
	return NormalizePackageName(dependency.Name), true
}

// NormalizePackageName lowercases and unifies separators the way Python package indexes do.
func NormalizePackageName(name string) string {
	if bracketIndex := strings.Index(name, "["); bracketIndex >= 0 {
		name = name[:bracketIndex]
	}
	return strings.NewReplacer("_", "-", ".", "-").Replace(strings.ToLower(strings.TrimSpace(name)))
}

func parseRequirementSpecifier(specifier string) (Dependency, bool) {
	if semicolonIndex := strings.Index(specifier, ";"); semicolonIndex >= 0 {
		specifier = strings.TrimSpace(specifier[:semicolonIndex])
	}
	matches := requirementLinePattern.FindStringSubmatch(specifier)
	if matches == nil {
		return Dependency{}, false
	}
	return Dependency{Name: matches[1], Version: strings.TrimSpace(matches[2])}, true
}

type pyprojectDocument struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func parsePyproject(content []byte) ([]Dependency, error) {
	var document pyprojectDocument
	if decodeError := toml.Unmarshal(content, &document); decodeError != nil {
		return nil, decodeError
	}

	dependencies := []Dependency{}
	for _, specifier := range document.Project.Dependencies {
		if dependency, parsed := parseRequirementSpecifier(strings.TrimSpace(specifier)); parsed {
			dependencies = append(dependencies, dependency)
		}
	}
	for _, dependency := range tableDependencies(document.Tool.Poetry.Dependencies) {
		if strings.EqualFold(dependency.Name, pythonInterpreterDependencyName) {
			continue
		}
		dependencies = append(dependencies, dependency)
	}
	return dependencies, nil
}

type cargoDocument struct {
	Dependencies map[string]any `toml:"dependencies"`
}

func parseCargo(content []byte) ([]Dependency, error) {
	var document cargoDocument
	if decodeError := toml.Unmarshal(content, &document); decodeError != nil {
		return nil, decodeError
	}
	return tableDependencies(document.Dependencies), nil
}

// tableDependencies reads name = "version" or name = { version = "..." } tables in name order.
func tableDependencies(table map[string]any) []Dependency {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	dependencies := make([]Dependency, 0, len(names))
	for _, name := range names {
		dependency := Dependency{Name: name}
		switch value := table[name].(type) {
		case string:
			dependency.Version = value
		case map[string]any:
			if version, hasVersion := value["version"].(string); hasVersion {
				dependency.Version = version
			}
		}
		dependencies = append(dependencies, dependency)
	}
	return dependencies
}

type packageJSONDocument struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parsePackageJSON(content []byte) ([]Dependency, error) {
	var document packageJSONDocument
	if decodeError := json.Unmarshal(content, &document); decodeError != nil {
		return nil, decodeError
	}
	dependencies := sortedStringDependencies(document.Dependencies)
	return append(dependencies, sortedStringDependencies(document.DevDependencies)...), nil
}

func sortedStringDependencies(table map[string]string) []Dependency {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	dependencies := make([]Dependency, 0, len(names))
	for _, name := range names {
		dependencies = append(dependencies, Dependency{Name: name, Version: table[name]})
	}
	return dependencies
}

func parseGoModule(content []byte) ([]Dependency, error) {
	moduleFile, parseError := modfile.ParseLax(goModuleManifestNameConstant, content, nil)
	if parseError != nil {
		return nil, parseError
	}
	dependencies := make([]Dependency, 0, len(moduleFile.Require))
	for _, requirement := range moduleFile.Require {
		dependencies = append(dependencies, Dependency{Name: requirement.Mod.Path, Version: requirement.Mod.Version})
	}
	return dependencies, nil
}
