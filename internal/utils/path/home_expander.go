package pathutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	homeShortcutConstant     = "~"
	unresolvablePathTemplate = "unable to resolve path %q: %w"
	notDirectoryTemplate     = "path %q is not a directory"
)

// ErrEmptyPath reports a blank path argument.
var ErrEmptyPath = errors.New("path must not be empty")

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander resolves user home shortcuts and relative paths supplied on the command line or in configuration.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewHomeExpander constructs a HomeExpander using the operating system lookup.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with a custom provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// Expand replaces a leading "~" or "~/" with the home directory. Other paths are returned unchanged.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, homeShortcutConstant) {
		return candidatePath
	}

	remainder := strings.TrimPrefix(candidatePath, homeShortcutConstant)
	if len(remainder) > 0 && remainder[0] != '/' && remainder[0] != os.PathSeparator {
		// "~user" forms are left alone.
		return candidatePath
	}

	homeDirectory := expander.resolveHomeDirectory()
	if len(homeDirectory) == 0 {
		return candidatePath
	}
	return filepath.Join(homeDirectory, strings.TrimLeft(remainder, "/"+string(os.PathSeparator)))
}

// ResolveDirectory expands and absolutizes a project directory and verifies that it exists.
func (expander *HomeExpander) ResolveDirectory(candidatePath string) (string, error) {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return "", ErrEmptyPath
	}

	absolutePath, absoluteError := filepath.Abs(expander.Expand(trimmedPath))
	if absoluteError != nil {
		return "", fmt.Errorf(unresolvablePathTemplate, candidatePath, absoluteError)
	}

	fileInfo, statError := os.Stat(absolutePath)
	if statError != nil {
		return "", fmt.Errorf(unresolvablePathTemplate, candidatePath, statError)
	}
	if !fileInfo.IsDir() {
		return "", fmt.Errorf(notDirectoryTemplate, candidatePath)
	}
	return absolutePath, nil
}

func (expander *HomeExpander) resolveHomeDirectory() string {
	expander.initializationGuard.Do(func() {
		expander.homeDirectory, expander.homeDirectoryError = expander.homeDirectoryProvider()
	})
	if expander.homeDirectoryError != nil {
		return ""
	}
	return expander.homeDirectory
}
