package autofix

import (
	"errors"
	"fmt"
)

const (
	autoFixErrorTemplateConstant         = "unable to update %s to %s: %v"
	dependencyNotDeclaredMessageConstant = "dependency not declared in any supported manifest"
)

// ErrDependencyNotDeclared indicates that no manifest handled by a writer declares the package.
var ErrDependencyNotDeclared = errors.New(dependencyNotDeclaredMessageConstant)

// AutoFixError reports a failed update of one dependency. Failures are accumulated, never fatal.
type AutoFixError struct {
	Package string
	Version string
	Cause   error
}

// Error describes the failure.
func (autoFixError AutoFixError) Error() string {
	return fmt.Sprintf(autoFixErrorTemplateConstant, autoFixError.Package, autoFixError.Version, autoFixError.Cause)
}

// Unwrap exposes the underlying cause.
func (autoFixError AutoFixError) Unwrap() error {
	return autoFixError.Cause
}
