package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	credentialSourceSeparatorConstant          = ":"
	environmentCredentialSourceValueConstant   = "env"
	fileCredentialSourceValueConstant          = "file"
	credentialSourceMissingErrorMessage        = "credential source must be provided"
	environmentNameMissingErrorMessageConstant = "environment variable name must be provided"
	filePathMissingErrorMessageConstant        = "credential file path must be provided"
	environmentCredentialMissingTemplate       = "environment variable %s is not set"
	credentialFileReadErrorTemplateConstant    = "unable to read credential file %s: %w"
	credentialFileEmptyErrorTemplateConstant   = "credential file %s is empty"
	unsupportedCredentialSourceTemplate        = "unsupported credential source type %q"
)

// CredentialSourceType enumerates supported credential retrieval mechanisms.
type CredentialSourceType string

// Credential source types.
const (
	CredentialSourceTypeEnvironment CredentialSourceType = CredentialSourceType(environmentCredentialSourceValueConstant)
	CredentialSourceTypeFile        CredentialSourceType = CredentialSourceType(fileCredentialSourceValueConstant)
)

// CredentialSource specifies where an API key lives.
type CredentialSource struct {
	Type      CredentialSourceType
	Reference string
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// CredentialResolver retrieves API keys from configured sources.
type CredentialResolver interface {
	ResolveCredential(resolutionContext context.Context, source CredentialSource) (string, error)
}

// ParseCredentialSource interprets declarations such as env:OPENAI_API_KEY or file:/run/secrets/key.
// A bare value names an environment variable.
func ParseCredentialSource(sourceValue string) (CredentialSource, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return CredentialSource{}, errors.New(credentialSourceMissingErrorMessage)
	}

	components := strings.SplitN(trimmedValue, credentialSourceSeparatorConstant, 2)
	if len(components) == 1 {
		return CredentialSource{Type: CredentialSourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	sourceType := strings.ToLower(strings.TrimSpace(components[0]))
	reference := strings.TrimSpace(components[1])

	switch sourceType {
	case environmentCredentialSourceValueConstant:
		if len(reference) == 0 {
			return CredentialSource{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return CredentialSource{Type: CredentialSourceTypeEnvironment, Reference: reference}, nil
	case fileCredentialSourceValueConstant:
		if len(reference) == 0 {
			return CredentialSource{}, errors.New(filePathMissingErrorMessageConstant)
		}
		return CredentialSource{Type: CredentialSourceTypeFile, Reference: reference}, nil
	default:
		return CredentialSource{}, fmt.Errorf(unsupportedCredentialSourceTemplate, sourceType)
	}
}

// NewCredentialResolver creates a resolver with optional dependency overrides.
func NewCredentialResolver(environmentLookup EnvironmentLookup, fileReader FileReader) CredentialResolver {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	return &credentialResolver{environmentLookup: environmentLookup, fileReader: fileReader}
}

type credentialResolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
}

func (resolver *credentialResolver) ResolveCredential(resolutionContext context.Context, source CredentialSource) (string, error) {
	_ = resolutionContext
	switch source.Type {
	case CredentialSourceTypeEnvironment:
		value, found := resolver.environmentLookup(source.Reference)
		trimmedValue := strings.TrimSpace(value)
		if !found || len(trimmedValue) == 0 {
			return "", fmt.Errorf(environmentCredentialMissingTemplate, source.Reference)
		}
		return trimmedValue, nil
	case CredentialSourceTypeFile:
		contents, readError := resolver.fileReader(source.Reference)
		if readError != nil {
			return "", fmt.Errorf(credentialFileReadErrorTemplateConstant, source.Reference, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(credentialFileEmptyErrorTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	default:
		return "", fmt.Errorf(unsupportedCredentialSourceTemplate, source.Type)
	}
}
