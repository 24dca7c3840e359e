package backend

import (
	"errors"
	"fmt"
)

const (
	requestErrorTemplateConstant          = "%s request failed: %v"
	responseErrorTemplateConstant         = "%s API error (status %d): %s"
	decodeErrorTemplateConstant           = "invalid response format from %s: %v"
	emptyContentErrorTemplateConstant     = "invalid response format from %s: no content returned"
	startupErrorTemplateConstant          = "unable to start inference backend: %s"
	startupErrorWithCauseTemplateConstant = "unable to start inference backend: %s: %v"
	responseBodyExcerptLimitConstant      = 512
)

// ErrCredentialsUnavailable indicates that no configured provider has a resolvable credential.
var ErrCredentialsUnavailable = errors.New("no inference backend credentials available; set OPENAI_API_KEY or ANTHROPIC_API_KEY")

// RequestError wraps transport failures while contacting a provider.
type RequestError struct {
	Provider Provider
	Cause    error
}

// Error describes the transport failure.
func (requestError RequestError) Error() string {
	return fmt.Sprintf(requestErrorTemplateConstant, requestError.Provider, requestError.Cause)
}

// Unwrap exposes the underlying cause.
func (requestError RequestError) Unwrap() error {
	return requestError.Cause
}

// ResponseError reports a non-success HTTP status returned by a provider.
type ResponseError struct {
	Provider   Provider
	StatusCode int
	Body       string
	Cause      error
}

// Error describes the provider failure.
func (responseError ResponseError) Error() string {
	return fmt.Sprintf(responseErrorTemplateConstant, responseError.Provider, responseError.StatusCode, responseError.Body)
}

// Unwrap exposes the client error.
func (responseError ResponseError) Unwrap() error {
	return responseError.Cause
}

// DecodeError reports a provider response that could not be interpreted.
type DecodeError struct {
	Provider Provider
	Cause    error
}

// Error describes the decode failure.
func (decodeError DecodeError) Error() string {
	if decodeError.Cause == nil {
		return fmt.Sprintf(emptyContentErrorTemplateConstant, decodeError.Provider)
	}
	return fmt.Sprintf(decodeErrorTemplateConstant, decodeError.Provider, decodeError.Cause)
}

// Unwrap exposes the underlying cause.
func (decodeError DecodeError) Unwrap() error {
	return decodeError.Cause
}

// StartupError reports that no backend could be constructed.
type StartupError struct {
	Reason string
	Cause  error
}

// Error describes the startup failure.
func (startupError StartupError) Error() string {
	if startupError.Cause == nil {
		return fmt.Sprintf(startupErrorTemplateConstant, startupError.Reason)
	}
	return fmt.Sprintf(startupErrorWithCauseTemplateConstant, startupError.Reason, startupError.Cause)
}

// Unwrap exposes the underlying cause.
func (startupError StartupError) Unwrap() error {
	return startupError.Cause
}

func excerpt(body string) string {
	if len(body) <= responseBodyExcerptLimitConstant {
		return body
	}
	return body[:responseBodyExcerptLimitConstant]
}
