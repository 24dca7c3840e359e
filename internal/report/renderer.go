package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/temirov/secaudit/internal/risk"
)

const (
	renderErrorTemplateConstant       = "unable to render %s report: %v"
	unsupportedFormatTemplateConstant = "unsupported report format %q"
	jsonIndentConstant                = "  "
	defaultToolNameConstant           = "secaudit Security Audit"
	defaultToolVersionConstant        = "dev"
	defaultToolInformationURIConstant = "https://github.com/temirov/secaudit"
)

// Format identifies an output encoding.
type Format string

// Supported formats.
const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
	FormatHTML  Format = "html"
)

// Formats lists the supported formats in presentation order.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatSARIF, FormatHTML}
}

// FormatNames lists the supported formats as plain strings.
func FormatNames() []string {
	formats := Formats()
	names := make([]string, 0, len(formats))
	for _, format := range formats {
		names = append(names, string(format))
	}
	return names
}

// ParseFormat interprets a format name case-insensitively.
func ParseFormat(value string) (Format, error) {
	trimmedValue := strings.TrimSpace(value)
	for _, candidate := range Formats() {
		if strings.EqualFold(string(candidate), trimmedValue) {
			return candidate, nil
		}
	}
	return "", RenderError{Format: Format(value), Cause: fmt.Errorf(unsupportedFormatTemplateConstant, value)}
}

// RenderError reports that an audit could not be rendered in the requested format.
type RenderError struct {
	Format Format
	Cause  error
}

// Error describes the failure.
func (renderError RenderError) Error() string {
	return fmt.Sprintf(renderErrorTemplateConstant, renderError.Format, renderError.Cause)
}

// Unwrap exposes the underlying cause.
func (renderError RenderError) Unwrap() error {
	return renderError.Cause
}

// ToolMetadata identifies the producing tool in SARIF output.
type ToolMetadata struct {
	Name           string
	Version        string
	InformationURI string
}

// Renderer converts audits into documents.
type Renderer struct {
	tool ToolMetadata
}

// NewRenderer constructs a Renderer; empty metadata fields fall back to defaults.
func NewRenderer(tool ToolMetadata) *Renderer {
	if len(strings.TrimSpace(tool.Name)) == 0 {
		tool.Name = defaultToolNameConstant
	}
	if len(strings.TrimSpace(tool.Version)) == 0 {
		tool.Version = defaultToolVersionConstant
	}
	if len(strings.TrimSpace(tool.InformationURI)) == 0 {
		tool.InformationURI = defaultToolInformationURIConstant
	}
	return &Renderer{tool: tool}
}

// Render produces the document for format.
func (renderer *Renderer) Render(audit risk.Audit, format Format) (string, error) {
	switch format {
	case FormatText:
		return renderText(audit), nil
	case FormatJSON:
		return wrapRenderResult(FormatJSON)(encodeJSON(audit, true))
	case FormatSARIF:
		return wrapRenderResult(FormatSARIF)(encodeJSON(buildSARIFLog(audit, renderer.tool), false))
	case FormatHTML:
		return wrapRenderResult(FormatHTML)(renderHTML(audit))
	default:
		return "", RenderError{Format: format, Cause: fmt.Errorf(unsupportedFormatTemplateConstant, format)}
	}
}

func wrapRenderResult(format Format) func(string, error) (string, error) {
	return func(document string, renderError error) (string, error) {
		if renderError != nil {
			return "", RenderError{Format: format, Cause: renderError}
		}
		return document, nil
	}
}

func encodeJSON(value any, escapeHTML bool) (string, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetIndent("", jsonIndentConstant)
	encoder.SetEscapeHTML(escapeHTML)
	if encodeError := encoder.Encode(value); encodeError != nil {
		return "", encodeError
	}
	return strings.TrimSuffix(buffer.String(), "\n"), nil
}
