package report

import "github.com/temirov/secaudit/internal/risk"

const (
	sarifVersionConstant          = "2.1.0"
	sarifLevelErrorConstant       = "error"
	sarifLevelWarningConstant     = "warning"
	sarifLevelNoteConstant        = "note"
	sarifErrorThresholdConstant   = 9.0
	sarifWarningThresholdConstant = 7.0
)

// Field order is lexicographic at every level so the encoding is stable across tools.
type sarifLog struct {
	Runs    []sarifRun `json:"runs"`
	Version string     `json:"version"`
}

type sarifRun struct {
	Results []sarifResult `json:"results"`
	Tool    sarifTool     `json:"tool"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	InformationURI string `json:"informationUri"`
	Name           string `json:"name"`
	Version        string `json:"version"`
}

type sarifResult struct {
	Fixes     []sarifFix      `json:"fixes"`
	Level     string          `json:"level"`
	Locations []sarifLocation `json:"locations"`
	Message   sarifMessage    `json:"message"`
	RuleID    string          `json:"ruleId"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

func buildSARIFLog(audit risk.Audit, tool ToolMetadata) sarifLog {
	results := make([]sarifResult, 0, len(audit.Vulnerabilities))
	for _, finding := range audit.Vulnerabilities {
		results = append(results, sarifResult{
			Fixes: []sarifFix{{Description: sarifMessage{Text: finding.Remediation}}},
			Level: SARIFLevel(finding.Severity.Overall),
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: finding.AffectedComponent}},
			}},
			Message: sarifMessage{Text: finding.Description},
			RuleID:  finding.ID,
		})
	}

	return sarifLog{
		Runs: []sarifRun{{
			Results: results,
			Tool: sarifTool{Driver: sarifDriver{
				InformationURI: tool.InformationURI,
				Name:           tool.Name,
				Version:        tool.Version,
			}},
		}},
		Version: sarifVersionConstant,
	}
}

// SARIFLevel maps an overall severity onto a SARIF result level.
func SARIFLevel(overallSeverity float64) string {
	switch {
	case overallSeverity >= sarifErrorThresholdConstant:
		return sarifLevelErrorConstant
	case overallSeverity >= sarifWarningThresholdConstant:
		return sarifLevelWarningConstant
	default:
		return sarifLevelNoteConstant
	}
}
