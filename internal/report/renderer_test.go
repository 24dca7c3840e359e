package report_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/secaudit/internal/report"
	"github.com/temirov/secaudit/internal/risk"
)

const (
	testSubtestTemplateConstant = "%d_%s"
	testToolNameConstant        = "secaudit Security Audit"
	testToolVersionConstant     = "1.2.3"
	testToolURIConstant         = "https://example.com/secaudit"
)

func newTestRenderer() *report.Renderer {
	return report.NewRenderer(report.ToolMetadata{
		Name:           testToolNameConstant,
		Version:        testToolVersionConstant,
		InformationURI: testToolURIConstant,
	})
}

func sampleFinding(identifier string, overall float64) risk.Finding {
	return risk.Finding{
		ID:                identifier,
		Type:              risk.FindingType{Kind: risk.FindingKindKnownVulnerability, Reference: identifier},
		Severity:          risk.SeverityScore{Base: overall, Temporal: overall, Environmental: overall, Overall: overall},
		Description:       "Description of " + identifier,
		AffectedComponent: "requests",
		Remediation:       "Upgrade requests",
	}
}

func sampleAudit(findings ...risk.Finding) risk.Audit {
	audit := risk.Audit{
		ScanTimestamp:    time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		RiskScore:        82,
		RiskLevel:        risk.LevelCritical,
		Vulnerabilities:  findings,
		ExecutiveSummary: "Immediate action required.",
	}
	audit.Normalize()
	return audit
}

func TestRendererSARIFLevels(testInstance *testing.T) {
	testCases := []struct {
		name          string
		overall       float64
		expectedLevel string
	}{
		{name: "critical_overall", overall: 9.2, expectedLevel: "error"},
		{name: "error_boundary", overall: 9.0, expectedLevel: "error"},
		{name: "warning_boundary", overall: 7.0, expectedLevel: "warning"},
		{name: "below_warning", overall: 6.9, expectedLevel: "note"},
		{name: "zero", overall: 0, expectedLevel: "note"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			document, renderError := newTestRenderer().Render(sampleAudit(sampleFinding("CVE-2024-0001", testCase.overall)), report.FormatSARIF)
			require.NoError(testInstance, renderError)

			var decoded struct {
				Version string `json:"version"`
				Runs    []struct {
					Results []struct {
						RuleID string `json:"ruleId"`
						Level  string `json:"level"`
					} `json:"results"`
				} `json:"runs"`
			}
			require.NoError(testInstance, json.Unmarshal([]byte(document), &decoded))
			require.Equal(testInstance, "2.1.0", decoded.Version)
			require.Len(testInstance, decoded.Runs, 1)
			require.Len(testInstance, decoded.Runs[0].Results, 1)
			require.Equal(testInstance, "CVE-2024-0001", decoded.Runs[0].Results[0].RuleID)
			require.Equal(testInstance, testCase.expectedLevel, decoded.Runs[0].Results[0].Level)
		})
	}
}

func TestRendererSARIFDocumentShape(testInstance *testing.T) {
	renderer := newTestRenderer()

	emptyDocument, emptyError := renderer.Render(sampleAudit(), report.FormatSARIF)
	require.NoError(testInstance, emptyError)
	require.Contains(testInstance, emptyDocument, "\"results\": []")
	require.False(testInstance, strings.HasSuffix(emptyDocument, "\n"))

	audit := sampleAudit(sampleFinding("CVE-1", 9.5), sampleFinding("CVE-2", 3.0))
	audit.Vulnerabilities[0].Remediation = "Use <safe> & sound versions"
	document, renderError := renderer.Render(audit, report.FormatSARIF)
	require.NoError(testInstance, renderError)

	require.Contains(testInstance, document, "Use <safe> & sound versions")
	require.Less(testInstance, strings.Index(document, "\"runs\""), strings.Index(document, "\"version\": \"2.1.0\""))
	require.Less(testInstance, strings.Index(document, "\"informationUri\""), strings.Index(document, "\"name\": \"secaudit Security Audit\""))
	require.Less(testInstance, strings.Index(document, "\"fixes\""), strings.Index(document, "\"ruleId\""))
	require.Less(testInstance, strings.Index(document, "CVE-1"), strings.Index(document, "CVE-2"))
	require.Contains(testInstance, document, "\"uri\": \"requests\"")
	require.Contains(testInstance, document, testToolURIConstant)
}

func TestRendererDeterminism(testInstance *testing.T) {
	audit := sampleAudit(sampleFinding("CVE-1", 9.5), sampleFinding("CWE-79", 7.1))
	audit.Recommendations = []risk.Recommendation{{Title: "Patch", Description: "Apply patches", Effort: "low", Impact: "high"}}

	for formatIndex, format := range report.Formats() {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, formatIndex, format), func(testInstance *testing.T) {
			renderer := newTestRenderer()
			firstDocument, firstError := renderer.Render(audit, format)
			require.NoError(testInstance, firstError)
			secondDocument, secondError := renderer.Render(audit, format)
			require.NoError(testInstance, secondError)
			require.Equal(testInstance, firstDocument, secondDocument)
		})
	}
}

func TestRendererRejectsUnknownFormat(testInstance *testing.T) {
	_, renderError := newTestRenderer().Render(sampleAudit(), report.Format("pdf"))
	require.Error(testInstance, renderError)

	var typedError report.RenderError
	require.True(testInstance, errors.As(renderError, &typedError))
	require.Equal(testInstance, report.Format("pdf"), typedError.Format)
}

func TestParseFormat(testInstance *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedFormat report.Format
		expectError    bool
	}{
		{name: "text", input: "text", expectedFormat: report.FormatText},
		{name: "mixed_case", input: " SARIF ", expectedFormat: report.FormatSARIF},
		{name: "html", input: "html", expectedFormat: report.FormatHTML},
		{name: "unknown", input: "yaml", expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			format, parseError := report.ParseFormat(testCase.input)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedFormat, format)
		})
	}
}

func TestRendererJSONUsesSnakeCaseKeys(testInstance *testing.T) {
	document, renderError := newTestRenderer().Render(sampleAudit(sampleFinding("CVE-1", 9.5)), report.FormatJSON)
	require.NoError(testInstance, renderError)
	require.Contains(testInstance, document, "\"risk_score\": 82")
	require.Contains(testInstance, document, "\"risk_level\": \"Critical\"")
	require.Contains(testInstance, document, "\"vulnerability_type\": {\n")
	require.Contains(testInstance, document, "\"zero_day_risks\": []")
}
