package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/secaudit/internal/risk"
)

const (
	codeFenceMarkerConstant          = "```"
	riskLevelAdjustedMessageConstant = "risk level re-derived from risk score"
	riskScoreClampedMessageConstant  = "risk score clamped to valid range"
	logFieldReportedLevelConstant    = "reported_level"
	logFieldDerivedLevelConstant     = "derived_level"
	logFieldReportedScoreConstant    = "reported_score"
	minimumSeverityConstant          = 0.0
	maximumSeverityConstant          = 10.0
)

var (
	errMissingRiskScore = errors.New("response is missing risk_score")
	errTrailingContent  = errors.New("response contains content after the audit object")
)

// AuditSynthesizer turns all evidence into one structured Audit via a single composite query.
type AuditSynthesizer struct {
	queries queryExecutor
	prompts PromptCatalog
	focus   Focus
	clock   Clock
	logger  *zap.Logger
}

// Synthesize issues the composite query and parses its response. Any failure is a SynthesisParseError; there is no retry.
func (synthesizer *AuditSynthesizer) Synthesize(executionContext context.Context, scanArtifacts ScanArtifacts, enrichmentArtifacts EnrichmentArtifacts) (risk.Audit, error) {
	prompt := synthesizer.prompts.synthesisPrompt(scanArtifacts, enrichmentArtifacts, synthesizer.focus)
	response, queryError := synthesizer.queries.run(executionContext, QueryAuditSynthesis, prompt, "")
	if queryError != nil {
		return risk.Audit{}, SynthesisParseError{Cause: queryError}
	}
	return ParseAuditResponse(response, synthesizer.clock.Now(), synthesizer.logger)
}

// ParseAuditResponse decodes a backend response into a normalized Audit. Markdown code
// fences around the JSON payload are tolerated. The score is clamped to [0, 100] and the
// level is always derived from the score.
func ParseAuditResponse(response string, now time.Time, logger *zap.Logger) (risk.Audit, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	payload := stripCodeFence(response)

	var presence struct {
		RiskScore *float64 `json:"risk_score"`
	}
	if presenceError := json.Unmarshal([]byte(payload), &presence); presenceError != nil {
		return risk.Audit{}, SynthesisParseError{Cause: presenceError, ResponseExcerpt: responseExcerpt(response)}
	}
	if presence.RiskScore == nil {
		return risk.Audit{}, SynthesisParseError{Cause: errMissingRiskScore, ResponseExcerpt: responseExcerpt(response)}
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(payload)))
	var audit risk.Audit
	if decodeError := decoder.Decode(&audit); decodeError != nil {
		return risk.Audit{}, SynthesisParseError{Cause: decodeError, ResponseExcerpt: responseExcerpt(response)}
	}
	if decoder.More() {
		return risk.Audit{}, SynthesisParseError{Cause: errTrailingContent, ResponseExcerpt: responseExcerpt(response)}
	}

	clampedScore := risk.ClampScore(audit.RiskScore)
	if clampedScore != audit.RiskScore {
		logger.Warn(riskScoreClampedMessageConstant, zap.Float64(logFieldReportedScoreConstant, audit.RiskScore))
		audit.RiskScore = clampedScore
	}

	derivedLevel := risk.LevelForScore(audit.RiskScore)
	if audit.RiskLevel != derivedLevel {
		logger.Warn(
			riskLevelAdjustedMessageConstant,
			zap.String(logFieldReportedLevelConstant, string(audit.RiskLevel)),
			zap.String(logFieldDerivedLevelConstant, string(derivedLevel)),
		)
		audit.RiskLevel = derivedLevel
	}

	if audit.ScanTimestamp.IsZero() {
		audit.ScanTimestamp = now.UTC()
	}

	for findingIndex := range audit.Vulnerabilities {
		severity := &audit.Vulnerabilities[findingIndex].Severity
		severity.Base = clampSeverity(severity.Base)
		severity.Temporal = clampSeverity(severity.Temporal)
		severity.Environmental = clampSeverity(severity.Environmental)
		severity.Overall = clampSeverity(severity.Overall)
	}

	audit.Normalize()
	return audit, nil
}

func stripCodeFence(response string) string {
	trimmedResponse := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmedResponse, codeFenceMarkerConstant) {
		return trimmedResponse
	}
	firstLineEnd := strings.Index(trimmedResponse, "\n")
	if firstLineEnd < 0 {
		return trimmedResponse
	}
	body := trimmedResponse[firstLineEnd+1:]
	if closingIndex := strings.LastIndex(body, codeFenceMarkerConstant); closingIndex >= 0 {
		body = body[:closingIndex]
	}
	return strings.TrimSpace(body)
}

func clampSeverity(value float64) float64 {
	return math.Max(minimumSeverityConstant, math.Min(maximumSeverityConstant, value))
}
