package report

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/temirov/secaudit/internal/risk"
)

const (
	htmlTemplatePathConstant       = "templates/audit.html"
	htmlTitleConstant              = "Security Audit Report"
	badgeCriticalClassConstant     = "critical"
	badgeHighClassConstant         = "high"
	badgeMediumClassConstant       = "medium"
	badgeLowClassConstant          = "low"
	badgeCriticalThresholdConstant = 75.0
	badgeHighThresholdConstant     = 50.0
	badgeMediumThresholdConstant   = 25.0
)

//go:embed templates/audit.html
var templatesFS embed.FS

var auditTemplate = template.Must(template.ParseFS(templatesFS, htmlTemplatePathConstant))

type htmlFinding struct {
	ID                string
	Description       string
	AffectedComponent string
	Remediation       string
}

type htmlView struct {
	Title                  string
	BadgeClass             string
	Score                  string
	Level                  string
	ScanTime               string
	Findings               []htmlFinding
	DirectDependencies     int
	TransitiveDependencies int
	SupplyChainRisk        string
	ExecutiveSummary       string
}

// BadgeClass selects the score badge class. Bands use strict lower bounds, unlike risk levels.
func BadgeClass(score float64) string {
	switch {
	case score > badgeCriticalThresholdConstant:
		return badgeCriticalClassConstant
	case score > badgeHighThresholdConstant:
		return badgeHighClassConstant
	case score > badgeMediumThresholdConstant:
		return badgeMediumClassConstant
	default:
		return badgeLowClassConstant
	}
}

func renderHTML(audit risk.Audit) (string, error) {
	findings := make([]htmlFinding, 0, len(audit.Vulnerabilities))
	for _, finding := range audit.Vulnerabilities {
		findings = append(findings, htmlFinding{
			ID:                finding.ID,
			Description:       finding.Description,
			AffectedComponent: finding.AffectedComponent,
			Remediation:       finding.Remediation,
		})
	}

	view := htmlView{
		Title:                  htmlTitleConstant,
		BadgeClass:             BadgeClass(audit.RiskScore),
		Score:                  formatNumber(audit.RiskScore),
		Level:                  string(audit.RiskLevel),
		ScanTime:               audit.ScanTimestamp.UTC().Format(time.RFC3339),
		Findings:               findings,
		DirectDependencies:     audit.SupplyChain.DirectDependencies,
		TransitiveDependencies: audit.SupplyChain.TransitiveDependencies,
		SupplyChainRisk:        formatNumber(audit.SupplyChain.RiskScore),
		ExecutiveSummary:       audit.ExecutiveSummary,
	}

	var buffer bytes.Buffer
	if executeError := auditTemplate.Execute(&buffer, view); executeError != nil {
		return "", executeError
	}
	return buffer.String(), nil
}
