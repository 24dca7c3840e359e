package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/temirov/secaudit/internal/risk"
)

const (
	textSummaryTitleConstant          = "Security Audit Summary"
	textVulnerabilitiesTitleConstant  = "Vulnerabilities Found"
	textZeroDayTitleConstant          = "Potential Zero-Day Risks"
	textDependencyTitleConstant       = "Dependency Analysis"
	textRecommendationsTitleConstant  = "Top Recommendations"
	textExecutiveSummaryTitleConstant = "Executive Summary"
	textTyposquattingTitleConstant    = "Typosquatting Risks Detected:"
	textExploitAvailableConstant      = "  EXPLOIT AVAILABLE"
	textTimestampLayoutConstant       = time.RFC3339
	textRecommendationLimitConstant   = 5
	percentMultiplierConstant         = 100.0
)

func renderText(audit risk.Audit) string {
	var builder strings.Builder

	writeHeading(&builder, textSummaryTitleConstant, "=")
	fmt.Fprintf(&builder, "Risk Score: %s/100\n", formatNumber(audit.RiskScore))
	fmt.Fprintf(&builder, "Risk Level: %s\n", audit.RiskLevel)
	fmt.Fprintf(&builder, "Scan Time: %s\n", audit.ScanTimestamp.UTC().Format(textTimestampLayoutConstant))

	if len(audit.Vulnerabilities) > 0 {
		builder.WriteString("\n")
		writeHeading(&builder, textVulnerabilitiesTitleConstant, "-")
		for _, finding := range audit.Vulnerabilities {
			fmt.Fprintf(&builder, "* %s - %s\n", finding.ID, finding.Description)
			if len(finding.Type.Kind) > 0 {
				fmt.Fprintf(&builder, "  Type: %s\n", finding.Type)
			}
			fmt.Fprintf(&builder, "  Severity: %s/10\n", formatNumber(finding.Severity.Overall))
			if finding.CVSSScore != nil {
				fmt.Fprintf(&builder, "  CVSS Score: %s\n", formatNumber(*finding.CVSSScore))
			}
			fmt.Fprintf(&builder, "  Component: %s\n", finding.AffectedComponent)
			fmt.Fprintf(&builder, "  Fix: %s\n", finding.Remediation)
			if finding.ExploitAvailable {
				builder.WriteString(textExploitAvailableConstant + "\n")
			}
		}
	}

	if len(audit.ZeroDayRisks) > 0 {
		builder.WriteString("\n")
		writeHeading(&builder, textZeroDayTitleConstant, "-")
		for _, zeroDayRisk := range audit.ZeroDayRisks {
			fmt.Fprintf(&builder, "* Pattern: %s\n", zeroDayRisk.Pattern)
			fmt.Fprintf(&builder, "  Similarity to known: %s%%\n", formatNumber(zeroDayRisk.SimilarityToKnown*percentMultiplierConstant))
			fmt.Fprintf(&builder, "  Likelihood: %s%%\n", formatNumber(zeroDayRisk.Likelihood*percentMultiplierConstant))
			fmt.Fprintf(&builder, "  Mitigation: %s\n", zeroDayRisk.Mitigation)
		}
	}

	if !audit.DependencyAudit.Empty() {
		dependencyAudit := audit.DependencyAudit
		builder.WriteString("\n")
		writeHeading(&builder, textDependencyTitleConstant, "-")
		fmt.Fprintf(&builder, "Total Dependencies: %d\n", dependencyAudit.TotalDependencies)
		fmt.Fprintf(&builder, "Vulnerable: %d\n", len(dependencyAudit.VulnerableDependencies))
		fmt.Fprintf(&builder, "Outdated: %d\n", len(dependencyAudit.OutdatedDependencies))
		fmt.Fprintf(&builder, "Unmaintained: %d\n", len(dependencyAudit.UnmaintainedPackages))
		if len(dependencyAudit.TyposquattingRisks) > 0 {
			builder.WriteString(textTyposquattingTitleConstant + "\n")
			for _, typosquattingRisk := range dependencyAudit.TyposquattingRisks {
				fmt.Fprintf(&builder, "  %s (similar to: %s)\n", typosquattingRisk.Package, typosquattingRisk.SimilarTo)
			}
		}
	}

	if audit.SecretsScan.SecretsFound > 0 || len(audit.SecretsScan.Secrets) > 0 {
		fmt.Fprintf(&builder, "\nExposed Secrets: %d\n", max(audit.SecretsScan.SecretsFound, len(audit.SecretsScan.Secrets)))
		for _, secret := range audit.SecretsScan.Secrets {
			fmt.Fprintf(&builder, "  %s in %s (line %d)\n", secret.SecretType, secret.File, secret.Line)
		}
	}

	if len(audit.Compliance.Standards) > 0 || len(audit.Compliance.Violations) > 0 {
		fmt.Fprintf(&builder, "\nCompliance Score: %s%%\n", formatNumber(audit.Compliance.ComplianceScore))
		for _, standard := range audit.Compliance.Standards {
			fmt.Fprintf(&builder, "  %s: %s%%\n", standard.Name, formatNumber(standard.ComplianceLevel))
		}
		for _, violation := range audit.Compliance.Violations {
			fmt.Fprintf(&builder, "  Violation [%s] %s: %s\n", violation.Standard, violation.Requirement, violation.Description)
		}
	}

	if supplyChainPresent(audit.SupplyChain) {
		supplyChain := audit.SupplyChain
		fmt.Fprintf(&builder, "\nSupply Chain Risk: %s/100\n", formatNumber(supplyChain.RiskScore))
		fmt.Fprintf(&builder, "  Direct deps: %d\n", supplyChain.DirectDependencies)
		fmt.Fprintf(&builder, "  Transitive deps: %d\n", supplyChain.TransitiveDependencies)
		fmt.Fprintf(&builder, "  Max depth: %d\n", supplyChain.DependencyDepth)
		for _, highRiskPackage := range supplyChain.HighRiskPackages {
			fmt.Fprintf(&builder, "  High risk: %s (%s)\n", highRiskPackage.Package, strings.Join(highRiskPackage.RiskFactors, ", "))
		}
	}

	if len(audit.Recommendations) > 0 {
		builder.WriteString("\n")
		writeHeading(&builder, textRecommendationsTitleConstant, "-")
		for recommendationIndex, recommendation := range audit.Recommendations {
			if recommendationIndex >= textRecommendationLimitConstant {
				break
			}
			fmt.Fprintf(&builder, "%d. %s - %s\n", recommendationIndex+1, recommendation.Title, recommendation.Description)
			fmt.Fprintf(&builder, "   Effort: %s | Impact: %s\n", recommendation.Effort, recommendation.Impact)
		}
	}

	if len(strings.TrimSpace(audit.ExecutiveSummary)) > 0 {
		builder.WriteString("\n")
		writeHeading(&builder, textExecutiveSummaryTitleConstant, "-")
		builder.WriteString(audit.ExecutiveSummary)
		builder.WriteString("\n")
	}

	return builder.String()
}

func writeHeading(builder *strings.Builder, title string, underline string) {
	builder.WriteString(title)
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat(underline, len(title)))
	builder.WriteString("\n")
}

func supplyChainPresent(supplyChain risk.SupplyChainAnalysis) bool {
	return supplyChain.RiskScore > 0 ||
		supplyChain.DirectDependencies > 0 ||
		supplyChain.TransitiveDependencies > 0 ||
		supplyChain.DependencyDepth > 0 ||
		len(supplyChain.HighRiskPackages) > 0 ||
		len(supplyChain.AttackVectors) > 0
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
