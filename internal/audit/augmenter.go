package audit

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/secaudit/internal/risk"
)

const (
	threatIntelligenceHeadingConstant  = "\n\n## Active Threat Intelligence\n"
	augmentationSkippedMessageConstant = "threat intelligence unavailable; executive summary left unchanged"
	maximumTechnologiesConstant        = 10
)

// LiveIntelligenceAugmenter appends current threat intelligence to the executive summary.
type LiveIntelligenceAugmenter struct {
	queries queryExecutor
	prompts PromptCatalog
	logger  *zap.Logger
}

// Augment never fails: on a backend error the AugmentationError is logged and the audit is returned unchanged.
func (augmenter *LiveIntelligenceAugmenter) Augment(executionContext context.Context, audit risk.Audit) risk.Audit {
	prompt := augmenter.prompts.threatIntelligencePrompt(auditedTechnologies(audit))
	intelligence, queryError := augmenter.queries.run(executionContext, QueryThreatIntelligence, prompt, "")
	if queryError != nil {
		augmenter.logger.Warn(augmentationSkippedMessageConstant, zap.Error(AugmentationError{Cause: queryError}))
		return audit
	}

	augmentedAudit := audit
	augmentedAudit.ExecutiveSummary = audit.ExecutiveSummary + threatIntelligenceHeadingConstant + intelligence
	return augmentedAudit
}

// auditedTechnologies lists affected components and vulnerable packages in first-seen order.
func auditedTechnologies(audit risk.Audit) []string {
	seen := map[string]struct{}{}
	technologies := []string{}
	appendTechnology := func(candidate string) {
		trimmedCandidate := strings.TrimSpace(candidate)
		if len(trimmedCandidate) == 0 || len(technologies) >= maximumTechnologiesConstant {
			return
		}
		normalizedCandidate := strings.ToLower(trimmedCandidate)
		if _, duplicate := seen[normalizedCandidate]; duplicate {
			return
		}
		seen[normalizedCandidate] = struct{}{}
		technologies = append(technologies, trimmedCandidate)
	}

	for _, finding := range audit.Vulnerabilities {
		appendTechnology(finding.AffectedComponent)
	}
	for _, dependency := range audit.DependencyAudit.VulnerableDependencies {
		appendTechnology(dependency.Package)
	}
	return technologies
}
