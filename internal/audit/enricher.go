package audit

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// EnrichmentArtifacts holds the two enrichment evidence blobs.
type EnrichmentArtifacts struct {
	KnownVulnerabilities string
	ZeroDayPatterns      string
}

// ThreatEnricher runs the evidence-dependent follow-up queries.
type ThreatEnricher struct {
	queries queryExecutor
	prompts PromptCatalog
}

// Enrich matches dependency evidence against known vulnerabilities and inspects
// code pattern evidence for zero-day candidates, concurrently and fail-fast.
func (enricher *ThreatEnricher) Enrich(executionContext context.Context, scanArtifacts ScanArtifacts) (EnrichmentArtifacts, error) {
	var artifacts EnrichmentArtifacts
	group, groupContext := errgroup.WithContext(executionContext)

	group.Go(func() error {
		response, queryError := enricher.queries.run(groupContext, QueryKnownVulnerabilities, enricher.prompts.knownVulnerabilityPrompt(scanArtifacts.Dependencies), "")
		if queryError != nil {
			return EnrichmentError{Query: QueryKnownVulnerabilities, Cause: queryError}
		}
		artifacts.KnownVulnerabilities = response
		return nil
	})

	group.Go(func() error {
		response, queryError := enricher.queries.run(groupContext, QueryZeroDayPatterns, enricher.prompts.zeroDayPrompt(scanArtifacts.CodePatterns), "")
		if queryError != nil {
			return EnrichmentError{Query: QueryZeroDayPatterns, Cause: queryError}
		}
		artifacts.ZeroDayPatterns = response
		return nil
	})

	if waitError := group.Wait(); waitError != nil {
		return EnrichmentArtifacts{}, waitError
	}
	return artifacts, nil
}
