package audit

import (
	"errors"
	"fmt"
)

const (
	scanErrorTemplateConstant           = "scan query %s failed: %v"
	enrichmentErrorTemplateConstant     = "enrichment query %s failed: %v"
	synthesisParseErrorTemplateConstant = "unable to parse security audit response: %v"
	synthesisQueryErrorTemplateConstant = "security audit synthesis query failed: %v"
	augmentationErrorTemplateConstant   = "threat intelligence augmentation failed: %v"
	responseExcerptLimitConstant        = 240
)

// QueryName identifies a backend query issued by the pipeline.
type QueryName string

// Pipeline queries.
const (
	QueryDependencyInventory  QueryName = "dependency_inventory"
	QueryCodePatterns         QueryName = "code_patterns"
	QueryConfigurations       QueryName = "configurations"
	QueryKnownVulnerabilities QueryName = "known_vulnerabilities"
	QueryZeroDayPatterns      QueryName = "zero_day_patterns"
	QueryAuditSynthesis       QueryName = "audit_synthesis"
	QueryThreatIntelligence   QueryName = "threat_intelligence"
)

// ScanError reports a failed scan query; the cycle is aborted.
type ScanError struct {
	Query QueryName
	Cause error
}

// Error describes the failure.
func (scanError ScanError) Error() string {
	return fmt.Sprintf(scanErrorTemplateConstant, scanError.Query, scanError.Cause)
}

// Unwrap exposes the underlying cause.
func (scanError ScanError) Unwrap() error {
	return scanError.Cause
}

// EnrichmentError reports a failed enrichment query; the cycle is aborted.
type EnrichmentError struct {
	Query QueryName
	Cause error
}

// Error describes the failure.
func (enrichmentError EnrichmentError) Error() string {
	return fmt.Sprintf(enrichmentErrorTemplateConstant, enrichmentError.Query, enrichmentError.Cause)
}

// Unwrap exposes the underlying cause.
func (enrichmentError EnrichmentError) Unwrap() error {
	return enrichmentError.Cause
}

// SynthesisParseError reports that the synthesis response could not be turned into an Audit.
// ResponseExcerpt is empty when the synthesis query itself failed.
type SynthesisParseError struct {
	Cause           error
	ResponseExcerpt string
}

// Error describes the failure.
func (synthesisParseError SynthesisParseError) Error() string {
	if len(synthesisParseError.ResponseExcerpt) == 0 {
		return fmt.Sprintf(synthesisQueryErrorTemplateConstant, synthesisParseError.Cause)
	}
	return fmt.Sprintf(synthesisParseErrorTemplateConstant, synthesisParseError.Cause)
}

// Unwrap exposes the underlying cause.
func (synthesisParseError SynthesisParseError) Unwrap() error {
	return synthesisParseError.Cause
}

// AugmentationError reports a failed threat intelligence query. It is logged, never returned by a cycle.
type AugmentationError struct {
	Cause error
}

// Error describes the failure.
func (augmentationError AugmentationError) Error() string {
	return fmt.Sprintf(augmentationErrorTemplateConstant, augmentationError.Cause)
}

// Unwrap exposes the underlying cause.
func (augmentationError AugmentationError) Unwrap() error {
	return augmentationError.Cause
}

// IsCycleError reports whether err aborted a single cycle in a way a monitor may recover from on the next tick.
func IsCycleError(err error) bool {
	var scanError ScanError
	var enrichmentError EnrichmentError
	var synthesisParseError SynthesisParseError
	return errors.As(err, &scanError) || errors.As(err, &enrichmentError) || errors.As(err, &synthesisParseError)
}

func responseExcerpt(response string) string {
	runes := []rune(response)
	if len(runes) <= responseExcerptLimitConstant {
		return response
	}
	return string(runes[:responseExcerptLimitConstant])
}
