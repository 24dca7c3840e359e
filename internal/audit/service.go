package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/secaudit/internal/backend"
	"github.com/temirov/secaudit/internal/risk"
	"github.com/temirov/secaudit/internal/utils"
)

const (
	backendMissingMessageConstant      = "inference backend not configured"
	cycleStartedMessageConstant        = "audit cycle started"
	scanCompletedMessageConstant       = "scan stage completed"
	enrichmentCompletedMessageConstant = "enrichment stage completed"
	synthesisCompletedMessageConstant  = "synthesis stage completed"
	cycleCompletedMessageConstant      = "audit cycle completed"
	logFieldRiskScoreConstant          = "risk_score"
	logFieldRiskLevelConstant          = "risk_level"
	logFieldFindingCountConstant       = "finding_count"
	defaultEvidenceFileLimitConstant   = 200
)

// ErrBackendNotConfigured indicates the service was constructed without an inference backend.
var ErrBackendNotConfigured = errors.New(backendMissingMessageConstant)

// ServiceDependencies carries the optional collaborators of a Service.
type ServiceDependencies struct {
	Inspector           ProjectInspector
	Clock               Clock
	IdentifierGenerator IdentifierGenerator
	Logger              *zap.Logger
}

// Service runs one audit cycle: scan, enrich, synthesize, augment.
type Service struct {
	scanner             *ScanCoordinator
	enricher            *ThreatEnricher
	synthesizer         *AuditSynthesizer
	augmenter           *LiveIntelligenceAugmenter
	identifierGenerator IdentifierGenerator
	contextAccessor     utils.CommandContextAccessor
	logger              *zap.Logger
}

// NewService wires the pipeline stages around one inference backend.
func NewService(inferenceBackend backend.InferenceBackend, settings PipelineSettings, dependencies ServiceDependencies) (*Service, error) {
	if inferenceBackend == nil {
		return nil, ErrBackendNotConfigured
	}

	prompts, promptsError := LoadPromptCatalog()
	if promptsError != nil {
		return nil, promptsError
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	identifierGenerator := dependencies.IdentifierGenerator
	if identifierGenerator == nil {
		identifierGenerator = uuid.NewString
	}
	evidenceFileLimit := settings.EvidenceFileLimit
	if evidenceFileLimit <= 0 {
		evidenceFileLimit = defaultEvidenceFileLimitConstant
	}

	contextAccessor := utils.NewCommandContextAccessor()
	queries := queryExecutor{
		inferenceBackend: inferenceBackend,
		requestTimeout:   settings.RequestTimeout,
		clock:            clock,
		logger:           logger,
		contextAccessor:  contextAccessor,
	}

	return &Service{
		scanner: &ScanCoordinator{
			queries:           queries,
			prompts:           prompts,
			inspector:         dependencies.Inspector,
			evidenceFileLimit: evidenceFileLimit,
			logger:            logger,
		},
		enricher:            &ThreatEnricher{queries: queries, prompts: prompts},
		synthesizer:         &AuditSynthesizer{queries: queries, prompts: prompts, focus: settings.Focus, clock: clock, logger: logger},
		augmenter:           &LiveIntelligenceAugmenter{queries: queries, prompts: prompts, logger: logger},
		identifierGenerator: identifierGenerator,
		contextAccessor:     contextAccessor,
		logger:              logger,
	}, nil
}

// RunCycle executes the stages strictly in order. ScanError, EnrichmentError and
// SynthesisParseError abort the cycle; augmentation failures never do.
func (service *Service) RunCycle(executionContext context.Context, projectPath string) (risk.Audit, error) {
	cycleIdentifier := service.identifierGenerator()
	cycleContext := service.contextAccessor.WithCycleIdentifier(executionContext, cycleIdentifier)
	cycleField := zap.String(logFieldCycleConstant, cycleIdentifier)

	service.logger.Info(cycleStartedMessageConstant, cycleField, zap.String(logFieldProjectPathConstant, projectPath))

	scanArtifacts, scanError := service.scanner.Collect(cycleContext, projectPath)
	if scanError != nil {
		return risk.Audit{}, scanError
	}
	service.logger.Debug(scanCompletedMessageConstant, cycleField)

	enrichmentArtifacts, enrichmentError := service.enricher.Enrich(cycleContext, scanArtifacts)
	if enrichmentError != nil {
		return risk.Audit{}, enrichmentError
	}
	service.logger.Debug(enrichmentCompletedMessageConstant, cycleField)

	synthesizedAudit, synthesisError := service.synthesizer.Synthesize(cycleContext, scanArtifacts, enrichmentArtifacts)
	if synthesisError != nil {
		return risk.Audit{}, synthesisError
	}
	service.logger.Debug(synthesisCompletedMessageConstant, cycleField)

	augmentedAudit := service.augmenter.Augment(cycleContext, synthesizedAudit)

	service.logger.Info(
		cycleCompletedMessageConstant,
		cycleField,
		zap.Float64(logFieldRiskScoreConstant, augmentedAudit.RiskScore),
		zap.String(logFieldRiskLevelConstant, string(augmentedAudit.RiskLevel)),
		zap.Int(logFieldFindingCountConstant, len(augmentedAudit.Vulnerabilities)),
	)
	return augmentedAudit, nil
}
