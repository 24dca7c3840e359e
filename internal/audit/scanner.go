package audit

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/secaudit/internal/project"
)

const (
	inspectionFailedMessageConstant = "project inspection failed; scanning without local evidence"
	logFieldProjectPathConstant     = "project_path"
)

// ScanArtifacts holds the three scan evidence blobs.
type ScanArtifacts struct {
	Dependencies   string
	CodePatterns   string
	Configurations string
}

// ProjectInspector gathers local evidence passed to the scan queries as context.
type ProjectInspector interface {
	Inspect(executionContext context.Context, projectPath string) (project.Snapshot, error)
}

// ScanCoordinator issues the dependency, code pattern, and configuration queries concurrently.
type ScanCoordinator struct {
	queries           queryExecutor
	prompts           PromptCatalog
	inspector         ProjectInspector
	evidenceFileLimit int
	logger            *zap.Logger
}

// Collect runs the three scan queries. The first failure cancels the others and
// is returned as a ScanError; no partial artifacts are returned.
func (coordinator *ScanCoordinator) Collect(executionContext context.Context, projectPath string) (ScanArtifacts, error) {
	snapshot := coordinator.inspect(executionContext, projectPath)

	var artifacts ScanArtifacts
	group, groupContext := errgroup.WithContext(executionContext)

	group.Go(func() error {
		response, queryError := coordinator.queries.run(groupContext, QueryDependencyInventory, coordinator.prompts.dependencyInventoryPrompt(projectPath), snapshot.DependencyEvidence())
		if queryError != nil {
			return ScanError{Query: QueryDependencyInventory, Cause: queryError}
		}
		artifacts.Dependencies = response
		return nil
	})

	group.Go(func() error {
		response, queryError := coordinator.queries.run(groupContext, QueryCodePatterns, coordinator.prompts.codePatternPrompt(projectPath), snapshot.SourceEvidence(coordinator.evidenceFileLimit))
		if queryError != nil {
			return ScanError{Query: QueryCodePatterns, Cause: queryError}
		}
		artifacts.CodePatterns = response
		return nil
	})

	group.Go(func() error {
		response, queryError := coordinator.queries.run(groupContext, QueryConfigurations, coordinator.prompts.configurationPrompt(projectPath), snapshot.ConfigurationEvidence(coordinator.evidenceFileLimit))
		if queryError != nil {
			return ScanError{Query: QueryConfigurations, Cause: queryError}
		}
		artifacts.Configurations = response
		return nil
	})

	if waitError := group.Wait(); waitError != nil {
		return ScanArtifacts{}, waitError
	}
	return artifacts, nil
}

func (coordinator *ScanCoordinator) inspect(executionContext context.Context, projectPath string) project.Snapshot {
	if coordinator.inspector == nil {
		return project.Snapshot{ProjectPath: projectPath}
	}
	snapshot, inspectError := coordinator.inspector.Inspect(executionContext, projectPath)
	if inspectError != nil {
		coordinator.logger.Warn(inspectionFailedMessageConstant, zap.String(logFieldProjectPathConstant, projectPath), zap.Error(inspectError))
		return project.Snapshot{ProjectPath: projectPath}
	}
	return snapshot
}
