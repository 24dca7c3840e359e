package autofix

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/secaudit/internal/risk"
)

const (
	updatingDependencyMessageConstant = "updating dependency"
	updateFailedMessageConstant       = "dependency update failed"
	skippedDependencyMessageConstant  = "no safe version available; dependency skipped"
	logFieldPackageConstant           = "package"
	logFieldCurrentVersionConstant    = "current_version"
	logFieldTargetVersionConstant     = "target_version"
)

// ManifestWriter rewrites a dependency's version in the project's manifests.
type ManifestWriter interface {
	UpdateDependency(executionContext context.Context, projectPath string, packageName string, version string) error
}

// Update is one selected remediation.
type Update struct {
	Package        string
	CurrentVersion string
	TargetVersion  string
}

// Summary reports the outcome of an auto-fix run.
type Summary struct {
	Selected int
	Fixed    int
	Failed   int
	Updates  []Update
	Failures []AutoFixError
}

// Fixer selects remediation versions and hands them to a ManifestWriter.
type Fixer struct {
	writer ManifestWriter
	logger *zap.Logger
}

// NewFixer constructs a Fixer. A nil writer selects updates without touching manifests.
func NewFixer(writer ManifestWriter, logger *zap.Logger) *Fixer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fixer{writer: writer, logger: logger}
}

// Apply picks the first listed safe version of every vulnerable dependency. Dependencies without
// safe versions are skipped. Write failures are collected in the summary and do not stop the run.
func (fixer *Fixer) Apply(executionContext context.Context, projectPath string, dependencyAudit risk.DependencyAudit) Summary {
	summary := Summary{Updates: []Update{}, Failures: []AutoFixError{}}

	for _, dependency := range dependencyAudit.VulnerableDependencies {
		if len(dependency.SafeVersions) == 0 {
			fixer.logger.Debug(skippedDependencyMessageConstant, zap.String(logFieldPackageConstant, dependency.Package))
			continue
		}

		update := Update{
			Package:        dependency.Package,
			CurrentVersion: dependency.CurrentVersion,
			TargetVersion:  dependency.SafeVersions[0],
		}
		summary.Selected++
		summary.Updates = append(summary.Updates, update)

		fixer.logger.Info(
			updatingDependencyMessageConstant,
			zap.String(logFieldPackageConstant, update.Package),
			zap.String(logFieldCurrentVersionConstant, update.CurrentVersion),
			zap.String(logFieldTargetVersionConstant, update.TargetVersion),
		)

		if fixer.writer == nil {
			summary.Fixed++
			continue
		}

		if writeError := fixer.writer.UpdateDependency(executionContext, projectPath, update.Package, update.TargetVersion); writeError != nil {
			failure := AutoFixError{Package: update.Package, Version: update.TargetVersion, Cause: writeError}
			fixer.logger.Warn(updateFailedMessageConstant, zap.Error(failure))
			summary.Failed++
			summary.Failures = append(summary.Failures, failure)
			continue
		}
		summary.Fixed++
	}

	return summary
}
