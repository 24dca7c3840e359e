package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/secaudit/internal/autofix"
	"github.com/temirov/secaudit/internal/backend"
	"github.com/temirov/secaudit/internal/execshell"
	"github.com/temirov/secaudit/internal/gate"
	"github.com/temirov/secaudit/internal/monitor"
	"github.com/temirov/secaudit/internal/project"
	"github.com/temirov/secaudit/internal/report"
	"github.com/temirov/secaudit/internal/risk"
	"github.com/temirov/secaudit/internal/utils"
	"github.com/temirov/secaudit/internal/utils/flags"
	pathutils "github.com/temirov/secaudit/internal/utils/path"
)

const (
	commandUseConstant                 = "audit"
	commandShortDescriptionConstant    = "Run an AI-assisted security audit of a project"
	commandLongDescriptionConstant     = "audit scans a project for known vulnerabilities, zero-day patterns, exposed secrets, compliance gaps, and supply-chain risks, then renders a risk-scored report."
	unexpectedArgumentsMessageConstant = "audit does not accept positional arguments"
	flagFormatNameConstant             = "format"
	flagFormatShorthandConstant        = "f"
	flagFormatDescriptionConstant      = "Report format"
	flagFixNameConstant                = "fix"
	flagFixDescriptionConstant         = "Update vulnerable dependencies to their first listed safe version"
	flagZeroDayNameConstant            = "zero-day"
	flagZeroDayDescriptionConstant     = "Focus the audit on zero-day vulnerability patterns"
	flagSupplyChainNameConstant        = "supply-chain"
	flagSupplyChainDescriptionConstant = "Include supply-chain analysis in the audit focus"
	flagComplianceNameConstant         = "compliance"
	flagComplianceDescriptionConstant  = "Compliance standards to check (owasp, pci-dss, hipaa, gdpr, soc2); repeatable"
	flagPathNameConstant               = "path"
	flagPathShorthandConstant          = "p"
	flagPathDescriptionConstant        = "Path to the project to audit"
	flagMonitorNameConstant            = "monitor"
	flagMonitorDescriptionConstant     = "Continuously re-run the audit until interrupted"
	flagOutputNameConstant             = "output"
	flagOutputShorthandConstant        = "o"
	flagOutputDescriptionConstant      = "Write the report to a file instead of stdout"
	flagIntervalNameConstant           = "interval"
	flagIntervalDescriptionConstant    = "Time between monitoring cycles"
	flagWatchNameConstant              = "watch"
	flagWatchDescriptionConstant       = "Start a monitoring cycle early when project files change"
	reportSavedTemplateConstant        = "Audit report saved to %s\n"
	fixStartedMessageConstant          = "Attempting to auto-fix vulnerable dependencies..."
	fixUpdateTemplateConstant          = "  Updating %s to %s\n"
	fixFailureTemplateConstant         = "  Failed to update %s: %v\n"
	fixSummaryTemplateConstant         = "Fixed %d vulnerable dependencies\n"
	fixFailedSummaryTemplateConstant   = "Failed to write %d of them\n"
	fixFollowUpMessageConstant         = "Reinstall dependencies with your package manager to apply the updates."
	fixNothingMessageConstant          = "No auto-fixable vulnerabilities found"
	fixDeclinedMessageConstant         = "Auto-fix skipped"
	fixConfirmationTemplateConstant    = "Update %d vulnerable dependencies? [y/N] "
	monitorBannerMessageConstant       = "Starting continuous security monitoring. Press Ctrl+C to stop."
	auditStartedMessageConstant        = "security audit started"
	outputWriteErrorTemplateConstant   = "unable to write report to %s: %w"
	outputFilePermissionsConstant      = 0o644
	logFieldFormatConstant             = "format"
	logFieldOutputConstant             = "output"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies persisted audit command configuration.
type ConfigurationProvider func() CommandConfiguration

// BackendConfigurationProvider supplies persisted backend configuration.
type BackendConfigurationProvider func() backend.Configuration

// BackendFactory selects the inference backend once at startup.
type BackendFactory func(executionContext context.Context, configuration backend.Configuration, logger *zap.Logger) (backend.InferenceBackend, error)

// CommandBuilder assembles the audit command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	BackendConfigurationProvider BackendConfigurationProvider
	BackendFactory               BackendFactory
	GitExecutor                  project.GitExecutor
	ManifestWriter               autofix.ManifestWriter
	Prompter                     ConfirmationPrompter
	Clock                        Clock
	MonitorClock                 monitor.Clock
	ToolVersion                  string
	HomeExpander                 *pathutils.HomeExpander
}

// CommandOptions are the resolved inputs of one audit invocation.
type CommandOptions struct {
	Format            report.Format
	ProjectPath       string
	Output            string
	Fix               bool
	AssumeYes         bool
	CI                bool
	Monitor           bool
	Focus             Focus
	EvidenceFileLimit int
	MonitorSettings   MonitorConfiguration
}

// Build constructs the audit command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	formatUsage := flags.FormatChoiceUsage(defaults.Format, report.FormatNames(), flagFormatDescriptionConstant)

	command.Flags().StringP(flagFormatNameConstant, flagFormatShorthandConstant, defaults.Format, formatUsage)
	command.Flags().Bool(flagFixNameConstant, false, flagFixDescriptionConstant)
	command.Flags().Bool(flagZeroDayNameConstant, false, flagZeroDayDescriptionConstant)
	command.Flags().Bool(flagSupplyChainNameConstant, false, flagSupplyChainDescriptionConstant)
	command.Flags().StringSlice(flagComplianceNameConstant, nil, flagComplianceDescriptionConstant)
	command.Flags().StringP(flagPathNameConstant, flagPathShorthandConstant, defaults.ProjectPath, flagPathDescriptionConstant)
	command.Flags().Bool(flagMonitorNameConstant, false, flagMonitorDescriptionConstant)
	command.Flags().StringP(flagOutputNameConstant, flagOutputShorthandConstant, "", flagOutputDescriptionConstant)
	command.Flags().Duration(flagIntervalNameConstant, defaults.Monitor.Interval, flagIntervalDescriptionConstant)
	command.Flags().Bool(flagWatchNameConstant, false, flagWatchDescriptionConstant)
	flags.BindExecutionFlags(command, flags.ExecutionDefaults{}, flags.DefaultExecutionFlagDefinitions())

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()
	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	inferenceBackend, backendError := builder.resolveBackend(executionContext, logger)
	if backendError != nil {
		return backendError
	}

	inspector, inspectorError := builder.resolveInspector(logger)
	if inspectorError != nil {
		return inspectorError
	}

	backendConfiguration := builder.resolveBackendConfiguration()
	service, serviceError := NewService(inferenceBackend, PipelineSettings{
		RequestTimeout:    backendConfiguration.RequestTimeout,
		EvidenceFileLimit: options.EvidenceFileLimit,
		Focus:             options.Focus,
	}, ServiceDependencies{
		Inspector: inspector,
		Clock:     builder.Clock,
		Logger:    logger,
	})
	if serviceError != nil {
		return serviceError
	}

	renderer := report.NewRenderer(report.ToolMetadata{Version: builder.ToolVersion})
	logger.Info(
		auditStartedMessageConstant,
		zap.String(logFieldProjectPathConstant, options.ProjectPath),
		zap.String(logFieldFormatConstant, string(options.Format)),
		zap.String(logFieldOutputConstant, options.Output),
	)

	if options.Monitor {
		return builder.runMonitor(executionContext, command, service, renderer, options, logger)
	}
	return builder.runOnce(executionContext, command, service, renderer, options, logger)
}

func (builder *CommandBuilder) runOnce(executionContext context.Context, command *cobra.Command, service *Service, renderer *report.Renderer, options CommandOptions, logger *zap.Logger) error {
	audit, cycleError := service.RunCycle(executionContext, options.ProjectPath)
	if cycleError != nil {
		return cycleError
	}

	if publishError := publishReport(command.OutOrStdout(), renderer, audit, options); publishError != nil {
		return publishError
	}

	if options.Fix {
		if fixError := builder.applyFixes(executionContext, command, audit, options, logger); fixError != nil {
			return fixError
		}
	}

	if !options.CI {
		return nil
	}

	decision := gate.Evaluate(audit, gate.ModeCI)
	if decision.Failed() {
		fmt.Fprintln(command.ErrOrStderr(), decision.Message())
		fmt.Fprintln(command.ErrOrStderr(), decision.ScoreMessage())
		return gate.NewExitCodeError(decision)
	}
	fmt.Fprintln(statusWriter(command, options), decision.Message())
	return nil
}

// statusWriter keeps stdout reserved for the rendered document when no output file is set.
func statusWriter(command *cobra.Command, options CommandOptions) io.Writer {
	if len(options.Output) > 0 {
		return command.OutOrStdout()
	}
	return command.ErrOrStderr()
}

func (builder *CommandBuilder) runMonitor(executionContext context.Context, command *cobra.Command, service *Service, renderer *report.Renderer, options CommandOptions, logger *zap.Logger) error {
	signalContext, stopSignals := signal.NotifyContext(executionContext, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	consoleWriter := utils.NewFlushingWriter(command.OutOrStdout())
	fmt.Fprintln(consoleWriter, monitorBannerMessageConstant)

	dependencies := monitor.Dependencies{
		Classifier: IsCycleError,
		AlertSink:  monitor.NewConsoleAlertSink(consoleWriter),
		Clock:      builder.MonitorClock,
		Logger:     logger,
	}
	if len(options.Output) > 0 {
		dependencies.Handler = func(_ context.Context, audit risk.Audit) error {
			return writeReportFile(renderer, audit, options)
		}
	}
	if options.MonitorSettings.Watch {
		fileTrigger, triggerError := monitor.NewFileTrigger(options.ProjectPath, options.MonitorSettings.WatchDebounce, logger)
		if triggerError != nil {
			return triggerError
		}
		defer fileTrigger.Close()
		dependencies.Trigger = fileTrigger
	}

	loop, loopError := monitor.NewLoop(service, monitor.Settings{
		ProjectPath:    options.ProjectPath,
		Interval:       options.MonitorSettings.Interval,
		BackoffInitial: options.MonitorSettings.BackoffInitial,
		BackoffMaximum: options.MonitorSettings.BackoffMaximum,
	}, dependencies)
	if loopError != nil {
		return loopError
	}
	return loop.Run(signalContext)
}

func (builder *CommandBuilder) applyFixes(executionContext context.Context, command *cobra.Command, audit risk.Audit, options CommandOptions, logger *zap.Logger) error {
	output := statusWriter(command, options)
	fmt.Fprintln(output, fixStartedMessageConstant)

	fixable := 0
	for _, dependency := range audit.DependencyAudit.VulnerableDependencies {
		if len(dependency.SafeVersions) > 0 {
			fixable++
		}
	}
	if fixable == 0 {
		fmt.Fprintln(output, fixNothingMessageConstant)
		return nil
	}

	if !options.AssumeYes && !options.CI {
		confirmed, confirmError := builder.resolvePrompter(command, output).Confirm(fmt.Sprintf(fixConfirmationTemplateConstant, fixable))
		if confirmError != nil {
			return confirmError
		}
		if !confirmed {
			fmt.Fprintln(output, fixDeclinedMessageConstant)
			return nil
		}
	}

	summary := autofix.NewFixer(builder.resolveManifestWriter(), logger).Apply(executionContext, options.ProjectPath, audit.DependencyAudit)
	for _, update := range summary.Updates {
		fmt.Fprintf(output, fixUpdateTemplateConstant, update.Package, update.TargetVersion)
	}
	for _, failure := range summary.Failures {
		fmt.Fprintf(output, fixFailureTemplateConstant, failure.Package, failure.Cause)
	}
	fmt.Fprintf(output, fixSummaryTemplateConstant, summary.Selected)
	if summary.Failed > 0 {
		fmt.Fprintf(output, fixFailedSummaryTemplateConstant, summary.Failed)
	}
	if summary.Fixed > 0 {
		fmt.Fprintln(output, fixFollowUpMessageConstant)
	}
	return nil
}

func publishReport(output io.Writer, renderer *report.Renderer, audit risk.Audit, options CommandOptions) error {
	if len(options.Output) > 0 {
		if writeError := writeReportFile(renderer, audit, options); writeError != nil {
			return writeError
		}
		fmt.Fprintf(output, reportSavedTemplateConstant, options.Output)
		return nil
	}

	document, renderError := renderer.Render(audit, options.Format)
	if renderError != nil {
		return renderError
	}
	fmt.Fprintln(output, strings.TrimSuffix(document, "\n"))
	return nil
}

func writeReportFile(renderer *report.Renderer, audit risk.Audit, options CommandOptions) error {
	document, renderError := renderer.Render(audit, options.Format)
	if renderError != nil {
		return renderError
	}
	if writeError := os.WriteFile(options.Output, []byte(document), outputFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(outputWriteErrorTemplateConstant, options.Output, writeError)
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (CommandOptions, error) {
	configuration := builder.resolveConfiguration().sanitize()
	commandFlags := command.Flags()

	formatValue := configuration.Format
	if commandFlags.Changed(flagFormatNameConstant) || len(formatValue) == 0 {
		formatValue, _ = commandFlags.GetString(flagFormatNameConstant)
	}
	format, formatError := report.ParseFormat(formatValue)
	if formatError != nil {
		return CommandOptions{}, formatError
	}

	projectPath := configuration.ProjectPath
	if commandFlags.Changed(flagPathNameConstant) || len(projectPath) == 0 {
		projectPath, _ = commandFlags.GetString(flagPathNameConstant)
	}

	output := configuration.Output
	if commandFlags.Changed(flagOutputNameConstant) {
		output, _ = commandFlags.GetString(flagOutputNameConstant)
	}

	zeroDay := configuration.ZeroDay
	if commandFlags.Changed(flagZeroDayNameConstant) {
		zeroDay, _ = commandFlags.GetBool(flagZeroDayNameConstant)
	}

	supplyChain := configuration.SupplyChain
	if commandFlags.Changed(flagSupplyChainNameConstant) {
		supplyChain, _ = commandFlags.GetBool(flagSupplyChainNameConstant)
	}

	complianceStandards := configuration.Compliance
	if commandFlags.Changed(flagComplianceNameConstant) {
		complianceValues, _ := commandFlags.GetStringSlice(flagComplianceNameConstant)
		complianceStandards = sanitizeStandards(complianceValues)
	}

	monitorSettings := configuration.Monitor
	if commandFlags.Changed(flagIntervalNameConstant) || monitorSettings.Interval <= 0 {
		monitorSettings.Interval, _ = commandFlags.GetDuration(flagIntervalNameConstant)
	}
	if commandFlags.Changed(flagWatchNameConstant) {
		monitorSettings.Watch, _ = commandFlags.GetBool(flagWatchNameConstant)
	}

	fixValue, _ := commandFlags.GetBool(flagFixNameConstant)
	monitorValue, _ := commandFlags.GetBool(flagMonitorNameConstant)
	executionValues := flags.ReadExecutionFlags(command, flags.ExecutionDefaults{}, flags.DefaultExecutionFlagDefinitions())

	homeExpander := builder.HomeExpander
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}

	resolvedProjectPath, resolveError := homeExpander.ResolveDirectory(projectPath)
	if resolveError != nil {
		return CommandOptions{}, resolveError
	}

	return CommandOptions{
		Format:            format,
		ProjectPath:       resolvedProjectPath,
		Output:            homeExpander.Expand(strings.TrimSpace(output)),
		Fix:               fixValue,
		AssumeYes:         executionValues.AssumeYes,
		CI:                executionValues.CI,
		Monitor:           monitorValue,
		Focus:             Focus{ZeroDay: zeroDay, SupplyChain: supplyChain, ComplianceStandards: complianceStandards},
		EvidenceFileLimit: configuration.EvidenceFileLimit,
		MonitorSettings:   monitorSettings,
	}, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveBackendConfiguration() backend.Configuration {
	if builder.BackendConfigurationProvider == nil {
		return backend.DefaultConfiguration()
	}
	return builder.BackendConfigurationProvider()
}

func (builder *CommandBuilder) resolveBackend(executionContext context.Context, logger *zap.Logger) (backend.InferenceBackend, error) {
	configuration := builder.resolveBackendConfiguration()
	if builder.BackendFactory != nil {
		return builder.BackendFactory(executionContext, configuration, logger)
	}

	selection, selectionError := backend.NewSelector(nil, nil, logger).Select(executionContext, configuration)
	if selectionError != nil {
		return nil, selectionError
	}
	return selection.Backend, nil
}

func (builder *CommandBuilder) resolveInspector(logger *zap.Logger) (ProjectInspector, error) {
	if builder.GitExecutor != nil {
		return project.NewInspector(builder.GitExecutor, logger), nil
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if creationError != nil {
		return nil, creationError
	}
	return project.NewInspector(shellExecutor, logger), nil
}

func (builder *CommandBuilder) resolveManifestWriter() autofix.ManifestWriter {
	if builder.ManifestWriter != nil {
		return builder.ManifestWriter
	}
	return autofix.NewCompositeWriter()
}

func (builder *CommandBuilder) resolvePrompter(command *cobra.Command, promptOutput io.Writer) ConfirmationPrompter {
	if builder.Prompter != nil {
		return builder.Prompter
	}
	return NewIOConfirmationPrompter(command.InOrStdin(), promptOutput)
}
