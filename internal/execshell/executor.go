package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	commandStartedMessageConstant      = "executing command"
	commandCompletedMessageConstant    = "command completed"
	commandFailedMessageConstant       = "command exited with failure"
	commandExecutionFailedMessage      = "command could not be executed"
	logFieldCommandConstant            = "command"
	logFieldArgumentsConstant          = "arguments"
	logFieldWorkingDirectoryConstant   = "working_directory"
	logFieldExitCodeConstant           = "exit_code"
	logFieldStandardErrorConstant      = "stderr"
	commandFailedErrorTemplateConstant = "%s %s exited with code %d: %s"
	commandExecutionErrorTemplate      = "%s %s could not be executed: %v"
	argumentSeparatorConstant          = " "
)

// CommandName identifies an executable.
type CommandName string

// Known executables.
const (
	CommandGit CommandName = "git"
)

// CommandDetails describes the invocation of an executable.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand pairs an executable with invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures process output.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// ErrLoggerNotConfigured indicates a missing logger.
var ErrLoggerNotConfigured = errors.New("shell executor logger not configured")

// ErrCommandRunnerNotConfigured indicates a missing runner.
var ErrCommandRunnerNotConfigured = errors.New("shell executor command runner not configured")

// CommandFailedError reports a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failure.
func (commandFailedError CommandFailedError) Error() string {
	return fmt.Sprintf(
		commandFailedErrorTemplateConstant,
		commandFailedError.Command.Name,
		strings.Join(commandFailedError.Command.Details.Arguments, argumentSeparatorConstant),
		commandFailedError.Result.ExitCode,
		strings.TrimSpace(commandFailedError.Result.StandardError),
	)
}

// CommandExecutionError reports a failure to start or wait for a process.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the failure.
func (commandExecutionError CommandExecutionError) Error() string {
	return fmt.Sprintf(
		commandExecutionErrorTemplate,
		commandExecutionError.Command.Name,
		strings.Join(commandExecutionError.Command.Details.Arguments, argumentSeparatorConstant),
		commandExecutionError.Cause,
	)
}

// Unwrap exposes the underlying cause.
func (commandExecutionError CommandExecutionError) Unwrap() error {
	return commandExecutionError.Cause
}

// ShellExecutor runs commands with logging.
type ShellExecutor struct {
	logger *zap.Logger
	runner CommandRunner
}

// NewShellExecutor validates dependencies and constructs an executor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{logger: logger, runner: runner}, nil
}

// Execute runs the command and converts non-zero exits into CommandFailedError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandFields := []zap.Field{
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	}
	executor.logger.Debug(commandStartedMessageConstant, commandFields...)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Debug(commandExecutionFailedMessage, append(commandFields, zap.Error(runError))...)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	if executionResult.ExitCode != 0 {
		executor.logger.Debug(
			commandFailedMessageConstant,
			append(commandFields, zap.Int(logFieldExitCodeConstant, executionResult.ExitCode), zap.String(logFieldStandardErrorConstant, executionResult.StandardError))...,
		)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(commandCompletedMessageConstant, append(commandFields, zap.Int(logFieldExitCodeConstant, executionResult.ExitCode))...)
	return executionResult, nil
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}
