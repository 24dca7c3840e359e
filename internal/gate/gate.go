package gate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/secaudit/internal/risk"
)

const (
	exitCodeSuccessConstant        = 0
	exitCodeFailureConstant        = 1
	alertFindingLimitConstant      = 5
	failureMessageTemplateConstant = "Security audit failed: %s risk detected"
	passedMessageConstant          = "Security audit passed"
	scoreMessageTemplateConstant   = "Risk score: %s/100"
	exitCodeErrorTemplateConstant  = "%s (exit code %d)"
)

// Mode selects how a decision is consumed.
type Mode string

// Supported modes.
const (
	ModeCI         Mode = "ci"
	ModeMonitoring Mode = "monitoring"
)

// Decision is the outcome of evaluating an audit.
type Decision struct {
	Mode          Mode
	ExitCode      int
	Alert         bool
	AlertFindings []risk.Finding
	Level         risk.Level
	Score         float64
}

// Failed reports whether a CI decision requires a non-zero exit.
func (decision Decision) Failed() bool {
	return decision.ExitCode != exitCodeSuccessConstant
}

// Message renders the CI verdict line.
func (decision Decision) Message() string {
	if decision.Failed() {
		return fmt.Sprintf(failureMessageTemplateConstant, strings.ToUpper(string(decision.Level)))
	}
	return passedMessageConstant
}

// ScoreMessage renders the risk score line printed alongside a failed verdict.
func (decision Decision) ScoreMessage() string {
	return fmt.Sprintf(scoreMessageTemplateConstant, strconv.FormatFloat(decision.Score, 'f', -1, 64))
}

// Evaluate is pure and deterministic. In CI mode the exit code is 1 iff the level is High
// or Critical. In monitoring mode an alert carries the first five findings in audit order.
func Evaluate(audit risk.Audit, mode Mode) Decision {
	decision := Decision{
		Mode:  mode,
		Level: audit.RiskLevel,
		Score: audit.RiskScore,
	}
	severe := audit.RiskLevel.AtLeastHigh()

	switch mode {
	case ModeCI:
		if severe {
			decision.ExitCode = exitCodeFailureConstant
		}
	case ModeMonitoring:
		if severe {
			decision.Alert = true
			findingCount := min(len(audit.Vulnerabilities), alertFindingLimitConstant)
			decision.AlertFindings = append([]risk.Finding{}, audit.Vulnerabilities[:findingCount]...)
		}
	}

	return decision
}

// ExitCodeError carries a non-zero process exit code to the entrypoint.
type ExitCodeError struct {
	Code    int
	Message string
}

// Error describes the failure.
func (exitCodeError ExitCodeError) Error() string {
	return fmt.Sprintf(exitCodeErrorTemplateConstant, exitCodeError.Message, exitCodeError.Code)
}

// ExitCode returns the process exit code.
func (exitCodeError ExitCodeError) ExitCode() int {
	return exitCodeError.Code
}

// NewExitCodeError converts a failed CI decision into an ExitCodeError; passing decisions yield nil.
func NewExitCodeError(decision Decision) error {
	if !decision.Failed() {
		return nil
	}
	return ExitCodeError{Code: decision.ExitCode, Message: decision.Message()}
}
