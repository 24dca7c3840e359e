package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/secaudit/internal/gate"
	"github.com/temirov/secaudit/internal/risk"
)

const (
	defaultIntervalConstant       = time.Hour
	defaultBackoffInitialConstant = 30 * time.Second
	defaultBackoffMaximumConstant = 10 * time.Minute
	backoffMultiplierConstant     = 2
	runnerMissingMessageConstant  = "monitor cycle runner not configured"
	monitorStartedMessageConstant = "security monitoring started"
	monitorStoppedMessageConstant = "security monitoring stopped"
	cycleFailedMessageConstant    = "audit cycle failed; monitoring continues"
	cycleSucceededMessageConstant = "audit cycle completed"
	alertFailedMessageConstant    = "unable to deliver security alert"
	changeDetectedMessageConstant = "project change detected; starting audit cycle early"
	logFieldCycleNumberConstant   = "cycle"
	logFieldNextWaitConstant      = "next_wait"
	logFieldFailuresConstant      = "consecutive_failures"
	logFieldRiskLevelConstant     = "risk_level"
	logFieldNewFindingsConstant   = "new_findings"
	logFieldProjectPathConstant   = "project_path"
)

// ErrCycleRunnerNotConfigured indicates the loop was constructed without a cycle runner.
var ErrCycleRunnerNotConfigured = errors.New(runnerMissingMessageConstant)

// State describes the lifecycle of a Loop.
type State string

// Loop states.
const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// CycleRunner executes one audit cycle.
type CycleRunner interface {
	RunCycle(executionContext context.Context, projectPath string) (risk.Audit, error)
}

// ErrorClassifier reports whether a cycle error is recoverable on the next tick.
type ErrorClassifier func(cycleError error) bool

// AuditHandler receives each successful audit, for example to rewrite a report file.
// A handler error stops the loop.
type AuditHandler func(executionContext context.Context, audit risk.Audit) error

// Clock abstracts time for the loop.
type Clock interface {
	Now() time.Time
	After(duration time.Duration) <-chan time.Time
}

// SystemClock uses the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// After waits for the duration to elapse.
func (SystemClock) After(duration time.Duration) <-chan time.Time {
	return time.After(duration)
}

// Trigger signals that a cycle should start before the interval elapses.
type Trigger interface {
	Events() <-chan struct{}
}

// Settings tune the loop cadence.
type Settings struct {
	ProjectPath    string
	Interval       time.Duration
	BackoffInitial time.Duration
	BackoffMaximum time.Duration
}

// Dependencies carries the optional collaborators of a Loop.
type Dependencies struct {
	Classifier ErrorClassifier
	AlertSink  AlertSink
	Handler    AuditHandler
	Trigger    Trigger
	Clock      Clock
	Logger     *zap.Logger
}

// Loop drives audit cycles until its context is cancelled.
type Loop struct {
	runner     CycleRunner
	settings   Settings
	classifier ErrorClassifier
	alertSink  AlertSink
	handler    AuditHandler
	trigger    Trigger
	clock      Clock
	logger     *zap.Logger

	stateMutex sync.RWMutex
	state      State
}

// NewLoop constructs a Loop, applying default cadence values.
func NewLoop(runner CycleRunner, settings Settings, dependencies Dependencies) (*Loop, error) {
	if runner == nil {
		return nil, ErrCycleRunnerNotConfigured
	}

	if settings.Interval <= 0 {
		settings.Interval = defaultIntervalConstant
	}
	if settings.BackoffInitial <= 0 {
		settings.BackoffInitial = defaultBackoffInitialConstant
	}
	if settings.BackoffMaximum <= 0 {
		settings.BackoffMaximum = defaultBackoffMaximumConstant
	}

	loop := &Loop{
		runner:     runner,
		settings:   settings,
		classifier: dependencies.Classifier,
		alertSink:  dependencies.AlertSink,
		handler:    dependencies.Handler,
		trigger:    dependencies.Trigger,
		clock:      dependencies.Clock,
		logger:     dependencies.Logger,
		state:      StateIdle,
	}
	if loop.classifier == nil {
		loop.classifier = func(error) bool { return false }
	}
	if loop.clock == nil {
		loop.clock = SystemClock{}
	}
	if loop.logger == nil {
		loop.logger = zap.NewNop()
	}
	return loop, nil
}

// State reports the current lifecycle state.
func (loop *Loop) State() State {
	loop.stateMutex.RLock()
	defer loop.stateMutex.RUnlock()
	return loop.state
}

// Run blocks until the context is cancelled, returning nil, or until a non-recoverable
// error occurs, returning it.
func (loop *Loop) Run(executionContext context.Context) error {
	loop.setState(StateRunning)
	defer loop.setState(StateStopped)

	loop.logger.Info(monitorStartedMessageConstant, zap.String(logFieldProjectPathConstant, loop.settings.ProjectPath))

	var previousFindings map[string]struct{}
	consecutiveFailures := 0

	for cycleNumber := 1; ; cycleNumber++ {
		if executionContext.Err() != nil {
			loop.logger.Info(monitorStoppedMessageConstant)
			return nil
		}

		audit, cycleError := loop.runner.RunCycle(executionContext, loop.settings.ProjectPath)
		var nextWait time.Duration
		switch {
		case cycleError != nil && executionContext.Err() != nil:
			loop.logger.Info(monitorStoppedMessageConstant)
			return nil
		case cycleError != nil:
			if !loop.classifier(cycleError) {
				return cycleError
			}
			consecutiveFailures++
			nextWait = loop.backoff(consecutiveFailures)
			loop.logger.Warn(
				cycleFailedMessageConstant,
				zap.Int(logFieldCycleNumberConstant, cycleNumber),
				zap.Int(logFieldFailuresConstant, consecutiveFailures),
				zap.Duration(logFieldNextWaitConstant, nextWait),
				zap.Error(cycleError),
			)
		default:
			consecutiveFailures = 0
			nextWait = loop.settings.Interval
			if handlerError := loop.handleAudit(executionContext, cycleNumber, audit, previousFindings); handlerError != nil {
				return handlerError
			}
			previousFindings = findingIdentifiers(audit)
		}

		if !loop.wait(executionContext, nextWait) {
			loop.logger.Info(monitorStoppedMessageConstant)
			return nil
		}
	}
}

func (loop *Loop) handleAudit(executionContext context.Context, cycleNumber int, audit risk.Audit, previousFindings map[string]struct{}) error {
	if loop.handler != nil {
		if handlerError := loop.handler(executionContext, audit); handlerError != nil {
			return handlerError
		}
	}

	decision := gate.Evaluate(audit, gate.ModeMonitoring)
	newFindings := NewFindingIDs(previousFindings, audit)

	loop.logger.Info(
		cycleSucceededMessageConstant,
		zap.Int(logFieldCycleNumberConstant, cycleNumber),
		zap.String(logFieldRiskLevelConstant, string(audit.RiskLevel)),
		zap.Strings(logFieldNewFindingsConstant, newFindings),
	)

	if !decision.Alert || loop.alertSink == nil {
		return nil
	}

	alert := Alert{
		Cycle:         cycleNumber,
		Timestamp:     loop.clock.Now(),
		Decision:      decision,
		NewFindingIDs: newFindings,
	}
	if alertError := loop.alertSink.Alert(alert); alertError != nil {
		loop.logger.Warn(alertFailedMessageConstant, zap.Error(alertError))
	}
	return nil
}

// backoff doubles from BackoffInitial per consecutive failure, capped at BackoffMaximum and Interval.
func (loop *Loop) backoff(consecutiveFailures int) time.Duration {
	ceiling := min(loop.settings.BackoffMaximum, loop.settings.Interval)
	delay := loop.settings.BackoffInitial
	for attempt := 1; attempt < consecutiveFailures && delay < ceiling; attempt++ {
		delay *= backoffMultiplierConstant
	}
	return min(delay, ceiling)
}

func (loop *Loop) wait(executionContext context.Context, duration time.Duration) bool {
	var triggerEvents <-chan struct{}
	if loop.trigger != nil {
		triggerEvents = loop.trigger.Events()
	}

	select {
	case <-executionContext.Done():
		return false
	case <-loop.clock.After(duration):
		return true
	case <-triggerEvents:
		loop.logger.Info(changeDetectedMessageConstant)
		return true
	}
}

func (loop *Loop) setState(state State) {
	loop.stateMutex.Lock()
	defer loop.stateMutex.Unlock()
	loop.state = state
}

// NewFindingIDs lists finding identifiers absent from the previous successful cycle, in audit order.
// Without a previous cycle every finding is new.
func NewFindingIDs(previousFindings map[string]struct{}, audit risk.Audit) []string {
	newFindings := []string{}
	for _, finding := range audit.Vulnerabilities {
		if _, seen := previousFindings[finding.ID]; seen {
			continue
		}
		newFindings = append(newFindings, finding.ID)
	}
	return newFindings
}

func findingIdentifiers(audit risk.Audit) map[string]struct{} {
	identifiers := make(map[string]struct{}, len(audit.Vulnerabilities))
	for _, finding := range audit.Vulnerabilities {
		identifiers[finding.ID] = struct{}{}
	}
	return identifiers
}
