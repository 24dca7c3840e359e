package monitor_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/secaudit/internal/monitor"
	"github.com/temirov/secaudit/internal/risk"
)

const testSubtestTemplateConstant = "%d_%s"

var (
	errRecoverableCycle = errors.New("recoverable cycle failure")
	errFatalCycle       = errors.New("fatal cycle failure")
)

type cycleOutcome struct {
	audit risk.Audit
	err   error
}

type scriptedRunner struct {
	mutex    sync.Mutex
	outcomes []cycleOutcome
	calls    int
	cancel   context.CancelFunc
}

func (runner *scriptedRunner) RunCycle(executionContext context.Context, projectPath string) (risk.Audit, error) {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	runner.calls++
	if runner.calls > len(runner.outcomes) {
		runner.cancel()
		return risk.Audit{}, executionContext.Err()
	}
	outcome := runner.outcomes[runner.calls-1]
	return outcome.audit, outcome.err
}

type recordingClock struct {
	mutex sync.Mutex
	waits []time.Duration
}

func (clock *recordingClock) Now() time.Time {
	return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func (clock *recordingClock) After(duration time.Duration) <-chan time.Time {
	clock.mutex.Lock()
	clock.waits = append(clock.waits, duration)
	clock.mutex.Unlock()
	channel := make(chan time.Time, 1)
	channel <- clock.Now()
	return channel
}

type recordingSink struct {
	alerts []monitor.Alert
}

func (sink *recordingSink) Alert(alert monitor.Alert) error {
	sink.alerts = append(sink.alerts, alert)
	return nil
}

func isRecoverable(cycleError error) bool {
	return errors.Is(cycleError, errRecoverableCycle)
}

func criticalAudit(identifiers ...string) risk.Audit {
	findings := make([]risk.Finding, 0, len(identifiers))
	for _, identifier := range identifiers {
		findings = append(findings, risk.Finding{ID: identifier, Description: "finding " + identifier})
	}
	return risk.Audit{RiskScore: 90, RiskLevel: risk.LevelCritical, Vulnerabilities: findings}
}

func TestLoopContinuesAfterRecoverableFailure(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &scriptedRunner{
		outcomes: []cycleOutcome{
			{err: errRecoverableCycle},
			{audit: criticalAudit("CVE-1")},
		},
		cancel: cancel,
	}
	clock := &recordingClock{}
	sink := &recordingSink{}
	observedCore, observedLogs := observer.New(zapcore.InfoLevel)

	loop, loopError := monitor.NewLoop(runner, monitor.Settings{
		ProjectPath:    ".",
		Interval:       time.Hour,
		BackoffInitial: time.Minute,
		BackoffMaximum: 10 * time.Minute,
	}, monitor.Dependencies{
		Classifier: isRecoverable,
		AlertSink:  sink,
		Clock:      clock,
		Logger:     zap.New(observedCore),
	})
	require.NoError(testInstance, loopError)

	require.NoError(testInstance, loop.Run(executionContext))
	require.Equal(testInstance, monitor.StateStopped, loop.State())
	require.Equal(testInstance, 3, runner.calls)
	require.Equal(testInstance, []time.Duration{time.Minute, time.Hour}, clock.waits)
	require.Len(testInstance, sink.alerts, 1)
	require.Equal(testInstance, 2, sink.alerts[0].Cycle)
	require.Equal(testInstance, []string{"CVE-1"}, sink.alerts[0].NewFindingIDs)
	require.Equal(testInstance, 1, observedLogs.FilterMessage("audit cycle failed; monitoring continues").Len())
}

func TestLoopStopsOnNonRecoverableError(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &scriptedRunner{outcomes: []cycleOutcome{{err: errFatalCycle}}, cancel: cancel}
	loop, loopError := monitor.NewLoop(runner, monitor.Settings{}, monitor.Dependencies{Classifier: isRecoverable, Clock: &recordingClock{}})
	require.NoError(testInstance, loopError)

	runError := loop.Run(executionContext)
	require.ErrorIs(testInstance, runError, errFatalCycle)
	require.Equal(testInstance, 1, runner.calls)
}

func TestLoopStopsWhenCancelledBeforeFirstTick(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &scriptedRunner{cancel: cancel}
	loop, loopError := monitor.NewLoop(runner, monitor.Settings{}, monitor.Dependencies{})
	require.NoError(testInstance, loopError)

	require.NoError(testInstance, loop.Run(executionContext))
	require.Equal(testInstance, 0, runner.calls)
	require.Equal(testInstance, monitor.StateStopped, loop.State())
}

func TestLoopStopsWhenHandlerFails(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	handlerError := errors.New("render failed")
	runner := &scriptedRunner{outcomes: []cycleOutcome{{audit: criticalAudit("CVE-1")}}, cancel: cancel}
	loop, loopError := monitor.NewLoop(runner, monitor.Settings{}, monitor.Dependencies{
		Clock: &recordingClock{},
		Handler: func(context.Context, risk.Audit) error {
			return handlerError
		},
	})
	require.NoError(testInstance, loopError)

	require.ErrorIs(testInstance, loop.Run(executionContext), handlerError)
}

func TestLoopBackoffGrowsAndCaps(testInstance *testing.T) {
	testCases := []struct {
		name          string
		settings      monitor.Settings
		failures      int
		expectedWaits []time.Duration
	}{
		{
			name:          "doubles_until_maximum",
			settings:      monitor.Settings{Interval: time.Hour, BackoffInitial: time.Minute, BackoffMaximum: 5 * time.Minute},
			failures:      5,
			expectedWaits: []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute, 5 * time.Minute, 5 * time.Minute},
		},
		{
			name:          "capped_by_interval",
			settings:      monitor.Settings{Interval: 3 * time.Minute, BackoffInitial: 2 * time.Minute, BackoffMaximum: time.Hour},
			failures:      3,
			expectedWaits: []time.Duration{2 * time.Minute, 3 * time.Minute, 3 * time.Minute},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			executionContext, cancel := context.WithCancel(context.Background())
			defer cancel()

			outcomes := make([]cycleOutcome, 0, testCase.failures)
			for failureIndex := 0; failureIndex < testCase.failures; failureIndex++ {
				outcomes = append(outcomes, cycleOutcome{err: errRecoverableCycle})
			}
			runner := &scriptedRunner{outcomes: outcomes, cancel: cancel}
			clock := &recordingClock{}

			loop, loopError := monitor.NewLoop(runner, testCase.settings, monitor.Dependencies{Classifier: isRecoverable, Clock: clock})
			require.NoError(testInstance, loopError)
			require.NoError(testInstance, loop.Run(executionContext))
			require.Equal(testInstance, testCase.expectedWaits, clock.waits)
		})
	}
}

func TestLoopMarksOnlyNewFindings(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &scriptedRunner{
		outcomes: []cycleOutcome{
			{audit: criticalAudit("CVE-1", "CVE-2")},
			{audit: criticalAudit("CVE-2", "CVE-3")},
		},
		cancel: cancel,
	}
	sink := &recordingSink{}
	loop, loopError := monitor.NewLoop(runner, monitor.Settings{}, monitor.Dependencies{AlertSink: sink, Clock: &recordingClock{}})
	require.NoError(testInstance, loopError)
	require.NoError(testInstance, loop.Run(executionContext))

	require.Len(testInstance, sink.alerts, 2)
	require.Equal(testInstance, []string{"CVE-1", "CVE-2"}, sink.alerts[0].NewFindingIDs)
	require.Equal(testInstance, []string{"CVE-3"}, sink.alerts[1].NewFindingIDs)
}

func TestNewLoopRequiresRunner(testInstance *testing.T) {
	_, loopError := monitor.NewLoop(nil, monitor.Settings{}, monitor.Dependencies{})
	require.ErrorIs(testInstance, loopError, monitor.ErrCycleRunnerNotConfigured)
}

func TestConsoleAlertSink(testInstance *testing.T) {
	previousNoColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = previousNoColor }()

	var output bytes.Buffer
	sink := monitor.NewConsoleAlertSink(&output)
	audit := criticalAudit("CVE-1", "CVE-2")

	alertError := sink.Alert(monitor.Alert{
		Cycle:         4,
		Timestamp:     time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		Decision:      gateDecisionFor(audit),
		NewFindingIDs: []string{"CVE-2"},
	})
	require.NoError(testInstance, alertError)

	require.Contains(testInstance, output.String(), "[2024-03-01T12:00:00Z] cycle 4: CRITICAL risk detected (score 90/100)")
	require.Contains(testInstance, output.String(), "      CVE-1 - finding CVE-1")
	require.Contains(testInstance, output.String(), "  NEW CVE-2 - finding CVE-2")
}
