package monitor_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/secaudit/internal/monitor"
)

const (
	triggerDebounceConstant     = 200 * time.Millisecond
	triggerEventTimeoutConstant = 5 * time.Second
	triggerQuietPeriodConstant  = 3 * triggerDebounceConstant
)

func newTestTrigger(testInstance *testing.T, root string) *monitor.FileTrigger {
	testInstance.Helper()
	trigger, triggerError := monitor.NewFileTrigger(root, triggerDebounceConstant, zap.NewNop())
	require.NoError(testInstance, triggerError)
	testInstance.Cleanup(func() { _ = trigger.Close() })
	return trigger
}

func receivedTriggerEvent(trigger *monitor.FileTrigger, timeout time.Duration) bool {
	select {
	case <-trigger.Events():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestFileTriggerDebouncesBurstsOfChanges(testInstance *testing.T) {
	projectRoot := testInstance.TempDir()
	trigger := newTestTrigger(testInstance, projectRoot)

	for _, fileName := range []string{"app.py", "settings.py", "requirements.txt"} {
		require.NoError(testInstance, os.WriteFile(filepath.Join(projectRoot, fileName), []byte("changed\n"), 0o600))
	}

	require.True(testInstance, receivedTriggerEvent(trigger, triggerEventTimeoutConstant))
	require.False(testInstance, receivedTriggerEvent(trigger, triggerQuietPeriodConstant))
}

func TestFileTriggerWatchesCreatedDirectories(testInstance *testing.T) {
	projectRoot := testInstance.TempDir()
	trigger := newTestTrigger(testInstance, projectRoot)

	nestedDirectory := filepath.Join(projectRoot, "service")
	require.NoError(testInstance, os.Mkdir(nestedDirectory, 0o755))
	require.True(testInstance, receivedTriggerEvent(trigger, triggerEventTimeoutConstant))

	require.NoError(testInstance, os.WriteFile(filepath.Join(nestedDirectory, "handler.go"), []byte("package service\n"), 0o600))
	require.True(testInstance, receivedTriggerEvent(trigger, triggerEventTimeoutConstant))
}

func TestFileTriggerCloseStopsForwarding(testInstance *testing.T) {
	projectRoot := testInstance.TempDir()
	trigger, triggerError := monitor.NewFileTrigger(projectRoot, triggerDebounceConstant, zap.NewNop())
	require.NoError(testInstance, triggerError)

	closed := make(chan error, 1)
	go func() { closed <- trigger.Close() }()
	select {
	case closeError := <-closed:
		require.NoError(testInstance, closeError)
	case <-time.After(triggerEventTimeoutConstant):
		testInstance.Fatal("close did not return")
	}
	require.NoError(testInstance, trigger.Close())

	require.NoError(testInstance, os.WriteFile(filepath.Join(projectRoot, "app.py"), []byte("changed\n"), 0o600))
	require.False(testInstance, receivedTriggerEvent(trigger, triggerQuietPeriodConstant))
}

func TestNewFileTriggerRejectsMissingRoot(testInstance *testing.T) {
	_, triggerError := monitor.NewFileTrigger(filepath.Join(testInstance.TempDir(), "missing"), triggerDebounceConstant, zap.NewNop())
	require.Error(testInstance, triggerError)
}
