package audit

import (
	"strings"
	"time"

	"github.com/temirov/secaudit/internal/report"
)

const (
	defaultProjectPathConstant         = "."
	defaultMonitorIntervalConstant     = time.Hour
	defaultBackoffInitialConstant      = 30 * time.Second
	defaultBackoffMaximumConstant      = 10 * time.Minute
	defaultWatchDebounceConstant       = 2 * time.Second
	configurationFormatKeyConstant     = "format"
	configurationPathKeyConstant       = "path"
	configurationLimitKeyConstant      = "evidence_file_limit"
	configurationIntervalKeyConstant   = "monitor.interval"
	configurationBackoffKeyConstant    = "monitor.backoff_initial"
	configurationBackoffMaxKeyConstant = "monitor.backoff_max"
	configurationDebounceKeyConstant   = "monitor.watch_debounce"
	configurationWatchKeyConstant      = "monitor.watch"
	configurationOutputKeyConstant     = "output"
	configurationZeroDayKeyConstant    = "zero_day"
	configurationSupplyKeyConstant     = "supply_chain"
	configurationStandardsKeyConstant  = "compliance"
)

// CommandConfiguration captures persisted settings of the audit command.
type CommandConfiguration struct {
	Format            string               `mapstructure:"format"`
	ProjectPath       string               `mapstructure:"path"`
	Output            string               `mapstructure:"output"`
	ZeroDay           bool                 `mapstructure:"zero_day"`
	SupplyChain       bool                 `mapstructure:"supply_chain"`
	Compliance        []string             `mapstructure:"compliance"`
	EvidenceFileLimit int                  `mapstructure:"evidence_file_limit"`
	Monitor           MonitorConfiguration `mapstructure:"monitor"`
}

// MonitorConfiguration captures the cadence of continuous monitoring.
type MonitorConfiguration struct {
	Interval       time.Duration `mapstructure:"interval"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMaximum time.Duration `mapstructure:"backoff_max"`
	Watch          bool          `mapstructure:"watch"`
	WatchDebounce  time.Duration `mapstructure:"watch_debounce"`
}

// DefaultCommandConfiguration provides baseline values for the audit command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Format:            string(report.FormatText),
		ProjectPath:       defaultProjectPathConstant,
		EvidenceFileLimit: defaultEvidenceFileLimitConstant,
		Monitor: MonitorConfiguration{
			Interval:       defaultMonitorIntervalConstant,
			BackoffInitial: defaultBackoffInitialConstant,
			BackoffMaximum: defaultBackoffMaximumConstant,
			WatchDebounce:  defaultWatchDebounceConstant,
		},
	}
}

// DefaultConfigurationValues exposes defaults keyed for the configuration loader.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	keyPrefix := strings.TrimSpace(prefix)
	if len(keyPrefix) > 0 {
		keyPrefix += "."
	}
	return map[string]any{
		keyPrefix + configurationFormatKeyConstant:     defaults.Format,
		keyPrefix + configurationPathKeyConstant:       defaults.ProjectPath,
		keyPrefix + configurationLimitKeyConstant:      defaults.EvidenceFileLimit,
		keyPrefix + configurationIntervalKeyConstant:   defaults.Monitor.Interval,
		keyPrefix + configurationBackoffKeyConstant:    defaults.Monitor.BackoffInitial,
		keyPrefix + configurationBackoffMaxKeyConstant: defaults.Monitor.BackoffMaximum,
		keyPrefix + configurationDebounceKeyConstant:   defaults.Monitor.WatchDebounce,
		keyPrefix + configurationWatchKeyConstant:      defaults.Monitor.Watch,
		keyPrefix + configurationOutputKeyConstant:     defaults.Output,
		keyPrefix + configurationZeroDayKeyConstant:    defaults.ZeroDay,
		keyPrefix + configurationSupplyKeyConstant:     defaults.SupplyChain,
		keyPrefix + configurationStandardsKeyConstant:  []string{},
	}
}

// sanitize trims configuration values without applying implicit defaults.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Format = strings.TrimSpace(configuration.Format)
	sanitized.ProjectPath = strings.TrimSpace(configuration.ProjectPath)
	sanitized.Output = strings.TrimSpace(configuration.Output)
	sanitized.Compliance = sanitizeStandards(configuration.Compliance)
	return sanitized
}

func sanitizeStandards(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, candidate := range raw {
		trimmed := strings.TrimSpace(candidate)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
