// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// AssumeYesFlagName exposes the shared assume-yes flag name.
	AssumeYesFlagName = "yes"
	// AssumeYesFlagShorthand provides the shorthand for the assume-yes flag.
	AssumeYesFlagShorthand = "y"
	// AssumeYesFlagUsage describes the shared assume-yes flag purpose.
	AssumeYesFlagUsage = "Automatically confirm prompts"
	// CIFlagName exposes the shared CI flag name.
	CIFlagName = "ci"
	// CIFlagUsage describes the shared CI flag purpose.
	CIFlagUsage = "Run non-interactively and exit non-zero when the result fails the gate"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	AssumeYes bool
	CI        bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	AssumeYes ExecutionFlagDefinition
	CI        ExecutionFlagDefinition
}

// ExecutionFlagValues reports the parsed execution flags.
type ExecutionFlagValues struct {
	AssumeYes bool
	CI        bool
}

// DefaultExecutionFlagDefinitions enables the assume-yes and CI flags with their shared names.
func DefaultExecutionFlagDefinitions() ExecutionFlagDefinitions {
	return ExecutionFlagDefinitions{
		AssumeYes: ExecutionFlagDefinition{Name: AssumeYesFlagName, Shorthand: AssumeYesFlagShorthand, Usage: AssumeYesFlagUsage, Enabled: true},
		CI:        ExecutionFlagDefinition{Name: CIFlagName, Usage: CIFlagUsage, Enabled: true},
	}
}

// BindExecutionFlags attaches standardized execution flags to the provided command's local flag set.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) {
	if command == nil {
		return
	}

	flagSet := command.Flags()

	bindBoolFlag(flagSet, definitions.AssumeYes, defaults.AssumeYes)
	bindBoolFlag(flagSet, definitions.CI, defaults.CI)
}

// ReadExecutionFlags returns the execution flag values, falling back to defaults for unbound flags.
func ReadExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) ExecutionFlagValues {
	values := ExecutionFlagValues(defaults)
	if command == nil {
		return values
	}

	flagSet := command.Flags()
	values.AssumeYes = readBoolFlag(flagSet, definitions.AssumeYes, defaults.AssumeYes)
	values.CI = readBoolFlag(flagSet, definitions.CI, defaults.CI)
	return values
}

func bindBoolFlag(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition, defaultValue bool) {
	if flagSet == nil {
		return
	}
	if !definition.Enabled {
		return
	}
	if len(definition.Name) == 0 {
		return
	}

	if len(definition.Shorthand) > 0 {
		flagSet.BoolP(definition.Name, definition.Shorthand, defaultValue, definition.Usage)
		return
	}

	flagSet.Bool(definition.Name, defaultValue, definition.Usage)
}

func readBoolFlag(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition, defaultValue bool) bool {
	if !definition.Enabled || len(definition.Name) == 0 {
		return defaultValue
	}
	if flagSet.Lookup(definition.Name) == nil {
		return defaultValue
	}
	value, lookupError := flagSet.GetBool(definition.Name)
	if lookupError != nil {
		return defaultValue
	}
	return value
}
