// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	WithPrerequisites bool
	Watch             bool
	Grid              bool
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
	WithPrerequisites ExecutionFlagDefinition
	Watch             ExecutionFlagDefinition
	Grid              ExecutionFlagDefinition
}

// DefaultExecutionFlagDefinitions enables every execution flag under its standard name.
func DefaultExecutionFlagDefinitions() ExecutionFlagDefinitions {
	return ExecutionFlagDefinitions{
		WithPrerequisites: ExecutionFlagDefinition{Name: WithPrerequisitesFlagName, Usage: WithPrerequisitesFlagUsage, Shorthand: "p", Enabled: true},
		Watch:             ExecutionFlagDefinition{Name: WatchFlagName, Usage: WatchFlagUsage, Shorthand: "w", Enabled: true},
		Grid:              ExecutionFlagDefinition{Name: GridFlagName, Usage: GridFlagUsage, Enabled: true},
	}
}

// BindExecutionFlags attaches standardized execution flags to the provided command.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) {
	if command == nil {
		return
	}

	flagSet := command.Flags()

	bindToggleFlag(flagSet, definitions.WithPrerequisites, defaults.WithPrerequisites)
	bindToggleFlag(flagSet, definitions.Watch, defaults.Watch)
	bindToggleFlag(flagSet, definitions.Grid, defaults.Grid)
}

func bindToggleFlag(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition, defaultValue bool) {
	if flagSet == nil {
		return
	}
	if !definition.Enabled {
		return
	}
	if len(definition.Name) == 0 || flagSet.Lookup(definition.Name) != nil {
		return
	}

	flagSet.BoolP(definition.Name, definition.Shorthand, defaultValue, definition.Usage)
}
