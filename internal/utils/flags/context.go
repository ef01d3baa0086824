package flags

import "github.com/spf13/cobra"

const (
	// ProjectRootFlagName exposes the shared project root flag name.
	ProjectRootFlagName = "root"
	// ProjectRootFlagUsage describes the shared project root flag purpose.
	ProjectRootFlagUsage = "Project directory containing package.json (defaults to the configured root or the working directory)"
	// WithPrerequisitesFlagName exposes the prerequisite expansion flag name.
	WithPrerequisitesFlagName = "with-prerequisites"
	// WithPrerequisitesFlagUsage describes the prerequisite expansion flag.
	WithPrerequisitesFlagUsage = "Run the declared prerequisites of each named task before it"
	// WatchFlagName exposes the watch-mode flag name.
	WatchFlagName = "watch"
	// WatchFlagUsage describes the watch-mode flag.
	WatchFlagUsage = "Keep the test runner alive and re-run on change"
	// GridFlagName exposes the remote browser grid flag name.
	GridFlagName = "grid"
	// GridFlagUsage describes the remote browser grid flag.
	GridFlagUsage = "Run browser tests on the remote browser grid"
)

// ProjectRootFlagDefinition captures configuration for the project root flag.
type ProjectRootFlagDefinition struct {
	Name       string
	Usage      string
	Enabled    bool
	Persistent bool
}

// ProjectRootFlagValues stores the project root flag value.
type ProjectRootFlagValues struct {
	Root string
}

// BindProjectRootFlag attaches the project root flag to the provided command.
func BindProjectRootFlag(command *cobra.Command, defaults ProjectRootFlagValues, definition ProjectRootFlagDefinition) *ProjectRootFlagValues {
	values := defaults
	if command == nil || !definition.Enabled {
		return &values
	}
	flagName := definition.Name
	if len(flagName) == 0 {
		flagName = ProjectRootFlagName
	}
	flagUsage := definition.Usage
	if len(flagUsage) == 0 {
		flagUsage = ProjectRootFlagUsage
	}

	targetSet := command.PersistentFlags()
	if !definition.Persistent {
		targetSet = command.Flags()
	}
	if targetSet.Lookup(flagName) == nil {
		targetSet.StringVar(&values.Root, flagName, values.Root, flagUsage)
	}
	return &values
}
