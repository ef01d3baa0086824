package taskrunner

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/buildpipe/internal/buildtasks"
	"github.com/tyemirov/buildpipe/internal/environment"
	"github.com/tyemirov/buildpipe/internal/execshell"
	"github.com/tyemirov/buildpipe/internal/taskgraph"
	"github.com/tyemirov/buildpipe/internal/utils"
)

var (
	errOutputWriterMissing = errors.New("taskrunner.dependencies.output_writer_missing")
	errErrorWriterMissing  = errors.New("taskrunner.dependencies.error_writer_missing")
)

// DependenciesConfig captures providers required to build the invocation runtime.
type DependenciesConfig struct {
	LoggerProvider               func() *zap.Logger
	HumanReadableLoggingProvider func() bool
	CommandRunner                execshell.CommandRunner
	FileSystem                   afero.Fs
}

// DependenciesOptions carries the per-command inputs of one invocation.
type DependenciesOptions struct {
	Command       *cobra.Command
	Output        io.Writer
	Errors        io.Writer
	ProjectRoot   string
	Snapshot      environment.Snapshot
	Request       environment.Request
	Configuration buildtasks.Configuration
}

// DependenciesResult exposes the resolved collaborators of one invocation.
type DependenciesResult struct {
	Runner    RunnerDependencies
	Executor  *execshell.ShellExecutor
	Catalogue *buildtasks.Catalogue
	Registry  *taskgraph.Registry
	Output    io.Writer
}

// BuildDependencies wires the shell executor, the task catalogue and a validated registry.
func BuildDependencies(config DependenciesConfig, options DependenciesOptions) (DependenciesResult, error) {
	logger := resolveLogger(config.LoggerProvider)
	humanReadable := false
	if config.HumanReadableLoggingProvider != nil {
		humanReadable = config.HumanReadableLoggingProvider()
	}

	outputWriter := resolveWriter(options.Output, options.Command, true)
	if outputWriter == nil {
		return DependenciesResult{}, errOutputWriterMissing
	}
	errorWriter := resolveWriter(options.Errors, options.Command, false)
	if errorWriter == nil {
		return DependenciesResult{}, errErrorWriterMissing
	}
	outputWriter = utils.NewFlushingWriter(outputWriter)
	errorWriter = utils.NewFlushingWriter(errorWriter)

	fileSystem := config.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}

	commandRunner := config.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewStreamingOSCommandRunner(nil, errorWriter)
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner, humanReadable, execshell.WithFileSystem(fileSystem))
	if executorError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.shell_executor: %w", executorError)
	}

	catalogue, catalogueError := buildtasks.NewCatalogue(buildtasks.Dependencies{
		Executor:             shellExecutor,
		FileSystem:           fileSystem,
		Logger:               logger,
		HumanReadableLogging: humanReadable,
		ProjectRoot:          options.ProjectRoot,
		Snapshot:             options.Snapshot,
		Request:              options.Request,
		Output:               outputWriter,
	}, options.Configuration)
	if catalogueError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.catalogue: %w", catalogueError)
	}

	registry := taskgraph.NewRegistry()
	if registrationError := catalogue.Register(registry); registrationError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.registry: %w", registrationError)
	}
	if validationError := registry.Validate(); validationError != nil {
		return DependenciesResult{}, validationError
	}

	return DependenciesResult{
		Runner: RunnerDependencies{
			Tasks:                registry,
			Logger:               logger,
			HumanReadableLogging: humanReadable,
			Errors:               errorWriter,
		},
		Executor:  shellExecutor,
		Catalogue: catalogue,
		Registry:  registry,
		Output:    outputWriter,
	}, nil
}

func resolveLogger(provider func() *zap.Logger) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveWriter(provided io.Writer, command *cobra.Command, useStdout bool) io.Writer {
	if provided != nil {
		return provided
	}
	if command == nil {
		return nil
	}
	if useStdout {
		return command.OutOrStdout()
	}
	return command.ErrOrStderr()
}
