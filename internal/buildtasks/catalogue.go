// Package buildtasks defines the catalogue of build tasks and registers them with a task registry.
package buildtasks

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tyemirov/buildpipe/internal/environment"
	"github.com/tyemirov/buildpipe/internal/execshell"
	"github.com/tyemirov/buildpipe/internal/taskgraph"
)

// Task names.
const (
	TaskCleanBuild       = "clean-build"
	TaskCompile          = "compile"
	TaskBundle           = "bundle"
	TaskPackage          = "package"
	TaskChangelog        = "changelog"
	TaskCleanTests       = "clean-tests"
	TaskBuildTests       = "build-tests"
	TaskSpecHygieneCheck = "spec-hygiene-check"
	TaskTest             = "test"
	TaskRemapCoverage    = "remap-coverage"
	TaskTDD              = "tdd"
	TaskGridTest         = "grid-test"
	TaskLint             = "lint"
	TaskFormatCheck      = "format-check"
	TaskFormatReport     = "format-report"
	TaskGenerateDocs     = "generate-docs"
	TaskGeneratePlunks   = "generate-plunks"
	TaskCleanDemo        = "clean-demo"
	TaskCleanDemoCache   = "clean-demo-cache"
	TaskDemoServer       = "demo-server"
	TaskDemoServerAOT    = "demo-server-aot"
	TaskBuildDemo        = "build-demo"
	TaskPublishDemo      = "publish-demo"
	TaskClean            = "clean"
)

const (
	projectRootMissingMessageConstant = "project root not configured"
	executorMissingMessageConstant    = "command executor not configured"
	modeVariableNameConstant          = "MODE"
	modeBuildValueConstant            = "build"
	removingPathMessageConstant       = "removing path"
	removingPathHumanTemplateConstant = "Removing %s"
	pathFieldNameConstant             = "path"
)

var (
	// ErrProjectRootMissing indicates the catalogue was built without a project root.
	ErrProjectRootMissing = errors.New(projectRootMissingMessageConstant)
	// ErrExecutorMissing indicates the catalogue was built without a command executor.
	ErrExecutorMissing = errors.New(executorMissingMessageConstant)
)

// CommandExecutor runs external commands.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Dependencies wires the catalogue to its collaborators.
type Dependencies struct {
	Executor             CommandExecutor
	FileSystem           afero.Fs
	Logger               *zap.Logger
	HumanReadableLogging bool
	ProjectRoot          string
	Snapshot             environment.Snapshot
	Request              environment.Request
	Output               io.Writer
}

// Definition is one catalogue entry.
type Definition struct {
	Name        string
	After       []string
	Description string
	Action      taskgraph.Action
}

// Catalogue holds the task definitions of one invocation.
type Catalogue struct {
	executor             CommandExecutor
	fileSystem           afero.Fs
	logger               *zap.Logger
	humanReadableLogging bool
	projectRoot          string
	snapshot             environment.Snapshot
	request              environment.Request
	output               io.Writer
	outputMutex          sync.Mutex
	configuration        Configuration
}

// NewCatalogue validates dependencies and prepares the task definitions.
func NewCatalogue(dependencies Dependencies, configuration Configuration) (*Catalogue, error) {
	projectRoot := strings.TrimSpace(dependencies.ProjectRoot)
	if len(projectRoot) == 0 {
		return nil, ErrProjectRootMissing
	}
	if dependencies.Executor == nil {
		return nil, ErrExecutorMissing
	}
	catalogue := &Catalogue{
		executor:             dependencies.Executor,
		fileSystem:           dependencies.FileSystem,
		logger:               dependencies.Logger,
		humanReadableLogging: dependencies.HumanReadableLogging,
		projectRoot:          filepath.Clean(projectRoot),
		snapshot:             dependencies.Snapshot,
		request:              dependencies.Request,
		output:               dependencies.Output,
		configuration:        configuration.Sanitize(),
	}
	if catalogue.fileSystem == nil {
		catalogue.fileSystem = afero.NewOsFs()
	}
	if catalogue.logger == nil {
		catalogue.logger = zap.NewNop()
	}
	if catalogue.output == nil {
		catalogue.output = io.Discard
	}
	return catalogue, nil
}

// Definitions lists every task in registration order.
func (catalogue *Catalogue) Definitions() []Definition {
	return []Definition{
		{Name: TaskCleanBuild, Description: "Remove the distribution directory", Action: catalogue.removeAction(catalogue.configuration.Paths.Distribution)},
		{Name: TaskCompile, Description: "Compile sources ahead of time", Action: catalogue.compile},
		{Name: TaskBundle, Description: "Bundle the compiled sources as UMD with externals", Action: catalogue.bundle},
		{Name: TaskPackage, Description: "Write the publishable package manifest", Action: catalogue.packageManifest},
		{Name: TaskChangelog, Description: "Prepend the latest release to the changelog", Action: catalogue.changelog},
		{Name: TaskCleanTests, Description: "Remove compiled tests and coverage", Action: catalogue.removeAction(catalogue.configuration.Paths.CompiledTests, catalogue.configuration.Paths.Coverage)},
		{Name: TaskBuildTests, After: []string{TaskCleanTests}, Description: "Compile tests", Action: catalogue.buildTests},
		{Name: TaskSpecHygieneCheck, Description: "Reject focused or disabled specs", Action: catalogue.specHygieneCheck},
		{Name: TaskTest, After: []string{TaskBuildTests}, Description: "Run browser tests once and remap coverage", Action: catalogue.test},
		{Name: TaskRemapCoverage, Description: "Render the coverage report as HTML", Action: catalogue.remapCoverage},
		{Name: TaskTDD, After: []string{TaskCleanTests}, Description: "Recompile and re-run tests on change", Action: catalogue.testDrivenDevelopment},
		{Name: TaskGridTest, After: []string{TaskBuildTests}, Description: "Run browser tests on the remote browser grid", Action: catalogue.gridTest},
		{Name: TaskLint, Description: "Lint sources and demo", Action: catalogue.lint},
		{Name: TaskFormatCheck, Description: "Fail when files need formatting", Action: catalogue.formatAction(true)},
		{Name: TaskFormatReport, Description: "Report files that need formatting", Action: catalogue.formatAction(false)},
		{Name: TaskGenerateDocs, Description: "Generate API documentation for the demo", Action: catalogue.nodeScriptAction(catalogue.configuration.Demo.DocsGenerator)},
		{Name: TaskGeneratePlunks, Description: "Generate demo plunks", Action: catalogue.nodeScriptAction(catalogue.configuration.Demo.PlunkGenerator)},
		{Name: TaskCleanDemo, Description: "Remove the built demo", Action: catalogue.removeAction(catalogue.configuration.Paths.DemoDist)},
		{Name: TaskCleanDemoCache, Description: "Remove the demo publishing cache", Action: catalogue.removeAction(catalogue.configuration.Paths.PublishCache)},
		{Name: TaskDemoServer, After: []string{TaskGenerateDocs, TaskGeneratePlunks}, Description: "Serve the demo in development mode", Action: catalogue.demoServerAction(false)},
		{Name: TaskDemoServerAOT, After: []string{TaskGenerateDocs, TaskGeneratePlunks}, Description: "Serve the demo with ahead-of-time compilation", Action: catalogue.demoServerAction(true)},
		{Name: TaskBuildDemo, After: []string{TaskCleanDemo, TaskGenerateDocs, TaskGeneratePlunks}, Description: "Build the demo for production", Action: catalogue.buildDemo},
		{Name: TaskPublishDemo, Description: "Publish the built demo", Action: catalogue.publishDemo},
		{Name: TaskClean, After: []string{TaskCleanBuild, TaskCleanTests, TaskCleanDemo, TaskCleanDemoCache}, Description: "Remove every generated directory", Action: noopAction},
	}
}

// Register adds every catalogue task to registry.
func (catalogue *Catalogue) Register(registry *taskgraph.Registry) error {
	for _, definition := range catalogue.Definitions() {
		if registrationError := registry.Register(definition.Name, definition.After, definition.Action); registrationError != nil {
			return registrationError
		}
	}
	return nil
}

// Descriptions maps task names to their one-line descriptions.
func (catalogue *Catalogue) Descriptions() map[string]string {
	descriptions := make(map[string]string)
	for _, definition := range catalogue.Definitions() {
		descriptions[definition.Name] = definition.Description
	}
	return descriptions
}

func noopAction(context.Context) error {
	return nil
}

func (catalogue *Catalogue) projectPath(relativePath string) string {
	if filepath.IsAbs(relativePath) {
		return filepath.Clean(relativePath)
	}
	return filepath.Join(catalogue.projectRoot, filepath.FromSlash(relativePath))
}

func (catalogue *Catalogue) nodeBinary(executable string) execshell.CommandName {
	return execshell.NodeBinary(catalogue.projectRoot, executable)
}

// run invokes a command in the project root, streaming its output to the catalogue writer.
func (catalogue *Catalogue) run(executionContext context.Context, name execshell.CommandName, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	if len(details.WorkingDirectory) == 0 {
		details.WorkingDirectory = catalogue.projectRoot
	}
	if details.LineHandler == nil {
		details.LineHandler = catalogue.writeLine
	}
	return catalogue.executor.Execute(executionContext, execshell.ShellCommand{Name: name, Details: details})
}

func (catalogue *Catalogue) writeLine(line string) {
	catalogue.outputMutex.Lock()
	defer catalogue.outputMutex.Unlock()
	_, _ = io.WriteString(catalogue.output, line+"\n")
}

func (catalogue *Catalogue) removeAction(relativePaths ...string) taskgraph.Action {
	return func(context.Context) error {
		for _, relativePath := range relativePaths {
			target := catalogue.projectPath(relativePath)
			catalogue.logInfo(removingPathMessageConstant, removingPathHumanTemplateConstant, target, zap.String(pathFieldNameConstant, target))
			if removalError := catalogue.fileSystem.RemoveAll(target); removalError != nil {
				return removalError
			}
		}
		return nil
	}
}

func (catalogue *Catalogue) logInfo(message string, humanTemplate string, humanArgument any, fields ...zap.Field) {
	if catalogue.humanReadableLogging {
		catalogue.logger.Sugar().Infof(humanTemplate, humanArgument)
		return
	}
	catalogue.logger.Info(message, fields...)
}

func (catalogue *Catalogue) logWarn(message string, humanTemplate string, humanArgument any, fields ...zap.Field) {
	if catalogue.humanReadableLogging {
		catalogue.logger.Sugar().Warnf(humanTemplate, humanArgument)
		return
	}
	catalogue.logger.Warn(message, fields...)
}
