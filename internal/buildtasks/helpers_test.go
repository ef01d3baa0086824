package buildtasks_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/buildpipe/internal/buildtasks"
	"github.com/tyemirov/buildpipe/internal/environment"
	"github.com/tyemirov/buildpipe/internal/execshell"
)

const testProjectRootConstant = "/work/ngx-toggle"

type commandHandler func(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)

type scriptedExecutor struct {
	mutex    sync.Mutex
	commands []execshell.ShellCommand
	handlers map[string]commandHandler
}

func newScriptedExecutor() *scriptedExecutor {
	return &scriptedExecutor{handlers: map[string]commandHandler{}}
}

func executableName(command execshell.ShellCommand) string {
	return strings.TrimSuffix(filepath.Base(string(command.Name)), ".cmd")
}

func (executor *scriptedExecutor) handle(executable string, handler commandHandler) {
	executor.handlers[executable] = handler
}

func (executor *scriptedExecutor) Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.mutex.Lock()
	executor.commands = append(executor.commands, command)
	handler := executor.handlers[executableName(command)]
	executor.mutex.Unlock()
	if handler != nil {
		return handler(executionContext, command)
	}
	return execshell.ExecutionResult{}, nil
}

func (executor *scriptedExecutor) executables() []string {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	names := make([]string, 0, len(executor.commands))
	for _, command := range executor.commands {
		names = append(names, executableName(command))
	}
	return names
}

func (executor *scriptedExecutor) find(testInstance *testing.T, executable string) execshell.ShellCommand {
	testInstance.Helper()
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	for _, command := range executor.commands {
		if executableName(command) == executable {
			return command
		}
	}
	require.Failf(testInstance, "command not executed", "%s was not executed", executable)
	return execshell.ShellCommand{}
}

type catalogueFixture struct {
	catalogue  *buildtasks.Catalogue
	executor   *scriptedExecutor
	fileSystem afero.Fs
	output     *bytes.Buffer
}

type fixtureOptions struct {
	snapshot      environment.Snapshot
	request       environment.Request
	configuration buildtasks.Configuration
	files         map[string]string
}

func newCatalogueFixture(testInstance *testing.T, options fixtureOptions) catalogueFixture {
	testInstance.Helper()
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, fileSystem.MkdirAll(testProjectRootConstant, 0o755))
	for relativePath, contents := range options.files {
		writeProjectFile(testInstance, fileSystem, relativePath, contents)
	}
	executor := newScriptedExecutor()
	output := &bytes.Buffer{}
	catalogue, catalogueError := buildtasks.NewCatalogue(buildtasks.Dependencies{
		Executor:    executor,
		FileSystem:  fileSystem,
		ProjectRoot: testProjectRootConstant,
		Snapshot:    options.snapshot,
		Request:     options.request,
		Output:      output,
	}, options.configuration)
	require.NoError(testInstance, catalogueError)
	return catalogueFixture{catalogue: catalogue, executor: executor, fileSystem: fileSystem, output: output}
}

func writeProjectFile(testInstance *testing.T, fileSystem afero.Fs, relativePath string, contents string) {
	testInstance.Helper()
	target := projectFile(relativePath)
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(testInstance, afero.WriteFile(fileSystem, target, []byte(contents), 0o644))
}

func projectFile(relativePath string) string {
	return filepath.Join(testProjectRootConstant, filepath.FromSlash(relativePath))
}

func readProjectFile(testInstance *testing.T, fileSystem afero.Fs, relativePath string) string {
	testInstance.Helper()
	contents, readError := afero.ReadFile(fileSystem, projectFile(relativePath))
	require.NoError(testInstance, readError)
	return string(contents)
}

func (fixture catalogueFixture) runTask(testInstance *testing.T, taskName string) error {
	testInstance.Helper()
	for _, definition := range fixture.catalogue.Definitions() {
		if definition.Name == taskName {
			return definition.Action(context.Background())
		}
	}
	require.Failf(testInstance, "unknown task", "%s is not in the catalogue", taskName)
	return nil
}
