package buildtasks_test

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/buildpipe/internal/buildtasks"
	"github.com/tyemirov/buildpipe/internal/taskgraph"
)

func TestNewCatalogueValidatesDependencies(testInstance *testing.T) {
	_, rootError := buildtasks.NewCatalogue(buildtasks.Dependencies{Executor: newScriptedExecutor()}, buildtasks.Configuration{})
	require.ErrorIs(testInstance, rootError, buildtasks.ErrProjectRootMissing)

	_, executorError := buildtasks.NewCatalogue(buildtasks.Dependencies{ProjectRoot: testProjectRootConstant}, buildtasks.Configuration{})
	require.ErrorIs(testInstance, executorError, buildtasks.ErrExecutorMissing)
}

func TestCatalogueRegistersValidGraph(testInstance *testing.T) {
	fixture := newCatalogueFixture(testInstance, fixtureOptions{})
	registry := taskgraph.NewRegistry()
	require.NoError(testInstance, fixture.catalogue.Register(registry))
	require.NoError(testInstance, registry.Validate())

	require.Len(testInstance, registry.Names(), 24)
	require.Len(testInstance, fixture.catalogue.Descriptions(), 24)

	testCases := []struct {
		task          string
		prerequisites []string
	}{
		{task: buildtasks.TaskTest, prerequisites: []string{buildtasks.TaskCleanTests, buildtasks.TaskBuildTests, buildtasks.TaskTest}},
		{task: buildtasks.TaskBuildDemo, prerequisites: []string{buildtasks.TaskCleanDemo, buildtasks.TaskGenerateDocs, buildtasks.TaskGeneratePlunks, buildtasks.TaskBuildDemo}},
		{task: buildtasks.TaskClean, prerequisites: []string{buildtasks.TaskCleanBuild, buildtasks.TaskCleanTests, buildtasks.TaskCleanDemo, buildtasks.TaskCleanDemoCache, buildtasks.TaskClean}},
		{task: buildtasks.TaskLint, prerequisites: []string{buildtasks.TaskLint}},
	}
	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.task), func(testInstance *testing.T) {
			prerequisites, prerequisitesError := registry.Prerequisites(testCase.task)
			require.NoError(testInstance, prerequisitesError)
			require.Equal(testInstance, testCase.prerequisites, prerequisites)
		})
	}

	require.ErrorAs(testInstance, fixture.catalogue.Register(registry), &taskgraph.DuplicateTaskError{})
}

func TestCleanTasksRemoveGeneratedDirectories(testInstance *testing.T) {
	fixture := newCatalogueFixture(testInstance, fixtureOptions{files: map[string]string{
		"dist/index.js":        "compiled",
		"temp/index.js":        "compiled",
		"coverage/json/c.json": "{}",
		"demo/dist/index.html": "<html>",
		".publish/index.html":  "<html>",
		"src/index.ts":         "export {};",
	}})

	for _, taskName := range []string{buildtasks.TaskCleanBuild, buildtasks.TaskCleanTests, buildtasks.TaskCleanDemo, buildtasks.TaskCleanDemoCache} {
		require.NoError(testInstance, fixture.runTask(testInstance, taskName))
	}

	for _, removed := range []string{"dist", "temp", "coverage", "demo/dist", ".publish"} {
		exists, existsError := afero.Exists(fixture.fileSystem, projectFile(removed))
		require.NoError(testInstance, existsError)
		require.False(testInstance, exists, removed)
	}
	require.Equal(testInstance, "export {};", readProjectFile(testInstance, fixture.fileSystem, "src/index.ts"))
	require.Empty(testInstance, fixture.executor.executables())
}

func TestConfigurationSanitizeFillsDefaults(testInstance *testing.T) {
	sanitized := buildtasks.Configuration{
		Paths: buildtasks.PathSettings{Distribution: "  build "},
		Demo:  buildtasks.DemoSettings{Port: -1},
		Tasks: map[string]map[string]any{" Lint ": {"format": "json"}},
	}.Sanitize()

	defaults := buildtasks.DefaultConfiguration()
	require.Equal(testInstance, "build", sanitized.Paths.Distribution)
	require.Equal(testInstance, defaults.Paths.Ephemeral, sanitized.Paths.Ephemeral)
	require.Equal(testInstance, defaults.Demo.Port, sanitized.Demo.Port)
	require.Equal(testInstance, defaults.Package.Name, sanitized.Package.Name)
	require.Equal(testInstance, map[string]any{"format": "json"}, sanitized.Tasks[buildtasks.TaskLint])
}
