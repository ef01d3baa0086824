package buildtasks_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/buildpipe/internal/buildtasks"
)

func TestDemoPortResolution(testInstance *testing.T) {
	testCases := []struct {
		name         string
		localDocs    string
		expectedPort int
		expectError  bool
	}{
		{name: "configured_default", expectedPort: 9090},
		{name: "local_override", localDocs: `{"port": 4200}`, expectedPort: 4200},
		{name: "local_without_port", localDocs: `{"theme": "dark"}`, expectedPort: 9090},
		{name: "malformed_local_file", localDocs: `{"port": [`, expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			files := map[string]string{}
			if len(testCase.localDocs) > 0 {
				files["local.docs.json"] = testCase.localDocs
			}
			fixture := newCatalogueFixture(testInstance, fixtureOptions{files: files})

			port, portError := fixture.catalogue.DemoPort()
			if testCase.expectError {
				require.Error(testInstance, portError)
				return
			}
			require.NoError(testInstance, portError)
			require.Equal(testInstance, testCase.expectedPort, port)
		})
	}
}

func TestDemoTasksInvokeTools(testInstance *testing.T) {
	testCases := []struct {
		name                string
		task                string
		executable          string
		expectedArguments   []string
		expectedEnvironment map[string]string
	}{
		{
			name:              "docs",
			task:              buildtasks.TaskGenerateDocs,
			executable:        "node",
			expectedArguments: []string{"misc/api-doc-gen.js"},
		},
		{
			name:              "plunks",
			task:              buildtasks.TaskGeneratePlunks,
			executable:        "node",
			expectedArguments: []string{"misc/plunk-gen.js"},
		},
		{
			name:              "server",
			task:              buildtasks.TaskDemoServer,
			executable:        "webpack-dev-server",
			expectedArguments: []string{"--mode", "development", "--port", "4200", "--config", "webpack.demo.js", "--inline", "--progress"},
		},
		{
			name:                "server_aot",
			task:                buildtasks.TaskDemoServerAOT,
			executable:          "webpack-dev-server",
			expectedArguments:   []string{"--mode", "development", "--port", "4200", "--config", "webpack.demo.js", "--inline", "--progress"},
			expectedEnvironment: map[string]string{"MODE": "build"},
		},
		{
			name:                "build",
			task:                buildtasks.TaskBuildDemo,
			executable:          "webpack",
			expectedArguments:   []string{"--mode", "production", "--config", "webpack.demo.js", "--bail"},
			expectedEnvironment: map[string]string{"MODE": "build"},
		},
		{
			name:              "publish",
			task:              buildtasks.TaskPublishDemo,
			executable:        "gh-pages",
			expectedArguments: []string{"-d", "demo/dist", "-r", "https://github.com/ngx-toggle/ngx-toggle.github.io.git", "-b", "master"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			fixture := newCatalogueFixture(testInstance, fixtureOptions{files: map[string]string{"local.docs.json": `{"port": 4200}`}})

			require.NoError(testInstance, fixture.runTask(testInstance, testCase.task))
			command := fixture.executor.find(testInstance, testCase.executable)
			require.Equal(testInstance, testCase.expectedArguments, command.Details.Arguments)
			require.Equal(testInstance, testCase.expectedEnvironment, command.Details.EnvironmentVariables)
			require.Equal(testInstance, testProjectRootConstant, command.Details.WorkingDirectory)
		})
	}
}
