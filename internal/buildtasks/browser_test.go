package buildtasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/buildpipe/internal/buildtasks"
	"github.com/tyemirov/buildpipe/internal/environment"
	"github.com/tyemirov/buildpipe/internal/execshell"
)

func TestTestTaskAppliesEnvironmentProfile(testInstance *testing.T) {
	testCases := []struct {
		name              string
		snapshot          environment.Snapshot
		request           environment.Request
		expectedArguments []string
		expectedKind      environment.ProfileKind
	}{
		{
			name:              "local_one_shot",
			expectedArguments: []string{"start", "karma.conf.js", "--single-run", "--no-auto-watch"},
			expectedKind:      environment.ProfileLocal,
		},
		{
			name:              "continuous_integration",
			snapshot:          environment.Snapshot{ContinuousIntegration: true},
			expectedArguments: []string{"start", "karma.conf.js", "--single-run", "--no-auto-watch", "--reporters", "dots", "--browsers", "Firefox"},
			expectedKind:      environment.ProfileContinuousIntegration,
		},
		{
			name:              "watch_requested",
			request:           environment.Request{Watch: true},
			expectedArguments: []string{"start", "karma.conf.js", "--no-single-run", "--auto-watch"},
			expectedKind:      environment.ProfileLocal,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			fixture := newCatalogueFixture(testInstance, fixtureOptions{snapshot: testCase.snapshot, request: testCase.request})

			require.NoError(testInstance, fixture.runTask(testInstance, buildtasks.TaskTest))
			require.Equal(testInstance, []string{"karma", "remap-istanbul"}, fixture.executor.executables())

			karma := fixture.executor.find(testInstance, "karma")
			require.Equal(testInstance, testCase.expectedArguments, karma.Details.Arguments)
			require.Equal(testInstance, map[string]string{"BUILDPIPE_KARMA_PROFILE": projectFile("temp/karma.profile.json")}, karma.Details.EnvironmentVariables)

			profile := environment.Profile{}
			require.NoError(testInstance, json.Unmarshal([]byte(readProjectFile(testInstance, fixture.fileSystem, "temp/karma.profile.json")), &profile))
			require.Equal(testInstance, testCase.expectedKind, profile.Kind)

			remap := fixture.executor.find(testInstance, "remap-istanbul")
			require.Equal(testInstance, []string{"-i", "coverage/json/coverage-final.json", "-o", "coverage/html", "-t", "html"}, remap.Details.Arguments)
		})
	}
}

func TestTestTaskSkipsCoverageAfterFailureOrInterrupt(testInstance *testing.T) {
	testCases := []struct {
		name             string
		handler          commandHandler
		expectedExitCode int
	}{
		{
			name: "runner_failure",
			handler: func(context.Context, execshell.ShellCommand) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{}, execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 1}}
			},
			expectedExitCode: 1,
		},
		{
			name: "operator_interrupt",
			handler: func(context.Context, execshell.ShellCommand) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{Interrupted: true}, nil
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			fixture := newCatalogueFixture(testInstance, fixtureOptions{})
			fixture.executor.handle("karma", testCase.handler)

			taskError := fixture.runTask(testInstance, buildtasks.TaskTest)
			if testCase.expectedExitCode != 0 {
				failure := execshell.CommandFailedError{}
				require.ErrorAs(testInstance, taskError, &failure)
				require.Equal(testInstance, testCase.expectedExitCode, failure.Result.ExitCode)
			} else {
				require.NoError(testInstance, taskError)
			}
			require.Equal(testInstance, []string{"karma"}, fixture.executor.executables())
		})
	}
}

func TestGridTestRequiresCredentialBeforeStarting(testInstance *testing.T) {
	fixture := newCatalogueFixture(testInstance, fixtureOptions{snapshot: environment.Snapshot{ContinuousIntegration: true}})

	gridError := fixture.runTask(testInstance, buildtasks.TaskGridTest)
	configurationError := environment.ConfigurationError{}
	require.ErrorAs(testInstance, gridError, &configurationError)
	require.True(testInstance, errors.Is(gridError, environment.ErrGridAccessKeyMissing))
	require.Empty(testInstance, fixture.executor.executables())
}

func TestGridTestDeliversCredentialToChildOnly(testInstance *testing.T) {
	fixture := newCatalogueFixture(testInstance, fixtureOptions{snapshot: environment.Snapshot{
		ContinuousIntegration: true,
		BuildNumber:           "77",
		BuildIdentifier:       "9001",
		JobNumber:             "77.1",
		GridAccessKey:         "fedcba",
		GridAccessKeyPresent:  true,
	}})

	require.NoError(testInstance, fixture.runTask(testInstance, buildtasks.TaskGridTest))

	karma := fixture.executor.find(testInstance, "karma")
	require.Equal(testInstance, "abcdef", karma.Details.EnvironmentVariables["SAUCE_ACCESS_KEY"])
	require.Contains(testInstance, karma.Details.Arguments, "dots,saucelabs")

	written := readProjectFile(testInstance, fixture.fileSystem, "temp/karma.profile.json")
	require.NotContains(testInstance, written, "abcdef")
	require.NotContains(testInstance, written, "fedcba")
	require.Contains(testInstance, written, "TRAVIS #77 (9001)")
	require.Contains(testInstance, written, "77.1")
}

func TestTestDrivenDevelopmentStartsWatcherAfterFirstCompilation(testInstance *testing.T) {
	fixture := newCatalogueFixture(testInstance, fixtureOptions{})
	compilerStarted := make(chan struct{})
	fixture.executor.handle("tsc", func(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
		close(compilerStarted)
		command.Details.LineHandler("Compilation complete. Watching for file changes.")
		command.Details.LineHandler("File change detected.")
		<-executionContext.Done()
		return execshell.ExecutionResult{Interrupted: true}, nil
	})
	fixture.executor.handle("karma", func(context.Context, execshell.ShellCommand) (execshell.ExecutionResult, error) {
		<-compilerStarted
		return execshell.ExecutionResult{}, nil
	})

	require.NoError(testInstance, fixture.runTask(testInstance, buildtasks.TaskTDD))

	require.Equal(testInstance, []string{"-w"}, fixture.executor.find(testInstance, "tsc").Details.Arguments)
	karma := fixture.executor.find(testInstance, "karma")
	require.Equal(testInstance, []string{"start", "karma.conf.js", "--no-single-run", "--auto-watch"}, karma.Details.Arguments)
	require.Contains(testInstance, fixture.output.String(), "Watching for file changes.\nFile change detected.\n")
}

func TestTestDrivenDevelopmentKeepsConcurrentOutputLinesIntact(testInstance *testing.T) {
	const linesPerProcess = 200
	fixture := newCatalogueFixture(testInstance, fixtureOptions{})
	watcherStarted := make(chan struct{})
	fixture.executor.handle("tsc", func(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
		command.Details.LineHandler("compiler ready")
		<-watcherStarted
		for lineIndex := 0; lineIndex < linesPerProcess; lineIndex++ {
			command.Details.LineHandler(fmt.Sprintf("compiler line %d", lineIndex))
		}
		<-executionContext.Done()
		return execshell.ExecutionResult{Interrupted: true}, nil
	})
	fixture.executor.handle("karma", func(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
		close(watcherStarted)
		for lineIndex := 0; lineIndex < linesPerProcess; lineIndex++ {
			command.Details.LineHandler(fmt.Sprintf("watcher line %d", lineIndex))
		}
		return execshell.ExecutionResult{}, nil
	})

	require.NoError(testInstance, fixture.runTask(testInstance, buildtasks.TaskTDD))

	outputLines := strings.Split(strings.TrimSuffix(fixture.output.String(), "\n"), "\n")
	require.Len(testInstance, outputLines, 2*linesPerProcess+1)
	intactLine := regexp.MustCompile(`^(compiler ready|compiler line \d+|watcher line \d+)$`)
	for _, line := range outputLines {
		require.Regexp(testInstance, intactLine, line)
	}
}

func TestTestDrivenDevelopmentReportsCompilerFailure(testInstance *testing.T) {
	fixture := newCatalogueFixture(testInstance, fixtureOptions{})
	fixture.executor.handle("tsc", func(context.Context, execshell.ShellCommand) (execshell.ExecutionResult, error) {
		return execshell.ExecutionResult{}, execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 2}}
	})

	failure := execshell.CommandFailedError{}
	require.ErrorAs(testInstance, fixture.runTask(testInstance, buildtasks.TaskTDD), &failure)
	require.Equal(testInstance, 2, failure.Result.ExitCode)
	require.Equal(testInstance, []string{"tsc"}, fixture.executor.executables())
}
