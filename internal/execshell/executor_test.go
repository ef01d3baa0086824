package execshell_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tyemirov/buildpipe/internal/execshell"
)

const (
	executorSubtestNameTemplateConstant      = "%d_%s"
	testExecutionSuccessCaseNameConstant     = "success"
	testExecutionFailureCaseNameConstant     = "failure_exit_code"
	testExecutionRunnerErrorCaseNameConstant = "runner_error"
	testExecutionInterruptedCaseNameConstant = "interrupted"
	testCommandNameConstant                  = "ngc"
	testCommandArgumentConstant              = "-p"
	testCommandProjectConstant               = "./tsconfig-es2015.json"
	testWorkingDirectoryConstant             = "."
	testStandardErrorOutputConstant          = "failure"
	testRunnerFailureMessageConstant         = "executable not found"
	testEphemeralDirectoryConstant           = "dist/waste"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

type failingRemovalFileSystem struct {
	afero.Fs
}

func (fileSystem failingRemovalFileSystem) RemoveAll(path string) error {
	return errors.New("permission denied")
}

func testCommandDetails() execshell.CommandDetails {
	return execshell.CommandDetails{
		Arguments:        []string{testCommandArgumentConstant, testCommandProjectConstant},
		WorkingDirectory: testWorkingDirectoryConstant,
	}
}

func TestShellExecutorInitializationValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		logger        *zap.Logger
		runner        execshell.CommandRunner
		expectError   error
		expectSuccess bool
	}{
		{
			name:        "logger_validation",
			logger:      nil,
			runner:      &recordingCommandRunner{},
			expectError: execshell.ErrLoggerNotConfigured,
		},
		{
			name:        "runner_validation",
			logger:      zap.NewNop(),
			runner:      nil,
			expectError: execshell.ErrCommandRunnerNotConfigured,
		},
		{
			name:          "successful_initialization",
			logger:        zap.NewNop(),
			runner:        &recordingCommandRunner{},
			expectSuccess: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(executorSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			executor, creationError := execshell.NewShellExecutor(testCase.logger, testCase.runner, false)
			if testCase.expectSuccess {
				require.NoError(testInstance, creationError)
				require.NotNil(testInstance, executor)
				return
			}
			require.ErrorIs(testInstance, creationError, testCase.expectError)
		})
	}
}

func TestShellExecutorRejectsMissingCommandName(testInstance *testing.T) {
	recordingRunner := &recordingCommandRunner{}
	executor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner, false)
	require.NoError(testInstance, creationError)

	_, executionError := executor.Execute(context.Background(), execshell.ShellCommand{Name: " "})
	require.ErrorIs(testInstance, executionError, execshell.ErrCommandNameMissing)
	require.Empty(testInstance, recordingRunner.recordedCommands)
}

func TestShellExecutorExecuteBehavior(testInstance *testing.T) {
	testCases := []struct {
		name            string
		runnerResult    execshell.ExecutionResult
		runnerError     error
		expectErrorType any
		expectResult    bool
		expectedLevels  []zapcore.Level
	}{
		{
			name:           testExecutionSuccessCaseNameConstant,
			runnerResult:   execshell.ExecutionResult{StandardOutput: "ok\n", OutputLines: []string{"ok"}},
			expectResult:   true,
			expectedLevels: []zapcore.Level{zap.InfoLevel, zap.InfoLevel},
		},
		{
			name:            testExecutionFailureCaseNameConstant,
			runnerResult:    execshell.ExecutionResult{StandardError: testStandardErrorOutputConstant, ExitCode: 1},
			expectErrorType: execshell.CommandFailedError{},
			expectedLevels:  []zapcore.Level{zap.InfoLevel, zap.WarnLevel},
		},
		{
			name:            testExecutionRunnerErrorCaseNameConstant,
			runnerError:     errors.New(testRunnerFailureMessageConstant),
			expectErrorType: execshell.CommandExecutionError{},
			expectedLevels:  []zapcore.Level{zap.InfoLevel, zap.ErrorLevel},
		},
		{
			name:           testExecutionInterruptedCaseNameConstant,
			runnerResult:   execshell.ExecutionResult{ExitCode: 130, Interrupted: true},
			expectResult:   true,
			expectedLevels: []zapcore.Level{zap.InfoLevel, zap.InfoLevel},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(executorSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			observerCore, observerLogs := observer.New(zap.DebugLevel)
			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}

			shellExecutor, creationError := execshell.NewShellExecutor(zap.New(observerCore), recordingRunner, false)
			require.NoError(testInstance, creationError)

			executionResult, executionError := shellExecutor.Execute(context.Background(), execshell.ShellCommand{Name: testCommandNameConstant, Details: testCommandDetails()})
			if testCase.expectErrorType != nil {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.expectErrorType, executionError)
				require.Empty(testInstance, executionResult.StandardOutput)
			} else {
				require.NoError(testInstance, executionError)
			}
			if testCase.expectResult {
				require.Equal(testInstance, testCase.runnerResult, executionResult)
			}

			capturedLogs := observerLogs.All()
			require.Len(testInstance, capturedLogs, len(testCase.expectedLevels))
			for logIndex := range capturedLogs {
				require.Equal(testInstance, testCase.expectedLevels[logIndex], capturedLogs[logIndex].Level)
			}
		})
	}
}

func TestShellExecutorHumanReadableLogging(testInstance *testing.T) {
	testCases := []struct {
		name             string
		runnerResult     execshell.ExecutionResult
		runnerError      error
		expectedMessages []string
	}{
		{
			name:         testExecutionSuccessCaseNameConstant,
			runnerResult: execshell.ExecutionResult{StandardOutput: "ok"},
			expectedMessages: []string{
				"Running ngc -p ./tsconfig-es2015.json (in .)",
				"Completed ngc -p ./tsconfig-es2015.json (in .)",
			},
		},
		{
			name:         testExecutionFailureCaseNameConstant,
			runnerResult: execshell.ExecutionResult{StandardError: testStandardErrorOutputConstant, ExitCode: 1},
			expectedMessages: []string{
				"Running ngc -p ./tsconfig-es2015.json (in .)",
				"ngc -p ./tsconfig-es2015.json (in .) failed with exit code 1: failure",
			},
		},
		{
			name:        testExecutionRunnerErrorCaseNameConstant,
			runnerError: errors.New(testRunnerFailureMessageConstant),
			expectedMessages: []string{
				"Running ngc -p ./tsconfig-es2015.json (in .)",
				"ngc -p ./tsconfig-es2015.json (in .) failed: executable not found",
			},
		},
		{
			name:         testExecutionInterruptedCaseNameConstant,
			runnerResult: execshell.ExecutionResult{Interrupted: true},
			expectedMessages: []string{
				"Running ngc -p ./tsconfig-es2015.json (in .)",
				"Interrupted ngc -p ./tsconfig-es2015.json (in .)",
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(executorSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			observerCore, observedLogs := observer.New(zap.InfoLevel)
			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}

			shellExecutor, creationError := execshell.NewShellExecutor(zap.New(observerCore), recordingRunner, true)
			require.NoError(testInstance, creationError)

			_, _ = shellExecutor.Execute(context.Background(), execshell.ShellCommand{Name: testCommandNameConstant, Details: testCommandDetails()})

			capturedLogs := observedLogs.All()
			require.Len(testInstance, capturedLogs, len(testCase.expectedMessages))
			for logIndex := range capturedLogs {
				require.Equal(testInstance, testCase.expectedMessages[logIndex], capturedLogs[logIndex].Message)
			}
		})
	}
}

func TestShellExecutorRemovesEphemeralDirectoryRegardlessOfOutcome(testInstance *testing.T) {
	testCases := []struct {
		name         string
		runnerResult execshell.ExecutionResult
		runnerError  error
	}{
		{name: testExecutionSuccessCaseNameConstant},
		{name: testExecutionFailureCaseNameConstant, runnerResult: execshell.ExecutionResult{ExitCode: 2}},
		{name: testExecutionRunnerErrorCaseNameConstant, runnerError: errors.New(testRunnerFailureMessageConstant)},
		{name: testExecutionInterruptedCaseNameConstant, runnerResult: execshell.ExecutionResult{Interrupted: true}},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(executorSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			fileSystem := afero.NewMemMapFs()
			require.NoError(testInstance, afero.WriteFile(fileSystem, testEphemeralDirectoryConstant+"/index.metadata.json", []byte("{}"), 0o644))

			recordingRunner := &recordingCommandRunner{executionResult: testCase.runnerResult, executionError: testCase.runnerError}
			shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner, false, execshell.WithFileSystem(fileSystem))
			require.NoError(testInstance, creationError)

			details := testCommandDetails()
			details.EphemeralDirectory = testEphemeralDirectoryConstant
			_, _ = shellExecutor.Execute(context.Background(), execshell.ShellCommand{Name: testCommandNameConstant, Details: details})

			exists, existsError := afero.DirExists(fileSystem, testEphemeralDirectoryConstant)
			require.NoError(testInstance, existsError)
			require.False(testInstance, exists)
		})
	}
}

func TestShellExecutorLogsEphemeralCleanupFailureWithoutFailing(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zap.WarnLevel)
	fileSystem := failingRemovalFileSystem{Fs: afero.NewMemMapFs()}

	shellExecutor, creationError := execshell.NewShellExecutor(zap.New(observerCore), &recordingCommandRunner{}, false, execshell.WithFileSystem(fileSystem))
	require.NoError(testInstance, creationError)

	details := testCommandDetails()
	details.EphemeralDirectory = testEphemeralDirectoryConstant
	_, executionError := shellExecutor.Execute(context.Background(), execshell.ShellCommand{Name: testCommandNameConstant, Details: details})
	require.NoError(testInstance, executionError)

	capturedLogs := observedLogs.All()
	require.Len(testInstance, capturedLogs, 1)
	require.Equal(testInstance, zap.WarnLevel, capturedLogs[0].Level)
	require.Equal(testInstance, testEphemeralDirectoryConstant, capturedLogs[0].ContextMap()["ephemeral_directory"])
}

func TestCommandFailedErrorSummarizesOutput(testInstance *testing.T) {
	failure := execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: "tslint", Details: execshell.CommandDetails{Arguments: []string{"--format", "prose"}}},
		Result:  execshell.ExecutionResult{ExitCode: 2, StandardOutput: "src/a.ts: bad\n\nsrc/b.ts: bad\nsrc/c.ts: bad\nsrc/d.ts: bad"},
	}
	require.Equal(testInstance, "tslint exited with code 2 (--format prose): src/a.ts: bad | src/b.ts: bad", failure.Error())

	cause := errors.New(testRunnerFailureMessageConstant)
	executionFailure := execshell.CommandExecutionError{Command: execshell.ShellCommand{Name: "webpack"}, Cause: cause}
	require.ErrorIs(testInstance, executionFailure, cause)
	require.Contains(testInstance, executionFailure.Error(), "webpack")
}
