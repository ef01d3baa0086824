package execshell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"
	"time"
)

const (
	windowsOperatingSystemConstant = "windows"
	windowsScriptSuffixConstant    = ".cmd"
	nodeModulesDirectoryConstant   = "node_modules"
	nodeBinariesDirectoryConstant  = ".bin"
	interruptGracePeriodConstant   = 5 * time.Second
	maximumLineLengthConstant      = 1024 * 1024
	initialLineBufferSizeConstant  = 64 * 1024
)

// OSCommandRunner runs commands as operating-system processes, streaming standard output line by line.
// ExecutionResult.StandardOutput holds the exact bytes the process wrote.
type OSCommandRunner struct {
	outputWriter io.Writer
	errorWriter  io.Writer
}

// NewOSCommandRunner creates a runner that discards process output apart from what it captures.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{outputWriter: io.Discard, errorWriter: io.Discard}
}

// NewStreamingOSCommandRunner creates a runner that mirrors process output to the provided writers.
func NewStreamingOSCommandRunner(outputWriter io.Writer, errorWriter io.Writer) *OSCommandRunner {
	runner := NewOSCommandRunner()
	if outputWriter != nil {
		runner.outputWriter = outputWriter
	}
	if errorWriter != nil {
		runner.errorWriter = errorWriter
	}
	return runner
}

// Run starts the process, waits for it and classifies its termination. Cancelling the context
// delivers an interrupt to the process; a process that ends because of that interrupt is
// reported as Interrupted rather than as a failure.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	process := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = mergeEnvironment(os.Environ(), command.Details.EnvironmentVariables)
	process.Cancel = func() error {
		if runtime.GOOS == windowsOperatingSystemConstant {
			return process.Process.Kill()
		}
		return process.Process.Signal(os.Interrupt)
	}
	process.WaitDelay = interruptGracePeriodConstant

	var standardError bytes.Buffer
	process.Stderr = io.MultiWriter(&standardError, runner.errorWriter)

	outputPipe, pipeError := process.StdoutPipe()
	if pipeError != nil {
		return ExecutionResult{}, pipeError
	}
	if startError := process.Start(); startError != nil {
		return ExecutionResult{}, startError
	}

	var standardOutput bytes.Buffer
	outputLines := make([]string, 0)
	scanner := bufio.NewScanner(io.TeeReader(outputPipe, &standardOutput))
	scanner.Buffer(make([]byte, initialLineBufferSizeConstant), maximumLineLengthConstant)
	for scanner.Scan() {
		line := scanner.Text()
		outputLines = append(outputLines, line)
		_, _ = io.WriteString(runner.outputWriter, line+"\n")
		if command.Details.LineHandler != nil {
			command.Details.LineHandler(line)
		}
	}
	scanError := scanner.Err()
	if scanError != nil {
		_, _ = io.Copy(&standardOutput, outputPipe)
	}

	waitError := process.Wait()
	result := ExecutionResult{
		StandardOutput: standardOutput.String(),
		StandardError:  standardError.String(),
		OutputLines:    outputLines,
	}

	if waitError == nil {
		if scanError != nil {
			return ExecutionResult{}, scanError
		}
		return result, nil
	}

	var exitError *exec.ExitError
	if !errors.As(waitError, &exitError) {
		if executionContext.Err() != nil && errors.Is(executionContext.Err(), context.Canceled) {
			result.Interrupted = true
			return result, nil
		}
		return ExecutionResult{}, waitError
	}

	result.ExitCode = exitError.ExitCode()
	if interruptedBySignal(exitError) || errors.Is(executionContext.Err(), context.Canceled) {
		result.Interrupted = true
	}
	return result, nil
}

// NodeBinary returns the path of an executable installed in the project's node_modules/.bin directory.
func NodeBinary(projectRoot string, executable string) CommandName {
	return CommandName(filepath.Join(projectRoot, nodeModulesDirectoryConstant, nodeBinariesDirectoryConstant, PlatformExecutable(executable)))
}

// PlatformExecutable appends the script suffix Windows requires for package-manager shims.
func PlatformExecutable(executable string) string {
	if runtime.GOOS == windowsOperatingSystemConstant {
		return executable + windowsScriptSuffixConstant
	}
	return executable
}

func interruptedBySignal(exitError *exec.ExitError) bool {
	waitStatus, ok := exitError.Sys().(syscall.WaitStatus)
	if !ok {
		return false
	}
	return waitStatus.Signaled() && waitStatus.Signal() == syscall.SIGINT
}

func mergeEnvironment(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		name := entry
		for index := 0; index < len(entry); index++ {
			if entry[index] == '=' && index > 0 {
				name = entry[:index]
				break
			}
		}
		if _, overridden := overrides[name]; overridden {
			continue
		}
		merged = append(merged, entry)
	}
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		merged = append(merged, name+"="+overrides[name])
	}
	return merged
}
