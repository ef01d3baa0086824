package execshell

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	startedMessageTemplateConstant         = "Running %s"
	completedMessageTemplateConstant       = "Completed %s"
	interruptedMessageTemplateConstant     = "Interrupted %s"
	failedMessageTemplateConstant          = "%s failed with exit code %d"
	executionFailedMessageTemplateConstant = "%s failed: %v"
	cleanupFailedMessageTemplateConstant   = "Unable to remove %s: %v"
	workingDirectorySuffixTemplateConstant = "%s (in %s)"
	failureDetailSuffixTemplateConstant    = "%s: %s"
)

// CommandMessageFormatter renders human-readable lifecycle messages for commands.
type CommandMessageFormatter struct{}

// BuildStartedMessage describes a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return fmt.Sprintf(startedMessageTemplateConstant, formatter.describe(command))
}

// BuildSuccessMessage describes a command that exited cleanly.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return fmt.Sprintf(completedMessageTemplateConstant, formatter.describe(command))
}

// BuildInterruptedMessage describes a command stopped by the operator.
func (formatter CommandMessageFormatter) BuildInterruptedMessage(command ShellCommand) string {
	return fmt.Sprintf(interruptedMessageTemplateConstant, formatter.describe(command))
}

// BuildFailureMessage describes a command that exited with a non-zero code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	message := fmt.Sprintf(failedMessageTemplateConstant, formatter.describe(command), result.ExitCode)
	detail := summarizeOutput(result)
	if len(detail) == 0 {
		return message
	}
	return fmt.Sprintf(failureDetailSuffixTemplateConstant, message, detail)
}

// BuildExecutionFailureMessage describes a command that could not be started or supervised.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, executionError error) string {
	return fmt.Sprintf(executionFailedMessageTemplateConstant, formatter.describe(command), executionError)
}

// BuildCleanupFailureMessage describes a failed ephemeral directory removal.
func (formatter CommandMessageFormatter) BuildCleanupFailureMessage(directory string, removalError error) string {
	return fmt.Sprintf(cleanupFailedMessageTemplateConstant, directory, removalError)
}

func (formatter CommandMessageFormatter) describe(command ShellCommand) string {
	parts := make([]string, 0, len(command.Details.Arguments)+1)
	parts = append(parts, filepath.Base(string(command.Name)))
	parts = append(parts, command.Details.Arguments...)
	description := strings.Join(parts, " ")

	workingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(workingDirectory) == 0 {
		return description
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, description, workingDirectory)
}
