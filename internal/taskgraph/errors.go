package taskgraph

import (
	"errors"
	"fmt"
	"strings"
)

const (
	taskNameMissingMessageConstant    = "task name must be provided"
	taskActionMissingMessageConstant  = "task action must be provided"
	duplicateTaskTemplateConstant     = "task %q is already registered"
	unknownDependencyTemplateConstant = "task %q depends on unknown task %q"
	cyclicDependencyTemplateConstant  = "task dependencies contain a cycle: %s"
	unknownTaskTemplateConstant       = "task %q is not registered"
	cyclePathSeparatorConstant        = " -> "
)

var (
	// ErrTaskNameMissing indicates a registration attempt without a task name.
	ErrTaskNameMissing = errors.New(taskNameMissingMessageConstant)
	// ErrTaskActionMissing indicates a registration attempt without an action.
	ErrTaskActionMissing = errors.New(taskActionMissingMessageConstant)
)

// DuplicateTaskError reports a second registration under an existing task name.
type DuplicateTaskError struct {
	TaskName string
}

// Error implements the error interface.
func (duplicateError DuplicateTaskError) Error() string {
	return fmt.Sprintf(duplicateTaskTemplateConstant, duplicateError.TaskName)
}

// UnknownDependencyError reports a prerequisite that names no registered task.
type UnknownDependencyError struct {
	TaskName       string
	DependencyName string
}

// Error implements the error interface.
func (dependencyError UnknownDependencyError) Error() string {
	return fmt.Sprintf(unknownDependencyTemplateConstant, dependencyError.TaskName, dependencyError.DependencyName)
}

// CyclicDependencyError reports a prerequisite chain that returns to a task still being visited.
// Path starts and ends with the same task name.
type CyclicDependencyError struct {
	Path []string
}

// Error implements the error interface.
func (cycleError CyclicDependencyError) Error() string {
	return fmt.Sprintf(cyclicDependencyTemplateConstant, strings.Join(cycleError.Path, cyclePathSeparatorConstant))
}

// UnknownTaskError reports a lookup of a task name that was never registered.
type UnknownTaskError struct {
	TaskName string
}

// Error implements the error interface.
func (unknownError UnknownTaskError) Error() string {
	return fmt.Sprintf(unknownTaskTemplateConstant, unknownError.TaskName)
}
