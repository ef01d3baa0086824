package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

const (
	emptySequenceMessageConstant     = "sequence plan contains no tasks"
	taskLookupMissingMessageConstant = "pipeline runner requires a task lookup"
	stepFailedTemplateConstant       = "step %q failed: %v"
	unknownPlanTemplateConstant      = "plan %q is not defined"
	planCycleTemplateConstant        = "plan references form a cycle: %s"
	planCycleSeparatorConstant       = " -> "
)

var (
	// ErrEmptySequence indicates a sequence plan without task names.
	ErrEmptySequence = errors.New(emptySequenceMessageConstant)
	// ErrTaskLookupMissing indicates the runner was constructed without a registry.
	ErrTaskLookupMissing = errors.New(taskLookupMissingMessageConstant)
)

// StepFailedError attributes a task failure to the step that produced it.
type StepFailedError struct {
	Step  string
	Cause error
}

// Error implements the error interface.
func (failure StepFailedError) Error() string {
	return fmt.Sprintf(stepFailedTemplateConstant, failure.Step, failure.Cause)
}

// Unwrap exposes the task failure.
func (failure StepFailedError) Unwrap() error {
	return failure.Cause
}

// UnknownPlanError reports a plan name absent from the catalog.
type UnknownPlanError struct {
	PlanName string
}

// Error implements the error interface.
func (unknownError UnknownPlanError) Error() string {
	return fmt.Sprintf(unknownPlanTemplateConstant, unknownError.PlanName)
}

// PlanCycleError reports plans that include each other.
type PlanCycleError struct {
	Path []string
}

// Error implements the error interface.
func (cycleError PlanCycleError) Error() string {
	return fmt.Sprintf(planCycleTemplateConstant, strings.Join(cycleError.Path, planCycleSeparatorConstant))
}
