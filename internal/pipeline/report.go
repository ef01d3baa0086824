package pipeline

import (
	"time"
)

// StepStatus describes how a step of a sequence plan ended.
type StepStatus string

// Supported step statuses.
const (
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// SequencePlan is an explicit execution order over task names.
type SequencePlan []string

// StepRecord captures the observable outcome of one step.
type StepRecord struct {
	Name     string
	Status   StepStatus
	Duration time.Duration
	Err      error
}

// Report summarizes a sequence plan execution.
type Report struct {
	Steps     []StepRecord
	StartTime time.Time
	Duration  time.Duration
}

// Succeeded reports whether every step completed successfully.
func (report Report) Succeeded() bool {
	if len(report.Steps) == 0 {
		return false
	}
	for _, step := range report.Steps {
		if step.Status != StepStatusSucceeded {
			return false
		}
	}
	return true
}

// Failure returns the first failed step, if any.
func (report Report) Failure() (StepRecord, bool) {
	for _, step := range report.Steps {
		if step.Status == StepStatusFailed {
			return step, true
		}
	}
	return StepRecord{}, false
}

// Invoked lists the steps whose actions ran, in execution order.
func (report Report) Invoked() []string {
	names := make([]string, 0, len(report.Steps))
	for _, step := range report.Steps {
		if step.Status == StepStatusSkipped {
			continue
		}
		names = append(names, step.Name)
	}
	return names
}
