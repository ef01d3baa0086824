package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tyemirov/buildpipe/internal/taskgraph"
)

const (
	sequenceStartedMessageConstant       = "sequence plan starting"
	sequenceCompletedMessageConstant     = "sequence plan completed"
	sequenceFailedMessageConstant        = "sequence plan aborted"
	stepStartedMessageConstant           = "step starting"
	stepCompletedMessageConstant         = "step completed"
	stepFailedMessageConstant            = "step failed"
	stepStartedHumanTemplateConstant     = "Starting '%s'..."
	stepCompletedHumanTemplateConstant   = "Finished '%s' after %s"
	stepFailedHumanTemplateConstant      = "'%s' errored after %s: %v"
	sequenceSkippedHumanTemplateConstant = "Skipping remaining steps: %s"
	stepsFieldNameConstant               = "steps"
	stepFieldNameConstant                = "step"
	durationFieldNameConstant            = "duration"
	skippedFieldNameConstant             = "skipped"
)

// TaskLookup resolves task names to registered tasks.
type TaskLookup interface {
	Lookup(name string) (taskgraph.Task, error)
}

// Runner executes sequence plans one step at a time.
type Runner struct {
	tasks                TaskLookup
	logger               *zap.Logger
	humanReadableLogging bool
	clock                func() time.Time
	executionMutex       sync.Mutex
}

// NewRunner constructs a Runner over the provided task lookup.
func NewRunner(tasks TaskLookup, logger *zap.Logger, humanReadableLogging bool) (*Runner, error) {
	if tasks == nil {
		return nil, ErrTaskLookupMissing
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		tasks:                tasks,
		logger:               logger,
		humanReadableLogging: humanReadableLogging,
		clock:                time.Now,
	}, nil
}

// Run executes the plan in the given order. Every name is resolved before the first action starts.
// The first failing step stops the plan; later steps are reported as skipped and never invoked.
func (runner *Runner) Run(executionContext context.Context, plan SequencePlan) (Report, error) {
	runner.executionMutex.Lock()
	defer runner.executionMutex.Unlock()

	report := Report{StartTime: runner.clock()}
	if len(plan) == 0 {
		return report, ErrEmptySequence
	}

	resolvedTasks := make([]taskgraph.Task, 0, len(plan))
	for _, taskName := range plan {
		task, lookupError := runner.tasks.Lookup(taskName)
		if lookupError != nil {
			return report, lookupError
		}
		resolvedTasks = append(resolvedTasks, task)
	}

	runner.logger.Debug(sequenceStartedMessageConstant, zap.Strings(stepsFieldNameConstant, plan))

	for taskIndex, task := range resolvedTasks {
		stepError := executionContext.Err()
		stepStart := runner.clock()
		if stepError == nil {
			runner.logStepStarted(task.Name)
			stepError = task.Action(executionContext)
		}
		stepDuration := runner.clock().Sub(stepStart)

		if stepError != nil {
			report.Steps = append(report.Steps, StepRecord{Name: task.Name, Status: StepStatusFailed, Duration: stepDuration, Err: stepError})
			skippedNames := make([]string, 0, len(resolvedTasks)-taskIndex-1)
			for _, remainingTask := range resolvedTasks[taskIndex+1:] {
				report.Steps = append(report.Steps, StepRecord{Name: remainingTask.Name, Status: StepStatusSkipped})
				skippedNames = append(skippedNames, remainingTask.Name)
			}
			report.Duration = runner.clock().Sub(report.StartTime)
			runner.logStepFailed(task.Name, stepDuration, stepError, skippedNames)
			return report, StepFailedError{Step: task.Name, Cause: stepError}
		}

		report.Steps = append(report.Steps, StepRecord{Name: task.Name, Status: StepStatusSucceeded, Duration: stepDuration})
		runner.logStepCompleted(task.Name, stepDuration)
	}

	report.Duration = runner.clock().Sub(report.StartTime)
	runner.logger.Debug(sequenceCompletedMessageConstant, zap.Duration(durationFieldNameConstant, report.Duration))
	return report, nil
}

func (runner *Runner) logStepStarted(stepName string) {
	if runner.humanReadableLogging {
		runner.logger.Info(fmt.Sprintf(stepStartedHumanTemplateConstant, stepName))
		return
	}
	runner.logger.Info(stepStartedMessageConstant, zap.String(stepFieldNameConstant, stepName))
}

func (runner *Runner) logStepCompleted(stepName string, duration time.Duration) {
	if runner.humanReadableLogging {
		runner.logger.Info(fmt.Sprintf(stepCompletedHumanTemplateConstant, stepName, duration.Round(time.Millisecond)))
		return
	}
	runner.logger.Info(stepCompletedMessageConstant, zap.String(stepFieldNameConstant, stepName), zap.Duration(durationFieldNameConstant, duration))
}

func (runner *Runner) logStepFailed(stepName string, duration time.Duration, stepError error, skippedNames []string) {
	if runner.humanReadableLogging {
		runner.logger.Error(fmt.Sprintf(stepFailedHumanTemplateConstant, stepName, duration.Round(time.Millisecond), stepError))
		if len(skippedNames) > 0 {
			runner.logger.Warn(fmt.Sprintf(sequenceSkippedHumanTemplateConstant, strings.Join(skippedNames, ", ")))
		}
		return
	}
	runner.logger.Error(stepFailedMessageConstant,
		zap.String(stepFieldNameConstant, stepName),
		zap.Duration(durationFieldNameConstant, duration),
		zap.Error(stepError),
	)
	runner.logger.Warn(sequenceFailedMessageConstant, zap.Strings(skippedFieldNameConstant, skippedNames))
}
