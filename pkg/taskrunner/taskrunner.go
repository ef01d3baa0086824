package taskrunner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/buildpipe/internal/pipeline"
)

// Executor runs sequence plans.
type Executor interface {
	Run(ctx context.Context, plan pipeline.SequencePlan) (pipeline.Report, error)
}

// Factory constructs an Executor given runner dependencies.
type Factory func(RunnerDependencies) Executor

// RunnerDependencies describes what a plan executor needs.
type RunnerDependencies struct {
	Tasks                pipeline.TaskLookup
	Logger               *zap.Logger
	HumanReadableLogging bool
	Errors               io.Writer
	DisableSummary       bool
}

// Resolve returns either the provided factory result or a default pipeline runner, wrapped so every
// run ends with a summary line.
func Resolve(factory Factory, dependencies RunnerDependencies) (Executor, error) {
	var base Executor
	if factory != nil {
		base = factory(dependencies)
	}
	if base == nil {
		runner, runnerError := pipeline.NewRunner(dependencies.Tasks, dependencies.Logger, dependencies.HumanReadableLogging)
		if runnerError != nil {
			return nil, runnerError
		}
		base = runner
	}
	return summaryExecutor{
		delegate:     base,
		dependencies: dependencies,
	}, nil
}

type summaryExecutor struct {
	delegate     Executor
	dependencies RunnerDependencies
}

func (executor summaryExecutor) Run(ctx context.Context, plan pipeline.SequencePlan) (pipeline.Report, error) {
	report, err := executor.delegate.Run(ctx, plan)
	executor.printSummary(report)
	return report, err
}

func (executor summaryExecutor) printSummary(report pipeline.Report) {
	if executor.dependencies.DisableSummary || executor.dependencies.Errors == nil {
		return
	}
	summary := RenderSummaryLine(report)
	if len(strings.TrimSpace(summary)) == 0 {
		return
	}
	fmt.Fprintln(executor.dependencies.Errors, summary)
}
