package taskrunner

import (
	"fmt"
	"strings"
	"time"

	"github.com/tyemirov/buildpipe/internal/pipeline"
)

// RenderSummaryLine returns the summary line printed after a sequence plan ran.
func RenderSummaryLine(report pipeline.Report) string {
	if len(report.Steps) == 0 {
		return ""
	}

	counts := map[pipeline.StepStatus]int{}
	for _, step := range report.Steps {
		counts[step.Status]++
	}

	parts := []string{fmt.Sprintf("Summary: steps=%d", len(report.Steps))}
	for _, status := range []pipeline.StepStatus{pipeline.StepStatusSucceeded, pipeline.StepStatusFailed, pipeline.StepStatusSkipped} {
		parts = append(parts, fmt.Sprintf("%s=%d", status, counts[status]))
	}

	if failure, failed := report.Failure(); failed {
		parts = append(parts, fmt.Sprintf("failed_step=%s", failure.Name))
	}

	parts = append(parts, fmt.Sprintf("duration_human=%s", report.Duration.Round(time.Millisecond)))
	parts = append(parts, fmt.Sprintf("duration_ms=%d", report.Duration.Milliseconds()))

	return strings.Join(parts, " ")
}
