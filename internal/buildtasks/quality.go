package buildtasks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tyemirov/buildpipe/internal/execshell"
)

const (
	lintExecutableConstant           = "tslint"
	formatExecutableConstant         = "clang-format"
	noLintSourcesMessageConstant     = "no files matched the lint patterns"
	noLintSourcesHumanTemplate       = "Nothing to lint: %s"
	formatAdvisoryMessageConstant    = "files need formatting; this will fail the continuous build"
	formatAdvisoryHumanTemplate      = "NOTE: %d file(s) need formatting; this will be promoted to an ERROR in the continuous build"
	hygieneCleanMessageConstant      = "spec files checked"
	hygieneCleanHumanTemplate        = "Checked %d spec file(s)"
	formatGuidanceConstant           = "run clang-format on your change"
	formatViolationTemplateConstant  = "%d file(s) need formatting (%s): %s"
	hygieneViolationTemplateConstant = "%d focused or disabled spec(s): %s"
	hygieneLocationTemplateConstant  = "%s:%d %s"
	filesFieldNameConstant           = "files"
	countFieldNameConstant           = "count"
	patternsFieldNameConstant        = "patterns"
	formatReadErrorTemplateConstant  = "unable to read %s: %w"
	specReadErrorTemplateConstant    = "unable to read spec %s: %w"
)

// Only bare calls count; member calls such as element.fit( are ignored.
var (
	focusedSpecPattern  = regexp.MustCompile(`(?:^|[^.\w$])(fdescribe|fit|ddescribe|iit)\s*\(`)
	disabledSpecPattern = regexp.MustCompile(`(?:^|[^.\w$])(xdescribe|xit)\s*\(`)
)

// LintOptions configures the lint task.
type LintOptions struct {
	Config  string   `mapstructure:"config"`
	Format  string   `mapstructure:"format"`
	Sources []string `mapstructure:"sources"`
	Exclude []string `mapstructure:"exclude"`
}

// FormatOptions configures the format-check and format-report tasks.
type FormatOptions struct {
	Style   string   `mapstructure:"style"`
	Sources []string `mapstructure:"sources"`
}

// HygieneOptions configures the spec-hygiene-check task.
type HygieneOptions struct {
	Specs         []string `mapstructure:"specs"`
	AllowDisabled bool     `mapstructure:"allow_disabled"`
}

// FormatViolationError lists files whose contents differ from the formatter output.
type FormatViolationError struct {
	Files []string
}

// Error implements the error interface.
func (violationError FormatViolationError) Error() string {
	return fmt.Sprintf(formatViolationTemplateConstant, len(violationError.Files), formatGuidanceConstant, strings.Join(violationError.Files, ", "))
}

// SpecViolation locates one focused or disabled spec call.
type SpecViolation struct {
	File string
	Line int
	Call string
}

// SpecHygieneError lists focused or disabled spec calls.
type SpecHygieneError struct {
	Violations []SpecViolation
}

// Error implements the error interface.
func (hygieneError SpecHygieneError) Error() string {
	locations := make([]string, 0, len(hygieneError.Violations))
	for _, violation := range hygieneError.Violations {
		locations = append(locations, fmt.Sprintf(hygieneLocationTemplateConstant, violation.File, violation.Line, violation.Call))
	}
	return fmt.Sprintf(hygieneViolationTemplateConstant, len(hygieneError.Violations), strings.Join(locations, "; "))
}

func defaultLintOptions() LintOptions {
	return LintOptions{
		Config:  "tslint.json",
		Format:  "prose",
		Sources: []string{"src/**/*.ts", "demo/**/*.ts"},
		Exclude: []string{"demo/src/api-docs.ts"},
	}
}

func defaultFormatOptions() FormatOptions {
	return FormatOptions{
		Style:   "file",
		Sources: []string{"karma-test-shim.js", "misc/api-doc.js", "misc/api-doc.spec.js", "misc/demo-gen.js", "src/**/*.ts"},
	}
}

func defaultHygieneOptions() HygieneOptions {
	return HygieneOptions{Specs: []string{"src/**/*.spec.ts"}}
}

func (catalogue *Catalogue) lint(executionContext context.Context) error {
	options := defaultLintOptions()
	if decodeError := catalogue.configuration.decodeTaskOptions(TaskLint, &options); decodeError != nil {
		return decodeError
	}
	files, collectError := catalogue.collectFiles(options.Sources, options.Exclude)
	if collectError != nil {
		return collectError
	}
	if len(files) == 0 {
		catalogue.logWarn(noLintSourcesMessageConstant, noLintSourcesHumanTemplate, strings.Join(options.Sources, ", "), zap.Strings(patternsFieldNameConstant, options.Sources))
		return nil
	}
	arguments := append([]string{"--config", options.Config, "--format", options.Format}, files...)
	_, lintError := catalogue.run(executionContext, catalogue.nodeBinary(lintExecutableConstant), execshell.CommandDetails{Arguments: arguments})
	return lintError
}

func (catalogue *Catalogue) formatAction(enforce bool) func(context.Context) error {
	return func(executionContext context.Context) error {
		taskName := TaskFormatReport
		if enforce {
			taskName = TaskFormatCheck
		}
		options := defaultFormatOptions()
		if decodeError := catalogue.configuration.decodeTaskOptions(taskName, &options); decodeError != nil {
			return decodeError
		}
		unformatted, checkError := catalogue.findUnformatted(executionContext, options)
		if checkError != nil {
			return checkError
		}
		if len(unformatted) == 0 {
			return nil
		}
		if enforce {
			return FormatViolationError{Files: unformatted}
		}
		catalogue.logWarn(formatAdvisoryMessageConstant, formatAdvisoryHumanTemplate, len(unformatted), zap.Strings(filesFieldNameConstant, unformatted))
		return nil
	}
}

func (catalogue *Catalogue) findUnformatted(executionContext context.Context, options FormatOptions) ([]string, error) {
	files, collectError := catalogue.collectFiles(options.Sources, nil)
	if collectError != nil {
		return nil, collectError
	}
	unformatted := make([]string, 0)
	for _, relativePath := range files {
		original, readError := afero.ReadFile(catalogue.fileSystem, catalogue.projectPath(relativePath))
		if readError != nil {
			return nil, fmt.Errorf(formatReadErrorTemplateConstant, relativePath, readError)
		}
		result, formatError := catalogue.run(executionContext, catalogue.nodeBinary(formatExecutableConstant), execshell.CommandDetails{
			Arguments:   []string{"--style=" + options.Style, relativePath},
			LineHandler: func(string) {},
		})
		if formatError != nil {
			return nil, formatError
		}
		if result.Interrupted {
			return unformatted, executionContext.Err()
		}
		if result.StandardOutput != string(original) {
			unformatted = append(unformatted, relativePath)
		}
	}
	return unformatted, nil
}

func (catalogue *Catalogue) specHygieneCheck(context.Context) error {
	options := defaultHygieneOptions()
	if decodeError := catalogue.configuration.decodeTaskOptions(TaskSpecHygieneCheck, &options); decodeError != nil {
		return decodeError
	}
	specs, collectError := catalogue.collectFiles(options.Specs, nil)
	if collectError != nil {
		return collectError
	}
	violations := make([]SpecViolation, 0)
	for _, relativePath := range specs {
		contents, readError := afero.ReadFile(catalogue.fileSystem, catalogue.projectPath(relativePath))
		if readError != nil {
			return fmt.Errorf(specReadErrorTemplateConstant, relativePath, readError)
		}
		violations = append(violations, scanSpec(relativePath, string(contents), options.AllowDisabled)...)
	}
	if len(violations) > 0 {
		return SpecHygieneError{Violations: violations}
	}
	catalogue.logInfo(hygieneCleanMessageConstant, hygieneCleanHumanTemplate, len(specs), zap.Int(countFieldNameConstant, len(specs)))
	return nil
}

func scanSpec(relativePath string, contents string, allowDisabled bool) []SpecViolation {
	violations := make([]SpecViolation, 0)
	for lineIndex, line := range strings.Split(contents, "\n") {
		patterns := []*regexp.Regexp{focusedSpecPattern}
		if !allowDisabled {
			patterns = append(patterns, disabledSpecPattern)
		}
		for _, pattern := range patterns {
			for _, match := range pattern.FindAllStringSubmatch(line, -1) {
				violations = append(violations, SpecViolation{File: relativePath, Line: lineIndex + 1, Call: match[1]})
			}
		}
	}
	return violations
}
