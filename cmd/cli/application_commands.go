package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tyemirov/buildpipe/internal/environment"
	"github.com/tyemirov/buildpipe/internal/externals"
	"github.com/tyemirov/buildpipe/internal/pipeline"
	"github.com/tyemirov/buildpipe/internal/taskgraph"
	flagutils "github.com/tyemirov/buildpipe/internal/utils/flags"
	rootutils "github.com/tyemirov/buildpipe/internal/utils/roots"
	"github.com/tyemirov/buildpipe/pkg/taskrunner"
)

const (
	runCommandUseNameConstant                = "run [plan|task]..."
	runCommandShortDescriptionConstant       = "Run plans or tasks in order, stopping at the first failure"
	runCommandLongDescriptionConstant        = "run expands each named plan into its tasks and executes the resulting sequence exactly as listed. Prerequisites of a named task are not run unless --with-prerequisites is given. Without arguments the default plan runs."
	runCommandAliasConstant                  = "r"
	defaultPlanNameConstant                  = "default"
	plansCommandUseNameConstant              = "plans"
	plansCommandShortDescriptionConstant     = "List the configured plans"
	tasksCommandUseNameConstant              = "tasks"
	tasksCommandShortDescriptionConstant     = "List registered tasks with their prerequisites"
	tasksYAMLFlagNameConstant                = "yaml"
	tasksYAMLFlagUsageConstant               = "Print the task graph as YAML"
	validateCommandUseNameConstant           = "validate"
	validateCommandShortDescriptionConstant  = "Check the task graph and every plan without running anything"
	validateCommandAliasConstant             = "check"
	externalsCommandUseNameConstant          = "externals [request]..."
	externalsCommandShortDescriptionConstant = "Show how module requests are externalized in the bundle"
	externalsCommandLongDescriptionConstant  = "externals resolves each request against the externalization rules. Without arguments it scans the compiled test tree for every request the bundle would see."
	externalsRulesFlagNameConstant           = "rules"
	externalsRulesFlagUsageConstant          = "Print the rule table in evaluation order"
	manifestCommandUseNameConstant           = "manifest"
	manifestCommandShortDescriptionConstant  = "Print the publishable package manifest"
	manifestOutputFlagNameConstant           = "output"
	manifestOutputFlagUsageConstant          = "Write the manifest to this path instead of standard output"
	manifestFilePermissionConstant           = 0o644
	versionCommandUseNameConstant            = "version"
	versionCommandShortDescriptionConstant   = "Print the application version"
	unknownTargetErrorTemplateConstant       = "unknown plan or task %q"
	planEntryUnknownErrorTemplateConstant    = "plan %q lists unknown task %q"
	planLineTemplateConstant                 = "%s: %s\n"
	taskLineTemplateConstant                 = "%-22s %s\n"
	taskAfterTemplateConstant                = "%-22s   after: %s\n"
	validationSummaryTemplateConstant        = "task graph valid: %d tasks, %d plans\n"
	manifestWrittenTemplateConstant          = "manifest written to %s\n"
	manifestWriteErrorTemplateConstant       = "unable to write manifest %s: %w"
	yamlIndentationConstant                  = 2
	listSeparatorConstant                    = ", "
)

// externalEntry is the serialised answer for one request.
type externalEntry struct {
	Request    string                `yaml:"request"`
	External   bool                  `yaml:"external"`
	Descriptor *externals.Descriptor `yaml:"descriptor,omitempty"`
}

func (application *Application) registerCommands(cobraCommand *cobra.Command) {
	runCommand := &cobra.Command{
		RunE: application.runTargets,
	}
	configureCommandMetadata(runCommand, runCommandUseNameConstant, runCommandShortDescriptionConstant, runCommandLongDescriptionConstant, runCommandAliasConstant)
	flagutils.BindExecutionFlags(runCommand, flagutils.ExecutionDefaults{}, flagutils.DefaultExecutionFlagDefinitions())

	plansCommand := &cobra.Command{
		Args: cobra.NoArgs,
		RunE: application.listPlans,
	}
	configureCommandMetadata(plansCommand, plansCommandUseNameConstant, plansCommandShortDescriptionConstant, "")

	tasksCommand := &cobra.Command{
		Args: cobra.NoArgs,
		RunE: application.listTasks,
	}
	configureCommandMetadata(tasksCommand, tasksCommandUseNameConstant, tasksCommandShortDescriptionConstant, "")
	tasksCommand.Flags().Bool(tasksYAMLFlagNameConstant, false, tasksYAMLFlagUsageConstant)

	validateCommand := &cobra.Command{
		Args: cobra.NoArgs,
		RunE: application.validateGraph,
	}
	configureCommandMetadata(validateCommand, validateCommandUseNameConstant, validateCommandShortDescriptionConstant, "", validateCommandAliasConstant)

	externalsCommand := &cobra.Command{
		RunE: application.describeExternals,
	}
	configureCommandMetadata(externalsCommand, externalsCommandUseNameConstant, externalsCommandShortDescriptionConstant, externalsCommandLongDescriptionConstant)
	externalsCommand.Flags().Bool(externalsRulesFlagNameConstant, false, externalsRulesFlagUsageConstant)

	manifestCommand := &cobra.Command{
		Args: cobra.NoArgs,
		RunE: application.printManifest,
	}
	configureCommandMetadata(manifestCommand, manifestCommandUseNameConstant, manifestCommandShortDescriptionConstant, "")
	manifestCommand.Flags().String(manifestOutputFlagNameConstant, "", manifestOutputFlagUsageConstant)

	versionCommand := &cobra.Command{
		Args: cobra.NoArgs,
		Run: func(command *cobra.Command, _ []string) {
			application.printVersion(command)
		},
	}
	configureCommandMetadata(versionCommand, versionCommandUseNameConstant, versionCommandShortDescriptionConstant, "")

	cobraCommand.AddCommand(runCommand, plansCommand, tasksCommand, validateCommand, externalsCommand, manifestCommand, versionCommand)
}

func (application *Application) planCatalog() pipeline.PlanCatalog {
	return application.configuration.PlanCatalog()
}

func (application *Application) buildInvocation(command *cobra.Command, request environment.Request) (taskrunner.DependenciesResult, error) {
	configuredRoot := application.configuration.Common.ProjectRoot
	if contextRoot, available := application.commandContextAccessor.ProjectRoot(command.Context()); available {
		configuredRoot = contextRoot
	}
	projectRoot, rootError := rootutils.Resolve(command, configuredRoot)
	if rootError != nil {
		return taskrunner.DependenciesResult{}, rootError
	}

	return taskrunner.BuildDependencies(
		taskrunner.DependenciesConfig{
			LoggerProvider:               application.runtimeLogger,
			HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
			CommandRunner:                application.commandRunner,
			FileSystem:                   application.fileSystem,
		},
		taskrunner.DependenciesOptions{
			Command:       command,
			ProjectRoot:   projectRoot,
			Snapshot:      application.environmentSnapshot,
			Request:       request,
			Configuration: application.configuration.Build,
		},
	)
}

func (application *Application) runTargets(command *cobra.Command, arguments []string) error {
	executionFlags, _ := flagutils.ResolveExecutionFlags(command)
	request := environment.Request{Watch: executionFlags.Watch, Grid: executionFlags.Grid}

	invocation, invocationError := application.buildInvocation(command, request)
	if invocationError != nil {
		return invocationError
	}

	targets := arguments
	if len(targets) == 0 {
		targets = []string{defaultPlanNameConstant}
	}
	sequence, sequenceError := resolveRunSequence(targets, application.planCatalog(), invocation.Registry, executionFlags.WithPrerequisites)
	if sequenceError != nil {
		return sequenceError
	}

	executor, executorError := taskrunner.Resolve(application.executorFactory, invocation.Runner)
	if executorError != nil {
		return executorError
	}
	_, runError := executor.Run(command.Context(), sequence)
	return runError
}

// resolveRunSequence turns command-line targets into the task sequence to execute. Plans win over
// tasks of the same name. With prerequisites enabled, each named task is preceded by the transitive
// prerequisites not already scheduled; named tasks themselves are never dropped.
func resolveRunSequence(targets []string, plans pipeline.PlanCatalog, registry *taskgraph.Registry, withPrerequisites bool) (pipeline.SequencePlan, error) {
	sequence := make(pipeline.SequencePlan, 0, len(targets))
	scheduled := make(map[string]struct{})

	for _, target := range targets {
		trimmedTarget := strings.TrimSpace(target)
		switch {
		case plans.Has(trimmedTarget):
			planSequence, planError := plans.Resolve(trimmedTarget)
			if planError != nil {
				return nil, planError
			}
			for _, taskName := range planSequence {
				scheduled[taskName] = struct{}{}
			}
			sequence = append(sequence, planSequence...)
		case registry.Contains(trimmedTarget):
			if withPrerequisites {
				prerequisites, prerequisiteError := registry.Prerequisites(trimmedTarget)
				if prerequisiteError != nil {
					return nil, prerequisiteError
				}
				for _, prerequisite := range prerequisites[:len(prerequisites)-1] {
					if _, already := scheduled[prerequisite]; already {
						continue
					}
					scheduled[prerequisite] = struct{}{}
					sequence = append(sequence, prerequisite)
				}
			}
			scheduled[trimmedTarget] = struct{}{}
			sequence = append(sequence, trimmedTarget)
		default:
			return nil, fmt.Errorf(unknownTargetErrorTemplateConstant, trimmedTarget)
		}
	}

	if len(sequence) == 0 {
		return nil, pipeline.ErrEmptySequence
	}
	return sequence, nil
}

func (application *Application) listPlans(command *cobra.Command, _ []string) error {
	plans := application.planCatalog()
	for _, planName := range plans.Names() {
		entries, entriesError := plans.Entries(planName)
		if entriesError != nil {
			return entriesError
		}
		fmt.Fprintf(command.OutOrStdout(), planLineTemplateConstant, planName, strings.Join(entries, listSeparatorConstant))
	}
	return nil
}

func (application *Application) listTasks(command *cobra.Command, _ []string) error {
	invocation, invocationError := application.buildInvocation(command, environment.Request{})
	if invocationError != nil {
		return invocationError
	}

	descriptions := invocation.Registry.Describe()
	if asYAML, _, _ := flagutils.BoolFlag(command, tasksYAMLFlagNameConstant); asYAML {
		rendered, renderError := taskgraph.RenderYAML(descriptions)
		if renderError != nil {
			return renderError
		}
		_, writeError := command.OutOrStdout().Write(rendered)
		return writeError
	}

	summaries := invocation.Catalogue.Descriptions()
	for _, description := range descriptions {
		fmt.Fprintf(command.OutOrStdout(), taskLineTemplateConstant, description.Name, summaries[description.Name])
		if len(description.After) > 0 {
			fmt.Fprintf(command.OutOrStdout(), taskAfterTemplateConstant, "", strings.Join(description.After, listSeparatorConstant))
		}
	}
	return nil
}

func (application *Application) validateGraph(command *cobra.Command, _ []string) error {
	invocation, invocationError := application.buildInvocation(command, environment.Request{})
	if invocationError != nil {
		return invocationError
	}

	if _, orderError := invocation.Registry.TopologicalOrder(); orderError != nil {
		return orderError
	}

	plans := application.planCatalog()
	var problems []error
	for _, planName := range plans.Names() {
		planSequence, planError := plans.Resolve(planName)
		if planError != nil {
			problems = append(problems, planError)
			continue
		}
		for _, taskName := range planSequence {
			if !invocation.Registry.Contains(taskName) {
				problems = append(problems, fmt.Errorf(planEntryUnknownErrorTemplateConstant, planName, taskName))
			}
		}
	}
	if len(problems) > 0 {
		return errors.Join(problems...)
	}

	fmt.Fprintf(command.OutOrStdout(), validationSummaryTemplateConstant, len(invocation.Registry.Names()), len(plans.Names()))
	return nil
}

func (application *Application) describeExternals(command *cobra.Command, arguments []string) error {
	invocation, invocationError := application.buildInvocation(command, environment.Request{})
	if invocationError != nil {
		return invocationError
	}

	resolver, resolverError := invocation.Catalogue.Externals()
	if resolverError != nil {
		return resolverError
	}

	if showRules, _, _ := flagutils.BoolFlag(command, externalsRulesFlagNameConstant); showRules {
		return writeYAML(command.OutOrStdout(), resolver.Describe())
	}

	if len(arguments) == 0 {
		resolved, scanError := invocation.Catalogue.ResolveExternals()
		if scanError != nil {
			return scanError
		}
		entries := make([]externalEntry, 0, len(resolved))
		for _, request := range externals.SortedRequests(resolved) {
			descriptor := resolved[request]
			entries = append(entries, externalEntry{Request: request, External: true, Descriptor: &descriptor})
		}
		return writeYAML(command.OutOrStdout(), entries)
	}

	entries := make([]externalEntry, 0, len(arguments))
	for _, request := range arguments {
		entry := externalEntry{Request: request}
		if descriptor, external := resolver.Resolve(request); external {
			entry.External = true
			entry.Descriptor = &descriptor
		}
		entries = append(entries, entry)
	}
	return writeYAML(command.OutOrStdout(), entries)
}

func (application *Application) printManifest(command *cobra.Command, _ []string) error {
	invocation, invocationError := application.buildInvocation(command, environment.Request{})
	if invocationError != nil {
		return invocationError
	}

	generated, generateError := invocation.Catalogue.GenerateManifest()
	if generateError != nil {
		return generateError
	}
	rendered, renderError := generated.Render()
	if renderError != nil {
		return renderError
	}

	outputPath, _, _ := flagutils.StringFlag(command, manifestOutputFlagNameConstant)
	if len(outputPath) == 0 {
		_, writeError := command.OutOrStdout().Write(rendered)
		return writeError
	}

	if writeError := afero.WriteFile(application.resolveFileSystem(), outputPath, rendered, manifestFilePermissionConstant); writeError != nil {
		return fmt.Errorf(manifestWriteErrorTemplateConstant, outputPath, writeError)
	}
	fmt.Fprintf(command.OutOrStdout(), manifestWrittenTemplateConstant, outputPath)
	return nil
}

func (application *Application) resolveFileSystem() afero.Fs {
	if application.fileSystem != nil {
		return application.fileSystem
	}
	return afero.NewOsFs()
}

func writeYAML(writer io.Writer, value any) error {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(yamlIndentationConstant)
	if encodeError := encoder.Encode(value); encodeError != nil {
		return encodeError
	}
	if closeError := encoder.Close(); closeError != nil {
		return closeError
	}
	_, writeError := writer.Write(buffer.Bytes())
	return writeError
}

func appendUnique(values []string, candidates ...string) []string {
	result := values
	for _, candidate := range candidates {
		trimmedCandidate := strings.TrimSpace(candidate)
		if len(trimmedCandidate) == 0 {
			continue
		}
		duplicate := false
		for _, existing := range result {
			if existing == trimmedCandidate {
				duplicate = true
				break
			}
		}
		if !duplicate {
			result = append(result, trimmedCandidate)
		}
	}
	return result
}

func configureCommandMetadata(command *cobra.Command, use string, shortDescription string, longDescription string, aliases ...string) {
	if command == nil {
		return
	}

	useValue := strings.TrimSpace(use)
	if len(useValue) > 0 {
		command.Use = useValue
	}

	shortValue := strings.TrimSpace(shortDescription)
	if len(shortValue) > 0 {
		command.Short = shortValue
	}

	longValue := strings.TrimSpace(longDescription)
	if len(longValue) > 0 {
		command.Long = longValue
	}

	command.Aliases = appendUnique(command.Aliases, aliases...)
}
