package buildtasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tyemirov/buildpipe/internal/environment"
	"github.com/tyemirov/buildpipe/internal/execshell"
)

const (
	compilerExecutableConstant     = "tsc"
	karmaExecutableConstant        = "karma"
	coverageExecutableConstant     = "remap-istanbul"
	profileVariableNameConstant    = "BUILDPIPE_KARMA_PROFILE"
	profileWrittenMessageConstant  = "test profile written"
	profileWrittenHumanTemplate    = "Using the %s test profile"
	profileFieldNameConstant       = "profile"
	watcherStartingMessageConstant = "first compilation finished; starting test watcher"
	watcherStartingHumanTemplate   = "First compilation finished, starting %s in watch mode"
	profileEncodeErrorTemplate     = "unable to encode test profile: %w"
	listSeparatorConstant          = ","
)

func (catalogue *Catalogue) buildTests(executionContext context.Context) error {
	_, compileError := catalogue.run(executionContext, catalogue.nodeBinary(compilerExecutableConstant), execshell.CommandDetails{})
	return compileError
}

func (catalogue *Catalogue) test(executionContext context.Context) error {
	result, testError := catalogue.startKarma(executionContext, catalogue.request)
	if testError != nil || result.Interrupted {
		return testError
	}
	return catalogue.remapCoverage(executionContext)
}

func (catalogue *Catalogue) gridTest(executionContext context.Context) error {
	_, testError := catalogue.startKarma(executionContext, environment.Request{Grid: true})
	return testError
}

func (catalogue *Catalogue) remapCoverage(executionContext context.Context) error {
	paths := catalogue.configuration.Paths
	_, remapError := catalogue.run(executionContext, catalogue.nodeBinary(coverageExecutableConstant), execshell.CommandDetails{
		Arguments: []string{"-i", paths.CoverageReport, "-o", paths.CoverageHTML, "-t", "html"},
	})
	return remapError
}

// testDrivenDevelopment runs the compiler in watch mode and starts the test watcher after the
// compiler's first output line. Either process ending stops the other.
func (catalogue *Catalogue) testDrivenDevelopment(executionContext context.Context) error {
	profile, profileError := catalogue.prepareProfile(environment.Request{Watch: true})
	if profileError != nil {
		return profileError
	}

	watchContext, stopWatching := context.WithCancel(executionContext)
	defer stopWatching()
	group, groupContext := errgroup.WithContext(watchContext)

	firstOutput := make(chan struct{})
	compilerFinished := make(chan struct{})
	var firstOutputOnce sync.Once

	group.Go(func() error {
		defer close(compilerFinished)
		_, compilerError := catalogue.run(groupContext, catalogue.nodeBinary(compilerExecutableConstant), execshell.CommandDetails{
			Arguments: []string{"-w"},
			LineHandler: func(line string) {
				catalogue.writeLine(line)
				firstOutputOnce.Do(func() { close(firstOutput) })
			},
		})
		stopWatching()
		return compilerError
	})

	group.Go(func() error {
		select {
		case <-firstOutput:
		case <-compilerFinished:
			return nil
		case <-groupContext.Done():
			return nil
		}
		catalogue.logInfo(watcherStartingMessageConstant, watcherStartingHumanTemplate, karmaExecutableConstant)
		_, karmaError := catalogue.runKarma(groupContext, profile)
		stopWatching()
		return karmaError
	})

	return group.Wait()
}

func (catalogue *Catalogue) startKarma(executionContext context.Context, request environment.Request) (execshell.ExecutionResult, error) {
	profile, profileError := catalogue.prepareProfile(request)
	if profileError != nil {
		return execshell.ExecutionResult{}, profileError
	}
	return catalogue.runKarma(executionContext, profile)
}

// prepareProfile resolves the test profile and writes it for the test-runner configuration file.
// A grid request without a credential fails here, before any process starts.
func (catalogue *Catalogue) prepareProfile(request environment.Request) (environment.Profile, error) {
	profile, resolveError := environment.Resolve(request, catalogue.snapshot, catalogue.configuration.Environment)
	if resolveError != nil {
		return environment.Profile{}, resolveError
	}
	encoded, encodeError := json.MarshalIndent(profile, "", "  ")
	if encodeError != nil {
		return environment.Profile{}, fmt.Errorf(profileEncodeErrorTemplate, encodeError)
	}
	if writeError := catalogue.writeProjectFile(catalogue.configuration.Paths.Profile, append(encoded, '\n')); writeError != nil {
		return environment.Profile{}, writeError
	}
	catalogue.logInfo(profileWrittenMessageConstant, profileWrittenHumanTemplate, profile.Kind, zap.String(profileFieldNameConstant, string(profile.Kind)))
	return profile, nil
}

func (catalogue *Catalogue) runKarma(executionContext context.Context, profile environment.Profile) (execshell.ExecutionResult, error) {
	childEnvironment := profile.ChildEnvironment(catalogue.configuration.Environment.Variables)
	childEnvironment[profileVariableNameConstant] = catalogue.projectPath(catalogue.configuration.Paths.Profile)
	return catalogue.run(executionContext, catalogue.nodeBinary(karmaExecutableConstant), execshell.CommandDetails{
		Arguments:            karmaArguments(catalogue.configuration.Tools.KarmaConfig, profile),
		EnvironmentVariables: childEnvironment,
	})
}

func karmaArguments(configurationFile string, profile environment.Profile) []string {
	arguments := []string{"start", configurationFile}
	if profile.SingleRun {
		arguments = append(arguments, "--single-run")
	} else {
		arguments = append(arguments, "--no-single-run")
	}
	if profile.AutoWatch {
		arguments = append(arguments, "--auto-watch")
	} else {
		arguments = append(arguments, "--no-auto-watch")
	}
	if len(profile.Reporters) > 0 {
		arguments = append(arguments, "--reporters", strings.Join(profile.Reporters, listSeparatorConstant))
	}
	if len(profile.Browsers) > 0 {
		arguments = append(arguments, "--browsers", strings.Join(profile.Browsers, listSeparatorConstant))
	}
	return arguments
}
