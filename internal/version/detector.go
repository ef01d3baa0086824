package version

import (
	"context"
	"os"
	"runtime/debug"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/tyemirov/buildpipe/internal/execshell"
)

const (
	unknownVersionFallbackConstant            = "unknown"
	buildInfoDevelVersionValue                = "devel"
	gitCommandNameConstant                    = execshell.CommandName("git")
	gitDescribeSubcommandConstant             = "describe"
	gitTagsFlagConstant                       = "--tags"
	gitExactMatchFlagConstant                 = "--exact-match"
	gitLongFlagConstant                       = "--long"
	gitDirtyFlagConstant                      = "--dirty"
	gitTerminalPromptEnvironmentNameConstant  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentValueConstant = "0"
)

// InjectedVersion is set at link time with -ldflags "-X .../internal/version.InjectedVersion=v1.2.3".
var InjectedVersion string

// BuildInfoProvider exposes runtime build metadata.
type BuildInfoProvider interface {
	Read() (*debug.BuildInfo, bool)
}

// CommandExecutor runs a single external command.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Dependencies describes the collaborators used for version detection.
type Dependencies struct {
	BuildInfoProvider BuildInfoProvider
	Executor          CommandExecutor
	WorkingDirectory  string
	Injected          string
}

// Detector resolves the buildpipe version string. Sources are consulted in order: a link-time
// value, the module build information, then git tags of the checkout the binary runs from.
type Detector struct {
	buildInfoProvider BuildInfoProvider
	executor          CommandExecutor
	workingDirectory  string
	injected          string
}

// NewDetector constructs a Detector, filling unset dependencies with runtime defaults.
func NewDetector(dependencies Dependencies) *Detector {
	provider := dependencies.BuildInfoProvider
	if provider == nil {
		provider = runtimeBuildInfoProvider{}
	}

	workingDirectory := strings.TrimSpace(dependencies.WorkingDirectory)
	if len(workingDirectory) == 0 {
		if currentDirectory, workingDirectoryError := os.Getwd(); workingDirectoryError == nil {
			workingDirectory = currentDirectory
		}
	}

	injected := strings.TrimSpace(dependencies.Injected)
	if len(injected) == 0 {
		injected = strings.TrimSpace(InjectedVersion)
	}

	return &Detector{
		buildInfoProvider: provider,
		executor:          dependencies.Executor,
		workingDirectory:  workingDirectory,
		injected:          injected,
	}
}

// Detect resolves the version using the supplied dependencies.
func Detect(executionContext context.Context, dependencies Dependencies) string {
	return NewDetector(dependencies).Version(executionContext)
}

// Version returns the detected version string or "unknown".
func (detector *Detector) Version(executionContext context.Context) string {
	if detector == nil {
		return unknownVersionFallbackConstant
	}

	if len(detector.injected) > 0 {
		return canonicalTag(detector.injected)
	}

	if buildVersion := detector.versionFromBuildInfo(); len(buildVersion) > 0 {
		return buildVersion
	}

	if exactVersion := detector.describe(executionContext, gitExactMatchFlagConstant); len(exactVersion) > 0 {
		return canonicalTag(exactVersion)
	}

	if longVersion := detector.describe(executionContext, gitLongFlagConstant, gitDirtyFlagConstant); len(longVersion) > 0 {
		return longVersion
	}

	return unknownVersionFallbackConstant
}

func (detector *Detector) versionFromBuildInfo() string {
	buildInfo, available := detector.buildInfoProvider.Read()
	if !available || buildInfo == nil {
		return ""
	}

	trimmedVersion := strings.TrimSpace(buildInfo.Main.Version)
	if len(trimmedVersion) == 0 || strings.EqualFold(trimmedVersion, buildInfoDevelVersionValue) {
		return ""
	}
	return trimmedVersion
}

func (detector *Detector) describe(executionContext context.Context, extraFlags ...string) string {
	if detector.executor == nil || len(detector.workingDirectory) == 0 {
		return ""
	}

	arguments := append([]string{gitDescribeSubcommandConstant, gitTagsFlagConstant}, extraFlags...)
	executionResult, executionError := detector.executor.Execute(executionContext, execshell.ShellCommand{
		Name: gitCommandNameConstant,
		Details: execshell.CommandDetails{
			Arguments:            arguments,
			WorkingDirectory:     detector.workingDirectory,
			EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentValueConstant},
		},
	})
	if executionError != nil {
		return ""
	}
	return strings.TrimSpace(executionResult.StandardOutput)
}

// canonicalTag adds the "v" prefix to bare semantic versions such as "1.4.0".
func canonicalTag(value string) string {
	if semver.IsValid(value) {
		return value
	}
	if prefixed := "v" + value; semver.IsValid(prefixed) {
		return prefixed
	}
	return value
}

type runtimeBuildInfoProvider struct{}

func (runtimeBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}
