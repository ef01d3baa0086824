package environment

import (
	"strings"
)

// Default environment variable names consulted when capturing a snapshot.
const (
	DefaultContinuousIntegrationVariable = "TRAVIS"
	DefaultBuildNumberVariable           = "TRAVIS_BUILD_NUMBER"
	DefaultBuildIdentifierVariable       = "TRAVIS_BUILD_ID"
	DefaultJobNumberVariable             = "TRAVIS_JOB_NUMBER"
	DefaultGridAccessKeyVariable         = "SAUCE_ACCESS_KEY"
)

// LookupFunc resolves an environment variable, reporting whether it is set.
type LookupFunc func(name string) (string, bool)

// VariableNames selects the environment variables that carry each signal.
type VariableNames struct {
	ContinuousIntegration string `mapstructure:"continuous_integration"`
	BuildNumber           string `mapstructure:"build_number"`
	BuildIdentifier       string `mapstructure:"build_id"`
	JobNumber             string `mapstructure:"job_number"`
	GridAccessKey         string `mapstructure:"grid_access_key"`
}

// DefaultVariableNames returns the variable names used by Travis CI and Sauce Labs.
func DefaultVariableNames() VariableNames {
	return VariableNames{
		ContinuousIntegration: DefaultContinuousIntegrationVariable,
		BuildNumber:           DefaultBuildNumberVariable,
		BuildIdentifier:       DefaultBuildIdentifierVariable,
		JobNumber:             DefaultJobNumberVariable,
		GridAccessKey:         DefaultGridAccessKeyVariable,
	}
}

// Sanitize fills blank names with defaults.
func (names VariableNames) Sanitize() VariableNames {
	defaults := DefaultVariableNames()
	sanitized := VariableNames{
		ContinuousIntegration: fallback(names.ContinuousIntegration, defaults.ContinuousIntegration),
		BuildNumber:           fallback(names.BuildNumber, defaults.BuildNumber),
		BuildIdentifier:       fallback(names.BuildIdentifier, defaults.BuildIdentifier),
		JobNumber:             fallback(names.JobNumber, defaults.JobNumber),
		GridAccessKey:         fallback(names.GridAccessKey, defaults.GridAccessKey),
	}
	return sanitized
}

// Snapshot holds the environment signals of one invocation. It is captured once and passed by value.
type Snapshot struct {
	ContinuousIntegration bool
	BuildNumber           string
	BuildIdentifier       string
	JobNumber             string
	GridAccessKey         string
	GridAccessKeyPresent  bool
}

// Capture reads the configured variables through lookup. A continuous-integration variable counts as
// present when it is set to any non-empty value.
func Capture(lookup LookupFunc, names VariableNames) Snapshot {
	if lookup == nil {
		return Snapshot{}
	}
	names = names.Sanitize()

	read := func(name string) (string, bool) {
		value, present := lookup(name)
		return strings.TrimSpace(value), present
	}

	ciValue, _ := read(names.ContinuousIntegration)
	buildNumber, _ := read(names.BuildNumber)
	buildIdentifier, _ := read(names.BuildIdentifier)
	jobNumber, _ := read(names.JobNumber)
	accessKey, accessKeyPresent := read(names.GridAccessKey)

	return Snapshot{
		ContinuousIntegration: len(ciValue) > 0,
		BuildNumber:           buildNumber,
		BuildIdentifier:       buildIdentifier,
		JobNumber:             jobNumber,
		GridAccessKey:         accessKey,
		GridAccessKeyPresent:  accessKeyPresent && len(accessKey) > 0,
	}
}

func fallback(value string, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return defaultValue
	}
	return trimmed
}
