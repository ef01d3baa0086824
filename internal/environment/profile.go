package environment

import (
	"errors"
	"fmt"
	"strings"
)

const (
	gridAccessKeyMissingTemplateConstant = "grid execution requires the %s credential"
	buildIdentifierTemplateConstant      = "%s #%s (%s)"
	defaultBuildLabelConstant            = "TRAVIS"
	defaultTerseReporterConstant         = "dots"
	defaultGridReporterConstant          = "saucelabs"
	defaultHeadlessBrowserConstant       = "Firefox"
)

// ProfileKind names the selected test-execution profile.
type ProfileKind string

// Supported profiles.
const (
	ProfileLocal                 ProfileKind = "local"
	ProfileContinuousIntegration ProfileKind = "continuous-integration"
	ProfileBrowserGrid           ProfileKind = "browser-grid"
)

// ErrGridAccessKeyMissing is wrapped by ConfigurationError when grid execution lacks a credential.
var ErrGridAccessKeyMissing = errors.New("grid access key missing")

// ConfigurationError reports settings that make a test invocation impossible.
type ConfigurationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (configurationError ConfigurationError) Error() string {
	return configurationError.Message
}

// Unwrap exposes the underlying cause.
func (configurationError ConfigurationError) Unwrap() error {
	return configurationError.Cause
}

// Request captures the caller's test-execution intent.
type Request struct {
	Watch bool
	Grid  bool
}

// Settings holds the reporter and browser lists applied by each profile.
type Settings struct {
	ContinuousIntegrationReporters []string      `mapstructure:"ci_reporters"`
	ContinuousIntegrationBrowsers  []string      `mapstructure:"ci_browsers"`
	GridReporters                  []string      `mapstructure:"grid_reporters"`
	GridBrowsers                   []string      `mapstructure:"grid_browsers"`
	BuildLabel                     string        `mapstructure:"build_label"`
	Variables                      VariableNames `mapstructure:"variables"`
}

// DefaultSettings mirrors the historical Travis CI and Sauce Labs matrix.
func DefaultSettings() Settings {
	return Settings{
		ContinuousIntegrationReporters: []string{defaultTerseReporterConstant},
		ContinuousIntegrationBrowsers:  []string{defaultHeadlessBrowserConstant},
		GridReporters:                  []string{defaultTerseReporterConstant, defaultGridReporterConstant},
		GridBrowsers: []string{
			"SL_CHROME", "SL_FIREFOX", "SL_IE10", "SL_IE11", "SL_EDGE14", "SL_EDGE15", "SL_SAFARI10", "SL_SAFARI11",
		},
		BuildLabel: defaultBuildLabelConstant,
		Variables:  DefaultVariableNames(),
	}
}

// Sanitize replaces empty lists with defaults and keeps only the first continuous-integration browser.
func (settings Settings) Sanitize() Settings {
	defaults := DefaultSettings()
	sanitized := Settings{
		ContinuousIntegrationReporters: sanitizeList(settings.ContinuousIntegrationReporters, defaults.ContinuousIntegrationReporters),
		ContinuousIntegrationBrowsers:  sanitizeList(settings.ContinuousIntegrationBrowsers, defaults.ContinuousIntegrationBrowsers)[:1],
		GridReporters:                  sanitizeList(settings.GridReporters, defaults.GridReporters),
		GridBrowsers:                   sanitizeList(settings.GridBrowsers, defaults.GridBrowsers),
		BuildLabel:                     fallback(settings.BuildLabel, defaults.BuildLabel),
		Variables:                      settings.Variables.Sanitize(),
	}
	return sanitized
}

// GridSettings carries the browser-grid connection details.
type GridSettings struct {
	BuildIdentifier  string `json:"build,omitempty"`
	TunnelIdentifier string `json:"tunnelIdentifier,omitempty"`
	AccessKey        string `json:"-"`
}

// Profile is the resolved test-runner configuration. Empty reporter or browser lists
// leave the runner's own configuration in effect.
type Profile struct {
	Kind      ProfileKind   `json:"profile"`
	SingleRun bool          `json:"singleRun"`
	AutoWatch bool          `json:"autoWatch"`
	Reporters []string      `json:"reporters,omitempty"`
	Browsers  []string      `json:"browsers,omitempty"`
	Grid      *GridSettings `json:"sauceLabs,omitempty"`
}

// Resolve selects the profile for a request under the captured environment.
// Later rules override earlier ones: watch mode, then continuous integration, then grid execution.
func Resolve(request Request, snapshot Snapshot, settings Settings) (Profile, error) {
	settings = settings.Sanitize()

	profile := Profile{
		Kind:      ProfileLocal,
		SingleRun: !request.Watch,
		AutoWatch: request.Watch,
	}

	if snapshot.ContinuousIntegration {
		profile.Kind = ProfileContinuousIntegration
		profile.Reporters = copyList(settings.ContinuousIntegrationReporters)
		profile.Browsers = copyList(settings.ContinuousIntegrationBrowsers)
	}

	if !request.Grid {
		return profile, nil
	}

	if !snapshot.GridAccessKeyPresent || len(strings.TrimSpace(snapshot.GridAccessKey)) == 0 {
		return Profile{}, ConfigurationError{
			Message: fmt.Sprintf(gridAccessKeyMissingTemplateConstant, settings.Variables.GridAccessKey),
			Cause:   ErrGridAccessKeyMissing,
		}
	}

	profile.Kind = ProfileBrowserGrid
	profile.Reporters = copyList(settings.GridReporters)
	profile.Browsers = copyList(settings.GridBrowsers)
	profile.Grid = &GridSettings{AccessKey: ReverseCredential(snapshot.GridAccessKey)}

	if snapshot.ContinuousIntegration {
		profile.Grid.BuildIdentifier = fmt.Sprintf(buildIdentifierTemplateConstant, settings.BuildLabel, snapshot.BuildNumber, snapshot.BuildIdentifier)
		profile.Grid.TunnelIdentifier = snapshot.JobNumber
	}

	return profile, nil
}

// ChildEnvironment returns the variables a test-runner process needs for this profile.
// The credential is delivered in its de-obfuscated form under the configured variable name.
func (profile Profile) ChildEnvironment(names VariableNames) map[string]string {
	if profile.Grid == nil {
		return map[string]string{}
	}
	names = names.Sanitize()
	return map[string]string{names.GridAccessKey: profile.Grid.AccessKey}
}

func sanitizeList(values []string, defaults []string) []string {
	sanitized := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	if len(sanitized) == 0 {
		return copyList(defaults)
	}
	return sanitized
}

func copyList(values []string) []string {
	return append([]string(nil), values...)
}
