package buildtasks

import (
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"

	"github.com/tyemirov/buildpipe/internal/environment"
	"github.com/tyemirov/buildpipe/internal/externals"
	"github.com/tyemirov/buildpipe/internal/manifest"
)

const (
	defaultDistributionDirectoryConstant  = "dist"
	defaultEphemeralDirectoryConstant     = "dist/waste"
	defaultCompiledTestsDirectoryConstant = "temp"
	defaultCoverageDirectoryConstant      = "coverage"
	defaultCoverageReportConstant         = "coverage/json/coverage-final.json"
	defaultCoverageHTMLDirectoryConstant  = "coverage/html"
	defaultDemoDistributionConstant       = "demo/dist"
	defaultPublishCacheDirectoryConstant  = ".publish"
	defaultProfileFileConstant            = "temp/karma.profile.json"
	defaultExternalsFileConstant          = "temp/externals.json"
	defaultCompilerProjectConstant        = "./tsconfig-es2015.json"
	defaultBundleConfigurationConstant    = "webpack.umd.js"
	defaultDemoConfigurationConstant      = "webpack.demo.js"
	defaultKarmaConfigurationConstant     = "karma.conf.js"
	defaultChangelogFileConstant          = "CHANGELOG.md"
	defaultReadmeFileConstant             = "README.md"
	defaultSourceManifestConstant         = "package.json"
	defaultLocalDocsFileConstant          = "local.docs.json"
	defaultDemoPortConstant               = 9090
	defaultDemoRemoteConstant             = "https://github.com/ngx-toggle/ngx-toggle.github.io.git"
	defaultDemoBranchConstant             = "master"
	defaultDocsGeneratorConstant          = "misc/api-doc-gen.js"
	defaultPlunkGeneratorConstant         = "misc/plunk-gen.js"
	taskOptionsDecodeTemplateConstant     = "invalid options for task %s: %w"
)

// Configuration collects the settings every catalogue task reads.
type Configuration struct {
	Paths       PathSettings              `mapstructure:"paths"`
	Tools       ToolSettings              `mapstructure:"tools"`
	Environment environment.Settings      `mapstructure:"environment"`
	Bundle      BundleSettings            `mapstructure:"bundle"`
	Package     manifest.Options          `mapstructure:"package"`
	Demo        DemoSettings              `mapstructure:"demo"`
	Tasks       map[string]map[string]any `mapstructure:"tasks"`
}

// PathSettings locates build inputs and outputs relative to the project root.
type PathSettings struct {
	Distribution   string `mapstructure:"dist"`
	Ephemeral      string `mapstructure:"ephemeral"`
	CompiledTests  string `mapstructure:"temp"`
	Coverage       string `mapstructure:"coverage"`
	CoverageReport string `mapstructure:"coverage_report"`
	CoverageHTML   string `mapstructure:"coverage_html"`
	DemoDist       string `mapstructure:"demo_dist"`
	PublishCache   string `mapstructure:"publish_cache"`
	Profile        string `mapstructure:"profile"`
	Changelog      string `mapstructure:"changelog"`
	Readme         string `mapstructure:"readme"`
	SourceManifest string `mapstructure:"manifest"`
	LocalDocs      string `mapstructure:"local_docs"`
}

// ToolSettings names the configuration files handed to external tools.
type ToolSettings struct {
	CompilerProject string `mapstructure:"compiler_project"`
	KarmaConfig     string `mapstructure:"karma_config"`
	Node            string `mapstructure:"node"`
}

// BundleSettings configures the UMD bundle step.
type BundleSettings struct {
	Config        string                    `mapstructure:"config"`
	ExternalsFile string                    `mapstructure:"externals_file"`
	Namespaces    []externals.NamespaceRule `mapstructure:"namespaces"`
}

// DemoSettings configures the demo site tasks.
type DemoSettings struct {
	Config         string `mapstructure:"config"`
	Port           int    `mapstructure:"port"`
	Remote         string `mapstructure:"remote"`
	Branch         string `mapstructure:"branch"`
	DocsGenerator  string `mapstructure:"docs_generator"`
	PlunkGenerator string `mapstructure:"plunk_generator"`
}

// DefaultConfiguration returns the layout of the component library repository.
func DefaultConfiguration() Configuration {
	return Configuration{
		Paths: PathSettings{
			Distribution:   defaultDistributionDirectoryConstant,
			Ephemeral:      defaultEphemeralDirectoryConstant,
			CompiledTests:  defaultCompiledTestsDirectoryConstant,
			Coverage:       defaultCoverageDirectoryConstant,
			CoverageReport: defaultCoverageReportConstant,
			CoverageHTML:   defaultCoverageHTMLDirectoryConstant,
			DemoDist:       defaultDemoDistributionConstant,
			PublishCache:   defaultPublishCacheDirectoryConstant,
			Profile:        defaultProfileFileConstant,
			Changelog:      defaultChangelogFileConstant,
			Readme:         defaultReadmeFileConstant,
			SourceManifest: defaultSourceManifestConstant,
			LocalDocs:      defaultLocalDocsFileConstant,
		},
		Tools: ToolSettings{
			CompilerProject: defaultCompilerProjectConstant,
			KarmaConfig:     defaultKarmaConfigurationConstant,
			Node:            "node",
		},
		Environment: environment.DefaultSettings(),
		Bundle: BundleSettings{
			Config:        defaultBundleConfigurationConstant,
			ExternalsFile: defaultExternalsFileConstant,
		},
		Package: manifest.DefaultOptions(),
		Demo: DemoSettings{
			Config:         defaultDemoConfigurationConstant,
			Port:           defaultDemoPortConstant,
			Remote:         defaultDemoRemoteConstant,
			Branch:         defaultDemoBranchConstant,
			DocsGenerator:  defaultDocsGeneratorConstant,
			PlunkGenerator: defaultPlunkGeneratorConstant,
		},
	}
}

// Sanitize fills blank settings with defaults.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	paths := configuration.Paths
	sanitized := Configuration{
		Paths: PathSettings{
			Distribution:   fallback(paths.Distribution, defaults.Paths.Distribution),
			Ephemeral:      fallback(paths.Ephemeral, defaults.Paths.Ephemeral),
			CompiledTests:  fallback(paths.CompiledTests, defaults.Paths.CompiledTests),
			Coverage:       fallback(paths.Coverage, defaults.Paths.Coverage),
			CoverageReport: fallback(paths.CoverageReport, defaults.Paths.CoverageReport),
			CoverageHTML:   fallback(paths.CoverageHTML, defaults.Paths.CoverageHTML),
			DemoDist:       fallback(paths.DemoDist, defaults.Paths.DemoDist),
			PublishCache:   fallback(paths.PublishCache, defaults.Paths.PublishCache),
			Profile:        fallback(paths.Profile, defaults.Paths.Profile),
			Changelog:      fallback(paths.Changelog, defaults.Paths.Changelog),
			Readme:         fallback(paths.Readme, defaults.Paths.Readme),
			SourceManifest: fallback(paths.SourceManifest, defaults.Paths.SourceManifest),
			LocalDocs:      fallback(paths.LocalDocs, defaults.Paths.LocalDocs),
		},
		Tools: ToolSettings{
			CompilerProject: fallback(configuration.Tools.CompilerProject, defaults.Tools.CompilerProject),
			KarmaConfig:     fallback(configuration.Tools.KarmaConfig, defaults.Tools.KarmaConfig),
			Node:            fallback(configuration.Tools.Node, defaults.Tools.Node),
		},
		Environment: configuration.Environment.Sanitize(),
		Bundle: BundleSettings{
			Config:        fallback(configuration.Bundle.Config, defaults.Bundle.Config),
			ExternalsFile: fallback(configuration.Bundle.ExternalsFile, defaults.Bundle.ExternalsFile),
			Namespaces:    append([]externals.NamespaceRule(nil), configuration.Bundle.Namespaces...),
		},
		Package: configuration.Package.Sanitize(),
		Demo: DemoSettings{
			Config:         fallback(configuration.Demo.Config, defaults.Demo.Config),
			Port:           configuration.Demo.Port,
			Remote:         fallback(configuration.Demo.Remote, defaults.Demo.Remote),
			Branch:         fallback(configuration.Demo.Branch, defaults.Demo.Branch),
			DocsGenerator:  fallback(configuration.Demo.DocsGenerator, defaults.Demo.DocsGenerator),
			PlunkGenerator: fallback(configuration.Demo.PlunkGenerator, defaults.Demo.PlunkGenerator),
		},
		Tasks: make(map[string]map[string]any, len(configuration.Tasks)),
	}
	if sanitized.Demo.Port <= 0 {
		sanitized.Demo.Port = defaults.Demo.Port
	}
	for taskName, options := range configuration.Tasks {
		sanitized.Tasks[strings.ToLower(strings.TrimSpace(taskName))] = options
	}
	return sanitized
}

// decodeTaskOptions overlays the configured options of taskName onto target.
func (configuration Configuration) decodeTaskOptions(taskName string, target any) error {
	options, configured := configuration.Tasks[taskName]
	if !configured || len(options) == 0 {
		return nil
	}
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if decoderError != nil {
		return fmt.Errorf(taskOptionsDecodeTemplateConstant, taskName, decoderError)
	}
	if decodeError := decoder.Decode(options); decodeError != nil {
		return fmt.Errorf(taskOptionsDecodeTemplateConstant, taskName, decodeError)
	}
	return nil
}

func fallback(value string, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return defaultValue
	}
	return trimmed
}
