package buildtasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tyemirov/buildpipe/internal/execshell"
	"github.com/tyemirov/buildpipe/internal/externals"
	"github.com/tyemirov/buildpipe/internal/manifest"
)

const (
	aheadOfTimeCompilerConstant       = "ngc"
	bundlerExecutableConstant         = "webpack"
	changelogExecutableConstant       = "conventional-changelog"
	externalsEnvironmentVariable      = "BUILDPIPE_EXTERNALS"
	externalsWrittenMessageConstant   = "externals map written"
	externalsWrittenHumanTemplate     = "Externalized %d module request(s)"
	versionWarningMessageConstant     = "package version is not a valid semantic version"
	versionWarningHumanTemplate       = "WARNING: %v"
	manifestWrittenMessageConstant    = "package manifest written"
	manifestWrittenHumanTemplate      = "Wrote %s"
	requestsFieldNameConstant         = "requests"
	manifestReadErrorTemplate         = "unable to read %s: %w"
	readmeCopyErrorTemplate           = "unable to copy %s: %w"
	externalsEncodeErrorTemplate      = "unable to encode externals: %w"
	publishedManifestFileNameConstant = "package.json"
)

func (catalogue *Catalogue) compile(executionContext context.Context) error {
	_, compileError := catalogue.run(executionContext, catalogue.nodeBinary(aheadOfTimeCompilerConstant), execshell.CommandDetails{
		Arguments:          []string{"-p", catalogue.configuration.Tools.CompilerProject},
		EphemeralDirectory: catalogue.projectPath(catalogue.configuration.Paths.Ephemeral),
	})
	return compileError
}

// bundle computes the externals map for every module request in the compiled sources and hands it to
// the bundler through a JSON file named by BUILDPIPE_EXTERNALS.
func (catalogue *Catalogue) bundle(executionContext context.Context) error {
	resolved, resolveError := catalogue.ResolveExternals()
	if resolveError != nil {
		return resolveError
	}
	encoded, encodeError := json.MarshalIndent(resolved, "", "  ")
	if encodeError != nil {
		return fmt.Errorf(externalsEncodeErrorTemplate, encodeError)
	}
	externalsFile := catalogue.configuration.Bundle.ExternalsFile
	if writeError := catalogue.writeProjectFile(externalsFile, append(encoded, '\n')); writeError != nil {
		return writeError
	}
	catalogue.logInfo(externalsWrittenMessageConstant, externalsWrittenHumanTemplate, len(resolved), zap.Strings(requestsFieldNameConstant, externals.SortedRequests(resolved)))

	_, bundleError := catalogue.run(executionContext, catalogue.nodeBinary(bundlerExecutableConstant), execshell.CommandDetails{
		Arguments:            []string{"--config", catalogue.configuration.Bundle.Config},
		EnvironmentVariables: map[string]string{externalsEnvironmentVariable: catalogue.projectPath(externalsFile)},
	})
	return bundleError
}

// ResolveExternals scans the compiled sources and returns the descriptor of every externalized request.
func (catalogue *Catalogue) ResolveExternals() (map[string]externals.Descriptor, error) {
	resolver, resolverError := catalogue.Externals()
	if resolverError != nil {
		return nil, resolverError
	}
	requests, scanError := externals.ScanDirectory(catalogue.fileSystem, catalogue.projectPath(catalogue.configuration.Paths.CompiledTests))
	if scanError != nil {
		return nil, scanError
	}
	return resolver.ResolveAll(requests), nil
}

// Externals builds the resolver with the configured namespace rules ahead of the defaults.
func (catalogue *Catalogue) Externals() (*externals.Resolver, error) {
	return externals.NewResolver(catalogue.configuration.Bundle.Namespaces)
}

// GenerateManifest derives the publishable manifest from the project's source manifest.
func (catalogue *Catalogue) GenerateManifest() (manifest.Manifest, error) {
	sourcePath := catalogue.projectPath(catalogue.configuration.Paths.SourceManifest)
	source, readError := afero.ReadFile(catalogue.fileSystem, sourcePath)
	if readError != nil {
		return manifest.Manifest{}, fmt.Errorf(manifestReadErrorTemplate, sourcePath, readError)
	}
	generated, generateError := manifest.Generate(source, catalogue.configuration.Package)
	if generateError != nil {
		return manifest.Manifest{}, generateError
	}
	if versionError := generated.CheckVersion(); versionError != nil {
		catalogue.logWarn(versionWarningMessageConstant, versionWarningHumanTemplate, versionError, zap.Error(versionError))
	}
	return generated, nil
}

func (catalogue *Catalogue) packageManifest(context.Context) error {
	generated, generateError := catalogue.GenerateManifest()
	if generateError != nil {
		return generateError
	}
	rendered, renderError := generated.Render()
	if renderError != nil {
		return renderError
	}
	distribution := catalogue.configuration.Paths.Distribution
	manifestPath := filepath.Join(distribution, publishedManifestFileNameConstant)
	if writeError := catalogue.writeProjectFile(manifestPath, rendered); writeError != nil {
		return writeError
	}
	catalogue.logInfo(manifestWrittenMessageConstant, manifestWrittenHumanTemplate, manifestPath, zap.String(pathFieldNameConstant, catalogue.projectPath(manifestPath)))

	readme := catalogue.configuration.Paths.Readme
	readmeContents, readError := afero.ReadFile(catalogue.fileSystem, catalogue.projectPath(readme))
	if readError != nil {
		if errors.Is(readError, afero.ErrFileNotFound) {
			return nil
		}
		return fmt.Errorf(readmeCopyErrorTemplate, readme, readError)
	}
	return catalogue.writeProjectFile(filepath.Join(distribution, filepath.Base(readme)), readmeContents)
}

func (catalogue *Catalogue) changelog(executionContext context.Context) error {
	changelogFile := catalogue.configuration.Paths.Changelog
	_, changelogError := catalogue.run(executionContext, catalogue.nodeBinary(changelogExecutableConstant), execshell.CommandDetails{
		Arguments: []string{"-p", "angular", "-i", changelogFile, "-s", "-r", "1"},
	})
	return changelogError
}
