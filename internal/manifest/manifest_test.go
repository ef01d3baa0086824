package manifest_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/buildpipe/internal/manifest"
)

const (
	manifestSubtestNameTemplateConstant = "%d_%s"
	testSourceManifestConstant          = `{
  "name": "ngx-toggle-workspace",
  "version": "1.2.3",
  "description": "Toggle component",
  "keywords": ["angular", "toggle"],
  "license": "MIT",
  "scripts": {"build": "buildpipe run build"},
  "dependencies": {"x": "^1.0.0", "@angular/core": ">=4.0.0 <6"},
  "devDependencies": {"typescript": "~2.4.0"}
}`
	expectedRenderedManifestConstant = `{
  "name": "@telenia/ngx-toggle",
  "version": "1.2.3",
  "description": "Toggle component",
  "keywords": [
    "angular",
    "toggle"
  ],
  "license": "MIT",
  "main": "bundles/ngx-toggle.js",
  "module": "index.js",
  "typings": "index.d.ts",
  "peerDependencies": {
    "x": "^1.0.0",
    "@angular/core": ">=4.0.0 <6"
  }
}
`
)

func TestGenerateCopiesPeerDependenciesVerbatim(testInstance *testing.T) {
	generated, generationError := manifest.Generate([]byte(`{"version":"1.0.0","dependencies":{"x":"^1.0.0"}}`), manifest.Options{})
	require.NoError(testInstance, generationError)

	peerDependencies, decodeError := generated.PeerDependencies()
	require.NoError(testInstance, decodeError)
	require.Equal(testInstance, map[string]string{"x": "^1.0.0"}, peerDependencies)

	raw, present := generated.Lookup("peerDependencies")
	require.True(testInstance, present)
	require.JSONEq(testInstance, `{"x":"^1.0.0"}`, string(raw))
}

func TestGenerateRendersOrderedManifest(testInstance *testing.T) {
	generated, generationError := manifest.Generate([]byte(testSourceManifestConstant), manifest.DefaultOptions())
	require.NoError(testInstance, generationError)

	rendered, renderError := generated.Render()
	require.NoError(testInstance, renderError)
	require.Equal(testInstance, expectedRenderedManifestConstant, string(rendered))
	require.NoError(testInstance, generated.CheckVersion())

	keys := make([]string, 0)
	for _, field := range generated.Fields() {
		keys = append(keys, field.Key)
	}
	require.NotContains(testInstance, keys, "scripts")
	require.NotContains(testInstance, keys, "devDependencies")
}

func TestGenerateHonorsOptions(testInstance *testing.T) {
	options := manifest.Options{Name: "@acme/widget", Main: "bundles/widget.js", CopiedFields: []string{"license", " "}}
	generated, generationError := manifest.Generate([]byte(`{"license":"MIT","version":"2.0.0"}`), options)
	require.NoError(testInstance, generationError)

	rendered, renderError := generated.Render()
	require.NoError(testInstance, renderError)
	require.JSONEq(testInstance, `{
		"name":    "@acme/widget",
		"license": "MIT",
		"main":    "bundles/widget.js",
		"module":  "index.js",
		"typings": "index.d.ts",
		"peerDependencies": {}
	}`, string(rendered))
	require.ErrorIs(testInstance, generated.CheckVersion(), manifest.ErrVersionMissing)
}

func TestGenerateRejectsMalformedSources(testInstance *testing.T) {
	testCases := []struct {
		name   string
		source string
	}{
		{name: "invalid json", source: `{"version":`},
		{name: "array document", source: `["version"]`},
		{name: "dependencies array", source: `{"dependencies":["x"]}`},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(manifestSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			_, generationError := manifest.Generate([]byte(testCase.source), manifest.Options{})
			require.Error(testInstance, generationError)
		})
	}
}

func TestCheckVersion(testInstance *testing.T) {
	testCases := []struct {
		name        string
		source      string
		expectValid bool
	}{
		{name: "release", source: `{"version":"1.2.3"}`, expectValid: true},
		{name: "prerelease", source: `{"version":"1.0.0-beta.2"}`, expectValid: true},
		{name: "partial", source: `{"version":"1.2"}`},
		{name: "not a version", source: `{"version":"latest"}`},
		{name: "not a string", source: `{"version":1}`},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(manifestSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			generated, generationError := manifest.Generate([]byte(testCase.source), manifest.Options{})
			require.NoError(testInstance, generationError)

			versionError := generated.CheckVersion()
			if testCase.expectValid {
				require.NoError(testInstance, versionError)
				return
			}
			var invalidVersion manifest.InvalidVersionError
			require.True(testInstance, errors.As(versionError, &invalidVersion))
		})
	}
}
