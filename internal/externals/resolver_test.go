package externals_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/buildpipe/internal/externals"
)

const externalsSubtestNameTemplateConstant = "%d_%s"

func TestResolverResolvesRequests(testInstance *testing.T) {
	resolver, creationError := externals.NewResolver(nil)
	require.NoError(testInstance, creationError)

	testCases := []struct {
		name               string
		request            string
		expectExternal     bool
		expectedShape      externals.Shape
		expectedGlobalPath string
		expectedIdentifier string
	}{
		{
			name:               "operator augmentation",
			request:            "rxjs/add/operator/map",
			expectExternal:     true,
			expectedShape:      externals.ShapeAugmentation,
			expectedGlobalPath: "Rx.Observable.prototype",
			expectedIdentifier: "rxjs/add/operator/map",
		},
		{
			name:               "observable factory",
			request:            "rxjs/add/observable/of",
			expectExternal:     true,
			expectedShape:      externals.ShapeFactory,
			expectedGlobalPath: "Rx.Observable",
			expectedIdentifier: "rxjs/add/observable/of",
		},
		{
			name:               "library root",
			request:            "rxjs",
			expectExternal:     true,
			expectedShape:      externals.ShapeRoot,
			expectedGlobalPath: "Rx",
			expectedIdentifier: "rxjs",
		},
		{
			name:               "library sub path",
			request:            "rxjs/Subject",
			expectExternal:     true,
			expectedShape:      externals.ShapeRoot,
			expectedGlobalPath: "Rx",
			expectedIdentifier: "rxjs/Subject",
		},
		{
			name:               "framework namespace",
			request:            "@angular/core",
			expectExternal:     true,
			expectedShape:      externals.ShapeNamespace,
			expectedGlobalPath: "ng.core",
			expectedIdentifier: "@angular/core",
		},
		{
			name:               "companion namespace",
			request:            "@ng-bootstrap/ng-bootstrap",
			expectExternal:     true,
			expectedShape:      externals.ShapeNamespace,
			expectedGlobalPath: "@ng-bootstrap.ng-bootstrap",
			expectedIdentifier: "@ng-bootstrap/ng-bootstrap",
		},
		{
			name:    "unmatched library",
			request: "lodash",
		},
		{
			name:    "similar prefix is not the library",
			request: "rxjs-compat",
		},
		{
			name:    "unlisted framework namespace",
			request: "@angular/router",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(externalsSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			descriptor, external := resolver.Resolve(testCase.request)
			require.Equal(testInstance, testCase.expectExternal, external)
			if !testCase.expectExternal {
				require.Equal(testInstance, externals.Descriptor{}, descriptor)
				return
			}
			require.Equal(testInstance, testCase.expectedShape, descriptor.Shape)
			require.Equal(testInstance, testCase.expectedGlobalPath, descriptor.GlobalPath())
			require.Equal(testInstance, testCase.expectedIdentifier, descriptor.CommonJS)
			require.Equal(testInstance, testCase.expectedIdentifier, descriptor.CommonJS2)
			require.Equal(testInstance, testCase.expectedIdentifier, descriptor.AMD)
		})
	}
}

func TestResolverIsPure(testInstance *testing.T) {
	resolver, creationError := externals.NewResolver(nil)
	require.NoError(testInstance, creationError)

	first, _ := resolver.Resolve("rxjs/add/operator/map")
	first.Root[0] = "mutated"
	second, _ := resolver.Resolve("rxjs/add/operator/map")
	require.Equal(testInstance, []string{"Rx", "Observable", "prototype"}, second.Root)
}

func TestResolverFirstMatchWins(testInstance *testing.T) {
	rules := externals.DefaultRules()
	reordered := append([]externals.Rule{rules[len(rules)-1]}, rules[:len(rules)-1]...)

	resolver, creationError := externals.NewResolver(nil, reordered...)
	require.NoError(testInstance, creationError)

	descriptor, external := resolver.Resolve("rxjs/add/operator/map")
	require.True(testInstance, external)
	require.Equal(testInstance, externals.ShapeRoot, descriptor.Shape)
}

func TestResolverAcceptsConfiguredNamespaces(testInstance *testing.T) {
	resolver, creationError := externals.NewResolver([]externals.NamespaceRule{{Request: " lodash ", Root: []string{"_"}}})
	require.NoError(testInstance, creationError)

	descriptor, external := resolver.Resolve("lodash")
	require.True(testInstance, external)
	require.Equal(testInstance, "_", descriptor.GlobalPath())
	require.Equal(testInstance, "lodash", descriptor.AMD)

	_, creationError = externals.NewResolver([]externals.NamespaceRule{{Request: " "}})
	require.ErrorIs(testInstance, creationError, externals.ErrNamespaceRequestMissing)

	_, creationError = externals.NewResolver([]externals.NamespaceRule{{Request: "lodash"}})
	require.Error(testInstance, creationError)
}

func TestResolveAllProducesBundlerConfiguration(testInstance *testing.T) {
	resolver, creationError := externals.NewResolver(nil)
	require.NoError(testInstance, creationError)

	resolved := resolver.ResolveAll([]string{"@angular/core", "lodash", "rxjs/add/operator/map"})
	require.Equal(testInstance, []string{"@angular/core", "rxjs/add/operator/map"}, externals.SortedRequests(resolved))

	encoded, encodingError := json.Marshal(resolved["@angular/core"])
	require.NoError(testInstance, encodingError)
	require.JSONEq(testInstance, `{"root":["ng","core"],"commonjs":"@angular/core","commonjs2":"@angular/core","amd":"@angular/core"}`, string(encoded))
}

func TestResolverDescribeListsRulesInOrder(testInstance *testing.T) {
	resolver, creationError := externals.NewResolver(nil)
	require.NoError(testInstance, creationError)

	descriptions := resolver.Describe()
	require.Len(testInstance, descriptions, len(externals.DefaultRules()))
	require.Equal(testInstance, "exact @angular/core", descriptions[0].Matcher)
	require.Equal(testInstance, "pattern ^rxjs(/|$)", descriptions[len(descriptions)-1].Matcher)
	require.Equal(testInstance, "Rx", descriptions[len(descriptions)-1].GlobalPath)
}

func TestScanRequestsFindsModuleEdges(testInstance *testing.T) {
	source := `import { Component, Input } from '@angular/core';
import "rxjs/add/operator/map";
export { ToggleModule } from './toggle.module';
export * from "./toggle.component";
const lazy = import('./lazy');
var observable = require("rxjs/add/observable/of");
import { Component as Again } from '@angular/core';
`
	require.Equal(testInstance, []string{
		"@angular/core",
		"rxjs/add/operator/map",
		"./toggle.module",
		"./toggle.component",
		"./lazy",
		"rxjs/add/observable/of",
	}, externals.ScanRequests(source))
	require.Empty(testInstance, externals.ScanRequests("const value = 1;"))
}

func TestScanDirectoryCollectsJavaScriptRequests(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, afero.WriteFile(fileSystem, "temp/index.js", []byte(`export * from './toggle';`), 0o644))
	require.NoError(testInstance, afero.WriteFile(fileSystem, "temp/toggle.js", []byte(`import { NgModule } from '@angular/core';`), 0o644))
	require.NoError(testInstance, afero.WriteFile(fileSystem, "temp/toggle.d.ts", []byte(`import { X } from 'ignored';`), 0o644))

	requests, scanError := externals.ScanDirectory(fileSystem, "temp")
	require.NoError(testInstance, scanError)
	require.Equal(testInstance, []string{"./toggle", "@angular/core"}, requests)
}
