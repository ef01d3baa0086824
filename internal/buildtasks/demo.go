package buildtasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/tyemirov/buildpipe/internal/execshell"
	"github.com/tyemirov/buildpipe/internal/taskgraph"
)

const (
	devServerExecutableConstant = "webpack-dev-server"
	publisherExecutableConstant = "gh-pages"
	localDocsDecodeTemplate     = "unable to parse %s: %w"
)

type localDocsSettings struct {
	Port int `yaml:"port"`
}

func (catalogue *Catalogue) nodeScriptAction(script string) taskgraph.Action {
	return func(executionContext context.Context) error {
		_, scriptError := catalogue.run(executionContext, execshell.CommandName(catalogue.configuration.Tools.Node), execshell.CommandDetails{
			Arguments: []string{script},
		})
		return scriptError
	}
}

func (catalogue *Catalogue) demoServerAction(aheadOfTime bool) taskgraph.Action {
	return func(executionContext context.Context) error {
		port, portError := catalogue.DemoPort()
		if portError != nil {
			return portError
		}
		details := execshell.CommandDetails{
			Arguments: []string{"--mode", "development", "--port", strconv.Itoa(port), "--config", catalogue.configuration.Demo.Config, "--inline", "--progress"},
		}
		if aheadOfTime {
			details.EnvironmentVariables = map[string]string{modeVariableNameConstant: modeBuildValueConstant}
		}
		_, serverError := catalogue.run(executionContext, catalogue.nodeBinary(devServerExecutableConstant), details)
		return serverError
	}
}

func (catalogue *Catalogue) buildDemo(executionContext context.Context) error {
	_, buildError := catalogue.run(executionContext, catalogue.nodeBinary(bundlerExecutableConstant), execshell.CommandDetails{
		Arguments:            []string{"--mode", "production", "--config", catalogue.configuration.Demo.Config, "--bail"},
		EnvironmentVariables: map[string]string{modeVariableNameConstant: modeBuildValueConstant},
	})
	return buildError
}

func (catalogue *Catalogue) publishDemo(executionContext context.Context) error {
	demo := catalogue.configuration.Demo
	_, publishError := catalogue.run(executionContext, catalogue.nodeBinary(publisherExecutableConstant), execshell.CommandDetails{
		Arguments: []string{"-d", catalogue.configuration.Paths.DemoDist, "-r", demo.Remote, "-b", demo.Branch},
	})
	return publishError
}

// DemoPort returns the demo server port: the local docs file overrides the configured port.
func (catalogue *Catalogue) DemoPort() (int, error) {
	localDocsPath := catalogue.projectPath(catalogue.configuration.Paths.LocalDocs)
	contents, readError := afero.ReadFile(catalogue.fileSystem, localDocsPath)
	if readError != nil {
		if errors.Is(readError, afero.ErrFileNotFound) {
			return catalogue.configuration.Demo.Port, nil
		}
		return 0, readError
	}
	settings := localDocsSettings{}
	if decodeError := yaml.Unmarshal(contents, &settings); decodeError != nil {
		return 0, fmt.Errorf(localDocsDecodeTemplate, localDocsPath, decodeError)
	}
	if settings.Port <= 0 {
		return catalogue.configuration.Demo.Port, nil
	}
	return settings.Port, nil
}
