package taskgraph

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

const yamlIndentationConstant = 2

// TaskDescription is the serialisable view of a registered task.
type TaskDescription struct {
	Name  string   `yaml:"name"`
	After []string `yaml:"after,omitempty"`
}

// Describe lists every task with its prerequisites in registration order.
func (registry *Registry) Describe() []TaskDescription {
	order, tasks := registry.snapshot()
	descriptions := make([]TaskDescription, 0, len(order))
	for _, taskName := range order {
		dependencies := tasks[taskName].Dependencies
		description := TaskDescription{Name: taskName}
		if len(dependencies) > 0 {
			description.After = append([]string(nil), dependencies...)
		}
		descriptions = append(descriptions, description)
	}
	return descriptions
}

// RenderYAML encodes task descriptions as a YAML sequence.
func RenderYAML(descriptions []TaskDescription) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(yamlIndentationConstant)
	if encodeError := encoder.Encode(descriptions); encodeError != nil {
		return nil, encodeError
	}
	if closeError := encoder.Close(); closeError != nil {
		return nil, closeError
	}
	return buffer.Bytes(), nil
}
