package taskgraph

import (
	"context"
	"strings"
	"sync"
)

// Action performs the work of a task and reports completion through its return value.
type Action func(executionContext context.Context) error

// Task is an immutable registry entry.
type Task struct {
	Name         string
	Dependencies []string
	Action       Action
}

// Registry stores named tasks in registration order.
type Registry struct {
	mutex sync.RWMutex
	order []string
	tasks map[string]Task
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register adds a task with its prerequisite names. Blank dependency names are ignored and duplicates collapse.
func (registry *Registry) Register(name string, dependencies []string, action Action) error {
	normalizedName := strings.TrimSpace(name)
	if len(normalizedName) == 0 {
		return ErrTaskNameMissing
	}
	if action == nil {
		return ErrTaskActionMissing
	}

	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if _, exists := registry.tasks[normalizedName]; exists {
		return DuplicateTaskError{TaskName: normalizedName}
	}

	sanitizedDependencies := make([]string, 0, len(dependencies))
	seenDependencies := make(map[string]struct{}, len(dependencies))
	for _, dependencyName := range dependencies {
		trimmedDependency := strings.TrimSpace(dependencyName)
		if len(trimmedDependency) == 0 {
			continue
		}
		if _, alreadyIncluded := seenDependencies[trimmedDependency]; alreadyIncluded {
			continue
		}
		seenDependencies[trimmedDependency] = struct{}{}
		sanitizedDependencies = append(sanitizedDependencies, trimmedDependency)
	}

	registry.tasks[normalizedName] = Task{
		Name:         normalizedName,
		Dependencies: sanitizedDependencies,
		Action:       action,
	}
	registry.order = append(registry.order, normalizedName)
	return nil
}

// Lookup returns the task registered under the provided name.
func (registry *Registry) Lookup(name string) (Task, error) {
	normalizedName := strings.TrimSpace(name)

	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	task, exists := registry.tasks[normalizedName]
	if !exists {
		return Task{}, UnknownTaskError{TaskName: normalizedName}
	}
	return cloneTask(task), nil
}

// Contains reports whether a task name is registered.
func (registry *Registry) Contains(name string) bool {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	_, exists := registry.tasks[strings.TrimSpace(name)]
	return exists
}

// Names lists task names in registration order.
func (registry *Registry) Names() []string {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	names := make([]string, len(registry.order))
	copy(names, registry.order)
	return names
}

func (registry *Registry) snapshot() ([]string, map[string]Task) {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	order := make([]string, len(registry.order))
	copy(order, registry.order)
	tasks := make(map[string]Task, len(registry.tasks))
	for name, task := range registry.tasks {
		tasks[name] = task
	}
	return order, tasks
}

func cloneTask(task Task) Task {
	dependencies := make([]string, len(task.Dependencies))
	copy(dependencies, task.Dependencies)
	task.Dependencies = dependencies
	return task
}
