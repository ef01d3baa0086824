package taskgraph

type visitState int

const (
	visitStateUnvisited visitState = iota
	visitStateOnStack
	visitStateDone
)

// Validate checks that every prerequisite is registered and that the prerequisite graph is acyclic.
// Validation executes no actions.
func (registry *Registry) Validate() error {
	order, tasks := registry.snapshot()

	for _, taskName := range order {
		for _, dependencyName := range tasks[taskName].Dependencies {
			if _, exists := tasks[dependencyName]; !exists {
				return UnknownDependencyError{TaskName: taskName, DependencyName: dependencyName}
			}
		}
	}

	_, cyclePath := postOrder(order, tasks, order)
	if len(cyclePath) > 0 {
		return CyclicDependencyError{Path: cyclePath}
	}
	return nil
}

// TopologicalOrder lists every task after all of its prerequisites. Ties follow registration order.
func (registry *Registry) TopologicalOrder() ([]string, error) {
	if validationError := registry.Validate(); validationError != nil {
		return nil, validationError
	}
	order, tasks := registry.snapshot()
	ordered, _ := postOrder(order, tasks, order)
	return ordered, nil
}

// Prerequisites returns the transitive prerequisites of the named task, dependencies first,
// followed by the task itself.
func (registry *Registry) Prerequisites(name string) ([]string, error) {
	task, lookupError := registry.Lookup(name)
	if lookupError != nil {
		return nil, lookupError
	}
	if validationError := registry.Validate(); validationError != nil {
		return nil, validationError
	}
	order, tasks := registry.snapshot()
	ordered, _ := postOrder(order, tasks, []string{task.Name})
	return ordered, nil
}

// postOrder walks the graph depth first from the provided roots and returns tasks in
// dependency-first order. When a task still on the traversal stack is reached again the
// walk stops and the cycle path is returned instead.
func postOrder(order []string, tasks map[string]Task, roots []string) ([]string, []string) {
	states := make(map[string]visitState, len(order))
	stack := make([]string, 0, len(order))
	ordered := make([]string, 0, len(order))
	var cyclePath []string

	var visit func(taskName string) bool
	visit = func(taskName string) bool {
		switch states[taskName] {
		case visitStateDone:
			return true
		case visitStateOnStack:
			cyclePath = extractCycle(stack, taskName)
			return false
		}

		states[taskName] = visitStateOnStack
		stack = append(stack, taskName)
		for _, dependencyName := range tasks[taskName].Dependencies {
			if _, exists := tasks[dependencyName]; !exists {
				continue
			}
			if !visit(dependencyName) {
				return false
			}
		}
		stack = stack[:len(stack)-1]
		states[taskName] = visitStateDone
		ordered = append(ordered, taskName)
		return true
	}

	for _, rootName := range roots {
		if !visit(rootName) {
			return nil, cyclePath
		}
	}
	return ordered, nil
}

func extractCycle(stack []string, repeatedTask string) []string {
	for stackIndex := range stack {
		if stack[stackIndex] != repeatedTask {
			continue
		}
		cycle := make([]string, 0, len(stack)-stackIndex+1)
		cycle = append(cycle, stack[stackIndex:]...)
		return append(cycle, repeatedTask)
	}
	return []string{repeatedTask, repeatedTask}
}
