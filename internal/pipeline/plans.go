package pipeline

import (
	"sort"
	"strings"
)

// PlanCatalog maps plan names to their ordered entries. An entry names either a task or another plan.
type PlanCatalog struct {
	plans map[string][]string
}

// NewPlanCatalog copies the provided definitions into a catalog. Blank entries are dropped.
func NewPlanCatalog(definitions map[string][]string) PlanCatalog {
	plans := make(map[string][]string, len(definitions))
	for planName, entries := range definitions {
		normalizedName := strings.TrimSpace(planName)
		if len(normalizedName) == 0 {
			continue
		}
		sanitizedEntries := make([]string, 0, len(entries))
		for _, entry := range entries {
			trimmedEntry := strings.TrimSpace(entry)
			if len(trimmedEntry) == 0 {
				continue
			}
			sanitizedEntries = append(sanitizedEntries, trimmedEntry)
		}
		plans[normalizedName] = sanitizedEntries
	}
	return PlanCatalog{plans: plans}
}

// Has reports whether the catalog defines the named plan.
func (catalog PlanCatalog) Has(planName string) bool {
	_, exists := catalog.plans[strings.TrimSpace(planName)]
	return exists
}

// Names lists plan names alphabetically.
func (catalog PlanCatalog) Names() []string {
	names := make([]string, 0, len(catalog.plans))
	for planName := range catalog.plans {
		names = append(names, planName)
	}
	sort.Strings(names)
	return names
}

// Entries returns the unexpanded entries of a plan.
func (catalog PlanCatalog) Entries(planName string) ([]string, error) {
	entries, exists := catalog.plans[strings.TrimSpace(planName)]
	if !exists {
		return nil, UnknownPlanError{PlanName: strings.TrimSpace(planName)}
	}
	return append([]string(nil), entries...), nil
}

// Resolve expands a plan into a sequence of task names, inlining referenced plans in place.
// Task names are not deduplicated: a plan that lists a task twice runs it twice.
func (catalog PlanCatalog) Resolve(planName string) (SequencePlan, error) {
	normalizedName := strings.TrimSpace(planName)
	if !catalog.Has(normalizedName) {
		return nil, UnknownPlanError{PlanName: normalizedName}
	}
	resolved := make(SequencePlan, 0)
	if expansionError := catalog.expand(normalizedName, []string{}, &resolved); expansionError != nil {
		return nil, expansionError
	}
	if len(resolved) == 0 {
		return nil, ErrEmptySequence
	}
	return resolved, nil
}

func (catalog PlanCatalog) expand(planName string, ancestry []string, resolved *SequencePlan) error {
	for ancestorIndex, ancestor := range ancestry {
		if ancestor == planName {
			cyclePath := append(append([]string{}, ancestry[ancestorIndex:]...), planName)
			return PlanCycleError{Path: cyclePath}
		}
	}
	ancestry = append(ancestry, planName)

	for _, entry := range catalog.plans[planName] {
		if catalog.Has(entry) {
			if expansionError := catalog.expand(entry, ancestry, resolved); expansionError != nil {
				return expansionError
			}
			continue
		}
		*resolved = append(*resolved, entry)
	}
	return nil
}
