package externals

import "sort"

// Resolver evaluates an immutable, ordered rule table. The first matching rule wins.
type Resolver struct {
	rules []Rule
}

// RuleDescription is a serialisable view of one rule.
type RuleDescription struct {
	Matcher    string `yaml:"matcher"`
	Shape      Shape  `yaml:"shape"`
	GlobalPath string `yaml:"global_path"`
}

// NewResolver builds a resolver over a copy of rules. Additional namespace rules are placed
// ahead of the defaults so configuration can claim a request before any pattern sees it.
func NewResolver(additional []NamespaceRule, rules ...Rule) (*Resolver, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	table := make([]Rule, 0, len(additional)+len(rules))
	for _, namespaceRule := range additional {
		rule, ruleError := namespaceRule.Rule()
		if ruleError != nil {
			return nil, ruleError
		}
		table = append(table, rule)
	}
	for _, rule := range rules {
		rule.Root = append([]string(nil), rule.Root...)
		table = append(table, rule)
	}
	return &Resolver{rules: table}, nil
}

// Resolve returns the descriptor for request, or false when the request should be bundled normally.
func (resolver *Resolver) Resolve(request string) (Descriptor, bool) {
	for _, rule := range resolver.rules {
		if rule.Matcher == nil || !rule.Matcher.Matches(request) {
			continue
		}
		return rule.descriptorFor(request), true
	}
	return Descriptor{}, false
}

// ResolveAll maps every externalized request to its descriptor, skipping requests bundled normally.
func (resolver *Resolver) ResolveAll(requests []string) map[string]Descriptor {
	resolved := make(map[string]Descriptor)
	for _, request := range requests {
		if descriptor, external := resolver.Resolve(request); external {
			resolved[request] = descriptor
		}
	}
	return resolved
}

// Describe lists the rules in evaluation order.
func (resolver *Resolver) Describe() []RuleDescription {
	descriptions := make([]RuleDescription, 0, len(resolver.rules))
	for _, rule := range resolver.rules {
		if rule.Matcher == nil {
			continue
		}
		descriptions = append(descriptions, RuleDescription{
			Matcher:    rule.Matcher.Describe(),
			Shape:      rule.Shape,
			GlobalPath: newDescriptor(rule.Root, "", rule.Shape).GlobalPath(),
		})
	}
	return descriptions
}

// SortedRequests returns the keys of a resolved map in lexical order.
func SortedRequests(resolved map[string]Descriptor) []string {
	requests := make([]string, 0, len(resolved))
	for request := range resolved {
		requests = append(requests, request)
	}
	sort.Strings(requests)
	return requests
}
