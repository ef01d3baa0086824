package externals

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	exactMatcherDescriptionTemplateConstant   = "exact %s"
	patternMatcherDescriptionTemplateConstant = "pattern %s"
	namespaceRequestMissingMessageConstant    = "externals namespace request not provided"
	namespaceRootMissingTemplateConstant      = "externals namespace %s has no root path"
	angularNamespacePrefixConstant            = "@angular/"
	angularGlobalNamespaceConstant            = "ng"
	bootstrapRequestConstant                  = "@ng-bootstrap/ng-bootstrap"
	reactiveGlobalNamespaceConstant           = "Rx"
	observableSegmentConstant                 = "Observable"
	prototypeSegmentConstant                  = "prototype"
	observableFactoryPatternConstant          = `^rxjs/add/observable/`
	operatorAugmentationPatternConstant       = `^rxjs/add/operator/`
	reactiveRootPatternConstant               = `^rxjs(/|$)`
)

// ErrNamespaceRequestMissing indicates a configured namespace rule without a request string.
var ErrNamespaceRequestMissing = errors.New(namespaceRequestMissingMessageConstant)

// Matcher decides whether a rule applies to a module request.
type Matcher interface {
	Matches(request string) bool
	Describe() string
}

// ExactMatcher matches one request string.
type ExactMatcher struct {
	Request string
}

// Matches reports whether request equals the configured request.
func (matcher ExactMatcher) Matches(request string) bool {
	return request == matcher.Request
}

// Describe renders the matcher for listings.
func (matcher ExactMatcher) Describe() string {
	return fmt.Sprintf(exactMatcherDescriptionTemplateConstant, matcher.Request)
}

// PatternMatcher matches requests against a regular expression.
type PatternMatcher struct {
	Pattern *regexp.Regexp
}

// Matches reports whether the pattern matches request.
func (matcher PatternMatcher) Matches(request string) bool {
	return matcher.Pattern != nil && matcher.Pattern.MatchString(request)
}

// Describe renders the matcher for listings.
func (matcher PatternMatcher) Describe() string {
	return fmt.Sprintf(patternMatcherDescriptionTemplateConstant, matcher.Pattern)
}

// Rule pairs a matcher with the descriptor it produces. An empty Identifier means the
// matched request string itself identifies the module for commonjs, commonjs2 and amd consumers.
type Rule struct {
	Matcher    Matcher
	Shape      Shape
	Root       []string
	Identifier string
}

func (rule Rule) descriptorFor(request string) Descriptor {
	identifier := rule.Identifier
	if len(identifier) == 0 {
		identifier = request
	}
	return newDescriptor(rule.Root, identifier, rule.Shape)
}

// NamespaceRule is the configuration form of an exact namespace rule.
type NamespaceRule struct {
	Request string   `mapstructure:"request"`
	Root    []string `mapstructure:"root"`
}

// Rule converts the configured namespace into an exact rule.
func (namespaceRule NamespaceRule) Rule() (Rule, error) {
	request := strings.TrimSpace(namespaceRule.Request)
	if len(request) == 0 {
		return Rule{}, ErrNamespaceRequestMissing
	}
	root := make([]string, 0, len(namespaceRule.Root))
	for _, segment := range namespaceRule.Root {
		trimmed := strings.TrimSpace(segment)
		if len(trimmed) > 0 {
			root = append(root, trimmed)
		}
	}
	if len(root) == 0 {
		return Rule{}, fmt.Errorf(namespaceRootMissingTemplateConstant, request)
	}
	return exactRule(request, root), nil
}

func exactRule(request string, root []string) Rule {
	return Rule{Matcher: ExactMatcher{Request: request}, Shape: ShapeNamespace, Root: root, Identifier: request}
}

// AngularNamespaceRule externalizes one @angular package under the ng global.
func AngularNamespaceRule(namespace string) Rule {
	return exactRule(angularNamespacePrefixConstant+namespace, []string{angularGlobalNamespaceConstant, namespace})
}

// DefaultRules returns the rule table for the component library: framework and companion namespaces
// first, then the reactive-extensions patterns from most to least specific.
func DefaultRules() []Rule {
	return []Rule{
		AngularNamespaceRule("core"),
		AngularNamespaceRule("common"),
		AngularNamespaceRule("forms"),
		exactRule(bootstrapRequestConstant, []string{"@ng-bootstrap", "ng-bootstrap"}),
		{
			Matcher: PatternMatcher{Pattern: regexp.MustCompile(observableFactoryPatternConstant)},
			Shape:   ShapeFactory,
			Root:    []string{reactiveGlobalNamespaceConstant, observableSegmentConstant},
		},
		{
			Matcher: PatternMatcher{Pattern: regexp.MustCompile(operatorAugmentationPatternConstant)},
			Shape:   ShapeAugmentation,
			Root:    []string{reactiveGlobalNamespaceConstant, observableSegmentConstant, prototypeSegmentConstant},
		},
		{
			Matcher: PatternMatcher{Pattern: regexp.MustCompile(reactiveRootPatternConstant)},
			Shape:   ShapeRoot,
			Root:    []string{reactiveGlobalNamespaceConstant},
		},
	}
}
