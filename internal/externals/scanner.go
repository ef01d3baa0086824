package externals

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	javaScriptExtensionConstant     = ".js"
	scanReadFailureTemplateConstant = "unable to read %s: %w"
)

var requestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:import|export)\s[^'";]*?\bfrom\s*['"]([^'"\n]+)['"]`),
	regexp.MustCompile(`\bimport\s*['"]([^'"\n]+)['"]`),
	regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"\n]+)['"]\s*\)`),
	regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"\n]+)['"]\s*\)`),
}

type requestOccurrence struct {
	position int
	request  string
}

// ScanRequests extracts module request strings from JavaScript source in order of first appearance.
func ScanRequests(source string) []string {
	occurrences := make([]requestOccurrence, 0)
	for _, pattern := range requestPatterns {
		for _, match := range pattern.FindAllStringSubmatchIndex(source, -1) {
			occurrences = append(occurrences, requestOccurrence{position: match[2], request: source[match[2]:match[3]]})
		}
	}
	sort.SliceStable(occurrences, func(left int, right int) bool {
		return occurrences[left].position < occurrences[right].position
	})

	seen := make(map[string]struct{}, len(occurrences))
	requests := make([]string, 0, len(occurrences))
	for _, occurrence := range occurrences {
		if _, duplicate := seen[occurrence.request]; duplicate {
			continue
		}
		seen[occurrence.request] = struct{}{}
		requests = append(requests, occurrence.request)
	}
	return requests
}

// ScanDirectory collects the unique module requests of every JavaScript file below root, sorted.
func ScanDirectory(fileSystem afero.Fs, root string) ([]string, error) {
	unique := make(map[string]struct{})
	walkError := afero.Walk(fileSystem, root, func(path string, info os.FileInfo, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if info.IsDir() || !strings.EqualFold(filepath.Ext(path), javaScriptExtensionConstant) {
			return nil
		}
		contents, readError := afero.ReadFile(fileSystem, path)
		if readError != nil {
			return fmt.Errorf(scanReadFailureTemplateConstant, path, readError)
		}
		for _, request := range ScanRequests(string(contents)) {
			unique[request] = struct{}{}
		}
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}

	requests := make([]string, 0, len(unique))
	for request := range unique {
		requests = append(requests, request)
	}
	sort.Strings(requests)
	return requests, nil
}
