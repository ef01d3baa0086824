package buildtasks

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	recursiveWildcardConstant     = "**"
	writeFileErrorTemplate        = "unable to write %s: %w"
	generatedFilePermissions      = 0o644
	generatedDirectoryPermissions = 0o755
)

var skippedDirectories = map[string]struct{}{
	"node_modules": {},
	".git":         {},
}

// collectFiles walks the project and returns the slash-separated relative paths matching any include
// pattern and no exclude pattern, sorted. Malformed pattern segments match nothing.
func (catalogue *Catalogue) collectFiles(includes []string, excludes []string) ([]string, error) {
	matches := make([]string, 0)
	walkError := afero.Walk(catalogue.fileSystem, catalogue.projectRoot, func(filePath string, info os.FileInfo, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if info.IsDir() {
			if _, skipped := skippedDirectories[info.Name()]; skipped {
				return filepath.SkipDir
			}
			return nil
		}
		relativePath, relativeError := filepath.Rel(catalogue.projectRoot, filePath)
		if relativeError != nil {
			return relativeError
		}
		relativePath = filepath.ToSlash(relativePath)
		if matchesAny(includes, relativePath) && !matchesAny(excludes, relativePath) {
			matches = append(matches, relativePath)
		}
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}
	sort.Strings(matches)
	return matches, nil
}

func matchesAny(patterns []string, relativePath string) bool {
	for _, pattern := range patterns {
		if matchGlob(strings.Split(strings.Trim(pattern, "/"), "/"), strings.Split(relativePath, "/")) {
			return true
		}
	}
	return false
}

// matchGlob matches path segments against pattern segments; "**" spans zero or more segments.
func matchGlob(patternSegments []string, pathSegments []string) bool {
	if len(patternSegments) == 0 {
		return len(pathSegments) == 0
	}
	if patternSegments[0] == recursiveWildcardConstant {
		for consumed := 0; consumed <= len(pathSegments); consumed++ {
			if matchGlob(patternSegments[1:], pathSegments[consumed:]) {
				return true
			}
		}
		return false
	}
	if len(pathSegments) == 0 {
		return false
	}
	matched, matchError := path.Match(patternSegments[0], pathSegments[0])
	if matchError != nil || !matched {
		return false
	}
	return matchGlob(patternSegments[1:], pathSegments[1:])
}

func (catalogue *Catalogue) writeProjectFile(relativePath string, contents []byte) error {
	target := catalogue.projectPath(relativePath)
	if directoryError := catalogue.fileSystem.MkdirAll(filepath.Dir(target), generatedDirectoryPermissions); directoryError != nil {
		return fmt.Errorf(writeFileErrorTemplate, target, directoryError)
	}
	if writeError := afero.WriteFile(catalogue.fileSystem, target, contents, generatedFilePermissions); writeError != nil {
		return fmt.Errorf(writeFileErrorTemplate, target, writeError)
	}
	return nil
}
