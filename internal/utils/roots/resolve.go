// Package roots resolves the project directory a build runs against.
package roots

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	flagutils "github.com/tyemirov/buildpipe/internal/utils/flags"
)

const (
	homeDirectoryPrefixConstant        = "~"
	workingDirectoryErrorTemplate      = "unable to determine working directory: %w"
	homeDirectoryErrorTemplate         = "unable to expand %q: %w"
	absolutePathErrorTemplate          = "unable to resolve project root %q: %w"
	projectRootNotDirectoryTemplate    = "project root %s is not a directory"
	projectRootInspectionErrorTemplate = "unable to inspect project root %s: %w"
)

// Resolve determines the project root: the --root flag wins, then the configured value, then the
// working directory. The result is absolute and must name an existing directory.
func Resolve(command *cobra.Command, configured string) (string, error) {
	candidate := FlagValue(command)
	if len(candidate) == 0 {
		candidate = strings.TrimSpace(configured)
	}
	if len(candidate) == 0 {
		workingDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return "", fmt.Errorf(workingDirectoryErrorTemplate, workingDirectoryError)
		}
		candidate = workingDirectory
	}

	normalized, normalizeError := Normalize(candidate)
	if normalizeError != nil {
		return "", normalizeError
	}

	fileInfo, statError := os.Stat(normalized)
	if statError != nil {
		return "", fmt.Errorf(projectRootInspectionErrorTemplate, normalized, statError)
	}
	if !fileInfo.IsDir() {
		return "", fmt.Errorf(projectRootNotDirectoryTemplate, normalized)
	}
	return normalized, nil
}

// FlagValue returns the trimmed --root flag value, or an empty string when it is absent.
func FlagValue(command *cobra.Command) string {
	value, _, lookupError := flagutils.StringFlag(command, flagutils.ProjectRootFlagName)
	if lookupError != nil {
		return ""
	}
	return value
}

// Normalize expands a leading tilde and converts the path to a clean absolute path.
func Normalize(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == homeDirectoryPrefixConstant || strings.HasPrefix(trimmed, homeDirectoryPrefixConstant+string(filepath.Separator)) {
		homeDirectory, homeDirectoryError := os.UserHomeDir()
		if homeDirectoryError != nil {
			return "", fmt.Errorf(homeDirectoryErrorTemplate, trimmed, homeDirectoryError)
		}
		trimmed = filepath.Join(homeDirectory, strings.TrimPrefix(trimmed, homeDirectoryPrefixConstant))
	}
	absolute, absoluteError := filepath.Abs(trimmed)
	if absoluteError != nil {
		return "", fmt.Errorf(absolutePathErrorTemplate, trimmed, absoluteError)
	}
	return absolute, nil
}
