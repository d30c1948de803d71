// Package discovery finds filter scripts and job files on disk.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/five82/avsbatch/internal/errors"
	"github.com/five82/avsbatch/internal/util"
)

// DiscoveryLogger defines the interface for discovery logging.
type DiscoveryLogger interface {
	Info(format string, args ...any)
	Debug(format string, args ...any)
}

// DiscoveryResult contains the results of file discovery with metadata.
type DiscoveryResult struct {
	Files        []string
	SkippedCount int
}

// IsJobFile reports whether name looks like a YAML job file.
func IsJobFile(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// FindScripts finds filter scripts in the given directory.
// Returns files sorted alphabetically by filename.
func FindScripts(inputDir string) ([]string, error) {
	result, err := FindScriptsWithLogging(inputDir, nil)
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// FindScriptsWithLogging finds filter scripts and logs discovery progress.
// Logs the first 5 files found plus a count summary.
func FindScriptsWithLogging(inputDir string, logger DiscoveryLogger) (*DiscoveryResult, error) {
	result := &DiscoveryResult{}
	if err := scan(inputDir, util.IsScriptFile, result); err != nil {
		return nil, err
	}
	if len(result.Files) == 0 {
		return nil, errors.NewNoFilesFoundError(inputDir)
	}

	if logger != nil {
		logDiscoveredFiles(result.Files, logger)
	}
	return result, nil
}

// FindJobFiles finds YAML job files in the given directory. An empty result
// is not an error.
func FindJobFiles(dir string) ([]string, error) {
	result := &DiscoveryResult{}
	if err := scan(dir, IsJobFile, result); err != nil {
		return nil, err
	}
	return result.Files, nil
}

func scan(dir string, match func(string) bool, result *DiscoveryResult) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Skip hidden files
		if strings.HasPrefix(name, ".") {
			continue
		}

		fullPath := filepath.Join(dir, name)
		if match(fullPath) {
			result.Files = append(result.Files, fullPath)
		} else {
			result.SkippedCount++
		}
	}

	// Sort alphabetically
	sort.Slice(result.Files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(result.Files[i])) < strings.ToLower(filepath.Base(result.Files[j]))
	})
	return nil
}

// logDiscoveredFiles logs the first 5 discovered files plus a count.
func logDiscoveredFiles(files []string, logger DiscoveryLogger) {
	logger.Info("Found %d script(s)", len(files))

	maxToLog := min(5, len(files))
	for i := 0; i < maxToLog; i++ {
		logger.Debug("  %s", filepath.Base(files[i]))
	}

	if len(files) > 5 {
		logger.Debug("  ... and %d more", len(files)-5)
	}
}
