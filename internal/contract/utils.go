package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/lambentLogic/spectrum/schema"
)

var (
	fatalLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	warnLabel  = color.New(color.FgYellow).SprintFunc()
)

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%s %s: %v\n", fatalLabel("Fatal"), msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s %s: %v\n", warnLabel("Warn"), msg, err)
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", warnLabel("Warn"), msg)
}

// ModelSlug converts a model path or hub name into a filename-safe slug.
// Slashes and underscores both become dashes, matching the naming of the
// report files this tool has always produced.
func ModelSlug(modelName string) string {
	slug := strings.TrimRight(modelName, "/\\")
	if filepath.IsAbs(slug) {
		// Absolute local paths collapse to their final element; hub-style
		// names (org/model) keep both segments.
		slug = filepath.Base(slug)
	}
	slug = strings.ReplaceAll(slug, "/", "-")
	slug = strings.ReplaceAll(slug, "\\", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	return slug
}

// ReportFileName returns the canonical SNR report filename for a model.
func ReportFileName(outDir, modelName string) string {
	return filepath.Join(outDir, fmt.Sprintf("snr_results_%s.json", ModelSlug(modelName)))
}

// SortedReportFileName derives the sorted-report filename from a report path.
func SortedReportFileName(reportPath string) string {
	base := reportBase(reportPath)
	return filepath.Join(filepath.Dir(reportPath), base+"_sorted.json")
}

// SelectionFileName derives the unfrozen-parameters filename from a report
// path, encoding the selection direction and magnitude.
func SelectionFileName(reportPath string, direction schema.Direction, absPercent int) string {
	base := reportBase(reportPath)
	name := fmt.Sprintf("%s_unfrozenparameters_%s%dpercent.yaml", base, direction, absPercent)
	return filepath.Join(filepath.Dir(reportPath), name)
}

// reportBase strips the directory and extension from a report path.
func reportBase(reportPath string) string {
	base := filepath.Base(reportPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// GetCacheDBFilePath returns the path to the SQLite DB file for cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".spectrum_cache.db"
	}
	return filepath.Join(homeDir, ".spectrum_cache.db")
}

// GetRunDBFilePath returns the path to the SQLite DB file for run tracking.
func GetRunDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".spectrum_runs.db"
	}
	return filepath.Join(homeDir, ".spectrum_runs.db")
}

// SelectOutputFile returns the file to write output to, defaulting to stdout.
func SelectOutputFile(outputFile string) (*os.File, error) {
	if outputFile == "" {
		return os.Stdout, nil
	}
	file, err := os.Create(outputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %q: %w", outputFile, err)
	}
	return file, nil
}
