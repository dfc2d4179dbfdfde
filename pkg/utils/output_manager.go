package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager owns the directory contract of a run: per-run export
// directories for the per-lender CSVs and a results directory for the merged
// file.
type OutputManager struct {
	ExportBaseDir string
	ResultDir     string
}

// NewOutputManager creates an output manager for the given base directories.
func NewOutputManager(exportBaseDir, resultDir string) *OutputManager {
	return &OutputManager{
		ExportBaseDir: exportBaseDir,
		ResultDir:     resultDir,
	}
}

// RunExportDir creates (if needed) and returns the export directory for a run.
func (om *OutputManager) RunExportDir(runID string) (string, error) {
	dir := filepath.Join(om.ExportBaseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run export directory: %w", err)
	}
	return dir, nil
}

// ExportFilePath returns the full path for a per-lender export file inside a
// run's export directory.
func (om *OutputManager) ExportFilePath(runID, fileName string) (string, error) {
	dir, err := om.RunExportDir(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(fileName)), nil
}

// ResultFilePath returns the full path for a merged result file, creating the
// results directory on first use.
func (om *OutputManager) ResultFilePath(fileName string) (string, error) {
	if err := os.MkdirAll(om.ResultDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	return filepath.Join(om.ResultDir, filepath.Base(fileName)), nil
}

// DownloadURL generates the API download URL for an output file.
func (om *OutputManager) DownloadURL(runID, fileName string) string {
	return fmt.Sprintf("/api/v1/download/%s/%s", runID, filepath.Base(fileName))
}

// FileType determines the file type based on extension.
func (om *OutputManager) FileType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "csv"
	case ".xlsx", ".xls":
		return "excel"
	case ".json":
		return "json"
	default:
		return "unknown"
	}
}

// FileSize returns the size of a file in bytes.
func (om *OutputManager) FileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}
