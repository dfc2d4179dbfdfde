package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"lender-exports-pipeline/internal/config"
	"lender-exports-pipeline/internal/model"
	"lender-exports-pipeline/internal/pipeline"
	"lender-exports-pipeline/internal/store"
	"lender-exports-pipeline/pkg/utils"

	"github.com/google/uuid"
)

var (
	cfg     = config.New()
	outputs = utils.NewOutputManager(cfg.ExportDir, cfg.ResultDir)
)

// Configure points the handlers at the loaded process configuration. Called
// once from main before the server starts.
func Configure(c *config.Config) {
	cfg = c
	outputs = utils.NewOutputManager(c.ExportDir, c.ResultDir)
}

// CreateExport creates a new export run
// @Summary Create a new export run
// @Description Start an export run over a date window, writing one CSV per lender
// @Tags exports
// @Accept json
// @Produce json
// @Param export body model.ExportRunSpec true "Export run configuration"
// @Success 200 {object} map[string]interface{} "Export run created successfully"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /exports [post]
func CreateExport(w http.ResponseWriter, r *http.Request) {
	var spec model.ExportRunSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	// 1. Validate the window before accepting the run
	if _, _, err := spec.Window(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if spec.Workers == 0 {
		spec.Workers = cfg.LenderWorkers
	}
	if spec.Timeout == "" {
		spec.Timeout = cfg.RunTimeout
	}

	// 2. Generate run ID
	runID := uuid.New().String()

	// 3. Save run to DB
	if err := store.SaveRun(runID, spec); err != nil {
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	// 4. Resolve the per-run export directory
	exportDir := spec.ExportDir
	if exportDir == "" {
		var err error
		exportDir, err = outputs.RunExportDir(runID)
		if err != nil {
			http.Error(w, "Failed to create export directory", http.StatusInternalServerError)
			return
		}
	}

	// 5. Start the run asynchronously
	go func() {
		if err := pipeline.Run(context.Background(), runID, spec, exportDir); err != nil {
			fmt.Printf("❌ Export run %s failed: %v\n", runID, err)
		}
	}()

	resp := map[string]interface{}{
		"message":   "Export run created successfully!",
		"runID":     runID,
		"status":    "pending",
		"exportDir": exportDir,
		"createdAt": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListExports retrieves all export runs
// @Summary List all export runs
// @Description Get a list of all export runs with their current status
// @Tags exports
// @Accept json
// @Produce json
// @Success 200 {array} map[string]interface{} "List of export runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /exports [get]
func ListExports(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch export runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// GetExport retrieves a specific export run
// @Summary Get export run
// @Description Retrieve details of a specific export run
// @Tags exports
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Export run details"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Export run not found"
// @Router /exports/{id} [get]
func GetExport(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "")
	if !ok {
		return
	}

	run, err := store.GetRun(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// GetExportErrors retrieves errors for an export run
// @Summary Get export run errors
// @Description Retrieve all errors that occurred during an export run
// @Tags exports
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Export run errors"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /exports/{id}/errors [get]
func GetExportErrors(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/errors")
	if !ok {
		return
	}

	errors, err := store.GetRunErrors(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": runID,
		"errors": errors,
		"count":  len(errors),
	})
}

// GET /api/v1/exports/{id}/logs
func GetExportLogs(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/logs")
	if !ok {
		return
	}

	// Get limit from query parameter
	limit := 100 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	logs, err := store.GetRunLogs(runID, limit)
	if err != nil {
		http.Error(w, "Failed to retrieve logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": runID,
		"logs":   logs,
		"count":  len(logs),
		"limit":  limit,
	})
}

// GET /api/v1/exports/{id}/progress
func GetExportProgress(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/progress")
	if !ok {
		return
	}

	progress, err := store.GetStageProgress(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve progress", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":   runID,
		"progress": progress,
		"count":    len(progress),
	})
}

// GetExportFiles retrieves all output files for a specific run
// @Summary Get export run files
// @Description List the CSV and workbook artifacts produced by an export run
// @Tags files
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Export run files"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /exports/{id}/files [get]
func GetExportFiles(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/files")
	if !ok {
		return
	}

	files, err := store.GetOutputFiles(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve files", http.StatusInternalServerError)
		return
	}

	// Attach download URLs for the API client
	for _, file := range files {
		if name, ok := file["file_name"].(string); ok {
			file["download_url"] = outputs.DownloadURL(runID, name)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": runID,
		"files":  files,
		"count":  len(files),
	})
}

// MergeExport merges a run's per-lender CSVs into one consolidated file
// @Summary Merge export run
// @Description Concatenate every per-lender CSV of a run into a single consolidated file
// @Tags exports
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Merge result"
// @Failure 404 {object} map[string]interface{} "Export run not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /exports/{id}/merge [post]
func MergeExport(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/merge")
	if !ok {
		return
	}

	run, err := store.GetRun(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	// Merge the directory the run actually exported into: the spec's override
	// when one was set, otherwise the per-run directory.
	var exportDir string
	if spec, ok := run["spec"].(model.ExportRunSpec); ok && spec.ExportDir != "" {
		exportDir = spec.ExportDir
	} else {
		exportDir, err = outputs.RunExportDir(runID)
		if err != nil {
			http.Error(w, "Failed to resolve export directory", http.StatusInternalServerError)
			return
		}
	}

	var result *pipeline.MergeResult
	if cfg.WorkbookFile != "" {
		result, err = pipeline.MergeExportsWorkbook(exportDir, cfg.ResultDir, cfg.MergedFile, cfg.WorkbookFile)
	} else {
		result, err = pipeline.MergeExports(exportDir, cfg.ResultDir, cfg.MergedFile)
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Merge failed: %v", err), http.StatusInternalServerError)
		return
	}

	store.SaveOutputFile(runID, "", cfg.MergedFile, result.Path, "csv", result.Rows, fileSize(result.Path))
	if result.WorkbookPath != "" {
		store.SaveOutputFile(runID, "", cfg.WorkbookFile, result.WorkbookPath, "excel", result.Rows, fileSize(result.WorkbookPath))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Merge completed successfully",
		"run_id":  runID,
		"result":  result,
	})
}

// ListLenders returns every distinct exported lender known to the deal store
// @Summary List lenders
// @Description List every distinct lender that appears as an exported lender in the deal store
// @Tags lenders
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Lender names"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /lenders [get]
func ListLenders(w http.ResponseWriter, r *http.Request) {
	lenders, err := store.DistinctLenders()
	if err != nil {
		http.Error(w, "Failed to retrieve lenders", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"lenders": lenders,
		"count":   len(lenders),
	})
}

// DownloadFile serves an export artifact for download
// @Summary Download file
// @Description Download a specific output file from an export run
// @Tags files
// @Accept json
// @Produce application/octet-stream
// @Param runID path string true "Run ID"
// @Param filename path string true "File name"
// @Success 200 {file} file "File download"
// @Failure 400 {object} map[string]interface{} "Invalid URL format"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Router /download/{runID}/{filename} [get]
func DownloadFile(w http.ResponseWriter, r *http.Request) {
	// URL format: /api/v1/download/runID/filename
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 5 {
		http.Error(w, fmt.Sprintf("Invalid URL format. Expected 5 parts, got %d: %v", len(pathParts), pathParts), http.StatusBadRequest)
		return
	}
	runID := pathParts[3]
	fileName := pathParts[4]

	filePath, err := outputs.ExportFilePath(runID, fileName)
	if err != nil {
		http.Error(w, "Failed to resolve file path", http.StatusInternalServerError)
		return
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		// Merged artifacts live in the results directory, not the run directory.
		filePath, err = outputs.ResultFilePath(fileName)
		if err != nil {
			http.Error(w, "Failed to resolve file path", http.StatusInternalServerError)
			return
		}
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", fileName))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, filePath)
}

// DeleteExport deletes an export run and its artifacts
// @Summary Delete export run
// @Description Delete an export run and all its associated files and data
// @Tags exports
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Export run deleted"
// @Failure 404 {object} map[string]interface{} "Export run not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /exports/{id} [delete]
func DeleteExport(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "")
	if !ok {
		return
	}

	if _, err := store.GetRun(runID); err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	files, err := store.GetOutputFiles(runID)
	if err != nil {
		store.SaveRunLog(runID, "api", "warning", "Failed to list files for deletion", map[string]interface{}{
			"error": err.Error(),
		})
	}

	for _, file := range files {
		if filePath, ok := file["file_path"].(string); ok {
			if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
				store.SaveRunLog(runID, "api", "warning", "Failed to delete file", map[string]interface{}{
					"file_path": filePath,
					"error":     err.Error(),
				})
			}
		}
	}

	if runDir, err := outputs.RunExportDir(runID); err == nil {
		os.RemoveAll(runDir)
	}

	if err := store.DeleteRun(runID); err != nil {
		http.Error(w, "Failed to delete run from database", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":       "Export run and all artifacts deleted successfully",
		"run_id":        runID,
		"files_deleted": len(files),
	})
}

// runIDFromPath extracts the run ID between /api/v1/exports/ and an optional
// suffix, writing a 400 on malformed paths.
func runIDFromPath(w http.ResponseWriter, r *http.Request, suffix string) (string, bool) {
	path := r.URL.Path
	prefix := "/api/v1/exports/"

	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return "", false
	}

	runID := path[len(prefix) : len(path)-len(suffix)]
	if runID == "" || strings.Contains(runID, "/") {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return "", false
	}
	return runID, true
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
