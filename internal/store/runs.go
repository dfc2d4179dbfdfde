package store

import (
	"encoding/json"
	"time"

	"lender-exports-pipeline/internal/model"
)

// SaveRun stores a new export run.
func SaveRun(runID string, spec model.ExportRunSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO runs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, specJSON, "pending", now, now)
	return err
}

// UpdateRunStatus updates run status.
func UpdateRunStatus(runID string, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveRunError records an error for a run.
func SaveRunError(runID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return e
}

// GetRunErrors returns the recorded errors for a run, oldest first.
func GetRunErrors(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errors []map[string]interface{}
	for rows.Next() {
		var message string
		var createdAt time.Time
		if err := rows.Scan(&message, &createdAt); err != nil {
			return nil, err
		}
		errors = append(errors, map[string]interface{}{
			"message":   message,
			"createdAt": createdAt,
		})
	}
	return errors, rows.Err()
}

// ListRuns returns all runs with basic info.
func ListRuns() ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return runs, rows.Err()
}

// GetRun fetches full run spec and status.
func GetRun(runID string) (map[string]interface{}, error) {
	var specJSON string
	var status string
	var createdAt, updatedAt time.Time

	err := db.QueryRow(`SELECT spec, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&specJSON, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var spec model.ExportRunSpec
	if err := json.Unmarshal([]byte(specJSON), &spec); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":        runID,
		"spec":      spec,
		"status":    status,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
	}, nil
}

// DeleteRun removes a run and everything recorded against it.
func DeleteRun(runID string) error {
	for _, table := range []string{"run_errors", "stage_progress", "run_logs", "output_files"} {
		if _, err := db.Exec(`DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			return err
		}
	}
	_, err := db.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	return err
}

// SaveStageProgress upserts progress for a pipeline stage of a run.
func SaveStageProgress(runID, stage, status string, startedAt, endedAt *time.Time, records, errorCount int) error {
	_, err := db.Exec(`INSERT INTO stage_progress (run_id, stage, status, started_at, ended_at, records, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, stage, status, startedAt, endedAt, records, errorCount)
	return err
}

// GetStageProgress returns progress rows for a run in execution order.
func GetStageProgress(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT stage, status, started_at, ended_at, records, errors
		FROM stage_progress WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var progress []map[string]interface{}
	for rows.Next() {
		var stage, status string
		var startedAt, endedAt *time.Time
		var records, errorCount int
		if err := rows.Scan(&stage, &status, &startedAt, &endedAt, &records, &errorCount); err != nil {
			return nil, err
		}
		progress = append(progress, map[string]interface{}{
			"stage":     stage,
			"status":    status,
			"startedAt": startedAt,
			"endedAt":   endedAt,
			"records":   records,
			"errors":    errorCount,
		})
	}
	return progress, rows.Err()
}

// SaveRunLog persists one structured log line for a run.
func SaveRunLog(runID, stage, level, message string, details map[string]interface{}) error {
	detailsJSON := []byte("{}")
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO run_logs (run_id, stage, level, message, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, level, message, string(detailsJSON), now)
	return err
}

// GetRunLogs returns up to limit log lines for a run, oldest first.
func GetRunLogs(runID string, limit int) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT stage, level, message, details, created_at
		FROM run_logs WHERE run_id = ? ORDER BY id ASC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []map[string]interface{}
	for rows.Next() {
		var stage, level, message, detailsJSON string
		var createdAt time.Time
		if err := rows.Scan(&stage, &level, &message, &detailsJSON, &createdAt); err != nil {
			return nil, err
		}
		var details map[string]interface{}
		json.Unmarshal([]byte(detailsJSON), &details)
		logs = append(logs, map[string]interface{}{
			"stage":     stage,
			"level":     level,
			"message":   message,
			"details":   details,
			"createdAt": createdAt,
		})
	}
	return logs, rows.Err()
}

// SaveOutputFile records one written export or merge artifact.
func SaveOutputFile(runID, lender, fileName, filePath, fileType string, rowCount int, fileSize int64) error {
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO output_files (run_id, lender, file_name, file_path, file_type, row_count, file_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, lender, fileName, filePath, fileType, rowCount, fileSize, now)
	return err
}

// GetOutputFiles returns all recorded artifacts for a run.
func GetOutputFiles(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, lender, file_name, file_path, file_type, row_count, file_size, created_at
		FROM output_files WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []map[string]interface{}
	for rows.Next() {
		var id, rowCount int
		var fileSize int64
		var lender, fileName, filePath, fileType string
		var createdAt time.Time
		if err := rows.Scan(&id, &lender, &fileName, &filePath, &fileType, &rowCount, &fileSize, &createdAt); err != nil {
			return nil, err
		}
		files = append(files, map[string]interface{}{
			"id":        id,
			"lender":    lender,
			"file_name": fileName,
			"file_path": filePath,
			"file_type": fileType,
			"row_count": rowCount,
			"file_size": fileSize,
			"createdAt": createdAt,
		})
	}
	return files, rows.Err()
}
