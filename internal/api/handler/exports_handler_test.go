package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lender-exports-pipeline/internal/config"
	"lender-exports-pipeline/internal/model"
	"lender-exports-pipeline/internal/pipeline"
	"lender-exports-pipeline/internal/store"
)

func setupHandlerTest(t *testing.T) {
	t.Helper()
	require.NoError(t, store.InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { store.Close() })

	c := config.New()
	c.ExportDir = t.TempDir()
	c.ResultDir = t.TempDir()
	Configure(c)
}

func TestCreateExportValidation(t *testing.T) {
	setupHandlerTest(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed JSON", `{`, http.StatusBadRequest},
		{"missing window", `{}`, http.StatusBadRequest},
		{"inverted window", `{"startDate":"2025-04-01T00:00:00Z","endDate":"2025-03-01T00:00:00Z"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/exports", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			CreateExport(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestCreateExportRecordsRun(t *testing.T) {
	setupHandlerTest(t)

	body := `{"startDate":"2025-03-01T00:00:00Z","endDate":"2025-04-01T00:00:00Z","lenders":["Alpha Bank"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exports", strings.NewReader(body))
	rec := httptest.NewRecorder()
	CreateExport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	runID, ok := resp["runID"].(string)
	require.True(t, ok)
	require.NotEmpty(t, runID)

	run, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, run["id"])

	// The run executes on a background goroutine; wait for it to settle so it
	// is not still writing to the store when the test closes it.
	require.Eventually(t, func() bool {
		run, err := store.GetRun(runID)
		if err != nil {
			return false
		}
		status, _ := run["status"].(string)
		return status == "completed" || status == "failed"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMergeExportHonorsExportDirOverride(t *testing.T) {
	setupHandlerTest(t)

	// The run exported into a caller-supplied directory, not the per-run one.
	overrideDir := t.TempDir()
	spec := model.ExportRunSpec{
		StartDate: "2025-03-01T00:00:00Z",
		EndDate:   "2025-04-01T00:00:00Z",
		ExportDir: overrideDir,
	}
	require.NoError(t, store.SaveRun("run-1", spec))

	path := filepath.Join(overrideDir, pipeline.LenderFileName("Alpha Bank"))
	_, err := pipeline.WriteLenderCSV(path, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exports/run-1/merge", nil)
	rec := httptest.NewRecorder()
	MergeExport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	merged, err := os.ReadFile(filepath.Join(cfg.ResultDir, cfg.MergedFile))
	require.NoError(t, err)
	assert.Contains(t, string(merged), "scenarioId")

	files, err := store.GetOutputFiles("run-1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, cfg.MergedFile, files[0]["file_name"])
}

func TestMergeExportFallsBackToRunDirectory(t *testing.T) {
	setupHandlerTest(t)

	spec := model.ExportRunSpec{StartDate: "2025-03-01T00:00:00Z", EndDate: "2025-04-01T00:00:00Z"}
	require.NoError(t, store.SaveRun("run-1", spec))

	runDir, err := outputs.RunExportDir("run-1")
	require.NoError(t, err)
	_, err = pipeline.WriteLenderCSV(filepath.Join(runDir, pipeline.LenderFileName("Alpha Bank")), nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exports/run-1/merge", nil)
	rec := httptest.NewRecorder()
	MergeExport(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGetExportNotFound(t *testing.T) {
	setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/missing", nil)
	rec := httptest.NewRecorder()
	GetExport(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListLendersEmpty(t *testing.T) {
	setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lenders", nil)
	rec := httptest.NewRecorder()
	ListLenders(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["count"])
}

func TestRunIDFromPath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		suffix string
		want   string
		ok     bool
	}{
		{"plain id", "/api/v1/exports/run-1", "", "run-1", true},
		{"with suffix", "/api/v1/exports/run-1/errors", "/errors", "run-1", true},
		{"empty id", "/api/v1/exports/", "", "", false},
		{"wrong suffix", "/api/v1/exports/run-1/logs", "/errors", "", false},
		{"nested id", "/api/v1/exports/run-1/extra/errors", "/errors", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			got, ok := runIDFromPath(rec, req, tt.suffix)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}
		})
	}
}
