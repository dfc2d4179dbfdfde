package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lender-exports-pipeline/internal/model"
)

func openTestDB(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, InitDB(path))
	t.Cleanup(func() { Close() })
}

func testDeal(scenarioID, lender string, at time.Time) model.DealRecord {
	return model.DealRecord{
		Time:           at,
		ScenarioID:     scenarioID,
		ExportedLender: lender,
		Results: []model.LenderResult{{
			LenderName:           lender,
			DoesService:          model.TriTrue,
			MaxBorrowingCapacity: model.Amount{Value: 500000, Valid: true},
			Performance:          &model.Performance{LenderPassedServicing: model.TriTrue},
		}},
		LoanPurpose:             "Purchase",
		TotalProposedLoanAmount: 500000,
	}
}

func TestDealsInWindowBounds(t *testing.T) {
	openTestDB(t)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, SaveDeals([]model.DealRecord{
		testDeal("before", "Alpha Bank", start.Add(-time.Second)),
		testDeal("at-start", "Alpha Bank", start),
		testDeal("inside", "Alpha Bank", start.Add(12*time.Hour)),
		testDeal("at-end", "Alpha Bank", end),
	}))

	deals, err := DealsInWindow(start, end)
	require.NoError(t, err)
	require.Len(t, deals, 2)

	// Start is inclusive, end is exclusive.
	assert.Equal(t, "at-start", deals[0].ScenarioID)
	assert.Equal(t, "inside", deals[1].ScenarioID)
}

func TestDealsInWindowOrderedByTimeThenInsertion(t *testing.T) {
	openTestDB(t)

	at := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, SaveDeals([]model.DealRecord{
		testDeal("s-1", "Beta Bank", at.Add(time.Hour)),
		testDeal("s-1", "Alpha Bank", at),
		testDeal("s-1", "Gamma Bank", at.Add(time.Hour)),
	}))

	deals, err := DealsInWindow(at.Add(-time.Hour), at.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, deals, 3)

	assert.Equal(t, "Alpha Bank", deals[0].ExportedLender)
	// Equal timestamps come back in insertion order.
	assert.Equal(t, "Beta Bank", deals[1].ExportedLender)
	assert.Equal(t, "Gamma Bank", deals[2].ExportedLender)
}

func TestDealsInWindowRoundTripsResults(t *testing.T) {
	openTestDB(t)

	at := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, SaveDeal(testDeal("s-1", "Alpha Bank", at), true))

	deals, err := DealsInWindow(at.Add(-time.Minute), at.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, deals, 1)

	d := deals[0]
	assert.Equal(t, at, d.Time)
	require.Len(t, d.Results, 1)
	assert.True(t, d.Results[0].DoesService.True())
	assert.True(t, d.Results[0].MaxBorrowingCapacity.Valid)
	require.NotNil(t, d.Results[0].Performance)
	assert.True(t, d.Results[0].Performance.LenderPassedServicing.True())
}

func TestDealsInWindowExcludesInvalidExports(t *testing.T) {
	openTestDB(t)

	at := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, SaveDeal(testDeal("valid", "Alpha Bank", at), true))
	require.NoError(t, SaveDeal(testDeal("invalid", "Alpha Bank", at), false))

	deals, err := DealsInWindow(at.Add(-time.Minute), at.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "valid", deals[0].ScenarioID)
}

func TestDistinctLenders(t *testing.T) {
	openTestDB(t)

	at := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, SaveDeals([]model.DealRecord{
		testDeal("s-1", "Beta Bank", at),
		testDeal("s-2", "Alpha Bank", at),
		testDeal("s-3", "Beta Bank", at),
		testDeal("s-4", "", at),
	}))

	lenders, err := DistinctLenders()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha Bank", "Beta Bank"}, lenders)
}

func TestRunLifecycle(t *testing.T) {
	openTestDB(t)

	spec := model.ExportRunSpec{
		StartDate: "2025-03-01T00:00:00Z",
		EndDate:   "2025-04-01T00:00:00Z",
		Lenders:   []string{"Alpha Bank"},
	}
	require.NoError(t, SaveRun("run-1", spec))

	run, err := GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "pending", run["status"])
	gotSpec, ok := run["spec"].(model.ExportRunSpec)
	require.True(t, ok)
	assert.Equal(t, spec.StartDate, gotSpec.StartDate)
	assert.Equal(t, []string{"Alpha Bank"}, gotSpec.Lenders)

	require.NoError(t, UpdateRunStatus("run-1", "completed"))
	run, err = GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", run["status"])

	runs, err := ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0]["id"])

	_, err = GetRun("missing")
	assert.Error(t, err)
}

func TestRunErrorsAndLogs(t *testing.T) {
	openTestDB(t)

	require.NoError(t, SaveRun("run-1", model.ExportRunSpec{StartDate: "2025-03-01T00:00:00Z", EndDate: "2025-04-01T00:00:00Z"}))

	require.NoError(t, SaveRunError("run-1", fmt.Errorf("lender Alpha Bank: boom")))
	require.NoError(t, SaveRunError("run-1", nil)) // nil errors are ignored

	errors, err := GetRunErrors("run-1")
	require.NoError(t, err)
	require.Len(t, errors, 1)
	assert.Equal(t, "lender Alpha Bank: boom", errors[0]["message"])

	require.NoError(t, SaveRunLog("run-1", "export", "info", "Lender exported", map[string]interface{}{
		"lender": "Alpha Bank",
		"rows":   42,
	}))
	require.NoError(t, SaveRunLog("run-1", "export", "info", "No details", nil))

	logs, err := GetRunLogs("run-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Lender exported", logs[0]["message"])
	details, ok := logs[0]["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Alpha Bank", details["lender"])

	limited, err := GetRunLogs("run-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStageProgress(t *testing.T) {
	openTestDB(t)

	started := time.Now().UTC()
	ended := started.Add(time.Second)
	require.NoError(t, SaveStageProgress("run-1", "ingest", "started", &started, nil, 0, 0))
	require.NoError(t, SaveStageProgress("run-1", "ingest", "completed", &started, &ended, 120, 0))

	progress, err := GetStageProgress("run-1")
	require.NoError(t, err)
	require.Len(t, progress, 2)
	assert.Equal(t, "started", progress[0]["status"])
	assert.Equal(t, "completed", progress[1]["status"])
	assert.Equal(t, 120, progress[1]["records"])
}

func TestOutputFiles(t *testing.T) {
	openTestDB(t)

	require.NoError(t, SaveOutputFile("run-1", "Alpha Bank", "results_Alpha_Bank.csv",
		"output/run-1/results_Alpha_Bank.csv", "csv", 42, 8192))

	files, err := GetOutputFiles("run-1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "Alpha Bank", files[0]["lender"])
	assert.Equal(t, "results_Alpha_Bank.csv", files[0]["file_name"])
	assert.Equal(t, 42, files[0]["row_count"])
	assert.Equal(t, int64(8192), files[0]["file_size"])

	none, err := GetOutputFiles("run-2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteRun(t *testing.T) {
	openTestDB(t)

	require.NoError(t, SaveRun("run-1", model.ExportRunSpec{StartDate: "2025-03-01T00:00:00Z", EndDate: "2025-04-01T00:00:00Z"}))
	require.NoError(t, SaveRunError("run-1", fmt.Errorf("boom")))
	require.NoError(t, SaveRunLog("run-1", "export", "info", "msg", nil))
	require.NoError(t, SaveOutputFile("run-1", "Alpha Bank", "f.csv", "output/run-1/f.csv", "csv", 1, 1))

	require.NoError(t, DeleteRun("run-1"))

	_, err := GetRun("run-1")
	assert.Error(t, err)

	errors, err := GetRunErrors("run-1")
	require.NoError(t, err)
	assert.Empty(t, errors)

	files, err := GetOutputFiles("run-1")
	require.NoError(t, err)
	assert.Empty(t, files)
}
