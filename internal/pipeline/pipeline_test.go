package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lender-exports-pipeline/internal/model"
	"lender-exports-pipeline/internal/store"
)

func openRunStore(t *testing.T) {
	t.Helper()
	require.NoError(t, store.InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { store.Close() })
}

func windowSpec(lenders ...string) model.ExportRunSpec {
	return model.ExportRunSpec{
		StartDate: "2025-03-01T00:00:00Z",
		EndDate:   "2025-04-01T00:00:00Z",
		Lenders:   lenders,
		Workers:   2,
	}
}

func TestRunExportsOneFilePerLender(t *testing.T) {
	openRunStore(t)

	at := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveDeals([]model.DealRecord{
		obs("s-1", at, "Alpha Bank", "Purchase", winnerResult("Alpha Bank")),
		obs("s-2", at.Add(time.Hour), "Beta Bank", "Refinance", winnerResult("Beta Bank")),
	}))

	spec := windowSpec() // empty lender list: discover from the store
	require.NoError(t, store.SaveRun("run-1", spec))
	exportDir := t.TempDir()

	require.NoError(t, Run(context.Background(), "run-1", spec, exportDir))

	for _, lender := range []string{"Alpha Bank", "Beta Bank"} {
		path := filepath.Join(exportDir, LenderFileName(lender))
		assert.FileExists(t, path)

		header, rows, err := readCSVRows(path)
		require.NoError(t, err)
		assert.Equal(t, ExportHeader, header)
		// One row per surviving scenario for every target lender.
		assert.Len(t, rows, 2)
	}

	run, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", run["status"])

	files, err := store.GetOutputFiles("run-1")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestRunFailsWhenStoreHasNoLenders(t *testing.T) {
	openRunStore(t)

	spec := windowSpec()
	require.NoError(t, store.SaveRun("run-1", spec))

	err := Run(context.Background(), "run-1", spec, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no lenders")

	run, getErr := store.GetRun("run-1")
	require.NoError(t, getErr)
	assert.Equal(t, "failed", run["status"])
}

func TestRunCancelledBeforeExport(t *testing.T) {
	openRunStore(t)

	at := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveDeals([]model.DealRecord{
		obs("s-1", at, "Alpha Bank", "Purchase", winnerResult("Alpha Bank")),
	}))

	spec := windowSpec("Alpha Bank", "Beta Bank", "Gamma Bank")
	require.NoError(t, store.SaveRun("run-1", spec))
	exportDir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, "run-1", spec, exportDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")

	// A cancelled run writes nothing.
	entries, readErr := os.ReadDir(exportDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)

	run, getErr := store.GetRun("run-1")
	require.NoError(t, getErr)
	assert.Equal(t, "failed", run["status"])
}

func TestRunInvalidWindow(t *testing.T) {
	openRunStore(t)

	spec := model.ExportRunSpec{StartDate: "2025-04-01T00:00:00Z", EndDate: "2025-03-01T00:00:00Z"}
	require.NoError(t, store.SaveRun("run-1", spec))

	err := Run(context.Background(), "run-1", spec, t.TempDir())
	assert.Error(t, err)
}
