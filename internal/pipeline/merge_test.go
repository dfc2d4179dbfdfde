package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lender-exports-pipeline/internal/model"
)

func writeLenderExport(t *testing.T, dir, lender string, scenarios ...*model.ScenarioSnapshot) string {
	t.Helper()
	rows := BuildLenderRows(scenarios, lender, testAggregates())
	path := filepath.Join(dir, LenderFileName(lender))
	_, err := WriteLenderCSV(path, rows)
	require.NoError(t, err)
	return path
}

func TestMergeExports(t *testing.T) {
	exportDir := t.TempDir()
	resultDir := filepath.Join(t.TempDir(), "result")

	writeLenderExport(t, exportDir, "Alpha Bank",
		survivor("s-1", "Purchase", 500000),
		survivor("s-2", "Purchase", 300000),
	)
	writeLenderExport(t, exportDir, "Beta Bank",
		survivor("s-1", "Purchase", 500000),
	)

	result, err := MergeExports(exportDir, resultDir, "all-lenders.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Files)
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, filepath.Join(resultDir, "all-lenders.csv"), result.Path)

	header, rows, err := readCSVRows(result.Path)
	require.NoError(t, err)
	assert.Equal(t, ExportHeader, header)
	require.Len(t, rows, 3)

	// Files merge in lexical order: Alpha's rows precede Beta's.
	assert.Equal(t, "Alpha Bank", rows[0][2])
	assert.Equal(t, "Alpha Bank", rows[1][2])
	assert.Equal(t, "Beta Bank", rows[2][2])
}

func TestMergeExportsSkipsNonCSVEntries(t *testing.T) {
	exportDir := t.TempDir()
	resultDir := t.TempDir()

	writeLenderExport(t, exportDir, "Alpha Bank", survivor("s-1", "Purchase", 500000))
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "notes.txt"), []byte("ignore me"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(exportDir, "archive"), 0755))

	result, err := MergeExports(exportDir, resultDir, "all-lenders.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Files)
	assert.Equal(t, 1, result.Rows)
}

func TestMergeExportsSchemaMismatch(t *testing.T) {
	exportDir := t.TempDir()
	resultDir := t.TempDir()

	writeLenderExport(t, exportDir, "Alpha Bank", survivor("s-1", "Purchase", 500000))
	require.NoError(t, writeCSVRows(filepath.Join(exportDir, "results_Zeta_Bank.csv"),
		[]string{"time", "scenarioId"}, [][]string{{"2025-03-01T00:00:00Z", "s-9"}}))

	_, err := MergeExports(exportDir, resultDir, "all-lenders.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema mismatch")

	// A failed merge leaves no partial output behind.
	_, statErr := os.Stat(filepath.Join(resultDir, "all-lenders.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestMergeExportsMissingDirectory(t *testing.T) {
	_, err := MergeExports(filepath.Join(t.TempDir(), "missing"), t.TempDir(), "out.csv")
	assert.Error(t, err)
}

func TestMergeExportsNoCSVFiles(t *testing.T) {
	_, err := MergeExports(t.TempDir(), t.TempDir(), "out.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CSV files")
}

func TestMergeExportsEmptyLenderFileContributesNoRows(t *testing.T) {
	exportDir := t.TempDir()
	resultDir := t.TempDir()

	writeLenderExport(t, exportDir, "Alpha Bank", survivor("s-1", "Purchase", 500000))
	writeLenderExport(t, exportDir, "Beta Bank") // header only

	result, err := MergeExports(exportDir, resultDir, "all-lenders.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Files)
	assert.Equal(t, 1, result.Rows)
}

func TestMergeExportsWorkbook(t *testing.T) {
	exportDir := t.TempDir()
	resultDir := t.TempDir()

	writeLenderExport(t, exportDir, "Alpha Bank",
		survivor("s-1", "Purchase", 500000),
		survivor("s-2", "Purchase", 300000),
	)

	result, err := MergeExportsWorkbook(exportDir, resultDir, "all-lenders.csv", "all-lenders.xlsx")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(resultDir, "all-lenders.xlsx"), result.WorkbookPath)
	info, statErr := os.Stat(result.WorkbookPath)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(0))
}
