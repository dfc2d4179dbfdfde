package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MergeResult summarizes one merge of per-lender exports.
type MergeResult struct {
	Files        int    `json:"files"`
	Rows         int    `json:"rows"`
	Path         string `json:"path"`
	WorkbookPath string `json:"workbook_path,omitempty"`
}

// MergeExports concatenates every CSV in exportDir into a single file in
// resultDir. All source files must share the same header; rows keep their
// order within each source file and source files are taken in
// directory-listing (lexical) order. A schema mismatch between files aborts
// the whole merge.
func MergeExports(exportDir, resultDir, outFile string) (*MergeResult, error) {
	if _, err := os.Stat(exportDir); err != nil {
		return nil, fmt.Errorf("export directory not found at %s: %w", exportDir, err)
	}
	if err := os.MkdirAll(resultDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create result directory %s: %w", resultDir, err)
	}

	entries, err := os.ReadDir(exportDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list export directory: %w", err)
	}

	var csvFiles []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		csvFiles = append(csvFiles, entry.Name())
	}
	if len(csvFiles) == 0 {
		return nil, fmt.Errorf("no CSV files found in %s", exportDir)
	}
	sort.Strings(csvFiles)

	var header []string
	var combined [][]string

	for _, name := range csvFiles {
		path := filepath.Join(exportDir, name)
		fileHeader, rows, err := readCSVRows(path)
		if err != nil {
			return nil, err
		}

		if header == nil {
			header = fileHeader
		} else if !equalHeader(header, fileHeader) {
			return nil, fmt.Errorf("schema mismatch in %s: header %v does not match %v", name, fileHeader, header)
		}

		combined = append(combined, rows...)
		fmt.Printf("📄 Merged %d rows from %s\n", len(rows), name)
	}

	outPath := filepath.Join(resultDir, outFile)
	if err := writeCSVRows(outPath, header, combined); err != nil {
		return nil, err
	}

	fmt.Printf("✅ Merge complete: %d files, %d rows -> %s\n", len(csvFiles), len(combined), outPath)
	return &MergeResult{
		Files: len(csvFiles),
		Rows:  len(combined),
		Path:  outPath,
	}, nil
}

// MergeExportsWorkbook runs MergeExports and additionally writes the combined
// rows as an XLSX workbook next to the merged CSV, for reporting tools that
// prefer a spreadsheet over raw CSV.
func MergeExportsWorkbook(exportDir, resultDir, outFile, workbookFile string) (*MergeResult, error) {
	result, err := MergeExports(exportDir, resultDir, outFile)
	if err != nil {
		return nil, err
	}

	header, rows, err := readCSVRows(result.Path)
	if err != nil {
		return nil, err
	}

	workbookPath := filepath.Join(resultDir, workbookFile)
	if err := writeWorkbook(workbookPath, header, rows); err != nil {
		return nil, err
	}

	fmt.Printf("✅ Workbook written: %s\n", workbookPath)
	result.WorkbookPath = workbookPath
	return result, nil
}

func readCSVRows(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s is empty: missing header row", path)
	}
	return all[0], all[1:], nil
}

func writeCSVRows(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeWorkbook(path string, header []string, rows [][]string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	const sheet = "Exports"
	index, err := wb.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	wb.SetActiveSheet(index)
	wb.DeleteSheet("Sheet1")

	writeRow := func(rowIdx int, cells []string) error {
		addr, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return wb.SetSheetRow(sheet, addr, &values)
	}

	if err := writeRow(1, header); err != nil {
		return fmt.Errorf("failed to write workbook header: %w", err)
	}
	for i, row := range rows {
		if err := writeRow(i+2, row); err != nil {
			return fmt.Errorf("failed to write workbook row %d: %w", i+1, err)
		}
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
