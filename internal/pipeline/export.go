package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"lender-exports-pipeline/internal/model"
	"lender-exports-pipeline/pkg/utils"
)

// ExportHeader is the fixed projection of every export file. No JSON-typed
// columns are emitted; the downstream spreadsheet tool chokes on them.
var ExportHeader = []string{
	"time",
	"scenarioId",
	"associated_lender",
	"exportedLender",
	"loanPurpose",
	"transactionType",
	"rateType",
	"lvrBucket",
	"lvr",
	"primaryIncome",
	"paygIncome",
	"selfEmployedIncome",
	"weeklyRentalIncome",
	"totalProposedLoanAmount",
	"count_all_unique_scenario_id",
	"count_all_loan_purpose",
	"sum_all_total_proposed_loan_amount",
	"performance",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// rowCells projects an export row onto the fixed column list.
func rowCells(r model.ExportRow) []string {
	s := r.Snapshot
	return []string{
		s.Time.UTC().Format(time.RFC3339),
		utils.CleanCell(s.ScenarioID),
		utils.CleanCell(r.AssociatedLender),
		utils.CleanCell(s.ExportedLender),
		utils.CleanCell(s.LoanPurpose),
		utils.CleanCell(s.TransactionType),
		utils.CleanCell(s.RateType),
		utils.CleanCell(s.LVRBucket),
		formatFloat(s.LVR),
		utils.CleanCell(s.PrimaryIncome),
		formatFloat(s.PAYGIncome),
		formatFloat(s.SelfEmployedIncome),
		formatFloat(s.WeeklyRentalIncome),
		formatFloat(s.TotalProposedLoanAmount),
		strconv.Itoa(r.Aggregates.UniqueScenarios),
		strconv.Itoa(r.Aggregates.PurposeCount(s.LoanPurpose)),
		formatFloat(r.Aggregates.TotalLoanAmount),
		string(r.Performance),
	}
}

// LenderFileName names the per-lender export file.
func LenderFileName(lender string) string {
	return fmt.Sprintf("results_%s.csv", utils.SafeFilename(lender))
}

// WriteLenderCSV writes one lender's rows to path and re-validates the file
// structure afterwards. Returns the number of data rows written.
func WriteLenderCSV(path string, rows []model.ExportRow) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(ExportHeader); err != nil {
		file.Close()
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	recordCount := 0
	for _, row := range rows {
		if err := writer.Write(rowCells(row)); err != nil {
			file.Close()
			return recordCount, fmt.Errorf("failed to write row: %w", err)
		}
		recordCount++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return recordCount, err
	}
	if err := file.Close(); err != nil {
		return recordCount, err
	}

	if err := ValidateExportCSV(path); err != nil {
		return recordCount, err
	}

	fmt.Printf("💾 Saved %d rows to %s\n", recordCount, path)
	return recordCount, nil
}

// ValidateExportCSV re-reads a written export and checks the header and row
// widths against the fixed projection, mirroring the post-write validation
// the reporting workflow has always done.
func ValidateExportCSV(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to reopen export for validation: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	if len(header) != len(ExportHeader) {
		return fmt.Errorf("%s: header mismatch: expected %d columns, got %d", path, len(ExportHeader), len(header))
	}
	for i, col := range ExportHeader {
		if header[i] != col {
			return fmt.Errorf("%s: header mismatch at column %d: expected %q, got %q", path, i, col, header[i])
		}
	}

	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
		if len(row) != len(ExportHeader) {
			return fmt.Errorf("%s line %d: expected %d columns, got %d", path, line, len(ExportHeader), len(row))
		}
	}
}
