package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"lender-exports-pipeline/internal/model"
	"lender-exports-pipeline/internal/store"
	"lender-exports-pipeline/pkg/utils"
)

// ------------------- Ingestion -------------------

// StreamDeals pulls every valid-export observation inside the run window from
// the deal store and streams it into the pipeline. The store query already
// filters on is_valid_export and orders rows so that later observations
// arrive later.
func StreamDeals(ctx context.Context, start, end time.Time, out chan<- model.DealRecord, errs chan<- error) {
	fmt.Printf("➡️ Starting ingestion for window [%s, %s)\n",
		start.Format(time.RFC3339), end.Format(time.RFC3339))
	defer close(out)

	deals, err := store.DealsInWindow(start, end)
	if err != nil {
		errs <- fmt.Errorf("deal window query failed: %w", err)
		return
	}

	recordCount := 0
	for _, d := range deals {
		select {
		case <-ctx.Done():
			return
		case out <- d:
			recordCount++
			if recordCount%500 == 0 || recordCount <= 10 {
				fmt.Printf("📄 Ingestion: %d observations streamed\n", recordCount)
			}
		}
	}
	fmt.Printf("✅ Ingestion done: %d observations in window\n", recordCount)
}

// ------------------- CSV seeding -------------------

// dealSeedColumns are the expected header names of a seed file. The results
// column holds the raw JSON array exactly as the analytical view exposes it.
var dealSeedColumns = []string{
	"time", "scenarioId", "exportedLender", "results",
	"loanPurpose", "transactionType", "rateType", "lvrBucket", "lvr",
	"primaryIncome", "paygIncome", "selfEmployedIncome", "weeklyRentalIncome",
	"totalProposedLoanAmount",
}

// LoadDealsCSV reads raw deal observations from a CSV file, typically used to
// backfill the deal store from an analytical-view dump.
func LoadDealsCSV(path string) ([]model.DealRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed CSV: %w", err)
	}
	defer file.Close()

	csvReader := csv.NewReader(file)
	csvReader.LazyQuotes = true
	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read seed CSV header: %w", err)
	}

	// Map header name -> column index, tolerating quote remnants.
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		clean := strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
		index[clean] = i
	}
	for _, col := range dealSeedColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("seed CSV missing column %q", col)
		}
	}

	cell := func(row []string, name string) string {
		return strings.TrimSpace(row[index[name]])
	}

	var deals []model.DealRecord
	line := 1
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("seed CSV line %d: %w", line, err)
		}

		var d model.DealRecord
		d.Time, err = time.Parse(time.RFC3339, cell(row, "time"))
		if err != nil {
			return nil, fmt.Errorf("seed CSV line %d: bad time: %w", line, err)
		}
		d.ScenarioID = cell(row, "scenarioId")
		d.ExportedLender = cell(row, "exportedLender")
		d.Results, err = model.ParseResults(cell(row, "results"))
		if err != nil {
			return nil, fmt.Errorf("seed CSV line %d: %w", line, err)
		}
		d.LoanPurpose = cell(row, "loanPurpose")
		d.TransactionType = cell(row, "transactionType")
		d.RateType = cell(row, "rateType")
		d.LVRBucket = cell(row, "lvrBucket")
		d.LVR, _ = utils.ParseFloat(cell(row, "lvr"))
		d.PrimaryIncome = cell(row, "primaryIncome")
		d.PAYGIncome, _ = utils.ParseFloat(cell(row, "paygIncome"))
		d.SelfEmployedIncome, _ = utils.ParseFloat(cell(row, "selfEmployedIncome"))
		d.WeeklyRentalIncome, _ = utils.ParseFloat(cell(row, "weeklyRentalIncome"))
		d.TotalProposedLoanAmount, _ = utils.ParseFloat(cell(row, "totalProposedLoanAmount"))

		deals = append(deals, d)
	}

	fmt.Printf("📄 Seed CSV: %d observations read from %s\n", len(deals), path)
	return deals, nil
}
