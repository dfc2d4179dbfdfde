package store

import (
	"encoding/json"
	"fmt"
	"time"

	"lender-exports-pipeline/internal/model"
)

// SaveDeal inserts one raw deal export observation. The results collection is
// stored as its JSON encoding and re-typed on read.
func SaveDeal(d model.DealRecord, validExport bool) error {
	resultsJSON, err := json.Marshal(d.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	valid := 0
	if validExport {
		valid = 1
	}

	_, err = db.Exec(`INSERT INTO deals
		(time, scenario_id, exported_lender, results, is_valid_export,
		 loan_purpose, transaction_type, rate_type, lvr_bucket, lvr,
		 primary_income, payg_income, self_employed_income, weekly_rental_income,
		 total_proposed_loan_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Time.UTC().Format(timeLayout), d.ScenarioID, d.ExportedLender,
		string(resultsJSON), valid,
		d.LoanPurpose, d.TransactionType, d.RateType, d.LVRBucket, d.LVR,
		d.PrimaryIncome, d.PAYGIncome, d.SelfEmployedIncome, d.WeeklyRentalIncome,
		d.TotalProposedLoanAmount)
	return err
}

// SaveDeals inserts a batch of raw observations in one transaction.
func SaveDeals(deals []model.DealRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO deals
		(time, scenario_id, exported_lender, results, is_valid_export,
		 loan_purpose, transaction_type, rate_type, lvr_bucket, lvr,
		 primary_income, payg_income, self_employed_income, weekly_rental_income,
		 total_proposed_loan_amount)
		VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, d := range deals {
		resultsJSON, err := json.Marshal(d.Results)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to encode results for scenario %s: %w", d.ScenarioID, err)
		}
		if _, err := stmt.Exec(
			d.Time.UTC().Format(timeLayout), d.ScenarioID, d.ExportedLender,
			string(resultsJSON),
			d.LoanPurpose, d.TransactionType, d.RateType, d.LVRBucket, d.LVR,
			d.PrimaryIncome, d.PAYGIncome, d.SelfEmployedIncome, d.WeeklyRentalIncome,
			d.TotalProposedLoanAmount); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// DealsInWindow returns valid-export observations with start <= time < end,
// ordered by time then insertion order so that later rows win dedup tie-breaks
// deterministically.
func DealsInWindow(start, end time.Time) ([]model.DealRecord, error) {
	rows, err := db.Query(`SELECT time, scenario_id, exported_lender, results,
			loan_purpose, transaction_type, rate_type, lvr_bucket, lvr,
			primary_income, payg_income, self_employed_income, weekly_rental_income,
			total_proposed_loan_amount
		FROM deals
		WHERE is_valid_export = 1 AND time >= ? AND time < ?
		ORDER BY time ASC, id ASC`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []model.DealRecord
	for rows.Next() {
		var d model.DealRecord
		var ts, resultsJSON string
		if err := rows.Scan(&ts, &d.ScenarioID, &d.ExportedLender, &resultsJSON,
			&d.LoanPurpose, &d.TransactionType, &d.RateType, &d.LVRBucket, &d.LVR,
			&d.PrimaryIncome, &d.PAYGIncome, &d.SelfEmployedIncome, &d.WeeklyRentalIncome,
			&d.TotalProposedLoanAmount); err != nil {
			return nil, err
		}
		d.Time, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q in deal store: %w", ts, err)
		}
		d.Results, err = model.ParseResults(resultsJSON)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", d.ScenarioID, err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// DistinctLenders returns every distinct non-empty exported lender recorded in
// the deal store, sorted.
func DistinctLenders() ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT exported_lender FROM deals
		WHERE exported_lender IS NOT NULL AND exported_lender != ''
		ORDER BY exported_lender ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lenders []string
	for rows.Next() {
		var lender string
		if err := rows.Scan(&lender); err != nil {
			return nil, err
		}
		lenders = append(lenders, lender)
	}
	return lenders, rows.Err()
}
