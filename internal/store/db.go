package store

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// timeLayout is the canonical text encoding for timestamps in the store.
// RFC3339 in UTC compares lexically, which keeps the window query a plain
// range scan.
const timeLayout = time.RFC3339

// InitDB opens the SQLite store and creates the schema if needed.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS deals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			time TEXT,
			scenario_id TEXT,
			exported_lender TEXT,
			results TEXT,
			is_valid_export INTEGER,
			loan_purpose TEXT,
			transaction_type TEXT,
			rate_type TEXT,
			lvr_bucket TEXT,
			lvr REAL,
			primary_income TEXT,
			payg_income REAL,
			self_employed_income REAL,
			weekly_rental_income REAL,
			total_proposed_loan_amount REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_deals_time ON deals(time);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			spec TEXT,
			status TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			error_message TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS stage_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			stage TEXT,
			status TEXT,
			started_at DATETIME,
			ended_at DATETIME,
			records INTEGER,
			errors INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS run_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			stage TEXT,
			level TEXT,
			message TEXT,
			details TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS output_files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			lender TEXT,
			file_name TEXT,
			file_path TEXT,
			file_type TEXT,
			row_count INTEGER,
			file_size INTEGER,
			created_at DATETIME
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database handle.
func Close() error {
	if db == nil {
		return nil
	}
	return db.Close()
}
