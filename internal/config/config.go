// Package config defines the process configuration for the exporter, merger
// and API binaries.
package config

// Config contains process configuration. Values are layered from defaults,
// an optional YAML file, and EXPORTS_-prefixed environment variables.
type Config struct {
	// DBPath locates the SQLite deal/run store.
	DBPath string `koanf:"db_path"`

	// StartDate and EndDate bound the export window [start, end), RFC3339.
	// Update these before each monthly run.
	StartDate string `koanf:"start_date"`
	EndDate   string `koanf:"end_date"`

	// ExportDir receives one CSV per lender per run.
	ExportDir string `koanf:"export_dir"`

	// ResultDir receives the merged all-lenders file.
	ResultDir string `koanf:"result_dir"`

	// MergedFile names the concatenated CSV written into ResultDir.
	MergedFile string `koanf:"merged_file"`

	// WorkbookFile, when non-empty, names an additional XLSX workbook written
	// alongside the merged CSV for the reporting tool.
	WorkbookFile string `koanf:"workbook_file"`

	// Addr configures the API listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LenderWorkers bounds the per-lender export fan-out.
	LenderWorkers int `koanf:"lender_workers"`

	// RunTimeout caps a whole export run, e.g. "10m".
	RunTimeout string `koanf:"run_timeout"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		DBPath:        "exports.db",
		StartDate:     "2025-01-01T00:00:00Z",
		EndDate:       "2025-08-01T00:00:00Z",
		ExportDir:     "output",
		ResultDir:     "result",
		MergedFile:    "all-lenders-exports.csv",
		WorkbookFile:  "",
		Addr:          ":8080",
		LenderWorkers: 4,
		RunTimeout:    "10m",
	}
}
