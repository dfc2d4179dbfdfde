package main

import (
	"flag"
	"log"

	"lender-exports-pipeline/internal/config"
	"lender-exports-pipeline/internal/pipeline"
)

func main() {
	exportDir := flag.String("export-dir", "", "directory of per-lender CSVs to merge (default: configured export_dir)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dir := cfg.ExportDir
	if *exportDir != "" {
		dir = *exportDir
	}

	if cfg.WorkbookFile != "" {
		_, err = pipeline.MergeExportsWorkbook(dir, cfg.ResultDir, cfg.MergedFile, cfg.WorkbookFile)
	} else {
		_, err = pipeline.MergeExports(dir, cfg.ResultDir, cfg.MergedFile)
	}
	if err != nil {
		log.Fatalf("merge failed: %v", err)
	}
}
