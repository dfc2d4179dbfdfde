package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"lender-exports-pipeline/internal/config"
	"lender-exports-pipeline/internal/model"
	"lender-exports-pipeline/internal/pipeline"
	"lender-exports-pipeline/internal/store"
	"lender-exports-pipeline/pkg/utils"

	"github.com/google/uuid"
)

func main() {
	seedPath := flag.String("seed", "", "CSV file of raw deal observations to load into the store before running")
	lenderList := flag.String("lenders", "", "comma-separated lender names (default: every exported lender in the store)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := store.InitDB(cfg.DBPath); err != nil {
		log.Fatalf("failed to open deal store: %v", err)
	}
	defer store.Close()

	if *seedPath != "" {
		deals, err := pipeline.LoadDealsCSV(*seedPath)
		if err != nil {
			log.Fatalf("failed to load seed file: %v", err)
		}
		if err := store.SaveDeals(deals); err != nil {
			log.Fatalf("failed to store seed deals: %v", err)
		}
		fmt.Printf("💾 Seeded %d observations from %s\n", len(deals), *seedPath)
	}

	spec := model.ExportRunSpec{
		StartDate: cfg.StartDate,
		EndDate:   cfg.EndDate,
		Workers:   cfg.LenderWorkers,
		Timeout:   cfg.RunTimeout,
	}
	if *lenderList != "" {
		for _, lender := range strings.Split(*lenderList, ",") {
			if lender = strings.TrimSpace(lender); lender != "" {
				spec.Lenders = append(spec.Lenders, lender)
			}
		}
	}

	runID := uuid.New().String()
	if err := store.SaveRun(runID, spec); err != nil {
		log.Fatalf("failed to record run: %v", err)
	}

	outputs := utils.NewOutputManager(cfg.ExportDir, cfg.ResultDir)
	exportDir, err := outputs.RunExportDir(runID)
	if err != nil {
		log.Fatalf("failed to create export directory: %v", err)
	}

	if err := pipeline.Run(context.Background(), runID, spec, exportDir); err != nil {
		log.Fatalf("export run %s failed: %v", runID, err)
	}
}
