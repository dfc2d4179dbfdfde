package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lender-exports-pipeline/internal/model"
	"lender-exports-pipeline/internal/store"
	"lender-exports-pipeline/pkg/utils"
)

// ------------------- Run orchestration -------------------

// Run executes one export run: ingest the window, dedupe to canonical
// scenarios, drop failing exports, compute the global aggregates once, then
// fan out over the target lenders and write one CSV per lender into
// exportDir. A failed lender aborts only that lender's export; the run keeps
// going and reports the failures at the end.
func Run(ctx context.Context, runID string, spec model.ExportRunSpec, exportDir string) (err error) {
	start := time.Now()
	fmt.Printf("🚀 Starting export run: %s\n", runID)

	store.UpdateRunStatus(runID, "running")
	defer func() {
		if err != nil {
			store.UpdateRunStatus(runID, "failed")
			store.SaveRunError(runID, err)
		}
	}()

	windowStart, windowEnd, err := spec.Window()
	if err != nil {
		return err
	}

	timeout := utils.ParseDuration(spec.Timeout, 10*time.Minute)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// --- INGEST + DEDUPE + FILTER ---
	stageStart := time.Now()
	store.UpdateRunStatus(runID, "ingesting")
	store.SaveStageProgress(runID, "ingest", "started", &stageStart, nil, 0, 0)
	store.SaveRunLog(runID, "ingest", "info", "Starting ingestion", map[string]interface{}{
		"window_start": spec.StartDate,
		"window_end":   spec.EndDate,
	})

	recordsCh := make(chan model.DealRecord, 100)
	errCh := make(chan error, 10)

	go StreamDeals(ctx, windowStart, windowEnd, recordsCh, errCh)

	snapshotCh := DedupeScenarios(ctx, recordsCh)
	survivors := CollectSurvivors(ctx, FilterFailingExports(ctx, snapshotCh))

	select {
	case ingestErr := <-errCh:
		return ingestErr
	default:
	}
	if ctx.Err() != nil {
		return fmt.Errorf("run cancelled: %w", ctx.Err())
	}

	stageEnd := time.Now()
	store.SaveStageProgress(runID, "ingest", "completed", &stageStart, &stageEnd, len(survivors), 0)
	store.SaveRunLog(runID, "ingest", "info", "Ingestion completed", map[string]interface{}{
		"surviving_scenarios": len(survivors),
		"duration_ms":         stageEnd.Sub(stageStart).Milliseconds(),
	})

	// --- AGGREGATION ---
	store.UpdateRunStatus(runID, "aggregating")
	aggregates := ComputeGlobalAggregates(survivors)

	// --- TARGET LENDERS ---
	lenders := spec.Lenders
	if len(lenders) == 0 {
		lenders, err = store.DistinctLenders()
		if err != nil {
			return fmt.Errorf("failed to discover lenders: %w", err)
		}
	}
	if len(lenders) == 0 {
		return fmt.Errorf("no lenders to export: deal store has no exported lenders in any window")
	}
	fmt.Printf("➡️ Exporting %d lenders\n", len(lenders))

	// --- PER-LENDER EXPORT ---
	exportStart := time.Now()
	store.UpdateRunStatus(runID, "exporting")
	store.SaveStageProgress(runID, "export", "started", &exportStart, nil, 0, 0)

	numWorkers := spec.Workers
	if numWorkers == 0 {
		numWorkers = 4 // default
	}
	if numWorkers > len(lenders) {
		numWorkers = len(lenders)
	}

	lenderCh := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	exported, failed := 0, 0

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func(workerID int) {
			defer wg.Done()
			for lender := range lenderCh {
				select {
				case <-ctx.Done():
					return
				default:
				}

				rows := BuildLenderRows(survivors, lender, aggregates)
				path := filepath.Join(exportDir, LenderFileName(lender))

				n, writeErr := WriteLenderCSV(path, rows)
				if writeErr != nil {
					fmt.Printf("❌ Export Worker %d: lender %s failed - %v\n", workerID, lender, writeErr)
					store.SaveRunError(runID, fmt.Errorf("lender %s: %w", lender, writeErr))
					store.SaveRunLog(runID, "export", "error", "Lender export failed", map[string]interface{}{
						"lender": lender,
						"error":  writeErr.Error(),
					})
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}

				var size int64
				if fi, statErr := os.Stat(path); statErr == nil {
					size = fi.Size()
				}
				store.SaveOutputFile(runID, lender, filepath.Base(path), path, "csv", n, size)
				fmt.Printf("✅ Export Worker %d: %d rows for lender %s\n", workerID, n, lender)
				mu.Lock()
				exported++
				mu.Unlock()
			}
		}(i)
	}

feed:
	for _, lender := range lenders {
		select {
		case <-ctx.Done():
			break feed
		case lenderCh <- lender:
		}
	}
	close(lenderCh)
	wg.Wait()

	if ctx.Err() != nil {
		return fmt.Errorf("run cancelled: %w", ctx.Err())
	}

	exportEnd := time.Now()
	store.SaveStageProgress(runID, "export", "completed", &exportStart, &exportEnd, exported, failed)
	store.SaveRunLog(runID, "export", "info", "Export stage completed", map[string]interface{}{
		"lenders_exported": exported,
		"lenders_failed":   failed,
		"duration_ms":      exportEnd.Sub(exportStart).Milliseconds(),
	})

	duration := time.Since(start)
	fmt.Printf("🏁 Export run %s finished in %v: %d lenders exported, %d failed\n", runID, duration, exported, failed)

	if failed > 0 && exported == 0 {
		return fmt.Errorf("all %d lender exports failed", failed)
	}
	store.UpdateRunStatus(runID, "completed")
	return nil
}
