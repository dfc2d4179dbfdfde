package pipeline

import (
	"context"
	"fmt"

	"lender-exports-pipeline/internal/model"
)

// FilterFailingExports drops scenarios whose export is failing: empty
// exportedLender, no result matching it, a non-servicing match, or a match
// without a numeric borrowing capacity. Dropped scenarios never reach
// lender-matching and are excluded from the global aggregates.
func FilterFailingExports(ctx context.Context, in <-chan *model.ScenarioSnapshot) <-chan *model.ScenarioSnapshot {
	out := make(chan *model.ScenarioSnapshot, 100)

	go func() {
		defer close(out)

		kept, dropped := 0, 0
		for snap := range in {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if snap.FailingExport() {
				dropped++
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- snap:
				kept++
			}
		}
		fmt.Printf("🔍 Export Filter Summary: %d scenarios kept, %d failing exports dropped\n", kept, dropped)
	}()

	return out
}

// CollectSurvivors drains the filtered stream into a slice. The surviving set
// is needed in full twice: once for the global aggregates and once per target
// lender.
func CollectSurvivors(ctx context.Context, in <-chan *model.ScenarioSnapshot) []*model.ScenarioSnapshot {
	var survivors []*model.ScenarioSnapshot
	for snap := range in {
		select {
		case <-ctx.Done():
			return survivors
		default:
			survivors = append(survivors, snap)
		}
	}
	return survivors
}
