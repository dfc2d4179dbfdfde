package pipeline

import (
	"context"
	"fmt"
	"sort"

	"lender-exports-pipeline/internal/model"
)

// DedupeScenarios folds the raw observation stream into one canonical
// snapshot per scenarioId. The attributes of the latest observation win; on
// duplicate max-time rows the last-seen observation wins (upstream does not
// define a tie-break, so last-seen keeps a run deterministic). Every non-null
// exported-lender result along the way is collected into the snapshot's
// historical set for later secondary-export detection.
//
// Snapshots are emitted only after the input closes, sorted by scenarioId.
func DedupeScenarios(ctx context.Context, in <-chan model.DealRecord) <-chan *model.ScenarioSnapshot {
	out := make(chan *model.ScenarioSnapshot, 100)

	go func() {
		defer close(out)

		snapshots := make(map[string]*model.ScenarioSnapshot)
		rawCount := 0

		for rec := range in {
			select {
			case <-ctx.Done():
				return
			default:
			}

			rawCount++
			snap, exists := snapshots[rec.ScenarioID]
			if !exists {
				snap = &model.ScenarioSnapshot{DealRecord: rec}
				snapshots[rec.ScenarioID] = snap
			} else if !rec.Time.Before(snap.Time) {
				// Equal times fall through here too: last-seen wins.
				historical := snap.Historical
				rawRows := snap.RawRows
				*snap = model.ScenarioSnapshot{DealRecord: rec, Historical: historical, RawRows: rawRows}
			}
			snap.RawRows++

			if matched := rec.ExportedResult(); matched != nil {
				snap.Historical = append(snap.Historical, *matched)
			}
		}

		ids := make([]string, 0, len(snapshots))
		for id := range snapshots {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			select {
			case <-ctx.Done():
				return
			case out <- snapshots[id]:
			}
		}

		fmt.Printf("🔍 Dedup Summary: %d raw observations folded into %d scenarios\n", rawCount, len(snapshots))
	}()

	return out
}
