package pipeline

import (
	"sort"

	"lender-exports-pipeline/internal/model"
)

// BuildLenderRows pairs every surviving scenario with the target lender,
// classifies the pairing, and attaches the broadcast aggregates. Scenarios
// the lender was never evaluated for get a synthetic placeholder entry, so
// there is always exactly one row per (scenario, target lender).
//
// Rows come back sorted by scenarioId; the per-file sort order
// (associated_lender, scenarioId) follows because a file holds one lender.
func BuildLenderRows(survivors []*model.ScenarioSnapshot, lender string, agg model.GlobalAggregates) []model.ExportRow {
	rows := make([]model.ExportRow, 0, len(survivors))

	for _, snap := range survivors {
		match := snap.ResultFor(lender)
		rows = append(rows, model.ExportRow{
			Snapshot:         snap,
			AssociatedLender: lender,
			Match:            match,
			Performance:      Classify(snap, match),
			Aggregates:       agg,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AssociatedLender != rows[j].AssociatedLender {
			return rows[i].AssociatedLender < rows[j].AssociatedLender
		}
		return rows[i].Snapshot.ScenarioID < rows[j].Snapshot.ScenarioID
	})

	return rows
}
