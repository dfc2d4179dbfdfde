package pipeline

import (
	"fmt"

	"lender-exports-pipeline/internal/model"
)

// ComputeGlobalAggregates runs a single pass over the surviving-scenario set:
// distinct scenario count overall, distinct scenario count per loan purpose,
// and the total proposed loan amount. The values are broadcast onto every
// output row, independent of which target lender is being processed.
func ComputeGlobalAggregates(survivors []*model.ScenarioSnapshot) model.GlobalAggregates {
	agg := model.GlobalAggregates{
		ScenariosByPurpose: make(map[string]int),
	}

	seen := make(map[string]bool, len(survivors))
	for _, snap := range survivors {
		if seen[snap.ScenarioID] {
			continue
		}
		seen[snap.ScenarioID] = true

		agg.UniqueScenarios++
		agg.ScenariosByPurpose[snap.LoanPurpose]++
		agg.TotalLoanAmount += snap.TotalProposedLoanAmount
	}

	fmt.Printf("📊 Aggregation Summary: %d unique scenarios, %d loan purposes, %.2f total proposed\n",
		agg.UniqueScenarios, len(agg.ScenariosByPurpose), agg.TotalLoanAmount)
	return agg
}
