package model

// Classification labels a (scenario, lender) pairing for the monthly report.
// The string values are consumed verbatim by the downstream reporting tool and
// must not change.
type Classification string

const (
	ClassSecondaryExport  Classification = "Secondary Export Deals"
	ClassNotAvailable     Classification = "Not Available Scenarios"
	ClassFailedInScope    Classification = "Failed In Scope Deals"
	ClassFailedOutOfScope Classification = "Failed Out of Scope Deals"
	ClassExportWinner     Classification = "Export Winner Deals"
	ClassNotExported      Classification = "Deals Not Exported"
	ClassUnknown          Classification = "Unknown"
)

// Classifications lists every label a row can carry, in decision order.
var Classifications = []Classification{
	ClassSecondaryExport,
	ClassNotAvailable,
	ClassFailedInScope,
	ClassFailedOutOfScope,
	ClassExportWinner,
	ClassNotExported,
	ClassUnknown,
}

// GlobalAggregates are computed once over the full surviving-scenario set and
// broadcast onto every output row.
type GlobalAggregates struct {
	UniqueScenarios    int            `json:"count_all_unique_scenario_id"`
	ScenariosByPurpose map[string]int `json:"count_all_loan_purpose"`
	TotalLoanAmount    float64        `json:"sum_all_total_proposed_loan_amount"`
}

// PurposeCount returns the distinct-scenario count for a loan purpose.
func (g GlobalAggregates) PurposeCount(purpose string) int {
	return g.ScenariosByPurpose[purpose]
}

// ExportRow is one output row: a surviving scenario paired with one target
// lender, classified, with the global aggregates attached.
type ExportRow struct {
	Snapshot         *ScenarioSnapshot
	AssociatedLender string
	Match            LenderResult
	Performance      Classification
	Aggregates       GlobalAggregates
}
