package pipeline

import (
	"lender-exports-pipeline/internal/model"
)

// Classify labels one (scenario, target lender) pairing. The decision order
// is fixed and first-match-wins:
//
//  1. the target is not the exported lender but serviced the scenario at some
//     point in its history -> Secondary Export Deals
//  2. no performance object on the match -> Not Available Scenarios
//  3. failed servicing -> Failed In/Out of Scope Deals (Unknown if neither
//     scope flag is set)
//  4. passed servicing -> Export Winner Deals / Deals Not Exported
//  5. anything else -> Unknown
//
// Absent flags are distinct from explicit false: an entry without a
// performance object is "not available", not "failed".
func Classify(snap *model.ScenarioSnapshot, match model.LenderResult) model.Classification {
	if match.LenderName != snap.ExportedLender && snap.HistoricalServiced(match.LenderName) {
		return model.ClassSecondaryExport
	}

	perf := match.Performance
	if perf == nil {
		return model.ClassNotAvailable
	}

	if perf.LenderFailedServicing.True() {
		switch {
		case perf.LenderFailedInScope.True():
			return model.ClassFailedInScope
		case perf.LenderFailedOutOfScope.True():
			return model.ClassFailedOutOfScope
		default:
			return model.ClassUnknown
		}
	}

	if perf.LenderPassedServicing.True() {
		if perf.LenderExportWinner.True() {
			return model.ClassExportWinner
		}
		return model.ClassNotExported
	}

	return model.ClassUnknown
}
