package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TriBool is a loosely typed boolean as it arrives from the upstream JSON
// encoding, where flags are the string literals "true"/"false" or are missing
// entirely. Absent is meaningful and must stay distinct from explicit false.
type TriBool int

const (
	TriAbsent TriBool = iota
	TriFalse
	TriTrue
)

// True reports whether the flag was explicitly set to true.
func (t TriBool) True() bool { return t == TriTrue }

// UnmarshalJSON accepts native booleans, the string forms "true"/"false",
// and null (treated as absent).
func (t *TriBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", `""`:
		*t = TriAbsent
		return nil
	case "true", `"true"`:
		*t = TriTrue
		return nil
	case "false", `"false"`:
		*t = TriFalse
		return nil
	}
	return fmt.Errorf("invalid boolean value: %s", data)
}

func (t TriBool) MarshalJSON() ([]byte, error) {
	switch t {
	case TriTrue:
		return []byte(`"true"`), nil
	case TriFalse:
		return []byte(`"false"`), nil
	}
	return []byte("null"), nil
}

// Amount is a nullable monetary value. Upstream encodes capacities either as
// numbers or as numeric strings; null/absent/empty all mean "no value".
type Amount struct {
	Value float64
	Valid bool
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" || string(data) == `""` {
		*a = Amount{}
		return nil
	}
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	*a = Amount{Value: v, Valid: true}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(a.Value, 'f', -1, 64)), nil
}

// String renders the amount for CSV cells; empty when there is no value.
func (a Amount) String() string {
	if !a.Valid {
		return ""
	}
	return strconv.FormatFloat(a.Value, 'f', -1, 64)
}

// Performance holds the per-lender servicing outcome flags recorded for a
// scenario evaluation.
type Performance struct {
	LenderFailedServicing  TriBool `json:"lenderFailedServicing"`
	LenderFailedInScope    TriBool `json:"lenderFailedInScope"`
	LenderFailedOutOfScope TriBool `json:"lenderFailedOutOfScope"`
	LenderPassedServicing  TriBool `json:"lenderPassedServicing"`
	LenderExportWinner     TriBool `json:"lenderExportWinner"`
}

// LenderResult is one entry of a scenario's result collection: the outcome of
// evaluating a single lender against the scenario.
type LenderResult struct {
	LenderName           string       `json:"lenderName"`
	DoesService          TriBool      `json:"doesService"`
	MaxBorrowingCapacity Amount       `json:"maxBorrowingCapacity"`
	Performance          *Performance `json:"performance,omitempty"`
}

// Placeholder reports whether this entry was synthesized because the lender
// was never evaluated for the scenario (only the name is populated).
func (r LenderResult) Placeholder() bool {
	return r.DoesService == TriAbsent && !r.MaxBorrowingCapacity.Valid && r.Performance == nil
}

// DealRecord is one raw export observation: a (scenarioId, time) pair carrying
// the applicant/loan attributes, the full result collection, and the lender
// that was actually submitted (if any).
type DealRecord struct {
	Time                    time.Time      `json:"time"`
	ScenarioID              string         `json:"scenarioId"`
	ExportedLender          string         `json:"exportedLender"`
	Results                 []LenderResult `json:"results"`
	LoanPurpose             string         `json:"loanPurpose"`
	TransactionType         string         `json:"transactionType"`
	RateType                string         `json:"rateType"`
	LVRBucket               string         `json:"lvrBucket"`
	LVR                     float64        `json:"lvr"`
	PrimaryIncome           string         `json:"primaryIncome"`
	PAYGIncome              float64        `json:"paygIncome"`
	SelfEmployedIncome      float64        `json:"selfEmployedIncome"`
	WeeklyRentalIncome      float64        `json:"weeklyRentalIncome"`
	TotalProposedLoanAmount float64        `json:"totalProposedLoanAmount"`
}

// ExportedResult returns the result entry matching the exported lender, or nil
// when no entry matches (including the empty exported lender).
func (d *DealRecord) ExportedResult() *LenderResult {
	if d.ExportedLender == "" {
		return nil
	}
	for i := range d.Results {
		if d.Results[i].LenderName == d.ExportedLender {
			return &d.Results[i]
		}
	}
	return nil
}

// ParseResults decodes a raw results JSON array into typed entries. This is
// the single parse boundary: string booleans and string amounts are normalized
// here and never re-parsed downstream.
func ParseResults(raw string) ([]LenderResult, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var results []LenderResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, fmt.Errorf("failed to decode results collection: %w", err)
	}
	return results, nil
}

// ScenarioSnapshot is the canonical per-scenario record after deduplication:
// the attributes of the latest observation plus the set of exported-lender
// results seen across all raw rows for the scenario.
type ScenarioSnapshot struct {
	DealRecord

	// Historical collects the non-null matched-export results observed across
	// every raw row of the scenario, in observation order. Used for
	// secondary-export detection.
	Historical []LenderResult

	// RawRows counts how many raw observations were folded into the snapshot.
	RawRows int
}

// FailingExport reports whether the scenario must be dropped before any
// lender-matching: no exported lender, no result matching it, the matched
// lender does not service, or it carries no numeric capacity.
func (s *ScenarioSnapshot) FailingExport() bool {
	if s.ExportedLender == "" {
		return true
	}
	match := s.ExportedResult()
	if match == nil {
		return true
	}
	return !match.DoesService.True() || !match.MaxBorrowingCapacity.Valid
}

// ResultFor returns the result entry for the target lender, synthesizing an
// empty placeholder when the lender was never evaluated for this scenario.
func (s *ScenarioSnapshot) ResultFor(lender string) LenderResult {
	for _, r := range s.Results {
		if r.LenderName == lender {
			return r
		}
	}
	return LenderResult{LenderName: lender}
}

// HistoricalServiced reports whether the lender appears in the scenario's
// historical exported-result set with a positive servicing outcome and a
// numeric capacity.
func (s *ScenarioSnapshot) HistoricalServiced(lender string) bool {
	for _, r := range s.Historical {
		if r.LenderName == lender && r.DoesService.True() && r.MaxBorrowingCapacity.Valid {
			return true
		}
	}
	return false
}
