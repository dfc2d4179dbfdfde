package model

import (
	"fmt"
	"time"
)

// ExportRunSpec is the payload for POST /api/v1/exports and the unit of work
// for the exporter binary: one date window, one export directory, one CSV per
// lender.
type ExportRunSpec struct {
	// StartDate and EndDate bound the window as [start, end), RFC3339.
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`

	// Lenders restricts the run to a subset. Empty means discover every
	// distinct exported lender from the deal store.
	Lenders []string `json:"lenders,omitempty"`

	// ExportDir overrides the configured per-run export directory.
	ExportDir string `json:"exportDir,omitempty"`

	// Workers bounds the per-lender fan-out. Zero picks a default.
	Workers int `json:"workers,omitempty"`

	// Timeout caps the whole run, e.g. "10m".
	Timeout string `json:"timeout,omitempty"`
}

// Window parses the inclusive-exclusive timestamp bounds.
func (s ExportRunSpec) Window() (start, end time.Time, err error) {
	start, err = time.Parse(time.RFC3339, s.StartDate)
	if err != nil {
		return start, end, fmt.Errorf("invalid startDate %q: %w", s.StartDate, err)
	}
	end, err = time.Parse(time.RFC3339, s.EndDate)
	if err != nil {
		return start, end, fmt.Errorf("invalid endDate %q: %w", s.EndDate, err)
	}
	if !end.After(start) {
		return start, end, fmt.Errorf("endDate %s must be after startDate %s", s.EndDate, s.StartDate)
	}
	return start, end, nil
}
