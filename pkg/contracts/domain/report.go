package domain

import (
	"time"
)

// ReportInfo describes one stored list report
type ReportInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	StoredAt time.Time `json:"stored_at"`
}

// SectionSummary reports how many lines a report section holds
type SectionSummary struct {
	Section string `json:"section"`
	Lines   int    `json:"lines"`
}

// ReportOutline is the coarse segmentation of a report
type ReportOutline struct {
	Sections        []SectionSummary `json:"sections"`
	InputCards      []string         `json:"input_cards,omitempty"`
	OutputVariables int              `json:"output_variables,omitempty"`
}

// BatchItem is the outcome of one request within a batch of table scans.
// Exactly one of Table and Error is set.
type BatchItem struct {
	Index   int               `json:"index"`
	Request TableRequest      `json:"request"`
	Table   *StatisticalTable `json:"table,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
}
