package domain

// TableKind identifies the quantity a statistical table or caption describes
type TableKind string

const (
	TableKindVoltage TableKind = "voltage"
	TableKindCurrent TableKind = "current"
	TableKindEnergy  TableKind = "energy"
)

// Valid reports whether k is one of the known kinds
func (k TableKind) Valid() bool {
	switch k {
	case TableKindVoltage, TableKindCurrent, TableKindEnergy:
		return true
	}
	return false
}

// StatisticalTable is one decoded "statistical distribution of peak ..." table.
// Rows keep the order in which they appear in the report.
type StatisticalTable struct {
	Kind             TableKind  `json:"kind"`
	Primary          string     `json:"primary"`
	Secondary        string     `json:"secondary,omitempty"`
	MatchedPrimary   string     `json:"matched_primary"`
	MatchedSecondary string     `json:"matched_secondary,omitempty"`
	Summary          bool       `json:"summary"`
	Base             float64    `json:"base"`
	Rows             []TableRow `json:"rows"`
	Grouped          Statistics `json:"grouped"`
	Ungrouped        Statistics `json:"ungrouped"`
}

// TableRow is one fixed-width data line of a distribution table
type TableRow struct {
	Interval            int     `json:"interval"`
	PerUnit             float64 `json:"per_unit"`
	Absolute            float64 `json:"absolute"`
	FrequencyDiscrete   int     `json:"frequency_discrete"`
	FrequencyCumulative int     `json:"frequency_cumulative"`
	Probability         float64 `json:"probability"`
}

// Statistics holds the mean, variance and standard deviation printed after a table
type Statistics struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
}

// TableRequest selects one table in a report.
// Primary is the node (voltage) or the "from" node (current); Secondary is the "to" node.
type TableRequest struct {
	Kind      TableKind `json:"kind" validate:"required,oneof=voltage current"`
	Primary   string    `json:"primary" validate:"required,nodename"`
	Secondary string    `json:"secondary,omitempty" validate:"required_if=Kind current,omitempty,nodename"`
	Summary   bool      `json:"summary"`
}

// VariableName is one table caption found in a report
type VariableName struct {
	Kind  TableKind `json:"kind"`
	Name1 string    `json:"name1"`
	Name2 string    `json:"name2,omitempty"`
}

// ShotEvent correlates a statistical output variable with the shot that produced its peak
type ShotEvent struct {
	Kind  TableKind `json:"kind"`
	Name1 string    `json:"name1"`
	Name2 string    `json:"name2,omitempty"`
	Peak  float64   `json:"peak"`
	Shot  int       `json:"shot"`
}

// SwitchingTimes holds the random closing instants of a three-phase statistical switch, one entry per shot
type SwitchingTimes struct {
	PhaseA []float64 `json:"phase_a"`
	PhaseB []float64 `json:"phase_b"`
	PhaseC []float64 `json:"phase_c"`
}

// Shots returns the number of simulations recorded
func (s *SwitchingTimes) Shots() int {
	return len(s.PhaseA)
}
