package session

import "fmt"

// Phase is the exclusive screen-cycle state of a result session.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseInFlight Phase = "in_flight"
	PhaseSettled  Phase = "settled"
	PhaseFailed   Phase = "failed"
)

// ViewMode selects which projection renders an expanded hazard. Orthogonal to
// the screen phase and to expansion state.
type ViewMode string

const (
	ViewSummary    ViewMode = "summary"
	ViewStructured ViewMode = "structured"
)

func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case ViewSummary, ViewStructured:
		return ViewMode(s), nil
	}
	return "", fmt.Errorf("unknown view mode: %q", s)
}

// HazardKey addresses one hazard inside one record of the current result.
type HazardKey struct {
	Record int `json:"record"`
	Hazard int `json:"hazard"`
}

// Expansion is the presentation-only expand/collapse state. Values are
// immutable; transitions return a fresh copy so they can be unit tested
// independent of rendering.
type Expansion struct {
	records map[int]struct{}
	hazards map[HazardKey]struct{}
}

// NewExpansion returns an empty expansion state.
func NewExpansion() Expansion {
	return Expansion{
		records: map[int]struct{}{},
		hazards: map[HazardKey]struct{}{},
	}
}

// ExpansionForResult is the default state once results arrive: record 0
// expanded, no hazards expanded.
func ExpansionForResult() Expansion {
	e := NewExpansion()
	e.records[0] = struct{}{}
	return e
}

func (e Expansion) clone() Expansion {
	c := Expansion{
		records: make(map[int]struct{}, len(e.records)),
		hazards: make(map[HazardKey]struct{}, len(e.hazards)),
	}
	for k := range e.records {
		c.records[k] = struct{}{}
	}
	for k := range e.hazards {
		c.hazards[k] = struct{}{}
	}
	return c
}

// ToggleRecord flips the expanded state of one record index. Toggling twice
// restores the prior state.
func (e Expansion) ToggleRecord(i int) Expansion {
	c := e.clone()
	if _, ok := c.records[i]; ok {
		delete(c.records, i)
	} else {
		c.records[i] = struct{}{}
	}
	return c
}

// ToggleHazard flips the expanded state of one (record, hazard) key.
func (e Expansion) ToggleHazard(k HazardKey) Expansion {
	c := e.clone()
	if _, ok := c.hazards[k]; ok {
		delete(c.hazards, k)
	} else {
		c.hazards[k] = struct{}{}
	}
	return c
}

// RecordExpanded reports whether a record index is expanded.
func (e Expansion) RecordExpanded(i int) bool {
	_, ok := e.records[i]
	return ok
}

// HazardExpanded reports whether a hazard key is expanded.
func (e Expansion) HazardExpanded(k HazardKey) bool {
	_, ok := e.hazards[k]
	return ok
}

// ExpandedRecords returns the expanded record indices (unordered).
func (e Expansion) ExpandedRecords() []int {
	out := make([]int, 0, len(e.records))
	for i := range e.records {
		out = append(out, i)
	}
	return out
}

// ExpandedHazards returns the expanded hazard keys (unordered).
func (e Expansion) ExpandedHazards() []HazardKey {
	out := make([]HazardKey, 0, len(e.hazards))
	for k := range e.hazards {
		out = append(out, k)
	}
	return out
}
