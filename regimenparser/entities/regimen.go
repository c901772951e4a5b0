// Package entities defines the regimen data model shared by the parser,
// the schedule resolvers and the HTTP handlers. Regimen, Course and Drug
// are loaded once and treated as immutable for the lifetime of a snapshot.
package entities

import (
	"encoding/json"
	"fmt"
)

// Regimen is the top level treatment description: a free-text indication
// and an ordered sequence of courses. Course order is chronological.
type Regimen struct {
	Indication string   `json:"indication"`
	Courses    []Course `json:"courses"`
}

// Course is one phase of a regimen, repeated Cycles times with each cycle
// spanning CycleLength days.
type Course struct {
	Name                   string       `json:"name"`
	CycleLength            int          `json:"cycle_length"`
	Cycles                 int          `json:"cycles"`
	Drugs                  []Drug       `json:"drugs"`
	SupportiveCare         []string     `json:"supportive_care,omitempty"`
	MaintenanceTrastuzumab *Maintenance `json:"maintenance_trastuzumab,omitempty"`
}

// Maintenance describes an optional post-course maintenance phase.
type Maintenance struct {
	Duration int    `json:"duration"` // weeks
	Dose     string `json:"dose"`
}

// SpanDays returns the number of calendar days the course occupies on the
// timeline, whether or not any drug is administered.
func (c Course) SpanDays() int {
	return c.Cycles * c.CycleLength
}

// UnmarshalJSON enforces the required course fields. Drug shape problems
// are deliberately left to resolution time, except for records that cannot
// be classified at all (see Drug.UnmarshalJSON).
func (c *Course) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name                   string          `json:"name"`
		CycleLength            *int            `json:"cycle_length"`
		Cycles                 *int            `json:"cycles"`
		Drugs                  json.RawMessage `json:"drugs"`
		SupportiveCare         []string        `json:"supportive_care"`
		MaintenanceTrastuzumab *Maintenance    `json:"maintenance_trastuzumab"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return &MalformedInputError{Reason: "course record is not a mapping: " + err.Error()}
	}

	record := raw.Name
	if record == "" {
		record = "course"
	}
	if raw.CycleLength == nil {
		return &MalformedInputError{Reason: fmt.Sprintf("course record %q lacks \"cycle_length\"", record)}
	}
	if raw.Cycles == nil {
		return &MalformedInputError{Reason: fmt.Sprintf("course record %q lacks \"cycles\"", record)}
	}
	if raw.Drugs == nil {
		return &MalformedInputError{Reason: fmt.Sprintf("course record %q lacks \"drugs\"", record)}
	}

	var drugs []Drug
	if err := json.Unmarshal(raw.Drugs, &drugs); err != nil {
		return err
	}

	c.Name = raw.Name
	c.CycleLength = *raw.CycleLength
	c.Cycles = *raw.Cycles
	c.Drugs = drugs
	c.SupportiveCare = raw.SupportiveCare
	c.MaintenanceTrastuzumab = raw.MaintenanceTrastuzumab
	return nil
}
