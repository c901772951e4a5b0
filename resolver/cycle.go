// Package resolver derives schedules from a loaded regimen: per-cycle
// daily administration calendars and absolute-dated treatment timelines.
// Every function is a pure computation over immutable input and is safe
// to call concurrently.
package resolver

import (
	"fmt"

	"github.com/nkiranraj/oncov3/regimenparser/entities"
)

// DoseRule selects how a multi-day drug's loading dose is triggered.
type DoseRule int

const (
	// DoseRuleCycleDayOne applies the loading dose only when the
	// administration day is literally day 1 of the cycle. This mirrors the
	// historical behavior: a multi-day drug scheduled only on days {3, 5}
	// never receives its loading dose.
	DoseRuleCycleDayOne DoseRule = iota

	// DoseRuleFirstScheduledDay applies the loading dose on the drug's
	// first scheduled day, whichever day of the cycle that is.
	DoseRuleFirstScheduledDay
)

// ParseDoseRule maps the wire names of the two dose rules. An empty string
// selects the default.
func ParseDoseRule(s string) (DoseRule, error) {
	switch s {
	case "", "cycle-day-one":
		return DoseRuleCycleDayOne, nil
	case "first-scheduled-day":
		return DoseRuleFirstScheduledDay, nil
	default:
		return 0, fmt.Errorf("unknown dose rule %q", s)
	}
}

// ResolveCycle computes the daily administration schedule for one cycle of
// a course using the default dose rule. The result always has exactly
// course.CycleLength entries, numbered 1..CycleLength in order.
//
// Cycle content does not depend on cycleNumber: cycles of a course are
// structurally identical and only the timeline places them in time. The
// parameter is still bounds-checked so callers cannot address a cycle the
// course does not have.
func ResolveCycle(course entities.Course, cycleNumber int) ([]entities.CycleDayEntry, error) {
	return ResolveCycleWithRule(course, cycleNumber, DoseRuleCycleDayOne)
}

// ResolveCycleWithRule is ResolveCycle with an explicit dose rule.
func ResolveCycleWithRule(course entities.Course, cycleNumber int, rule DoseRule) ([]entities.CycleDayEntry, error) {
	if err := ValidateCourse(course); err != nil {
		return nil, err
	}
	if cycleNumber < 1 || cycleNumber > course.Cycles {
		return nil, &entities.InvalidRangeError{
			Record: courseRecord(course),
			Field:  "cycle_number",
			Value:  cycleNumber,
			Min:    1,
			Max:    course.Cycles,
		}
	}

	entries := make([]entities.CycleDayEntry, 0, course.CycleLength)
	for day := 1; day <= course.CycleLength; day++ {
		administered := []entities.DrugAdministration{}
		for _, drug := range course.Drugs {
			adm, ok, err := administeredOn(drug, day, rule)
			if err != nil {
				return nil, err
			}
			if ok {
				administered = append(administered, adm)
			}
		}
		entries = append(entries, entities.CycleDayEntry{
			Day:          day,
			HasTreatment: len(administered) > 0,
			Drugs:        administered,
		})
	}
	return entries, nil
}

// administeredOn reports whether drug is given on the cycle day and, if so,
// the (name, dose, route) triple for that day. Missing route or dose fields
// surface here, at the moment the field is actually needed.
func administeredOn(drug entities.Drug, day int, rule DoseRule) (entities.DrugAdministration, bool, error) {
	var none entities.DrugAdministration

	switch drug.Kind {
	case entities.SingleDay:
		if drug.Day != day {
			return none, false, nil
		}
		if drug.Dose == "" {
			return none, false, &entities.MissingFieldError{Record: drug.Name, Field: "dose"}
		}
		if drug.Route == "" {
			return none, false, &entities.MissingFieldError{Record: drug.Name, Field: "route"}
		}
		return entities.DrugAdministration{Name: drug.Name, Dose: drug.Dose, Route: drug.Route}, true, nil

	case entities.MultiDay:
		if !containsDay(drug.Days, day) {
			return none, false, nil
		}
		dose, field := drug.MaintenanceDose, "maintenance_dose"
		if isLoadingDay(drug, day, rule) {
			dose, field = drug.LoadingDose, "loading_dose"
		}
		if dose == "" {
			return none, false, &entities.MissingFieldError{Record: drug.Name, Field: field}
		}
		if drug.Route == "" {
			return none, false, &entities.MissingFieldError{Record: drug.Name, Field: "route"}
		}
		return entities.DrugAdministration{Name: drug.Name, Dose: dose, Route: drug.Route}, true, nil

	default:
		return none, false, &entities.MalformedInputError{
			Reason: fmt.Sprintf("record %q has no administration shape", drug.Name),
		}
	}
}

func isLoadingDay(drug entities.Drug, day int, rule DoseRule) bool {
	if rule == DoseRuleFirstScheduledDay {
		return day == drug.FirstScheduledDay()
	}
	return day == 1
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// ValidateCourse checks the structural invariants a course must satisfy
// before any resolution: positive cycle_length and cycles, every drug
// classified into one shape, and every day value inside [1, cycle_length].
func ValidateCourse(course entities.Course) error {
	record := courseRecord(course)

	if course.CycleLength < 1 {
		return &entities.InvalidRangeError{Record: record, Field: "cycle_length", Value: course.CycleLength, Min: 1, Max: 0}
	}
	if course.Cycles < 1 {
		return &entities.InvalidRangeError{Record: record, Field: "cycles", Value: course.Cycles, Min: 1, Max: 0}
	}

	for _, drug := range course.Drugs {
		switch drug.Kind {
		case entities.SingleDay:
			if drug.Day < 1 || drug.Day > course.CycleLength {
				return &entities.InvalidRangeError{Record: drug.Name, Field: "day", Value: drug.Day, Min: 1, Max: course.CycleLength}
			}
		case entities.MultiDay:
			for _, d := range drug.Days {
				if d < 1 || d > course.CycleLength {
					return &entities.InvalidRangeError{Record: drug.Name, Field: "days", Value: d, Min: 1, Max: course.CycleLength}
				}
			}
		default:
			return &entities.MalformedInputError{
				Reason: fmt.Sprintf("record %q has no administration shape", drug.Name),
			}
		}
	}
	return nil
}

func courseRecord(course entities.Course) string {
	if course.Name != "" {
		return course.Name
	}
	return "course"
}
