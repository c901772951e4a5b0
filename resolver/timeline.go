package resolver

import (
	"fmt"
	"sort"
	"time"

	"github.com/nkiranraj/oncov3/regimenparser/entities"
)

// ResolveTimeline walks all courses and cycles in declared order, assigning
// each course a contiguous date range starting at anchor, and emits one
// event per drug administration day.
//
// Courses never overlap and never leave gaps: course i+1 starts exactly
// when course i's full cycle count completes, even if course i administers
// nothing. A regimen with zero courses, or zero administration days
// overall, yields an empty (non-nil) slice.
//
// Events are emitted in course -> cycle -> drug -> day traversal order.
// Chronological ordering is a presentation concern; use SortEventsByStart.
func ResolveTimeline(regimen entities.Regimen, anchor time.Time) ([]entities.TimelineEvent, error) {
	events := make([]entities.TimelineEvent, 0)

	courseStart := anchor
	for i, course := range regimen.Courses {
		if err := ValidateCourse(course); err != nil {
			return nil, err
		}
		if i > 0 {
			previous := regimen.Courses[i-1]
			courseStart = courseStart.AddDate(0, 0, previous.SpanDays())
		}

		for cycle := 1; cycle <= course.Cycles; cycle++ {
			cycleStart := courseStart.AddDate(0, 0, (cycle-1)*course.CycleLength)
			cycleLabel := fmt.Sprintf("Cycle %d", cycle)

			for _, drug := range course.Drugs {
				for _, day := range drug.AdministrationDays() {
					start := cycleStart.AddDate(0, 0, day-1)
					events = append(events, entities.TimelineEvent{
						Course: course.Name,
						Cycle:  cycleLabel,
						Drug:   drug.Name,
						Start:  start,
						Finish: start.AddDate(0, 0, 1),
					})
				}
			}
		}
	}
	return events, nil
}

// SortEventsByStart orders events chronologically, preserving traversal
// order between events sharing a start date.
func SortEventsByStart(events []entities.TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}

// RegimenSpanDays returns the total number of calendar days the regimen
// occupies from its anchor.
func RegimenSpanDays(regimen entities.Regimen) int {
	total := 0
	for _, course := range regimen.Courses {
		total += course.SpanDays()
	}
	return total
}
