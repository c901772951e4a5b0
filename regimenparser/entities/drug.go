package entities

import (
	"encoding/json"
	"fmt"
)

// DrugKind discriminates the two administration shapes of a Drug.
type DrugKind int

const (
	// SingleDay drugs are given once per cycle on Day with a fixed Dose.
	SingleDay DrugKind = iota + 1
	// MultiDay drugs are given on every day in Days, with LoadingDose or
	// MaintenanceDose selected by the resolver's dose rule.
	MultiDay
)

// Drug is a tagged union over the two administration shapes. Use
// NewSingleDayDrug or NewMultiDayDrug to construct one; the JSON codec
// enforces that a record declares exactly one of "day" and "days".
type Drug struct {
	Name  string
	Route string
	Kind  DrugKind

	// SingleDay fields
	Day  int
	Dose string

	// MultiDay fields
	Days            []int
	LoadingDose     string
	MaintenanceDose string
}

// NewSingleDayDrug builds a drug given once per cycle.
func NewSingleDayDrug(name, dose, route string, day int) Drug {
	return Drug{Name: name, Route: route, Kind: SingleDay, Day: day, Dose: dose}
}

// NewMultiDayDrug builds a drug given on several days per cycle.
func NewMultiDayDrug(name, route string, days []int, loadingDose, maintenanceDose string) Drug {
	return Drug{
		Name:            name,
		Route:           route,
		Kind:            MultiDay,
		Days:            days,
		LoadingDose:     loadingDose,
		MaintenanceDose: maintenanceDose,
	}
}

// AdministrationDays returns the days of cycle on which the drug is given,
// in declared order.
func (d Drug) AdministrationDays() []int {
	if d.Kind == SingleDay {
		return []int{d.Day}
	}
	return d.Days
}

// FirstScheduledDay returns the smallest administration day, or 0 when the
// drug has no scheduled days.
func (d Drug) FirstScheduledDay() int {
	first := 0
	for _, day := range d.AdministrationDays() {
		if first == 0 || day < first {
			first = day
		}
	}
	return first
}

type singleDayJSON struct {
	Name  string `json:"name"`
	Dose  string `json:"dose"`
	Route string `json:"route"`
	Day   int    `json:"day"`
}

type multiDayJSON struct {
	Name            string `json:"name"`
	Route           string `json:"route"`
	Days            []int  `json:"days"`
	LoadingDose     string `json:"loading_dose"`
	MaintenanceDose string `json:"maintenance_dose"`
}

// UnmarshalJSON decodes either administration shape, rejecting records that
// declare both "day" and "days" or neither.
func (d *Drug) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name            string `json:"name"`
		Dose            string `json:"dose"`
		Route           string `json:"route"`
		Day             *int   `json:"day"`
		Days            *[]int `json:"days"`
		LoadingDose     string `json:"loading_dose"`
		MaintenanceDose string `json:"maintenance_dose"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return &MalformedInputError{Reason: "drug record is not a mapping: " + err.Error()}
	}

	record := raw.Name
	if record == "" {
		record = "drug"
	}

	switch {
	case raw.Day != nil && raw.Days != nil:
		return &MalformedInputError{Reason: fmt.Sprintf("record %q declares both \"day\" and \"days\"", record)}
	case raw.Day == nil && raw.Days == nil:
		return &MalformedInputError{Reason: fmt.Sprintf("record %q declares neither \"day\" nor \"days\"", record)}
	case raw.Day != nil:
		*d = NewSingleDayDrug(raw.Name, raw.Dose, raw.Route, *raw.Day)
	default:
		*d = NewMultiDayDrug(raw.Name, raw.Route, *raw.Days, raw.LoadingDose, raw.MaintenanceDose)
	}
	return nil
}

// MarshalJSON emits the field set matching the drug's shape.
func (d Drug) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case SingleDay:
		return json.Marshal(singleDayJSON{Name: d.Name, Dose: d.Dose, Route: d.Route, Day: d.Day})
	case MultiDay:
		return json.Marshal(multiDayJSON{
			Name:            d.Name,
			Route:           d.Route,
			Days:            d.Days,
			LoadingDose:     d.LoadingDose,
			MaintenanceDose: d.MaintenanceDose,
		})
	default:
		return nil, &MalformedInputError{Reason: fmt.Sprintf("record %q has no administration shape", d.Name)}
	}
}
