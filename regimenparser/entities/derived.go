package entities

import "time"

// DrugAdministration is one (drug, dose, route) triple scheduled on a day.
type DrugAdministration struct {
	Name  string `json:"name"`
	Dose  string `json:"dose"`
	Route string `json:"route"`
}

// CycleDayEntry is the derived per-day view of a cycle. Entries are
// recomputed on demand and never persisted.
type CycleDayEntry struct {
	Day          int                  `json:"day"`
	HasTreatment bool                 `json:"has_treatment"`
	Drugs        []DrugAdministration `json:"drugs"`
}

// TimelineEvent is one absolute-dated drug administration. Finish is
// exclusive and always Start plus one calendar day.
type TimelineEvent struct {
	Course string    `json:"course"`
	Cycle  string    `json:"cycle"`
	Drug   string    `json:"drug"`
	Start  time.Time `json:"start"`
	Finish time.Time `json:"finish"`
}

// RegimenDocument is a regimen loaded from the library directory, kept
// with its source bytes for raw export and its canonical serialization
// for round-trip comparisons.
type RegimenDocument struct {
	ID        string  `json:"id"`
	Regimen   Regimen `json:"regimen"`
	Raw       []byte  `json:"-"`
	Canonical []byte  `json:"-"`
}
