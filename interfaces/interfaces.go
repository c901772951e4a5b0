// Package interfaces defines core abstractions for the regimen service
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"time"

	"github.com/nkiranraj/oncov3/regimenparser/entities"
)

// DataStore defines the contract for the regimen library snapshot.
// It provides thread-safe access to loaded regimen documents with atomic
// operations for zero-downtime reloads.
type DataStore interface {
	// Snapshot access
	GetRegimens() []entities.RegimenDocument
	GetRegimensMap() map[string]entities.RegimenDocument
	GetRegimen(id string) (entities.RegimenDocument, bool)
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Snapshot replacement
	UpdateData(regimens []entities.RegimenDocument, byID map[string]entities.RegimenDocument)
	BeginUpdate() bool
	EndUpdate()
}

// RegimenLoader defines the contract for turning external regimen
// documents into the internal model.
type RegimenLoader interface {
	// ParseRegimen parses a single serialized regimen document.
	ParseRegimen(raw []byte) (*entities.Regimen, error)

	// LoadLibrary parses every regimen file in dir, skipping files that
	// fail structural validation.
	LoadLibrary(dir string) ([]entities.RegimenDocument, map[string]entities.RegimenDocument, error)
}

// Scheduler defines the contract for the periodic library rescan and
// staleness monitoring.
type Scheduler interface {
	Start() error
	Stop()
}

// RegimenValidator defines the contract for structural validation of
// loaded regimens and for screening user-supplied request input.
type RegimenValidator interface {
	// ValidateRegimen checks the structural invariants of a parsed regimen.
	ValidateRegimen(r *entities.Regimen) error

	// ValidateInput validates user input strings such as search terms.
	ValidateInput(input string) error

	// ValidateCycleNumber parses and bounds-checks a cycle number.
	ValidateCycleNumber(input string, cycles int) (int, error)

	// ValidateAnchorDate parses an ISO date used to anchor a timeline.
	ValidateAnchorDate(input string) (time.Time, error)
}
