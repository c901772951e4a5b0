// Package data provides thread-safe storage for the regimen library.
// It includes the DataContainer struct with atomic operations for
// zero-downtime reloads and thread-safe access to regimen documents.
package data

import (
	"sync/atomic"
	"time"

	"github.com/nkiranraj/oncov3/interfaces"
	"github.com/nkiranraj/oncov3/logging"
	"github.com/nkiranraj/oncov3/regimenparser/entities"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds the regimen library with atomic pointers for
// zero-downtime updates
type DataContainer struct {
	regimens        atomic.Value // []entities.RegimenDocument
	regimensMap     atomic.Value // map[string]entities.RegimenDocument
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with empty data
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.regimens.Store(make([]entities.RegimenDocument, 0))
	dc.regimensMap.Store(make(map[string]entities.RegimenDocument))
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Now())
	return dc
}

// Thread-safe getters with type check

// GetRegimens returns the loaded regimen documents in library order
func (dc *DataContainer) GetRegimens() []entities.RegimenDocument {
	if v := dc.regimens.Load(); v != nil {
		if regimens, ok := v.([]entities.RegimenDocument); ok {
			return regimens
		}
	}

	logging.Warn("Regimen list is empty or invalid")
	return []entities.RegimenDocument{}
}

// GetRegimensMap returns the regimen map for O(1) lookups by id
func (dc *DataContainer) GetRegimensMap() map[string]entities.RegimenDocument {
	if v := dc.regimensMap.Load(); v != nil {
		if regimensMap, ok := v.(map[string]entities.RegimenDocument); ok {
			return regimensMap
		}
	}

	logging.Warn("Regimen map is empty or invalid")
	return make(map[string]entities.RegimenDocument)
}

// GetRegimen returns one regimen document by id
func (dc *DataContainer) GetRegimen(id string) (entities.RegimenDocument, bool) {
	doc, ok := dc.GetRegimensMap()[id]
	return doc, ok
}

// GetLastUpdated returns the timestamp of the last library reload
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating reports whether a reload is in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// GetServerStartTime returns when the service started
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}
	return time.Time{}
}

// UpdateData atomically swaps in a new library snapshot (zero downtime)
func (dc *DataContainer) UpdateData(regimens []entities.RegimenDocument, byID map[string]entities.RegimenDocument) {
	dc.regimens.Store(regimens)
	dc.regimensMap.Store(byID)
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks an update as started, returning false if one is
// already in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the in-progress update as finished
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
