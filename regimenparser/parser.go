package regimenparser

import (
	"github.com/nkiranraj/oncov3/interfaces"
	"github.com/nkiranraj/oncov3/regimenparser/entities"
)

// Compile-time check to ensure RegimenParser implements RegimenLoader
var _ interfaces.RegimenLoader = (*RegimenParser)(nil)

// RegimenParser implements the RegimenLoader interface
type RegimenParser struct{}

// NewRegimenParser creates a new RegimenParser instance
func NewRegimenParser() *RegimenParser {
	return &RegimenParser{}
}

// ParseRegimen implements the RegimenLoader interface
func (p *RegimenParser) ParseRegimen(raw []byte) (*entities.Regimen, error) {
	return ParseRegimen(raw)
}

// LoadLibrary implements the RegimenLoader interface
func (p *RegimenParser) LoadLibrary(dir string) ([]entities.RegimenDocument, map[string]entities.RegimenDocument, error) {
	return LoadLibrary(dir)
}
