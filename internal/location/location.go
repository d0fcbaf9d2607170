// Package location maintains the administrative hierarchy events reference
// through CreatedAtLocation. Locations are synced in from the national
// hierarchy; this service stores, serves, and denormalizes them.
package location

import (
	"time"

	id "civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
)

// Type classifies a location node.
type Type string

const (
	TypeAdminStructure Type = "ADMIN_STRUCTURE"
	TypeHealthFacility Type = "HEALTH_FACILITY"
	TypeCRVSOffice     Type = "CRVS_OFFICE"
)

// ScopeWrite guards location mutation endpoints.
const ScopeWrite = "location.write"

// Location is one node in the administrative tree. ParentID is nil for the
// root nodes. ValidUntil marks nodes retired from the hierarchy; retired
// nodes stay resolvable because historical actions reference them.
type Location struct {
	ID         id.LocationID
	Name       string
	Type       Type
	ParentID   *id.LocationID
	ValidUntil *time.Time
}

// Validate checks the invariants the stores rely on.
func (l Location) Validate() error {
	if l.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "location id is required")
	}
	if l.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "location name is required")
	}
	switch l.Type {
	case TypeAdminStructure, TypeHealthFacility, TypeCRVSOffice:
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown location type %q", l.Type)
	}
	if l.ParentID != nil && *l.ParentID == l.ID {
		return dErrors.New(dErrors.CodeInvalidInput, "location cannot be its own parent")
	}
	return nil
}
