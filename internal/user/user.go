// Package user keeps the local cache of user records synced from the user
// management service, plus their credentials. Events reference users by id in
// CreatedBy and AssignedTo; this cache resolves those ids to names and roles
// for display.
package user

import (
	id "civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
)

// ScopeRead guards user lookup endpoints.
const ScopeRead = "user.read"

// User is one synced user record.
type User struct {
	ID   id.UserID
	Name string
	Role string
}

// Validate checks the invariants the stores rely on.
func (u User) Validate() error {
	if u.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if u.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "user name is required")
	}
	return nil
}
