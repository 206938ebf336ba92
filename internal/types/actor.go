package types

import "github.com/google/uuid"

// Actor is the caller of an operation. A nil *Actor is anonymous.
type Actor struct {
	UserID      uuid.UUID
	IsSuperuser bool
}

func (a *Actor) IsAuthenticated() bool {
	return a != nil && a.UserID != uuid.Nil
}

// ID returns the user ID, or uuid.Nil for anonymous callers. Queries keyed
// on uuid.Nil match nothing.
func (a *Actor) ID() uuid.UUID {
	if a == nil {
		return uuid.Nil
	}
	return a.UserID
}
