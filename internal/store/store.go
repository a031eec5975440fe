// Package store provides session persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/socratic-labs/dialogue/internal/domain"
)

// InitFunc builds the session stored for an id seen for the first time.
type InitFunc func() *domain.Session

// MutateFunc changes a session in place. Returning an error discards the change.
type MutateFunc func(s *domain.Session) error

// Repository defines the interface for keeping dialogue sessions.
// Sessions returned by a Repository are copies; changing them has no effect
// on stored state.
type Repository interface {
	// GetOrCreate returns the session for id, storing init() first if absent.
	GetOrCreate(ctx context.Context, id string, init InitFunc) (*domain.Session, error)

	// Put unconditionally stores session under id.
	Put(ctx context.Context, id string, session *domain.Session) error

	// Update loads (or creates with init) the session for id, applies fn and
	// stores the result. The whole sequence is a critical section per store.
	Update(ctx context.Context, id string, init InitFunc, fn MutateFunc) (*domain.Session, error)

	// Ping verifies the backend is usable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
