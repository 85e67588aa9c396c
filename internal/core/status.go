package core

import (
	"context"
	"fmt"

	"github.com/opencafe/intake/internal/db"
)

// Lifecycle status names. The automated flow only ever moves forward through
// these; admin edits may set any configured status.
const (
	StatusRegistered = "Registered"
	StatusInProgress = "In Progress"
	StatusReady      = "Ready"
	StatusDelivered  = "Delivered"
)

// StatusRegistry resolves status names to their database ids. All four
// lifecycle statuses must exist at startup; a missing one is a configuration
// error, never a silent fallback.
type StatusRegistry struct {
	ids   map[string]int64
	names map[int64]string
}

func NewStatusRegistry(ctx context.Context, store *db.Store) (*StatusRegistry, error) {
	statuses, err := store.ListStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load statuses: %w", err)
	}

	r := &StatusRegistry{
		ids:   make(map[string]int64, len(statuses)),
		names: make(map[int64]string, len(statuses)),
	}
	for _, st := range statuses {
		r.ids[st.Name] = st.ID
		r.names[st.ID] = st.Name
	}

	for _, required := range []string{StatusRegistered, StatusInProgress, StatusReady, StatusDelivered} {
		if _, ok := r.ids[required]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrStatusNotConfigured, required)
		}
	}

	return r, nil
}

// ID returns the id for a configured status name.
func (r *StatusRegistry) ID(name string) (int64, error) {
	id, ok := r.ids[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrStatusNotConfigured, name)
	}
	return id, nil
}

// Name returns the status name for id, or "" when unknown.
func (r *StatusRegistry) Name(id int64) string {
	return r.names[id]
}

// Known reports whether id belongs to any configured status.
func (r *StatusRegistry) Known(id int64) bool {
	_, ok := r.names[id]
	return ok
}
