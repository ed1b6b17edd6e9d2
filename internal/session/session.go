// Package session keeps the per-conversation scratch record used by the
// conversation engine between turns.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/starford/modeler/internal/models"
)

// Record is the scratch state of one conversation.
type Record struct {
	ConversationID string
	// PendingPayload is the editor model cached by routing for the next step.
	PendingPayload     json.RawMessage
	PendingMessage     string
	PendingDiagramType models.DiagramType
	// LastRequestKey identifies the last structured request that produced a
	// reply; an identical replay is suppressed.
	LastRequestKey string
	HasGreeted     bool
	UpdatedAt      time.Time
}

// ClearPending drops the cached routing payload.
func (r *Record) ClearPending() {
	r.PendingPayload = nil
	r.PendingMessage = ""
	r.PendingDiagramType = ""
}

// Store persists scratch records. Get returns a zero record, not an error,
// for unknown conversations.
type Store interface {
	Get(ctx context.Context, id string) (Record, error)
	Put(ctx context.Context, r Record) error
	Delete(ctx context.Context, id string) error
	// Prune deletes records last updated before the given time.
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
