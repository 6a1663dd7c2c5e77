// Package state persists per-user dialog state between chat turns. The
// booking flow walks a multi-step state machine, so the engine needs its
// position and collected answers back on every request.
package state

import (
	"context"
	"errors"

	"github.com/samcomdev/medichat/internal/model/chat"
)

var (
	ErrInvalidStoreType = errors.New("invalid state store type")
	ErrInvalidConfig    = errors.New("invalid state store config")
)

// Dialog is the serializable conversation position for one user.
type Dialog struct {
	Step    string            `json:"step"`
	Context map[string]string `json:"context"`
	// Buttons are the quick-replies offered on the last turn, kept so a
	// clicked value can be resolved back to its label.
	Buttons []chat.Button `json:"buttons,omitempty"`
}

// NewDialog returns a dialog positioned at the given step with an empty
// context.
func NewDialog(step string) Dialog {
	return Dialog{Step: step, Context: make(map[string]string)}
}

// Get returns a context value, defaulting to empty.
func (d Dialog) Get(key string) string {
	return d.Context[key]
}

// Set stores a context value, allocating the map if needed.
func (d *Dialog) Set(key, value string) {
	if d.Context == nil {
		d.Context = make(map[string]string)
	}
	d.Context[key] = value
}

// Store persists dialog state keyed by user ID.
type Store interface {
	// Get retrieves the dialog for a user. A user with no stored dialog
	// gets a zero Dialog and ok=false, not an error.
	Get(ctx context.Context, userID string) (Dialog, bool, error)

	// Put stores the dialog for a user, replacing any previous value.
	Put(ctx context.Context, userID string, d Dialog) error

	// Delete discards the dialog for a user.
	Delete(ctx context.Context, userID string) error

	// Close releases any underlying resources.
	Close() error
}
