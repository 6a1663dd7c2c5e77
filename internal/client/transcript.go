// Package client implements the chat widget's behavior without a UI
// framework: transcript state, rendering projections, the session
// controller, voice capture and theme preference. The browser template
// mirrors this logic in script form; chatcli drives it directly.
package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/samcomdev/medichat/internal/model/chat"
)

// Transcript is the ordered, append-only sequence of turns shown to the
// user. Turns are never reordered or deleted.
type Transcript struct {
	turns []chat.Turn
}

// Append adds a turn and reports whether it was accepted. Turns with no
// text and no buttons are rejected.
func (t *Transcript) Append(turn chat.Turn) bool {
	if turn.Empty() {
		return false
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	t.turns = append(t.turns, turn)
	return true
}

// MarkLastUserDelivered flips the most recent user turn to delivered,
// closing its optimistic-send cycle.
func (t *Transcript) MarkLastUserDelivered() {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Role == chat.RoleUser {
			t.turns[i].DeliveryState = chat.DeliveryDelivered
			return
		}
	}
}

func (t *Transcript) Len() int { return len(t.turns) }

// Turns returns a copy of the transcript.
func (t *Transcript) Turns() []chat.Turn {
	out := make([]chat.Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Last returns the newest turn, or false when the transcript is empty.
func (t *Transcript) Last() (chat.Turn, bool) {
	if len(t.turns) == 0 {
		return chat.Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}
