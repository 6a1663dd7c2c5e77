package chat

import "time"

// Role identifies the author of a turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// DeliveryState tracks the optimistic-send lifecycle of a user turn.
type DeliveryState string

const (
	// DeliverySent marks a user turn appended before the engine cycle ran.
	DeliverySent DeliveryState = "sent"
	// DeliveryDelivered marks a turn whose round trip completed.
	DeliveryDelivered DeliveryState = "delivered"
)

// Button is a quick-reply option. Activating it resubmits Value as if the
// user had typed it.
type Button struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Turn is one rendered message bubble in a transcript. Turns are immutable
// once appended; the transcript is append-only and never reordered.
type Turn struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"sessionId"`
	Role          Role          `json:"role"`
	Text          string        `json:"text"`
	Buttons       []Button      `json:"buttons,omitempty"`
	DeliveryState DeliveryState `json:"deliveryState"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Empty reports whether the turn carries neither text nor buttons. The
// transcript never accepts an empty turn.
func (t Turn) Empty() bool {
	return t.Text == "" && len(t.Buttons) == 0
}
