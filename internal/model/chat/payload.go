package chat

// Reply is the dialog engine's answer to one user input.
type Reply struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

// IsZero reports whether the reply carries nothing renderable.
func (r Reply) IsZero() bool {
	return r.Text == "" && len(r.Buttons) == 0
}

// Payload is the wire shape shared by /chat and /speech. Pointer fields keep
// "absent" distinct from "present but empty": /chat never sets Transcript,
// and a failed engine cycle sets neither member.
type Payload struct {
	Transcript *string `json:"transcript,omitempty"`
	Response   *Reply  `json:"response,omitempty"`
}
