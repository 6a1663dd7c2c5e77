package client

import (
	"strings"

	"github.com/samcomdev/medichat/internal/model/chat"
)

// DisplayNode is a minimal element tree, the framework-free shape of a
// rendered bubble. Renderers build fresh nodes on every call and never
// mutate previously returned ones.
type DisplayNode struct {
	Tag      string
	Class    string
	Text     string
	OnClick  func()
	Children []*DisplayNode
}

// Render projects one turn into a message bubble. Newlines in the text
// become break nodes. The meta child carries the clock time and, for user
// turns, the delivery tick.
func Render(turn chat.Turn) *DisplayNode {
	bubble := &DisplayNode{Tag: "div", Class: "bubble " + string(turn.Role)}

	lines := strings.Split(turn.Text, "\n")
	body := &DisplayNode{Tag: "div", Class: "body"}
	for i, line := range lines {
		if i > 0 {
			body.Children = append(body.Children, &DisplayNode{Tag: "br"})
		}
		body.Children = append(body.Children, &DisplayNode{Tag: "span", Text: line})
	}
	bubble.Children = append(bubble.Children, body)

	meta := &DisplayNode{Tag: "div", Class: "meta", Text: turn.CreatedAt.Format("3:04 PM")}
	if turn.Role == chat.RoleUser {
		tick := "✓"
		if turn.DeliveryState == chat.DeliveryDelivered {
			tick = "✓✓"
		}
		meta.Text += " " + tick
	}
	bubble.Children = append(bubble.Children, meta)

	return bubble
}

// RenderButtons projects quick replies into activatable controls.
// Activating one invokes onActivate with the button's value, equivalent
// to the user typing it.
func RenderButtons(buttons []chat.Button, onActivate func(value string)) *DisplayNode {
	row := &DisplayNode{Tag: "div", Class: "quick-replies"}
	for _, b := range buttons {
		value := b.Value
		row.Children = append(row.Children, &DisplayNode{
			Tag:     "button",
			Class:   "quick-reply",
			Text:    b.Text,
			OnClick: func() { onActivate(value) },
		})
	}
	return row
}
