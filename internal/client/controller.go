package client

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/samcomdev/medichat/internal/model/chat"
)

// Transport carries one request/response cycle to the chat backend.
type Transport interface {
	SendText(ctx context.Context, message string) (chat.Payload, error)
	SendAudio(ctx context.Context, clip []byte) (chat.Payload, error)
}

// Controller owns the transcript and orchestrates input, round trip and
// rendering. Submissions are serialized: a second submission waits for the
// first to resolve, so replies never render out of order.
type Controller struct {
	mu         sync.Mutex
	transport  Transport
	transcript Transcript
	onAppend   func(*DisplayNode)
}

func NewController(transport Transport, onAppend func(*DisplayNode)) *Controller {
	if onAppend == nil {
		onAppend = func(*DisplayNode) {}
	}
	return &Controller{transport: transport, onAppend: onAppend}
}

// Transcript returns a snapshot of the turns rendered so far.
func (c *Controller) Transcript() []chat.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Turns()
}

// SubmitText sends typed input. Whitespace-only input is a no-op: nothing
// is appended and no request goes out. The user turn is appended before
// the round trip starts; a transport failure leaves it in place, marked
// sent, with no bot turn.
func (c *Controller) SubmitText(ctx context.Context, input string) error {
	message := strings.TrimSpace(input)
	if message == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.append(chat.Turn{Role: chat.RoleUser, Text: message, DeliveryState: chat.DeliverySent})

	payload, err := c.transport.SendText(ctx, message)
	if err != nil {
		log.Printf("[client] send text: %v", err)
		return err
	}

	c.handlePayload(payload)
	return nil
}

// SubmitAudio sends a recorded clip. The server echoes what it heard as
// the transcript, which renders as the user turn; the bot turn from the
// same payload renders after it.
func (c *Controller) SubmitAudio(ctx context.Context, clip []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := c.transport.SendAudio(ctx, clip)
	if err != nil {
		log.Printf("[client] send audio: %v", err)
		return err
	}

	c.handlePayload(payload)
	return nil
}

// handlePayload renders a server payload transcript-first: the recognized
// user text must appear before the bot's reply to it.
func (c *Controller) handlePayload(payload chat.Payload) {
	if payload.Transcript != nil {
		c.append(chat.Turn{
			Role:          chat.RoleUser,
			Text:          *payload.Transcript,
			DeliveryState: chat.DeliveryDelivered,
		})
	}
	if payload.Response == nil {
		return
	}
	c.transcript.MarkLastUserDelivered()
	c.append(chat.Turn{
		Role:    chat.RoleBot,
		Text:    payload.Response.Text,
		Buttons: payload.Response.Buttons,
	})
}

// append adds the turn and pushes its rendered nodes to the view.
func (c *Controller) append(turn chat.Turn) {
	if !c.transcript.Append(turn) {
		return
	}
	appended, _ := c.transcript.Last()
	c.onAppend(Render(appended))
	if len(appended.Buttons) > 0 {
		c.onAppend(RenderButtons(appended.Buttons, func(value string) {
			// Quick replies resubmit their value as if typed.
			if err := c.SubmitText(context.Background(), value); err != nil {
				log.Printf("[client] quick reply: %v", err)
			}
		}))
	}
}
