// Package webhook receives inbound WhatsApp traffic from Gupshup and
// routes it through the same chat pipeline as the web widget.
package webhook

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/samcomdev/medichat/internal/model/chat"
	"github.com/samcomdev/medichat/internal/service/bot"
	chatService "github.com/samcomdev/medichat/internal/service/chat"
	"github.com/samcomdev/medichat/pkg/utils"
)

// Sender delivers a reply to a phone number. Implemented by the Gupshup
// client; nil when no gateway is configured.
type Sender interface {
	Send(ctx context.Context, destination string, reply chat.Reply) error
}

// inboundEvent is the slice of Gupshup's webhook body we care about.
type inboundEvent struct {
	Type    string `json:"type"`
	Payload struct {
		Type   string `json:"type"`
		Sender struct {
			Phone string `json:"phone"`
		} `json:"sender"`
		Payload struct {
			Text string `json:"text"`
			// Quick-reply clicks arrive under postbackText.
			PostbackText string `json:"postbackText"`
		} `json:"payload"`
	} `json:"payload"`
}

type Handler struct {
	chatSvc *chatService.Service
	engine  *bot.Engine
	sender  Sender
}

func New(chatSvc *chatService.Service, engine *bot.Engine, sender Sender) *Handler {
	return &Handler{chatSvc: chatSvc, engine: engine, sender: sender}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook/whatsapp", h.handleInbound)
}

func (h *Handler) handleInbound(w http.ResponseWriter, r *http.Request) {
	var event inboundEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		utils.RespondJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error", "message": "No JSON data received",
		})
		return
	}

	// Gupshup also posts delivery receipts and system events; only
	// user messages get a reply.
	if event.Type != "message" {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	phone := event.Payload.Sender.Phone
	text := event.Payload.Payload.Text
	if text == "" {
		text = event.Payload.Payload.PostbackText
	}
	if phone == "" || text == "" {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	log.Printf("[webhook] inbound from %s: %d bytes", phone, len(text))

	// Gupshup retries on slow responses, so ack now and reply out of band.
	go h.reply(phone, text)

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) reply(phone, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID := "wa:" + phone
	if err := h.engine.SeedPhone(ctx, userID, phone); err != nil {
		log.Printf("[webhook] seed phone for %s: %v", phone, err)
	}

	payload, err := h.chatSvc.SubmitText(ctx, userID, text)
	if err != nil {
		log.Printf("[webhook] process message from %s: %v", phone, err)
		return
	}
	if payload.Response == nil || h.sender == nil {
		return
	}

	if err := h.sender.Send(ctx, phone, *payload.Response); err != nil {
		log.Printf("[webhook] send reply to %s: %v", phone, err)
	}
}
