package speech

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/samcomdev/medichat/internal/handler/session"
	"github.com/samcomdev/medichat/internal/model/chat"
	chatService "github.com/samcomdev/medichat/internal/service/chat"
	speechService "github.com/samcomdev/medichat/internal/service/speech"
	"github.com/samcomdev/medichat/pkg/utils"
)

// Uploads above this size are rejected outright.
const maxClipBytes = 10 << 20

// Handler accepts voice clips on /speech and routes the transcript
// through the chat pipeline.
type Handler struct {
	speechSvc *speechService.Service
	chatSvc   *chatService.Service
}

func New(speechSvc *speechService.Service, chatSvc *chatService.Service) *Handler {
	return &Handler{speechSvc: speechSvc, chatSvc: chatSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/speech", h.handleSpeech)
}

func (h *Handler) handleSpeech(w http.ResponseWriter, r *http.Request) {
	sessionID := session.EnsureID(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxClipBytes)
	if err := r.ParseMultipartForm(maxClipBytes); err != nil {
		utils.RespondJSON(w, http.StatusOK, noAudioPayload())
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		utils.RespondJSON(w, http.StatusOK, noAudioPayload())
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[asr] session=%s read clip: %v", sessionID, err)
		utils.RespondJSON(w, http.StatusOK, noAudioPayload())
		return
	}

	transcript, err := h.speechSvc.Recognize(r.Context(), sessionID, audio)
	if err != nil {
		switch {
		case errors.Is(err, speechService.ErrNoAudio):
			utils.RespondJSON(w, http.StatusOK, noAudioPayload())
		case errors.Is(err, speechService.ErrNoSpeech):
			utils.RespondJSON(w, http.StatusOK, errorPayload("Could not understand audio"))
		default:
			log.Printf("[asr] session=%s: %v", sessionID, err)
			utils.RespondJSON(w, http.StatusOK, errorPayload("Speech recognition error"))
		}
		return
	}

	payload, err := h.chatSvc.SubmitTranscript(r.Context(), sessionID, transcript)
	if err != nil {
		log.Printf("[asr] session=%s chat: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	utils.RespondJSON(w, http.StatusOK, payload)
}

func noAudioPayload() chat.Payload {
	return errorPayload("No audio file received")
}

// errorPayload keeps the wire shape of a normal reply so the widget
// renders recognition failures as chat bubbles.
func errorPayload(text string) chat.Payload {
	empty := ""
	return chat.Payload{
		Transcript: &empty,
		Response:   &chat.Reply{Text: text},
	}
}
