package chat

import (
	"embed"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/samcomdev/medichat/internal/handler/session"
	chatService "github.com/samcomdev/medichat/internal/service/chat"
	"github.com/samcomdev/medichat/pkg/utils"
)

//go:embed templates/index.html
var templateFS embed.FS

// Handler serves the chat widget page and the /chat endpoint.
type Handler struct {
	chatSvc *chatService.Service
	page    *template.Template
}

func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		page:    template.Must(template.ParseFS(templateFS, "templates/index.html")),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/chat", h.handleChat)
}

// pageData carries the server-rendered theme class; the widget script
// takes over theming after load.
type pageData struct {
	Dark bool
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	session.EnsureID(w, r)

	data := pageData{}
	if c, err := r.Cookie("theme"); err == nil {
		data.Dark = c.Value == "dark"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.Execute(w, data); err != nil {
		log.Printf("[chat] render widget: %v", err)
	}
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	sessionID := session.EnsureID(w, r)
	message := r.FormValue("message")

	payload, err := h.chatSvc.SubmitText(r.Context(), sessionID, message)
	if err != nil {
		log.Printf("[chat] session=%s: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	utils.RespondJSON(w, http.StatusOK, payload)
}
