package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/samcomdev/medichat/internal/db"
	"github.com/samcomdev/medichat/internal/handler/admin"
	"github.com/samcomdev/medichat/internal/handler/chat"
	"github.com/samcomdev/medichat/internal/handler/speech"
	"github.com/samcomdev/medichat/internal/handler/webhook"
	middlewarePkg "github.com/samcomdev/medichat/internal/middleware"
	"github.com/samcomdev/medichat/internal/service/bot"
	chatService "github.com/samcomdev/medichat/internal/service/chat"
	speechService "github.com/samcomdev/medichat/internal/service/speech"
)

// NewRouter wires HTTP routes to core services. The speech handler mounts
// only when speech recognition is configured, and the WhatsApp webhook only
// when an outbound sender is available.
func NewRouter(store db.Store, feed db.Feed, engine *bot.Engine, chatSvc *chatService.Service, speechSvc *speechService.Service, sender webhook.Sender) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chat.New(chatSvc).RegisterRoutes(r)
	admin.New(store, feed).RegisterRoutes(r)

	if speechSvc != nil {
		speech.New(speechSvc, chatSvc).RegisterRoutes(r)
	}
	if sender != nil {
		webhook.New(chatSvc, engine, sender).RegisterRoutes(r)
	}

	return r
}
