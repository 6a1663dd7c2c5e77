package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/samcomdev/medichat/internal/config"
	"github.com/samcomdev/medichat/internal/db"
	"github.com/samcomdev/medichat/internal/handler"
	"github.com/samcomdev/medichat/internal/handler/webhook"
	speechModel "github.com/samcomdev/medichat/internal/model/speech"
	"github.com/samcomdev/medichat/internal/service/ai"
	"github.com/samcomdev/medichat/internal/service/bot"
	"github.com/samcomdev/medichat/internal/service/chat"
	"github.com/samcomdev/medichat/internal/service/speech"
	"github.com/samcomdev/medichat/internal/service/whatsapp"
	"github.com/samcomdev/medichat/internal/state"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, feed := setupStore(ctx, cfg.Database)
	states := setupStateStore(cfg.State)

	engineOpts := []bot.EngineOption{}
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI answers to free-form questions")
		} else {
			engineOpts = append(engineOpts, bot.WithAnswerer(aiService))
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping AI initialization")
	}

	engine := bot.NewEngine(store, states, feed, engineOpts...)
	chatService := chat.NewService(engine)

	var speechService *speech.Service
	if cfg.Speech.Enabled() {
		speechService = speech.NewService(speechModel.Config{
			AppID:       cfg.Speech.AppID,
			AccessToken: cfg.Speech.AccessToken,
			BaseURL:     cfg.Speech.BaseURL,
			Language:    cfg.Speech.Language,
			Timeout:     cfg.Speech.Timeout,
		})
		log.Println("Speech service initialized successfully")
	} else {
		log.Println("Speech credentials not configured, voice input disabled")
	}

	var sender webhook.Sender
	if cfg.WhatsApp.Enabled() {
		sender = whatsapp.NewClient(cfg.WhatsApp)
		log.Println("Gupshup gateway configured, WhatsApp webhook enabled")
	} else {
		log.Println("Gupshup credentials not configured, WhatsApp webhook disabled")
	}

	router := handler.NewRouter(store, feed, engine, chatService, speechService, sender)

	startServer(ctx, cfg.Server, router)
}

// setupStore opens Postgres when configured, otherwise serves from a
// seeded in-memory store. The Postgres feed relays NOTIFY events into
// the admin live stream.
func setupStore(ctx context.Context, cfg config.DatabaseConfig) (db.Store, db.Feed) {
	if !cfg.Enabled() {
		log.Println("DATABASE_URL not set, using in-memory store with seeded doctors")
		return db.NewMemorySeeded(), db.NewMemoryFeed()
	}

	conn, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		log.Fatalf("failed to reach database: %v", err)
	}
	if err := db.Migrate(ctx, conn); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	feed := db.NewPGFeed(conn, cfg.URL, cfg.NotifyChannel)
	go func() {
		if err := feed.Listen(ctx); err != nil {
			log.Printf("warning: notify listener stopped: %v", err)
		}
	}()

	log.Println("Postgres store initialized successfully")
	return db.NewPostgres(conn), feed
}

func setupStateStore(cfg config.StateConfig) state.Store {
	if cfg.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		states, err := state.NewStore(state.StoreTypeRedis, state.WithRedisClient(client))
		if err != nil {
			log.Fatalf("failed to initialize redis state store: %v", err)
		}
		log.Println("Redis state store initialized successfully")
		return states
	}

	states, err := state.NewStore(state.StoreTypeMemory)
	if err != nil {
		log.Fatalf("failed to initialize state store: %v", err)
	}
	log.Println("REDIS_ADDR not set, keeping dialog state in memory")
	return states
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("medichat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
