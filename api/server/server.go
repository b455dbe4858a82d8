package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scsonic/nexavatar/api/brand"
	"github.com/scsonic/nexavatar/api/config"
	"github.com/scsonic/nexavatar/api/server/handlers"
	"github.com/scsonic/nexavatar/api/services"
	"github.com/scsonic/nexavatar/api/store"
	"github.com/scsonic/nexavatar/pkg/otel"
	"github.com/scsonic/nexavatar/shared/circuit"
)

const ReadTimeout = 30 * time.Second

type Server struct {
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

func NewServer(
	cfg *config.Config,
	s *store.Store,
	authSvc *services.AuthService,
	chatSvc *services.ChatService,
	ttsSvc *services.TTSService,
	ttsBreaker *circuit.Breaker,
	brands *brand.Registry,
) *Server {
	router := chi.NewRouter()

	router.Use(otel.Middleware("nexavatar-api"))
	router.Use(Recovery)
	router.Use(Logger)
	router.Use(CORS(cfg.Server.AllowedOrigins))

	healthH := handlers.NewHealthHandler(handlers.HealthHandlerConfig{
		DBPing:     func(ctx context.Context) error { return s.Pool().Ping(ctx) },
		TTSBreaker: ttsBreaker,
	})
	router.Get("/health", healthH.Readiness)
	router.Get("/health/ready", healthH.Readiness)
	router.Get("/health/live", healthH.Liveness)
	router.Get("/health/full", healthH.Health)
	router.Handle("/metrics", promhttp.Handler())

	presenceH := handlers.NewPresenceHandler(0)
	router.Post("/user/connect", presenceH.Connect)
	router.Post("/user/disconnect", presenceH.Disconnect)

	router.Route("/api", func(r chi.Router) {
		authH := handlers.NewAuthHandler(authSvc)
		r.Post("/login", authH.Login)
		r.Post("/logout", authH.Logout)

		chatH := handlers.NewChatHandler(chatSvc, ttsSvc, authSvc, brands)
		r.Post("/chat", chatH.Chat)
		r.Post("/chat-tts", chatH.ChatTTS)
		r.Get("/models", chatH.Models)

		ttsH := handlers.NewTTSHandler(ttsSvc)
		r.Post("/tts", ttsH.Synthesize)
		r.Get("/voices", ttsH.Voices)

		brandH := handlers.NewBrandHandler(brands)
		r.Get("/brands", brandH.List)
		r.Get("/brands/{id}", brandH.Get)

		adminH := handlers.NewAdminHandler(authSvc, s, cfg.Admin.Code)
		r.Route("/admin", func(r chi.Router) {
			r.Get("/codes", adminH.ListCodes)
			r.Post("/generate-code", adminH.GenerateCode)
			r.Post("/create-custom-code", adminH.CreateCustomCode)
			r.Post("/reset-code", adminH.ResetCode)
			r.Post("/delete-code", adminH.DeleteCode)
			r.Get("/logs", adminH.ListLogs)
			r.Get("/logs/export", adminH.ExportLogs)
		})
	})

	return &Server{
		cfg:    cfg,
		router: router,
	}
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: 0,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
