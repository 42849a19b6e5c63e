package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vlearn/apiserver/config"
	"github.com/vlearn/apiserver/internal/db"
	"github.com/vlearn/apiserver/internal/handlers"
	"github.com/vlearn/apiserver/internal/mq"
	"github.com/vlearn/apiserver/internal/services"
	"github.com/vlearn/apiserver/internal/storage"
	"github.com/vlearn/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
}

// New constructs a Server with basic middleware and defaults, seeds the
// default admin account and documentation links, and wires the optional
// object-storage and broker backends.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	uploads, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if uploads != nil {
		if err := uploads.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
	}

	userRepo := store.NewUserRepository(dbConn)
	linkRepo := store.NewDocumentationLinkRepository(dbConn)
	resourceRepo := store.NewResourceRepository(dbConn)
	projectRepo := store.NewProjectRepository(dbConn)
	userDataRepo := store.NewUserDataRepository(dbConn)

	userService := services.NewUserService(userRepo)
	catalogService := services.NewCatalogService(linkRepo, resourceRepo, projectRepo, eventPublisher(broker))
	userDataService := services.NewUserDataService(userDataRepo)

	if err := userService.EnsureDefaultAdmin(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("seed default admin: %w", err)
	}
	if err := catalogService.SeedDefaultLinks(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("seed documentation links: %w", err)
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	authMiddleware := handlers.RequireAuth(jwtSecret)
	optionalAuth := handlers.OptionalAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	handlers.CatalogRouter(router, catalogService, userService, uploads, authMiddleware)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret)
	})
	router.Route("/me", func(r chi.Router) {
		r.Use(optionalAuth)
		handlers.UserDataRouter(r, userDataService, userService)
	})
	router.Route("/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		handlers.AdminRouter(r, userDataService, userService)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// eventPublisher avoids handing the services a typed-nil interface when no
// broker is configured.
func eventPublisher(broker *mq.MQ) services.EventPublisher {
	if broker == nil {
		return nil
	}
	return broker
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
