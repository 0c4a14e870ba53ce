package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/postboard/apiserver/config"
	"github.com/postboard/apiserver/internal/auth"
	"github.com/postboard/apiserver/internal/db"
	"github.com/postboard/apiserver/internal/handlers"
	"github.com/postboard/apiserver/internal/logger"
	"github.com/postboard/apiserver/internal/mq"
	"github.com/postboard/apiserver/internal/services"
	"github.com/postboard/apiserver/internal/storage"
	"github.com/postboard/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Broker
	logger     *logger.Logger
}

// New constructs a Server from cfg, connecting the configured store, broker
// and archive.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Nop()
	}

	tokens, err := auth.NewTokenService(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.Auth.TokenTTL())
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	s := &Server{logger: log}

	var (
		userRepo services.UserRepository
		postRepo services.PostRepository
	)
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		users := store.NewMemoryUserRepository()
		userRepo = users
		postRepo = store.NewMemoryPostRepository(users)
		log.Warn("using in-memory store; data is lost on restart")
	default:
		s.db, err = db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		userRepo = store.NewUserRepository(s.db)
		postRepo = store.NewPostRepository(s.db)
	}

	s.broker, err = mq.New(ctx, cfg.Events)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("events broker: %w", err)
	}

	var archiver services.Archiver
	objectStore, err := storage.New(ctx, cfg.Archive)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("archive store: %w", err)
	}
	if objectStore != nil {
		if err := objectStore.EnsureBucket(ctx); err != nil {
			s.close()
			return nil, fmt.Errorf("archive bucket: %w", err)
		}
		archiver = storage.NewPostArchive(objectStore)
	}

	userService := services.NewUserService(userRepo, hasher)
	authService := services.NewAuthService(userRepo, hasher, tokens)
	postService := services.NewPostService(postRepo, services.NewEventPublisher(s.broker, log), archiver)

	s.router = NewRouter(cfg, log, userService, authService, postService)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// NewRouter builds the HTTP routes over the given services.
func NewRouter(
	cfg config.Config,
	log *logger.Logger,
	userService *services.UserService,
	authService *services.AuthService,
	postService *services.PostService,
) *chi.Mux {
	if log == nil {
		log = logger.Nop()
	}
	authHandler := handlers.NewAuthHandler(authService, log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.NewLogging(log).Handle,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)
	router.Get("/", handlers.Home)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/user", func(r chi.Router) {
		handlers.UserRouter(r, handlers.NewUserHandler(userService, log), authHandler.RequireAuth)
	})
	router.Route("/post", func(r chi.Router) {
		handlers.PostRouter(r, handlers.NewPostHandler(postService, log), authHandler.RequireAuth)
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the store and broker.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			s.logger.Warn("failed to close broker", "error", err)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
