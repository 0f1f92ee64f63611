package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"tit-pharmacy/internal/catalog"
	"tit-pharmacy/internal/config"
	"tit-pharmacy/internal/logger"
	"tit-pharmacy/internal/metrics"
	custommiddleware "tit-pharmacy/internal/middleware"
	"tit-pharmacy/internal/query"
	"tit-pharmacy/internal/submission"
	"tit-pharmacy/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies are the resources built at startup. DB and Redis are optional.
type Dependencies struct {
	Store   *catalog.Store
	Source  catalog.Source
	Metrics *metrics.Metrics
	DB      *sql.DB
	Redis   *redis.Client
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewServer(cfg *config.Config, log *zap.Logger, deps Dependencies) *Server {
	s := &Server{
		config: cfg,
		logger: log,
		deps:   deps,
	}

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      s.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	cfg := s.config
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(s.logger))
	router.Use(custommiddleware.LoggingMiddleware(logger.Component(s.logger, "http")))
	router.Use(custommiddleware.MetricsMiddleware(s.deps.Metrics))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))

	router.Get("/health", s.health)
	if s.deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	limit := custommiddleware.RateLimitMiddleware(s.deps.Redis, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "rate_limit:submit",
	}, s.logger)

	engine := query.NewEngine(cfg.Catalog.Locale)
	pipeline := submission.NewPipeline(s.deps.Store,
		submission.WithLogger(logger.Component(s.logger, "submission")),
		submission.WithMetrics(s.deps.Metrics),
	)
	sessions := submission.NewSessions(pipeline, s.deps.Source, submission.SessionsConfig{
		RedirectDelay: cfg.Form.RedirectDelay,
		TTL:           cfg.Form.SessionTTL,
		MaxSessions:   cfg.Form.MaxSessions,
		Logger:        logger.Component(s.logger, "form"),
		Metrics:       s.deps.Metrics,
	})

	catalogHandler := transport.NewCatalogHandler(s.deps.Store, engine, pipeline, logger.Component(s.logger, "api"))
	viewHandler := transport.NewViewHandler(s.deps.Store, engine, sessions, cfg.Form.RedirectDelay, logger.Component(s.logger, "view"))

	catalogHandler.RegisterRoutes(router, limit)
	viewHandler.RegisterRoutes(router, limit)

	return router
}

// HealthResponse reports the state of the service and its backing resources
type HealthResponse struct {
	Status   string            `json:"status"`
	Products int               `json:"products"`
	Checks   map[string]string `json:"checks,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:   "ok",
		Products: s.deps.Store.Len(),
		Checks:   map[string]string{},
	}

	if s.deps.DB != nil {
		resp.Checks["database"] = checkResult(s.deps.DB.PingContext(ctx))
	}
	if s.deps.Redis != nil {
		resp.Checks["redis"] = checkResult(s.deps.Redis.Ping(ctx).Err())
	}

	// The catalog keeps serving from memory, so a failed check only degrades
	for _, result := range resp.Checks {
		if result != "ok" {
			resp.Status = "degraded"
		}
	}

	custommiddleware.RespondWithJSON(w, http.StatusOK, resp)
}

func checkResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
