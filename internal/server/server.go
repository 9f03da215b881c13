package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/calivra/calivra_bank/internal/config"
	"github.com/calivra/calivra_bank/internal/reconcile"
	"github.com/calivra/calivra_bank/internal/routes"
)

// Server wraps the Fiber application and the background reconciliation job.
type Server struct {
	app       *fiber.App
	cfg       config.Config
	scheduler *reconcile.Scheduler
	logger    *slog.Logger
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// db, cache and broker may be nil in development.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, broker *amqp.Connection, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: routes.ErrorHandler(logger),
	})

	svc, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Broker: broker, Logger: logger})
	if err != nil {
		return nil, err
	}

	scheduler, err := reconcile.NewScheduler(cfg.ReconcileSpec, reconcile.NewJob(svc.Ledger, logger), logger)
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, scheduler: scheduler, logger: logger}, nil
}

// Listen starts the reconciliation schedule and the HTTP server.
func (s *Server) Listen() error {
	s.scheduler.Start()
	s.logger.Info("listening", "addr", s.cfg.Address(), "reconcile", s.cfg.ReconcileSpec)
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server, then the scheduler.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.scheduler.Stop(ctx)
	return err
}
