package routes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/admin"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/cards"
	"github.com/calivra/calivra_bank/internal/config"
	"github.com/calivra/calivra_bank/internal/feed"
	"github.com/calivra/calivra_bank/internal/identity"
	"github.com/calivra/calivra_bank/internal/ledger"
	"github.com/calivra/calivra_bank/internal/loans"
	"github.com/calivra/calivra_bank/internal/middleware"
	"github.com/calivra/calivra_bank/internal/notification"
	"github.com/calivra/calivra_bank/internal/onboarding"
	"github.com/calivra/calivra_bank/internal/realtime"
	"github.com/calivra/calivra_bank/internal/settings"
	"github.com/calivra/calivra_bank/internal/transfers"
)

const settingsCacheTTL = 10 * time.Minute

// Deps aggregates shared dependencies required to wire routes. DB, Cache and
// Broker may be nil in development, where in-memory backends take over.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Broker *amqp.Connection
	Logger *slog.Logger
}

// Services are the domain services behind the routes. Setup returns them so
// the caller can run background jobs against the same backends.
type Services struct {
	Ledger     ledger.Ledger
	Hub        realtime.Hub
	Identity   *identity.Service
	Auth       *auth.Service
	Accounts   *account.Service
	Feed       *feed.Feed
	Onboarding *onboarding.Service
	Transfers  *transfers.Service
	Loans      *loans.Service
	Cards      *cards.Service
	Admin      *admin.Service
	Settings   *settings.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Services, error) {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	svc, err := NewServices(d)
	if err != nil {
		return nil, err
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
		ExposeHeaders: "X-Request-ID",
	}))
	if d.Cfg.IsDevelopment() {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", ping)

	idem := passthrough
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	jwt := middleware.JWTAuth(svc.Auth)

	// Public routes
	api.Post("/register", onboarding.NewHandler(svc.Onboarding).Register)
	authHandler := auth.NewHandler(svc.Identity, svc.Auth, loginRecorder(svc.Accounts, d.Logger))
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, 5), jwt)

	// Protected routes
	RegisterCustomerRoutes(api, svc, jwt, idem)
	RegisterAdminRoutes(api, svc, jwt, idem)

	return svc, nil
}

// NewServices builds every domain service over Postgres/Redis/AMQP when they
// are configured and in-memory backends otherwise.
func NewServices(d Deps) (*Services, error) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	var (
		ledgerBackend ledger.Ledger
		identityRepo  identity.Repository
		accountRepo   account.Repository
		settingsRepo  settings.Repository
		hub           realtime.Hub
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		accountRepo = account.NewPostgresRepository(d.DB)
		settingsRepo = settings.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		identityRepo = identity.NewMemoryRepository()
		accountRepo = account.NewMemoryRepository()
		settingsRepo = settings.NewMemoryRepository()
	}
	if d.Cache != nil {
		hub = realtime.NewRedisHub(d.Cache, d.Logger)
		settingsRepo = settings.NewCachedRepository(settingsRepo, d.Cache, settingsCacheTTL, d.Logger)
	} else {
		hub = realtime.NewMemoryHub()
	}

	notifier, err := newNotifier(d)
	if err != nil {
		return nil, err
	}

	ids := identity.NewService(identityRepo, d.Cfg.IsAdminEmail, hub, d.Logger)
	tokens := auth.NewService(d.Cfg, ids)
	accounts := account.NewService(accountRepo, ledgerBackend, d.Cfg.TransactionLimit)
	events := feed.New(accounts, ledgerBackend, hub, notifier, d.Cfg.Currency, d.Logger)

	return &Services{
		Ledger:     ledgerBackend,
		Hub:        hub,
		Identity:   ids,
		Auth:       tokens,
		Accounts:   accounts,
		Feed:       events,
		Onboarding: onboarding.NewService(ids, accounts, tokens, d.Logger),
		Transfers:  transfers.NewService(ledgerBackend, accounts, events),
		Loans:      loans.NewService(ledgerBackend, accounts, events),
		Cards:      cards.NewService(ledgerBackend, accounts, events),
		Admin:      admin.NewService(ledgerBackend, accounts, ids, events),
		Settings:   settings.NewService(settingsRepo, hub, d.Logger),
	}, nil
}

func newNotifier(d Deps) (notification.Notifier, error) {
	fanout := notification.Multi{notification.NewLoggerNotifier(d.Logger)}
	if d.Broker != nil {
		ch, err := d.Broker.Channel()
		if err != nil {
			return nil, fmt.Errorf("open amqp channel: %w", err)
		}
		publisher, err := notification.NewAMQPNotifier(ch, d.Cfg.EventsExchange)
		if err != nil {
			return nil, err
		}
		fanout = append(fanout, publisher)
	}
	if mailer := notification.NewEmailNotifier(d.Cfg.SMTP); mailer != nil {
		fanout = append(fanout, mailer)
	}
	return fanout, nil
}

func loginRecorder(accounts *account.Service, logger *slog.Logger) auth.LoginRecorder {
	return func(ctx context.Context, userID string) string {
		a, err := accounts.GetByOwner(ctx, userID)
		if err != nil {
			return ""
		}
		if err := accounts.Touch(ctx, a.ID); err != nil {
			logger.Warn("record account login failed", "account_id", a.ID, "error", err)
		}
		return a.ID
	}
}

func passthrough(c *fiber.Ctx) error { return c.Next() }
