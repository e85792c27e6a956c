package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/solbet/custody/internal/account"
	"github.com/solbet/custody/internal/alert"
	"github.com/solbet/custody/internal/balance"
	"github.com/solbet/custody/internal/config"
	"github.com/solbet/custody/internal/ledger"
	"github.com/solbet/custody/internal/limits"
	"github.com/solbet/custody/internal/middleware"
	"github.com/solbet/custody/internal/settlement"
	"github.com/solbet/custody/internal/solana"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. It returns the
// confirmation sweeper so main can run it alongside the HTTP listener.
func Setup(app *fiber.App, d Deps) (*settlement.Sweeper, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var balances balance.Store
	var events ledger.Store
	var accountRepo account.Repository
	if d.DB != nil {
		balances = balance.NewPostgresStore(d.DB)
		events = ledger.NewPostgresStore(d.DB)
		accountRepo = account.NewPostgresRepository(d.DB)
	} else {
		balances = balance.NewInMemory()
		events = ledger.NewInMemory()
		accountRepo = account.NewMemoryRepository()
	}

	// On-chain execution
	house, err := solana.LoadHouseWallet(d.Cfg.HouseWalletKey, uint64(d.Cfg.HouseWalletReserve))
	if err != nil {
		return nil, err
	}
	snapshots := alert.NewHouseBalanceSnapshot(d.Cache, d.Logger)
	executor := solana.NewExecutor(
		solana.NewRPCClient(d.Cfg.SolanaRPCURL),
		house,
		solana.ExecutorConfig{
			SubmitRetries:       d.Cfg.SubmitRetries,
			ConfirmationTimeout: d.Cfg.ConfirmationTimeout,
		},
		snapshots,
		d.Logger,
	)

	// Services
	alerts := alert.NewLoggerNotifier(d.Logger)
	limiter := limits.New(events, limits.Caps{
		ledger.KindWithdrawal:       d.Cfg.DailyLimit(ledger.KindWithdrawal),
		ledger.KindInternalTransfer: d.Cfg.DailyLimit(ledger.KindInternalTransfer),
	}, d.Cfg.LimitFailClosed, d.Logger)
	committers := []settlement.Committer{
		settlement.NewPrimaryCommitter(events, balances),
		settlement.NewFallbackCommitter(events, balances),
	}
	accountSvc := account.NewService(accountRepo, balances, events)
	settlementSvc := settlement.NewService(
		accountSvc,
		balances,
		events,
		limiter,
		executor,
		committers,
		alerts,
		settlement.Config{MinAmount: d.Cfg.MinAmount, MaxSingleAmount: d.Cfg.MaxSingleAmount},
		d.Logger,
	)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAccountRoutes(api, account.NewHandler(accountSvc))
	RegisterSettlementRoutes(api, settlement.NewHandler(settlementSvc))

	sweeper := settlement.NewSweeper(
		events,
		balances,
		executor,
		committers,
		alerts,
		d.Cfg.ConfirmationTimeout,
		d.Cfg.SweepInterval,
		d.Logger,
	)
	return sweeper, nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
