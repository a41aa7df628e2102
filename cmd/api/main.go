package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/livestock-marketplace/backend/internal/config"
	"github.com/livestock-marketplace/backend/internal/consensus"
	"github.com/livestock-marketplace/backend/internal/db"
	"github.com/livestock-marketplace/backend/internal/events"
	apphttp "github.com/livestock-marketplace/backend/internal/http"
	"github.com/livestock-marketplace/backend/internal/http/handlers"
	"github.com/livestock-marketplace/backend/internal/registry"
	"github.com/livestock-marketplace/backend/internal/repositories"
	"github.com/livestock-marketplace/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	escrowRepo := repositories.NewEscrowRepo(pool)
	escrowLogRepo := repositories.NewEscrowLogRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Consensus client: one session per process, lazily built on first
	// submit, closed by the host.
	consensusClient := consensus.NewClient(consensus.ClientConfig{
		OperatorSeed:   cfg.OperatorSeed,
		Network:        cfg.ConsensusNetwork,
		LiteServerHost: cfg.LiteServerHost,
		LiteServerPort: cfg.LiteServerPort,
		LiteServerKey:  cfg.LiteServerKey,
		Topics:         cfg.ConsensusTopics(),
	}, log)
	defer consensusClient.Close()

	// Services
	var escrowService *services.EscrowService
	if cfg.SettlementInternalURL != "" {
		settlement := services.NewSettlementClient(cfg.SettlementInternalURL, log)
		escrowService = services.NewEscrowService(escrowRepo, escrowLogRepo, auditRepo, consensusClient, settlement, publisher, cfg, log)
	} else {
		escrowService = services.NewEscrowService(escrowRepo, escrowLogRepo, auditRepo, consensusClient, nil, publisher, cfg, log)
	}
	registryParser := registry.NewParser(cfg.RegistryBaseURL, cfg.RegistryTimeoutMS, cfg.RegistryMaxRetries, log)
	verifyService := services.NewVerifyService(escrowService, escrowLogRepo, registryParser, consensusClient, publisher, cfg, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(cfg, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, verifyService, auditRepo, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, escrowHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
