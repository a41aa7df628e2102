package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livestock-marketplace/backend/internal/config"
	"github.com/livestock-marketplace/backend/internal/consensus"
	"github.com/livestock-marketplace/backend/internal/db"
	"github.com/livestock-marketplace/backend/internal/events"
	"github.com/livestock-marketplace/backend/internal/repositories"
	"github.com/livestock-marketplace/backend/internal/services"
	"go.uber.org/zap"
)

// Reconciliation worker: retries consensus proof attachment for
// transitions that committed while the ledger was unreachable.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	escrowRepo := repositories.NewEscrowRepo(pool)
	escrowLogRepo := repositories.NewEscrowLogRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)

	consensusClient := consensus.NewClient(consensus.ClientConfig{
		OperatorSeed:   cfg.OperatorSeed,
		Network:        cfg.ConsensusNetwork,
		LiteServerHost: cfg.LiteServerHost,
		LiteServerPort: cfg.LiteServerPort,
		LiteServerKey:  cfg.LiteServerKey,
		Topics:         cfg.ConsensusTopics(),
	}, log)
	defer consensusClient.Close()

	reconciler := services.NewReconciler(escrowLogRepo, escrowRepo, auditRepo, consensusClient, publisher, rdb, cfg, log)

	if !cfg.LedgerEnabled {
		log.Warn("LEDGER_ENABLED is false, reconciliation has nothing to submit to, exiting")
		return
	}

	log.Info("reconciliation worker started",
		zap.Duration("interval", cfg.ReconcileInterval),
		zap.Int("batch", cfg.ReconcileBatch),
	)

	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := reconciler.RunOnce(ctx); err != nil {
				log.Error("reconcile cycle failed", zap.Error(err))
			}
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
