package main

import (
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/IamSiddharthChoudhary/Assessly/internal/api"
	"github.com/IamSiddharthChoudhary/Assessly/internal/chat"
	"github.com/IamSiddharthChoudhary/Assessly/internal/config"
	"github.com/IamSiddharthChoudhary/Assessly/internal/exec"
	"github.com/IamSiddharthChoudhary/Assessly/internal/pubsub"
	"github.com/IamSiddharthChoudhary/Assessly/internal/repositories"
	"github.com/IamSiddharthChoudhary/Assessly/internal/routers"
	"github.com/IamSiddharthChoudhary/Assessly/internal/signaling"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := repositories.AutoMigrate(db); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	broker := pubsub.NewBroker(rdb, logger)
	interviews := &repositories.InterviewRepository{DB: db}
	sessions := &repositories.SessionRepository{DB: db}
	chatRepo := &repositories.ChatRepository{DB: db}

	registry := exec.DefaultRegistry(cfg.SandboxImage, exec.SandboxLimits{
		MemoryBytes: cfg.SandboxMemoryBytes,
		NanoCPUs:    1_000_000_000,
	}, logger)
	dispatcher := exec.NewDispatcher(registry, cfg.ExecDefaultTimeLimit, cfg.ExecMaxTimeLimit, logger)

	handlers := api.NewHandlers(
		logger,
		cfg,
		interviews,
		sessions,
		broker,
		chat.NewStream(chatRepo, broker, logger),
		signaling.NewRelay(broker, logger),
		dispatcher,
	)

	addr := ":" + cfg.Port
	log.Printf("assessly-svc listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, routers.New(handlers)))
}
