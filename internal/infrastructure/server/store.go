package server

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/push/internal/store"
	"github.com/GriffinCanCode/AgentOS/push/internal/store/badger"
	"github.com/GriffinCanCode/AgentOS/push/internal/store/redis"
	"github.com/GriffinCanCode/AgentOS/push/internal/store/sqlite"
)

// OpenTree opens the node store selected by cfg.Backend
func OpenTree(cfg config.StoreConfig, logger *zap.Logger) (store.Tree, error) {
	switch cfg.Backend {
	case "memory":
		logger.Warn("Using in-memory store; registrations will not survive a restart")
		return store.NewMemoryTree(), nil
	case "badger":
		bc := badger.DefaultConfig()
		bc.Path = cfg.Path
		bc.GCInterval = cfg.BadgerGCInterval
		bc.Logger = logger
		return badger.Open(bc)
	case "sqlite":
		return sqlite.Open(cfg.Path)
	case "redis":
		return redis.Open(redis.Config{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
