package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"video_hearings/internal/config"
	"video_hearings/pkg/logger"
)

type Repositories struct {
	Cache           KeyValueStore
	ConferenceState ConferenceStateRepository
}

func NewRepositories(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, apiClient VideoControlStatusClient, log logger.Logger) *Repositories {
	repos := &Repositories{
		Cache: NewRedisKeyValueStore(rdb, log),
	}

	switch cfg.StateStore.Backend {
	case config.StateStoreAPI:
		repos.ConferenceState = NewAPIConferenceStateRepository(apiClient, log)
	case config.StateStorePostgres:
		repos.ConferenceState = NewPostgresConferenceStateRepository(db, log)
	default:
		repos.ConferenceState = NewCacheConferenceStateRepository(repos.Cache, log)
	}
	log.Info("Conference state store initialized", "backend", cfg.StateStore.Backend)

	return repos
}
