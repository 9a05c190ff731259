package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/redis/rueidis"

	config "surplus-relay.com/surplus-relay/internal/configs"
	"surplus-relay.com/surplus-relay/internal/queue"
	repository "surplus-relay.com/surplus-relay/internal/repositories"
	"surplus-relay.com/surplus-relay/internal/services"
)

// app holds the wiring shared by serve and sweep.
type app struct {
	cfg       config.Config
	redis     rueidis.Client
	publisher queue.Publisher
	inbox     *queue.RedisPublisher
	emitter   *services.EmitterService
	claims    *services.ClaimService
	dispatch  *services.DispatchService
}

func newApp() *app {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment variables")
	}

	cfg := config.Load()
	database := config.NewDatabaseClient(cfg.DatabaseDriver, cfg.DatabaseDSN)
	store := repository.NewStore(database)

	a := &app{cfg: cfg, publisher: queue.LogPublisher{}}
	if cfg.RedisEnabled {
		a.redis = config.NewRedisClient(cfg.RedisAddr)
		a.inbox = queue.NewRedisPublisher(a.redis, cfg.NotifyKeyPrefix, int64(cfg.NotifyInboxSize))
		a.publisher = a.inbox
		log.Printf("publishing notifications to redis at %s", cfg.RedisAddr)
	}

	a.emitter = services.NewEmitterService(a.publisher, cfg.NotifyWorkers, cfg.NotifyQueueSize)
	a.claims = services.NewClaimService(store, a.emitter)
	a.dispatch = services.NewDispatchService(store, a.emitter, config.LoadBadgeRules(cfg.BadgeRulesPath))

	return a
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
}
