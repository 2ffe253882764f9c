package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"gtm-backend/internal/common/cache"
	"gtm-backend/internal/common/config"
	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/giveaway/repository"
	postgresresults "gtm-backend/internal/features/giveaway/repository/postgres"
	redislock "gtm-backend/internal/features/giveaway/repository/redis"
	supabasegiveaway "gtm-backend/internal/features/giveaway/repository/supabase"
	"gtm-backend/internal/features/giveaway/sampler"
	giveawayservice "gtm-backend/internal/features/giveaway/service"
	"gtm-backend/internal/features/notification"
	ratingrepo "gtm-backend/internal/features/rating/repository/supabase"
	ratingservice "gtm-backend/internal/features/rating/service"
	referralrepo "gtm-backend/internal/features/referral/repository/supabase"
	referralservice "gtm-backend/internal/features/referral/service"
	subsmodels "gtm-backend/internal/features/subscription/models"
	subsrepo "gtm-backend/internal/features/subscription/repository/supabase"
	subsservice "gtm-backend/internal/features/subscription/service"
	userrepo "gtm-backend/internal/features/user/repository/supabase"
	userservice "gtm-backend/internal/features/user/service"
	"gtm-backend/internal/platform/postgres"
	"gtm-backend/internal/platform/redis"
	"gtm-backend/internal/platform/supabase"
	"gtm-backend/internal/platform/telegram"
	"gtm-backend/internal/utils/random"
	"gtm-backend/internal/workers"
)

// Container holds every service shared by the API server and the worker.
type Container struct {
	Config *config.Config

	Redis    *redis.Client
	Postgres *postgres.Client
	Supabase *supabase.Client
	Telegram *telegram.Client

	Users         userservice.UserService
	Subscriptions subsservice.SubscriptionService
	Referrals     referralservice.ReferralService
	Ratings       ratingservice.RatingService
	Results       giveawayservice.ResultsService
	Notifier      *notification.TelegramNotifier
	Queue         *workers.Queue
}

// Build opens the backing stores and wires the services. Redis is optional:
// without it there is no shared lock, stats cache or job queue.
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	rdb, err := redis.OpenOptional(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	c.Redis = rdb

	c.Supabase = supabase.NewFromConfig(cfg)
	c.Telegram = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.Timeout)
	if !c.Telegram.Enabled() {
		logger.Warn().Msg("TELEGRAM_BOT_TOKEN not set; subscription checks will fail closed and notifications are disabled")
	}
	c.Notifier = notification.NewTelegramNotifier(c.Telegram, cfg.Telegram.Timeout)

	channels, err := subsmodels.ParseChannels(cfg.Telegram.ChannelsJSON)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("subscription channels: %w", err)
	}

	var statsCache *cache.CacheService
	if rdb != nil {
		statsCache = cache.NewCacheService(rdb.Client, "gtm:")
	}

	users := userrepo.NewUserRepository(c.Supabase)
	c.Users = userservice.NewUserService(users, statsCache, cfg.Giveaway.StatsTTL)

	c.Subscriptions = subsservice.NewSubscriptionService(
		channels,
		c.Telegram,
		subsrepo.NewSubscriptionRepository(c.Supabase),
		users,
		c.Notifier,
		c.Users,
	)
	c.Referrals = referralservice.NewReferralService(
		referralrepo.NewReferralRepository(c.Supabase),
		users,
		c.Notifier,
		c.Users,
		random.Crypto(),
	)
	c.Ratings = ratingservice.NewRatingService(ratingrepo.NewRatingRepository(c.Supabase))

	results, err := c.resultsRepository(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	selector := giveawayservice.NewSelector(
		supabasegiveaway.NewLedger(c.Supabase, users),
		c.Subscriptions,
		sampler.New(random.Crypto()),
		giveawayservice.SelectorConfig{
			Places:        cfg.Giveaway.Places,
			AttemptBudget: cfg.Giveaway.AttemptBudget,
			OracleTimeout: cfg.Giveaway.OracleTimeout,
			OrganizerIDs:  cfg.Giveaway.OrganizerIDs,
		},
	)

	var locker repository.Locker
	if rdb != nil {
		locker = redislock.NewLockRepository(rdb.Client)
		c.Queue = workers.NewQueue(rdb.Client, cfg.Worker.Stream)
	}

	var notifier giveawayservice.Notifier
	if c.Telegram.Enabled() {
		notifier = c.Notifier
	}
	c.Results = giveawayservice.NewResultsService(results, selector, locker, notifier, giveawayservice.ResultsConfig{
		LockTTL:       cfg.Giveaway.LockTTL,
		LockWait:      cfg.Giveaway.LockWait,
		MirrorTTL:     cfg.Giveaway.MirrorTTL,
		NotifyWinners: cfg.Giveaway.NotifyWinners,
	})

	return c, nil
}

func (c *Container) resultsRepository(ctx context.Context) (repository.ResultsRepository, error) {
	cfg := c.Config
	if cfg.Giveaway.ResultsBackend != config.ResultsBackendPostgres {
		return supabasegiveaway.NewResultsRepository(c.Supabase), nil
	}

	pg, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	c.Postgres = pg
	if cfg.Postgres.AutoMigrate {
		if err := postgresresults.EnsureSchema(ctx, pg.DB()); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info().Msg("giveaway_winners schema ensured")
	}
	return postgresresults.NewResultsRepository(pg.DB()), nil
}

// RedisCmd returns the Redis client as an interface, nil when Redis is not configured.
func (c *Container) RedisCmd() goredis.Cmdable {
	if c.Redis == nil {
		return nil
	}
	return c.Redis.Client
}

func (c *Container) Close() {
	if c.Postgres != nil {
		if err := c.Postgres.Close(); err != nil {
			logger.Warn().Err(err).Msg("postgres close failed")
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("redis close failed")
		}
	}
}
