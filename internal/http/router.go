package http

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gtm-backend/internal/app"
	"gtm-backend/internal/common/auth"
	"gtm-backend/internal/common/middleware"
	giveawayhttp "gtm-backend/internal/features/giveaway/delivery/http"
	ratinghttp "gtm-backend/internal/features/rating/delivery/http"
	referralhttp "gtm-backend/internal/features/referral/delivery/http"
	subscriptionhttp "gtm-backend/internal/features/subscription/delivery/http"
	userhttp "gtm-backend/internal/features/user/delivery/http"
	workershttp "gtm-backend/internal/workers/delivery/http"
)

const ratingCacheTTL = 5 * time.Second

// NewRouter builds the gin engine with every route and middleware wired.
func NewRouter(c *app.Container) *gin.Engine {
	cfg := c.Config
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.Server.Origin == "" || cfg.Server.Origin == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "init_data", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.ErrorResponder())

	api := router.Group("/api")
	api.GET("/health", health)
	api.GET("/ready", ready(c))

	signer := auth.NewSigner(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	admin := api.Group("", middleware.RequireAdmin(signer))
	mini := api.Group("", middleware.TelegramInitData(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL))

	userhttp.NewUserHandler(c.Users).RegisterRoutes(api, mini)
	giveawayhttp.NewGiveawayHandler(c.Results).RegisterRoutes(api, admin)
	subscriptionhttp.NewSubscriptionHandler(c.Subscriptions).RegisterRoutes(mini)
	referralhttp.NewReferralHandler(c.Referrals).RegisterRoutes(mini)

	rating := api.Group("", middleware.ResponseCache(c.RedisCmd(), ratingCacheTTL))
	ratinghttp.NewRatingHandler(c.Ratings).RegisterRoutes(rating)

	if c.Queue != nil {
		workershttp.NewEnqueueHandler(c.Queue).RegisterRoutes(mini)
	}

	return router
}

func health(c *gin.Context) {
	c.JSON(nethttp.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "gtm-backend",
	})
}

func ready(ct *app.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if ct.Postgres != nil {
			if err := ct.Postgres.Ping(ctx); err != nil {
				c.JSON(nethttp.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   "postgres unavailable",
					"details": err.Error(),
				})
				return
			}
		}

		if rdb := ct.RedisCmd(); rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				c.JSON(nethttp.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   "redis unavailable",
					"details": err.Error(),
				})
				return
			}
		}

		c.JSON(nethttp.StatusOK, gin.H{"status": "ready"})
	}
}
