package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/logger"
)

const (
	initDataHeader = "init_data"
	userKey        = "user"
)

// TelegramInitData validates the Mini App init data header. With an empty
// bot token the check is skipped, which is only meant for local runs.
func TelegramInitData(botToken string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if botToken == "" {
			c.Next()
			return
		}

		raw := c.GetHeader(initDataHeader)
		if raw == "" {
			sendErrorResponse(c, errors.NewUnauthorizedError("telegram init data required"))
			return
		}

		if err := initdata.Validate(raw, botToken, ttl); err != nil {
			logger.Debug().Err(err).Msg("init data validation failed")
			sendErrorResponse(c, errors.NewUnauthorizedError("invalid init data"))
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			sendErrorResponse(c, errors.NewInputError("init_data", err.Error()))
			return
		}

		c.Set(userKey, parsed.User)
		c.Next()
	}
}

// TelegramUser returns the Mini App user attached by TelegramInitData.
func TelegramUser(c *gin.Context) (initdata.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return initdata.User{}, false
	}
	u, ok := v.(initdata.User)
	return u, ok
}
