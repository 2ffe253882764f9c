package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/middleware"
	"gtm-backend/internal/features/subscription/service"
)

type SubscriptionHandler struct {
	service service.SubscriptionService
}

func NewSubscriptionHandler(service service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

func (h *SubscriptionHandler) RegisterRoutes(app *gin.RouterGroup) {
	app.POST("/check-subscriptions", h.checkSubscriptions)
	app.GET("/channels", h.channels)
}

type CheckRequest struct {
	TelegramID int64 `json:"telegram_id" binding:"required"`
}

// @Summary Check channel subscriptions
// @Description Checks every required channel and awards the subscription ticket
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param input body CheckRequest true "User"
// @Success 200 {object} models.CheckResult
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /check-subscriptions [post]
func (h *SubscriptionHandler) checkSubscriptions(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInputError("telegram_id", "required"))
		return
	}
	if u, ok := middleware.TelegramUser(c); ok && u.ID != req.TelegramID {
		_ = c.Error(apperrors.NewForbiddenError("telegram_id does not match init data"))
		return
	}

	res, err := h.service.CheckAndAward(c.Request.Context(), req.TelegramID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Required channels
// @Tags subscriptions
// @Produce json
// @Success 200 {array} models.Channel
// @Router /channels [get]
func (h *SubscriptionHandler) channels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "channels": h.service.Channels()})
}
