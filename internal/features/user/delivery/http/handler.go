package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/middleware"
	"gtm-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterRoutes mounts public stats routes on api and the mini app route on app.
func (h *UserHandler) RegisterRoutes(api, app *gin.RouterGroup) {
	api.GET("/giveaway/total_all", h.totalAll)
	api.GET("/giveaway/user_stats/:telegram_id", h.userStats)
	app.GET("/users/me", h.me)
}

// @Summary Total tickets
// @Description Sum of tickets over all users
// @Tags giveaway
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /giveaway/total_all [get]
func (h *UserHandler) totalAll(c *gin.Context) {
	total, err := h.service.TotalAllTickets(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "total_all_tickets": total})
}

// @Summary User ticket stats
// @Tags giveaway
// @Produce json
// @Param telegram_id path int true "Telegram user ID"
// @Success 200 {object} models.Stats
// @Failure 400 {object} middleware.ErrorResponse
// @Router /giveaway/user_stats/{telegram_id} [get]
func (h *UserHandler) userStats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		_ = c.Error(apperrors.NewInputError("telegram_id", "must be an integer"))
		return
	}

	stats, err := h.service.GetUserStats(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// @Summary Current user
// @Description Get or create the user behind the Telegram init data
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.User
// @Failure 401 {object} middleware.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) me(c *gin.Context) {
	tgUser, ok := middleware.TelegramUser(c)
	if !ok {
		_ = c.Error(apperrors.NewUnauthorizedError("telegram init data required"))
		return
	}

	user, err := h.service.GetOrCreateUser(c.Request.Context(), tgUser.ID, tgUser.Username, tgUser.FirstName, tgUser.LastName)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}
