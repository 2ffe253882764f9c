package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/middleware"
	"gtm-backend/internal/features/referral/models"
	"gtm-backend/internal/features/referral/service"
)

type ReferralHandler struct {
	service service.ReferralService
}

func NewReferralHandler(service service.ReferralService) *ReferralHandler {
	return &ReferralHandler{service: service}
}

func (h *ReferralHandler) RegisterRoutes(app *gin.RouterGroup) {
	app.POST("/referral-code", h.referralCode)
	app.POST("/referral-join", h.referralJoin)
	app.POST("/direct-update", h.directUpdate)
}

type CodeRequest struct {
	TelegramID int64 `json:"telegram_id" binding:"required"`
}

type JoinRequest struct {
	ReferralCode       string `json:"referral_code" binding:"required"`
	ReferredTelegramID int64  `json:"referred_telegram_id" binding:"required"`
}

// @Summary Get or create referral code
// @Tags referrals
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param input body CodeRequest true "User"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} middleware.ErrorResponse
// @Router /referral-code [post]
func (h *ReferralHandler) referralCode(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInputError("telegram_id", "required"))
		return
	}
	if u, ok := middleware.TelegramUser(c); ok && u.ID != req.TelegramID {
		_ = c.Error(apperrors.NewForbiddenError("telegram_id does not match init data"))
		return
	}

	code, err := h.service.GetOrCreateReferralCode(c.Request.Context(), req.TelegramID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "referral_code": code})
}

// @Summary Register a referral join
// @Description Credits the code owner once per referred user, capped at 10 tickets
// @Tags referrals
// @Accept json
// @Produce json
// @Param input body JoinRequest true "Join"
// @Success 200 {object} models.JoinResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /referral-join [post]
func (h *ReferralHandler) referralJoin(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInputError("referral_code", "referral_code and referred_telegram_id required"))
		return
	}

	res, err := h.service.ProcessReferralJoin(c.Request.Context(), req.ReferralCode, req.ReferredTelegramID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Adjust ticket counters
// @Tags referrals
// @Accept json
// @Produce json
// @Param input body models.DirectUpdate true "Deltas"
// @Success 200 {object} models.DirectUpdateResult
// @Failure 404 {object} middleware.ErrorResponse
// @Router /direct-update [post]
func (h *ReferralHandler) directUpdate(c *gin.Context) {
	var req models.DirectUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInputError("body", err.Error()))
		return
	}

	res, err := h.service.DirectUpdate(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
