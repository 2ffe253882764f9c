package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "gtm-backend/internal/common/errors"
	refmodels "gtm-backend/internal/features/referral/models"
	"gtm-backend/internal/workers"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error)
}

type EnqueueHandler struct {
	queue Enqueuer
}

func NewEnqueueHandler(queue Enqueuer) *EnqueueHandler {
	return &EnqueueHandler{queue: queue}
}

func (h *EnqueueHandler) RegisterRoutes(api *gin.RouterGroup) {
	g := api.Group("/enqueue")
	g.POST("/referral-join", h.referralJoin)
	g.POST("/check-subscriptions", h.checkSubscriptions)
	g.POST("/direct-update", h.directUpdate)
}

func (h *EnqueueHandler) enqueue(c *gin.Context, jobType string, payload interface{}) {
	id, err := h.queue.Enqueue(c.Request.Context(), jobType, payload)
	if err != nil {
		_ = c.Error(apperrors.NewDependencyError("queue", "enqueue", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"enqueued": true, "job_id": id})
}

// @Summary Enqueue a referral join
// @Tags jobs
// @Accept json
// @Produce json
// @Param input body workers.ReferralJoinPayload true "Join"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} middleware.ErrorResponse
// @Router /enqueue/referral-join [post]
func (h *EnqueueHandler) referralJoin(c *gin.Context) {
	var p workers.ReferralJoinPayload
	if err := c.ShouldBindJSON(&p); err != nil || p.ReferralCode == "" || p.ReferredTelegramID <= 0 {
		_ = c.Error(apperrors.NewInputError("referral_code", "referral_code and referred_telegram_id required"))
		return
	}
	h.enqueue(c, workers.JobReferralJoin, p)
}

// @Summary Enqueue a subscription check
// @Tags jobs
// @Accept json
// @Produce json
// @Param input body workers.CheckSubscriptionsPayload true "User"
// @Success 200 {object} map[string]interface{}
// @Router /enqueue/check-subscriptions [post]
func (h *EnqueueHandler) checkSubscriptions(c *gin.Context) {
	var p workers.CheckSubscriptionsPayload
	if err := c.ShouldBindJSON(&p); err != nil || p.TelegramID <= 0 {
		_ = c.Error(apperrors.NewInputError("telegram_id", "required"))
		return
	}
	h.enqueue(c, workers.JobCheckSubscriptions, p)
}

// @Summary Enqueue a counter update
// @Tags jobs
// @Accept json
// @Produce json
// @Param input body refmodels.DirectUpdate true "Deltas"
// @Success 200 {object} map[string]interface{}
// @Router /enqueue/direct-update [post]
func (h *EnqueueHandler) directUpdate(c *gin.Context) {
	var p refmodels.DirectUpdate
	if err := c.ShouldBindJSON(&p); err != nil || p.TelegramID <= 0 {
		_ = c.Error(apperrors.NewInputError("telegram_id", "required"))
		return
	}
	h.enqueue(c, workers.JobDirectUpdate, p)
}
