package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/giveaway/service"
)

type GiveawayHandler struct {
	service service.ResultsService
}

func NewGiveawayHandler(service service.ResultsService) *GiveawayHandler {
	return &GiveawayHandler{service: service}
}

// RegisterRoutes mounts the public results route on api and the draw
// control routes on admin.
func (h *GiveawayHandler) RegisterRoutes(api, admin *gin.RouterGroup) {
	api.GET("/giveaway/results/:giveaway_id", h.getResults)
	admin.POST("/giveaway/generate-results", h.generateResults)
	admin.POST("/giveaway/reset", h.reset)
}

// GiveawayRequest is the body of the admin draw endpoints.
type GiveawayRequest struct {
	GiveawayID int64 `json:"giveaway_id" binding:"required"`
}

func bindGiveawayID(c *gin.Context) (int64, bool) {
	var req GiveawayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInputError("giveaway_id", "required positive integer"))
		return 0, false
	}
	return req.GiveawayID, true
}

// @Summary Generate giveaway results
// @Description Runs the draw once. Repeated calls return the stored winners.
// @Tags giveaway
// @Accept json
// @Produce json
// @Security AdminBearer
// @Param input body GiveawayRequest true "Giveaway"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Draw in progress"
// @Failure 422 {object} middleware.ErrorResponse "Not enough eligible users"
// @Failure 502 {object} middleware.ErrorResponse
// @Router /giveaway/generate-results [post]
func (h *GiveawayHandler) generateResults(c *gin.Context) {
	id, ok := bindGiveawayID(c)
	if !ok {
		return
	}

	results, err := h.service.GenerateResults(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	logger.Info().Int64("giveaway_id", id).Int("winners", len(results)).Msg("results returned to admin")
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}

// @Summary Giveaway results
// @Description Stored winners ordered by place; empty before the draw
// @Tags giveaway
// @Produce json
// @Param giveaway_id path int true "Giveaway ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} middleware.ErrorResponse
// @Router /giveaway/results/{giveaway_id} [get]
func (h *GiveawayHandler) getResults(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("giveaway_id"), 10, 64)
	if err != nil {
		_ = c.Error(apperrors.NewInputError("giveaway_id", "must be an integer"))
		return
	}

	results, err := h.service.GetResults(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}

// @Summary Reset giveaway results
// @Tags giveaway
// @Accept json
// @Produce json
// @Security AdminBearer
// @Param input body GiveawayRequest true "Giveaway"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} middleware.ErrorResponse
// @Router /giveaway/reset [post]
func (h *GiveawayHandler) reset(c *gin.Context) {
	id, ok := bindGiveawayID(c)
	if !ok {
		return
	}

	if err := h.service.Reset(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "giveaway_id": id})
}
