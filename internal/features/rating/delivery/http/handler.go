package http

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/features/rating/models"
	"gtm-backend/internal/features/rating/service"
)

type RatingHandler struct {
	service service.RatingService
}

func NewRatingHandler(service service.RatingService) *RatingHandler {
	return &RatingHandler{service: service}
}

func (h *RatingHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/rate-artist", h.rateArtist)
	api.GET("/get-rating/:artist_name", h.getRating)
}

// userID accepts both "123" and 123.
type userID string

func (u *userID) UnmarshalJSON(b []byte) error {
	*u = userID(bytes.Trim(b, `"`))
	return nil
}

type RateRequest struct {
	ArtistName string `json:"artist_name"`
	UserID     userID `json:"user_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
}

// @Summary Rate an artist
// @Tags ratings
// @Accept json
// @Produce json
// @Param input body RateRequest true "Rating"
// @Success 200 {object} models.RateResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /rate-artist [post]
func (h *RatingHandler) rateArtist(c *gin.Context) {
	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInputError("body", err.Error()))
		return
	}

	res, err := h.service.RateArtist(c.Request.Context(), models.Rating{
		ArtistName: req.ArtistName,
		UserID:     string(req.UserID),
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Artist rating
// @Tags ratings
// @Produce json
// @Param artist_name path string true "Artist"
// @Success 200 {object} map[string]interface{}
// @Router /get-rating/{artist_name} [get]
func (h *RatingHandler) getRating(c *gin.Context) {
	stats, err := h.service.GetArtistRating(c.Request.Context(), c.Param("artist_name"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", stats)
}
