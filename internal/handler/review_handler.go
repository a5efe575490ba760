package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventory/api/internal/repository"
	"eventory/api/internal/service"
	"eventory/api/pkg/response"
)

type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *zap.Logger
}

func NewReviewHandler(reviewService service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, logger: logger}
}

type CreateReviewRequest struct {
	EventID     int64  `json:"eventId" binding:"required,min=1"`
	Score       int    `json:"score" binding:"required,min=1,max=5"`
	Title       string `json:"title" binding:"required,max=256"`
	Description string `json:"description"`
}

func (h *ReviewHandler) Create(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	review, err := h.reviewService.CreateReview(c.Request.Context(), service.CreateReviewInput{
		UserID:      userID,
		EventID:     req.EventID,
		Score:       req.Score,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Created(c, review)
}

func (h *ReviewHandler) List(c *gin.Context) {
	eventID, ok := queryID(c, "eventId")
	if !ok {
		return
	}
	userID, ok := queryID(c, "userId")
	if !ok {
		return
	}

	reviews, err := h.reviewService.ListReviews(c.Request.Context(), repository.ReviewFilter{
		EventID: eventID,
		UserID:  userID,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, reviews)
}

func (h *ReviewHandler) Get(c *gin.Context) {
	reviewID, ok := pathID(c, "reviewId")
	if !ok {
		return
	}

	review, err := h.reviewService.GetReview(c.Request.Context(), reviewID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, review)
}
