package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jamilahmedansari/letterdesk/internal/server/http/dto"
)

// ReviewHandler serves the reviewer queue and decisions.
type ReviewHandler struct {
	facade ReviewFacade
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(facade ReviewFacade) *ReviewHandler {
	return &ReviewHandler{facade: facade}
}

// Next handles POST /api/review/next. An empty queue answers 204.
func (h *ReviewHandler) Next(c *gin.Context) {
	item, err := h.facade.NextForReview(c.Request.Context(), CurrentPrincipal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if item == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, toQueueItemResponse(*item))
}

// Queue handles GET /api/review/queue.
func (h *ReviewHandler) Queue(c *gin.Context) {
	items, err := h.facade.ReviewQueue(c.Request.Context(), CurrentPrincipal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response := make([]dto.QueueItemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toQueueItemResponse(item))
	}
	c.JSON(http.StatusOK, response)
}

// Priority handles GET /api/review/letters/:id/priority.
func (h *ReviewHandler) Priority(c *gin.Context) {
	id := c.Param("id")
	score, err := h.facade.Priority(c.Request.Context(), CurrentPrincipal(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PriorityResponse{LetterID: id, PriorityScore: score})
}

// Approve handles POST /api/review/letters/:id/approve.
func (h *ReviewHandler) Approve(c *gin.Context) {
	letter, err := h.facade.Approve(c.Request.Context(), CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLetterResponse(*letter))
}

// Reject handles POST /api/review/letters/:id/reject.
func (h *ReviewHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if !bindJSON(c, &req) {
		return
	}
	letter, err := h.facade.Reject(c.Request.Context(), CurrentPrincipal(c), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLetterResponse(*letter))
}

// Complete handles POST /api/review/letters/:id/complete.
func (h *ReviewHandler) Complete(c *gin.Context) {
	letter, err := h.facade.Complete(c.Request.Context(), CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLetterResponse(*letter))
}
