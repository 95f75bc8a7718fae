package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jamilahmedansari/letterdesk/internal/server/http/dto"
)

// LetterHandler manages subscriber letter endpoints.
type LetterHandler struct {
	facade LetterFacade
}

// NewLetterHandler constructs LetterHandler.
func NewLetterHandler(facade LetterFacade) *LetterHandler {
	return &LetterHandler{facade: facade}
}

// Create handles POST /api/letters.
func (h *LetterHandler) Create(c *gin.Context) {
	var req dto.LetterRequest
	if !bindJSON(c, &req) {
		return
	}
	letter, err := h.facade.CreateLetter(c.Request.Context(), CurrentPrincipal(c), req.Intake)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toLetterResponse(*letter))
}

// List handles GET /api/letters.
func (h *LetterHandler) List(c *gin.Context) {
	letters, err := h.facade.Letters(c.Request.Context(), CurrentPrincipal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if len(letters) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	response := make([]dto.LetterResponse, 0, len(letters))
	for _, l := range letters {
		response = append(response, toLetterResponse(l))
	}
	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/letters/:id.
func (h *LetterHandler) Get(c *gin.Context) {
	letter, err := h.facade.Letter(c.Request.Context(), CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLetterResponse(*letter))
}

// Submit handles POST /api/letters/:id/submit.
func (h *LetterHandler) Submit(c *gin.Context) {
	letter, err := h.facade.Submit(c.Request.Context(), CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toLetterResponse(*letter))
}

// Resubmit handles POST /api/letters/:id/resubmit.
func (h *LetterHandler) Resubmit(c *gin.Context) {
	var req dto.LetterRequest
	if !bindJSON(c, &req) {
		return
	}
	letter, err := h.facade.Resubmit(c.Request.Context(), CurrentPrincipal(c), c.Param("id"), req.Intake)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toLetterResponse(*letter))
}

// Position handles GET /api/letters/:id/position.
func (h *LetterHandler) Position(c *gin.Context) {
	id := c.Param("id")
	pos, err := h.facade.QueuePosition(c.Request.Context(), CurrentPrincipal(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PositionResponse{LetterID: id, Position: pos})
}
