package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/server/http/dto"
)

// AuditHandler serves audit notes and queries.
type AuditHandler struct {
	facade AuditFacade
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(facade AuditFacade) *AuditHandler {
	return &AuditHandler{facade: facade}
}

// Log handles POST /api/review/letters/:id/audit.
func (h *AuditHandler) Log(c *gin.Context) {
	var req dto.AuditRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.facade.LogAudit(c.Request.Context(), CurrentPrincipal(c), model.AuditEntry{
		LetterID: c.Param("id"),
		Action:   req.Action,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAuditResponse(*entry))
}

// History handles GET /api/review/letters/:id/audit.
func (h *AuditHandler) History(c *gin.Context) {
	entries, err := h.facade.AuditHistory(c.Request.Context(), CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAuditResponses(entries))
}

// Range handles GET /api/review/audit?from=&to=&limit=.
func (h *AuditHandler) Range(c *gin.Context) {
	from, err := parseTime(c.Query("from"))
	if err != nil {
		writeBadRequest(c, "from must be RFC3339 or YYYY-MM-DD")
		return
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		writeBadRequest(c, "to must be RFC3339 or YYYY-MM-DD")
		return
	}
	var limit int
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeBadRequest(c, "limit must be an integer")
			return
		}
	}

	entries, err := h.facade.AuditRange(c.Request.Context(), CurrentPrincipal(c), from, to, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAuditResponses(entries))
}
