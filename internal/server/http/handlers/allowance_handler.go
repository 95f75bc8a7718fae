package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jamilahmedansari/letterdesk/internal/server/http/dto"
)

// AllowanceHandler serves allowance checks and standalone deductions.
type AllowanceHandler struct {
	facade AllowanceFacade
}

// NewAllowanceHandler constructs AllowanceHandler.
func NewAllowanceHandler(facade AllowanceFacade) *AllowanceHandler {
	return &AllowanceHandler{facade: facade}
}

// Check handles GET /api/allowance.
func (h *AllowanceHandler) Check(c *gin.Context) {
	status, err := h.facade.CheckAllowance(c.Request.Context(), CurrentPrincipal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AllowanceResponse{
		HasAllowance: status.HasAllowance,
		Remaining:    status.Remaining,
		PlanName:     string(status.PlanTier),
		IsSuper:      status.IsUnlimited,
	})
}

// Deduct handles POST /api/allowance/deduct.
func (h *AllowanceHandler) Deduct(c *gin.Context) {
	deducted, err := h.facade.DeductAllowance(c.Request.Context(), CurrentPrincipal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DeductResponse{Deducted: deducted})
}
