package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/server/http/dto"
)

// AdminHandler serves billing hooks, scheduled jobs and token issuance.
type AdminHandler struct {
	facade AdminFacade
	now    func() time.Time
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(facade AdminFacade) *AdminHandler {
	return &AdminHandler{facade: facade, now: time.Now}
}

// Reset handles POST /api/admin/allowance/reset.
func (h *AdminHandler) Reset(c *gin.Context) {
	var req dto.ResetRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.Period == "" {
		req.Period = model.BillingPeriod(h.now())
	}
	count, err := h.facade.ResetMonthly(c.Request.Context(), CurrentPrincipal(c), req.Period)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ResetResponse{Period: req.Period, Reset: count})
}

// Activate handles POST /api/admin/accounts.
func (h *AdminHandler) Activate(c *gin.Context) {
	var req dto.ActivateRequest
	if !bindJSON(c, &req) {
		return
	}
	account, err := h.facade.ActivateSubscription(c.Request.Context(), CurrentPrincipal(c), req.SubscriberID, model.PlanTier(req.Plan))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AccountResponse{
		SubscriberID:     account.SubscriberID,
		Plan:             string(account.PlanTier),
		CreditsRemaining: account.CreditsRemaining,
		FreeTrialUsed:    account.FreeTrialUsed,
		ResetPeriod:      account.ResetPeriod,
		Active:           account.Active,
	})
}

// IssueToken handles POST /api/admin/tokens.
func (h *AdminHandler) IssueToken(c *gin.Context) {
	var req dto.TokenRequest
	if !bindJSON(c, &req) {
		return
	}
	token, err := h.facade.IssueToken(c.Request.Context(), CurrentPrincipal(c), model.Principal{
		ID:         req.Subject,
		Capability: model.Capability(req.Capability),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.TokenResponse{Token: token})
}
