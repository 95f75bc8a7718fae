package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/server/http/dto"
	"github.com/jamilahmedansari/letterdesk/internal/server/http/middleware"
)

const retryAfterSeconds = "1"

// CurrentPrincipal extracts the authenticated caller from context.
func CurrentPrincipal(c *gin.Context) model.Principal {
	p, _ := middleware.Principal(c)
	return p
}

func statusFor(code string) int {
	switch code {
	case domainErrors.CodeInvalidTransition, domainErrors.CodeStaleState,
		domainErrors.CodeClaimLost, domainErrors.CodeAlreadyExists:
		return http.StatusConflict
	case domainErrors.CodeInsufficientAllowance:
		return http.StatusPaymentRequired
	case domainErrors.CodeTryAgain:
		return http.StatusServiceUnavailable
	case domainErrors.CodeNotFound, domainErrors.CodeNotQueued:
		return http.StatusNotFound
	case domainErrors.CodeForbidden:
		return http.StatusForbidden
	case domainErrors.CodeValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"code","message"}; internal failures keep their detail out of the response.
func writeError(c *gin.Context, err error) {
	code := domainErrors.Code(err)
	status := statusFor(code)
	message := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		code = domainErrors.CodeInternal
		message = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", retryAfterSeconds)
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Code: code, Message: message})
}

func writeBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
		Code:    domainErrors.CodeValidation,
		Message: message,
	})
}

// bindJSON decodes the request body into dst, answering 400 on malformed input.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeBadRequest(c, "malformed JSON body")
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be empty.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(c, "malformed JSON body")
		return false
	}
	return true
}

func toLetterResponse(l model.Letter) dto.LetterResponse {
	return dto.LetterResponse{
		ID:              l.ID,
		OwnerID:         l.OwnerID,
		Status:          string(l.Status),
		Intake:          l.Intake,
		DraftText:       l.DraftText,
		ReviewerID:      l.ReviewerID,
		RejectionReason: l.RejectionReason,
		IsFirstLetter:   l.IsFirstLetter,
		CreatedAt:       l.CreatedAt,
		SubmittedAt:     l.SubmittedAt,
		ReviewStartedAt: l.ReviewStartedAt,
		ReviewedAt:      l.ReviewedAt,
		CompletedAt:     l.CompletedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func toQueueItemResponse(item model.QueueItem) dto.QueueItemResponse {
	return dto.QueueItemResponse{
		LetterID:      item.LetterID,
		PriorityScore: item.Score,
		WaitHours:     item.WaitHours,
		UserPlan:      string(item.PlanTier),
		IsFirstLetter: item.IsFirstLetter,
		Position:      item.Position,
		SubmittedAt:   item.SubmittedAt,
	}
}

func toAuditResponse(e model.AuditEntry) dto.AuditResponse {
	resp := dto.AuditResponse{
		ID:           e.ID,
		LetterID:     e.LetterID,
		SubscriberID: e.SubscriberID,
		Actor:        e.Actor,
		Action:       e.Action,
		Notes:        e.Notes,
		CreatedAt:    e.CreatedAt,
	}
	if e.OldStatus != nil {
		s := string(*e.OldStatus)
		resp.OldStatus = &s
	}
	if e.NewStatus != nil {
		s := string(*e.NewStatus)
		resp.NewStatus = &s
	}
	return resp
}

func toAuditResponses(entries []model.AuditEntry) []dto.AuditResponse {
	out := make([]dto.AuditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAuditResponse(e))
	}
	return out
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
