package dto

import (
	"time"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

// LetterRequest carries the intake questionnaire for create and resubmit.
type LetterRequest struct {
	Intake model.Intake `json:"intake"`
}

// LetterResponse describes a letter as seen by its owner or a reviewer.
type LetterResponse struct {
	ID              string       `json:"id"`
	OwnerID         string       `json:"owner_id"`
	Status          string       `json:"status"`
	Intake          model.Intake `json:"intake"`
	DraftText       string       `json:"draft_text,omitempty"`
	ReviewerID      string       `json:"reviewer_id,omitempty"`
	RejectionReason *string      `json:"rejection_reason,omitempty"`
	IsFirstLetter   bool         `json:"is_first_letter"`
	CreatedAt       time.Time    `json:"created_at"`
	SubmittedAt     *time.Time   `json:"submitted_at,omitempty"`
	ReviewStartedAt *time.Time   `json:"review_started_at,omitempty"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// PositionResponse is the rank of a letter in the review queue.
type PositionResponse struct {
	LetterID string `json:"letter_id"`
	Position int    `json:"position"`
}
