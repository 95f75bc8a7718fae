package dto

import "time"

// QueueItemResponse describes a scored letter awaiting review.
type QueueItemResponse struct {
	LetterID      string    `json:"letter_id"`
	PriorityScore float64   `json:"priority_score"`
	WaitHours     float64   `json:"wait_hours"`
	UserPlan      string    `json:"user_plan"`
	IsFirstLetter bool      `json:"is_first_letter"`
	Position      int       `json:"position,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// PriorityResponse is the current score of a pending letter.
type PriorityResponse struct {
	LetterID      string  `json:"letter_id"`
	PriorityScore float64 `json:"priority_score"`
}

// RejectRequest explains why a letter goes back to its owner.
type RejectRequest struct {
	Reason string `json:"reason"`
}
