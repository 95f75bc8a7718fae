package dto

import "time"

// AuditRequest is a reviewer note attached to a letter.
type AuditRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

// AuditResponse describes one audit log entry.
type AuditResponse struct {
	ID           int64     `json:"id"`
	LetterID     string    `json:"letter_id,omitempty"`
	SubscriberID string    `json:"subscriber_id,omitempty"`
	Actor        string    `json:"actor"`
	Action       string    `json:"action"`
	OldStatus    *string   `json:"old_status,omitempty"`
	NewStatus    *string   `json:"new_status,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
