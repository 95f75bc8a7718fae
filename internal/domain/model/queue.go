package model

import "time"

// QueueCandidate is a pending_review letter with the inputs needed for scoring.
type QueueCandidate struct {
	LetterID      string
	OwnerID       string
	PlanTier      PlanTier
	IsFirstLetter bool
	SubmittedAt   time.Time
}

// QueueItem is a scored candidate at a given position in the review queue.
type QueueItem struct {
	QueueCandidate
	Score     float64
	WaitHours float64
	Position  int
}
