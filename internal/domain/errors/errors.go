package errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

var (
	ErrAlreadyExists         = errors.New("already exists")
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNotQueued             = errors.New("letter is not awaiting review")
	ErrTryAgain              = errors.New("conflicting update, try again")
)

// Stable codes surfaced to API callers.
const (
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeStaleState            = "STALE_STATE"
	CodeInsufficientAllowance = "INSUFFICIENT_ALLOWANCE"
	CodeGenerationFailed      = "GENERATION_FAILED"
	CodeGenerationTimeout     = "GENERATION_TIMEOUT"
	CodeClaimLost             = "CLAIM_LOST"
	CodeTryAgain              = "TRY_AGAIN"
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeForbidden             = "FORBIDDEN"
	CodeValidation            = "VALIDATION_ERROR"
	CodeNotQueued             = "NOT_QUEUED"
	CodeInternal              = "INTERNAL"
)

// InvalidTransitionError is returned for moves outside the lifecycle table.
type InvalidTransitionError struct {
	From model.LetterStatus
	To   model.LetterStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// StaleStateError is returned when the stored status differs from the expected one.
type StaleStateError struct {
	LetterID string
	Expected model.LetterStatus
	Actual   model.LetterStatus
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("letter %s is %s, expected %s", e.LetterID, e.Actual, e.Expected)
}

// GenerationError wraps a failed external draft generation.
type GenerationError struct {
	LetterID string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("draft generation for letter %s failed: %v", e.LetterID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// TimeoutError reports a letter that stayed in generating for too long.
type TimeoutError struct {
	LetterID string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("letter %s exceeded generating limit of %s", e.LetterID, e.After)
}

// ConcurrencyClaimLostError is returned when another session claimed the letter first.
type ConcurrencyClaimLostError struct {
	LetterID string
}

func (e *ConcurrencyClaimLostError) Error() string {
	return fmt.Sprintf("claim on letter %s lost to a concurrent reviewer session", e.LetterID)
}

// Code maps err to its stable API code.
func Code(err error) string {
	var (
		invalid *InvalidTransitionError
		stale   *StaleStateError
		gen     *GenerationError
		timeout *TimeoutError
		claim   *ConcurrencyClaimLostError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		return CodeInvalidTransition
	case errors.As(err, &stale):
		return CodeStaleState
	case errors.As(err, &claim):
		return CodeClaimLost
	case errors.As(err, &timeout):
		return CodeGenerationTimeout
	case errors.As(err, &gen):
		return CodeGenerationFailed
	case errors.Is(err, ErrInsufficientAllowance):
		return CodeInsufficientAllowance
	case errors.Is(err, ErrTryAgain):
		return CodeTryAgain
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrInvalidInput):
		return CodeValidation
	case errors.Is(err, ErrNotQueued):
		return CodeNotQueued
	default:
		return CodeInternal
	}
}

// IsRetryable reports whether err is an internal conflict worth retrying.
func IsRetryable(err error) bool {
	var (
		stale *StaleStateError
		claim *ConcurrencyClaimLostError
	)
	return errors.As(err, &stale) || errors.As(err, &claim)
}

// AuditNote renders err for the notes column of a failed transition.
func AuditNote(err error) string {
	var (
		gen     *GenerationError
		timeout *TimeoutError
	)
	switch {
	case errors.As(err, &timeout):
		return "TimeoutError: " + timeout.Error()
	case errors.As(err, &gen):
		return "GenerationError: " + gen.Error()
	default:
		return err.Error()
	}
}
