package auth

import (
	"time"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

// Strategy issues and verifies bearer tokens carrying a Principal.
type Strategy interface {
	IssueToken(p model.Principal) (string, error)
	ParseToken(token string) (model.Principal, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
