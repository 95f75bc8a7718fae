package app

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	pkgAuth "github.com/jamilahmedansari/letterdesk/internal/pkg/auth"
	"github.com/jamilahmedansari/letterdesk/internal/usecase"
)

// Desk is the single entry point used by HTTP handlers and the worker pool.
// Letter, review and allowance operations come from the coordinator; Desk adds
// credential handling on top.
type Desk struct {
	*usecase.AdmissionCoordinator
	tokens pkgAuth.Strategy
	keys   pkgAuth.KeyVerifier
}

func NewDesk(coordinator *usecase.AdmissionCoordinator, tokens pkgAuth.Strategy, keys pkgAuth.KeyVerifier) *Desk {
	return &Desk{AdmissionCoordinator: coordinator, tokens: tokens, keys: keys}
}

// ParseToken resolves a bearer token into the principal it was issued for.
func (d *Desk) ParseToken(token string) (model.Principal, error) {
	return d.tokens.ParseToken(token)
}

// VerifySystemKey checks the shared key presented by scheduled jobs and billing hooks.
func (d *Desk) VerifySystemKey(key string) error {
	return d.keys.Verify(key)
}

// IssueToken mints a bearer token for subject. Only the system may issue tokens.
func (d *Desk) IssueToken(_ context.Context, p model.Principal, subject model.Principal) (string, error) {
	if !p.Has(model.CapabilitySystem) {
		return "", domainErrors.ErrForbidden
	}
	token, err := d.tokens.IssueToken(subject)
	if errors.Is(err, pkgAuth.ErrInvalidToken) {
		return "", fmt.Errorf("%w: subject needs an id and a known capability", domainErrors.ErrInvalidInput)
	}
	return token, err
}
