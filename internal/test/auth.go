package test

import (
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	pkgAuth "github.com/jamilahmedansari/letterdesk/internal/pkg/auth"
)

// StrategyStub issues and parses tokens via function overrides.
type StrategyStub struct {
	IssueFn func(model.Principal) (string, error)
	ParseFn func(string) (model.Principal, error)
	NameVal string
}

// IssueToken returns deterministic tokens for tests.
func (s StrategyStub) IssueToken(p model.Principal) (string, error) {
	if s.IssueFn != nil {
		return s.IssueFn(p)
	}
	return "token:" + p.ID, nil
}

// ParseToken parses previously issued token strings.
func (s StrategyStub) ParseToken(token string) (model.Principal, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return model.Principal{ID: "user-1", Capability: model.CapabilitySubscriber}, nil
}

// Name returns the strategy identifier used in tests.
func (s StrategyStub) Name() string {
	if s.NameVal != "" {
		return s.NameVal
	}
	return "stub"
}

// TokenParserStub implements middleware token parsing contract.
type TokenParserStub struct {
	Principal model.Principal
	Err       error
	ParseFn   func(string) (model.Principal, error)
}

// ParseToken either delegates to override or returns predefined result.
func (s TokenParserStub) ParseToken(token string) (model.Principal, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	if s.Err != nil {
		return model.Principal{}, s.Err
	}
	return s.Principal, nil
}

// KeyVerifierStub accepts exactly Key.
type KeyVerifierStub struct {
	Key string
	Err error
}

// Verify returns Err when set, otherwise compares against Key.
func (s KeyVerifierStub) Verify(key string) error {
	if s.Err != nil {
		return s.Err
	}
	if key == "" || key != s.Key {
		return pkgAuth.ErrInvalidKey
	}
	return nil
}

// VerifySystemKey lets the stub stand in for the desk in middleware tests.
func (s KeyVerifierStub) VerifySystemKey(key string) error {
	return s.Verify(key)
}

var _ pkgAuth.Strategy = StrategyStub{}
var _ pkgAuth.KeyVerifier = KeyVerifierStub{}
