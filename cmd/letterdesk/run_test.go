package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jamilahmedansari/letterdesk/internal/pkg/auth"
)

func TestHashKey(t *testing.T) {
	var out bytes.Buffer
	if err := hashKey(&out, []string{"nightly-reset"}); err != nil {
		t.Fatalf("hash key: %v", err)
	}
	hash := strings.TrimSpace(out.String())
	if err := auth.NewBcryptKeyVerifier(hash).Verify("nightly-reset"); err != nil {
		t.Fatalf("expected printed hash to verify, got %v", err)
	}

	if err := hashKey(&out, nil); err == nil {
		t.Fatal("expected usage error without a key")
	}
	if err := hashKey(&out, []string{""}); err == nil {
		t.Fatal("expected empty key to be rejected")
	}
}
