//go:build unit

package caddyshibclaims

import (
	"context"
	"testing"
)

func TestIdentityFromContext_RoundTrip(t *testing.T) {
	identity := &Identity{
		Issuer: "Shibboleth",
		Claims: []Claim{{Type: ClaimEPPN, Value: "bbadger@wisc.edu"}},
	}

	ctx := WithIdentity(context.Background(), identity)

	got, ok := IdentityFromContext(ctx)
	if !ok {
		t.Fatal("IdentityFromContext should find the stored identity")
	}
	if got != identity {
		t.Error("IdentityFromContext should return the same identity")
	}
}

func TestIdentityFromContext_Empty(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Error("IdentityFromContext should report absence on a bare context")
	}
}

func TestIdentityFromContext_NilIdentity(t *testing.T) {
	ctx := WithIdentity(context.Background(), nil)

	if _, ok := IdentityFromContext(ctx); ok {
		t.Error("a stored nil identity should read as absent")
	}
}
