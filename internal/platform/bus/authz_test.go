package bus

import (
	"context"
	"testing"
	"time"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	cberrors "github.com/casebooklabs/casebook/internal/errors"
)

func adminClaim() *claims.Claims {
	return &claims.Claims{SubjectID: "u-1", Username: "root", Role: claims.RoleAdmin}
}

func TestAllowInvokesHandlerForPermittedRole(t *testing.T) {
	invoked := false
	gated := Allow(func(ctx context.Context, req *Request) (any, error) {
		invoked = true
		if ClaimsFromContext(ctx) == nil {
			t.Fatal("expected claims installed on handler context")
		}
		return nil, nil
	}, claims.RoleAdmin, claims.RoleLawyer)

	if _, err := gated(context.Background(), &Request{Topic: "t", Claims: adminClaim()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !invoked {
		t.Fatal("handler was not invoked")
	}
}

func TestAllowRejectsRoleOutsideSet(t *testing.T) {
	invoked := false
	gated := Allow(func(ctx context.Context, req *Request) (any, error) {
		invoked = true
		return nil, nil
	}, claims.RoleAdmin)

	claim := &claims.Claims{SubjectID: "u-2", Username: "front", Role: claims.RoleReceptionist}
	_, err := gated(context.Background(), &Request{Topic: "t", Claims: claim})
	if !cberrors.IsKind(err, cberrors.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if invoked {
		t.Fatal("handler must not run on a rejected request")
	}
}

func TestAllowFailsClosedWithoutClaim(t *testing.T) {
	invoked := false
	gated := Allow(func(ctx context.Context, req *Request) (any, error) {
		invoked = true
		return nil, nil
	}, claims.RoleAdmin)

	_, err := gated(context.Background(), &Request{Topic: "t"})
	if !cberrors.IsKind(err, cberrors.KindForbidden) {
		t.Fatalf("expected Forbidden for missing claim, got %v", err)
	}
	if invoked {
		t.Fatal("handler must not run without a claim")
	}
}

func TestAllowRejectsExpiredClaim(t *testing.T) {
	gated := Allow(func(ctx context.Context, req *Request) (any, error) {
		return nil, nil
	}, claims.RoleAdmin)

	expired := &claims.Claims{
		SubjectID: "u-1",
		Role:      claims.RoleAdmin,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	_, err := gated(context.Background(), &Request{Topic: "t", Claims: expired})
	if !cberrors.IsKind(err, cberrors.KindForbidden) {
		t.Fatalf("expected Forbidden for expired claim, got %v", err)
	}
}

func TestAllowPanicsOnEmptyRoleSet(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty allow-list")
		}
	}()
	Allow(func(ctx context.Context, req *Request) (any, error) { return nil, nil })
}

func TestInternalSkipsRoleCheck(t *testing.T) {
	invoked := false
	open := Internal(func(ctx context.Context, req *Request) (any, error) {
		invoked = true
		return nil, nil
	})
	if _, err := open(context.Background(), &Request{Topic: "t"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !invoked {
		t.Fatal("handler was not invoked")
	}
}

func TestInternalForwardsClaims(t *testing.T) {
	open := Internal(func(ctx context.Context, req *Request) (any, error) {
		if ClaimsFromContext(ctx) == nil {
			t.Fatal("expected claims forwarded for downstream hops")
		}
		return nil, nil
	})
	if _, err := open(context.Background(), &Request{Topic: "t", Claims: adminClaim()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGateRunsBeforeAnyRemoteCall(t *testing.T) {
	b := NewInproc()
	remoteCalls := 0
	if err := b.Subscribe("users.get-employee-by-id", Internal(func(ctx context.Context, req *Request) (any, error) {
		remoteCalls++
		return nil, nil
	})); err != nil {
		t.Fatalf("subscribe lookup: %v", err)
	}
	if err := b.Subscribe("cases.assign-new-case", Allow(func(ctx context.Context, req *Request) (any, error) {
		var out struct{}
		return nil, b.Request(ctx, "users.get-employee-by-id", nil, &out)
	}, claims.RoleAdmin)); err != nil {
		t.Fatalf("subscribe write: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ctx = WithClaims(ctx, &claims.Claims{SubjectID: "u-9", Role: claims.RoleReceptionist})

	err := b.Request(ctx, "cases.assign-new-case", nil, nil)
	if !cberrors.IsKind(err, cberrors.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if remoteCalls != 0 {
		t.Fatalf("expected zero dependent-service calls on a rejected request, got %d", remoteCalls)
	}
}
