package bus

import (
	"context"
	"time"

	cberrors "github.com/casebooklabs/casebook/internal/errors"
)

// Allow wraps a handler with a static role allow-list. The gate runs before
// the handler body: a request with no claim, an expired claim, or a role
// outside the set is rejected with a Forbidden failure and the handler is
// never invoked, so no dependent service sees any call.
//
// The allow-list is declared at subscription time and must be non-empty;
// an empty list is a programming error, not an open gate.
func Allow(next Handler, roles ...string) Handler {
	if len(roles) == 0 {
		panic("bus: Allow requires at least one role; use Internal for service-only topics")
	}
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(ctx context.Context, req *Request) (any, error) {
		c := req.Claims
		if !c.Valid(now()) {
			return nil, cberrors.New(cberrors.CodeForbidden, "Forbidden resource")
		}
		if _, ok := allowed[c.Role]; !ok {
			return nil, cberrors.WithMetadata(cberrors.CodeForbidden, "Forbidden resource",
				map[string]string{"role": c.Role, "topic": req.Topic})
		}
		return next(WithClaims(ctx, c), req)
	}
}

// Internal marks a topic as reachable only from other services and skips
// the role check. The opt-out is explicit so that every subscription names
// its policy; claims present on the envelope are still forwarded to
// downstream hops.
func Internal(next Handler) Handler {
	return func(ctx context.Context, req *Request) (any, error) {
		if req.Claims != nil {
			ctx = WithClaims(ctx, req.Claims)
		}
		return next(ctx, req)
	}
}

// now is a seam for gate expiry tests.
var now = time.Now
