// Package bus provides the topic-addressed request/reply transport that
// connects the domain services.
//
// A call suspends the caller until a reply arrives or its deadline expires,
// even though caller and callee may live in separate processes. Publish is
// one-way: delivery failures are logged and never surfaced to the caller's
// business logic. The transport performs no retries; most topics are writes
// and are not naturally idempotent, so retry policy belongs to the caller.
//
// Two implementations exist: Inproc for the combined launcher and tests,
// and the NATS-backed Conn for the multi-process deployment.
package bus

import (
	"context"
	"errors"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	cberrors "github.com/casebooklabs/casebook/internal/errors"
	"github.com/fxamacker/cbor/v2"
)

// Handler processes one inbound request for a topic and returns either a
// reply value or a domain error.
type Handler func(ctx context.Context, req *Request) (any, error)

// Conn is the process-wide bus connection shared by all handlers. It is
// established once at startup and closed at shutdown; handlers never open
// their own connections.
type Conn interface {
	// Request issues a call and decodes the reply into out. The context
	// must carry a deadline; a call that exceeds it resolves to a Timeout
	// failure, never to "still pending". When the context carries an
	// identity claim it is attached to the outgoing envelope unchanged.
	Request(ctx context.Context, topic string, in, out any) error

	// Publish sends a one-way notification. Errors are logged by the
	// implementation and never returned to business logic.
	Publish(topic string, in any)

	// Subscribe registers the handler for a topic. Registration happens
	// during service startup, before any request is dispatched.
	Subscribe(topic string, handler Handler) error

	// Close releases the connection.
	Close() error
}

// Request is one inbound envelope as seen by a handler.
type Request struct {
	Topic   string
	Claims  *claims.Claims
	payload cbor.RawMessage
}

// Decode unmarshals the request payload into the given value.
func (r *Request) Decode(into any) error {
	if len(r.payload) == 0 {
		return nil
	}
	return cbor.Unmarshal(r.payload, into)
}

type claimsKey struct{}

// WithClaims returns a context carrying the identity claim for outgoing
// calls. The gate installs this before invoking a handler so that a saga's
// downstream hops forward the original claim unchanged.
func WithClaims(ctx context.Context, c *claims.Claims) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext extracts the identity claim installed by the gate,
// or nil when the call is service-originated.
func ClaimsFromContext(ctx context.Context) *claims.Claims {
	c, _ := ctx.Value(claimsKey{}).(*claims.Claims)
	return c
}

// normalizeTimeout maps context expiry onto the shared failure taxonomy.
func normalizeTimeout(topic string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return cberrors.WithMetadata(cberrors.CodeCallTimeout,
			"call to "+topic+" timed out",
			map[string]string{"topic": topic})
	}
	return err
}
