package bus

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Inproc routes requests between services living in one process. The
// combined launcher and the test suites use it in place of the NATS
// connection; payloads still make a full encode/decode round trip so that
// handlers observe exactly the wire behavior.
type Inproc struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	closed   bool
}

// NewInproc creates an empty in-process bus.
func NewInproc() *Inproc {
	return &Inproc{handlers: make(map[string]Handler)}
}

// Subscribe registers the handler for a topic.
func (b *Inproc) Subscribe(topic string, handler Handler) error {
	if topic == "" {
		return fmt.Errorf("topic is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required for %s", topic)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}
	if _, exists := b.handlers[topic]; exists {
		return fmt.Errorf("topic %s is already subscribed", topic)
	}
	b.handlers[topic] = handler
	return nil
}

// Request dispatches the call to the subscribed handler on its own
// goroutine and waits for the reply or the caller's deadline. A caller that
// disconnects does not stop the handler: the dispatched work runs to
// completion server-side, mirroring the cross-process transport.
func (b *Inproc) Request(ctx context.Context, topic string, in, out any) error {
	ctx, span := otel.Tracer("bus").Start(ctx, "bus.request")
	span.SetAttributes(attribute.String("bus.topic", topic))
	defer span.End()

	err := b.request(ctx, topic, in, out)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (b *Inproc) request(ctx context.Context, topic string, in, out any) error {
	handler, err := b.handlerFor(topic)
	if err != nil {
		return err
	}

	data, err := encodeEnvelope(topic, ClaimsFromContext(ctx), in)
	if err != nil {
		return err
	}

	type outcome struct {
		data []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		// The handler deliberately runs on context.Background: once a
		// request is in flight the callee finishes its work even if the
		// caller goes away, so compensation logic upstream must assume
		// replies can arrive after the original caller is gone.
		req, decodeErr := decodeEnvelope(data)
		if decodeErr != nil {
			done <- outcome{err: decodeErr}
			return
		}
		value, handlerErr := handler(context.Background(), req)
		replyData, encodeErr := encodeReply(value, handlerErr)
		if encodeErr != nil {
			done <- outcome{err: encodeErr}
			return
		}
		done <- outcome{data: replyData}
	}()

	select {
	case <-ctx.Done():
		return normalizeTimeout(topic, ctx.Err())
	case result := <-done:
		if result.err != nil {
			return result.err
		}
		return decodeReply(result.data, out)
	}
}

// Publish dispatches a one-way notification asynchronously. A missing
// subscriber or a handler error is logged and dropped; notification
// delivery is best-effort and never part of a write's consistency
// guarantee.
func (b *Inproc) Publish(topic string, in any) {
	handler, err := b.handlerFor(topic)
	if err != nil {
		log.Printf("publish %s: %v", topic, err)
		return
	}
	data, err := encodeEnvelope(topic, nil, in)
	if err != nil {
		log.Printf("publish %s: %v", topic, err)
		return
	}
	go func() {
		req, err := decodeEnvelope(data)
		if err != nil {
			log.Printf("publish %s: %v", topic, err)
			return
		}
		if _, err := handler(context.Background(), req); err != nil {
			log.Printf("publish %s: handler: %v", topic, err)
		}
	}()
}

// Close marks the bus closed; in-flight handlers run to completion.
func (b *Inproc) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Inproc) handlerFor(topic string) (Handler, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("bus is closed")
	}
	handler, ok := b.handlers[topic]
	if !ok {
		return nil, fmt.Errorf("no subscriber for topic %s", topic)
	}
	return handler, nil
}
