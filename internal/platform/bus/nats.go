package bus

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/casebooklabs/casebook/internal/platform/timeouts"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// queueGroup makes every service instance of one deployment share a single
// subscription, so each request is handled exactly once per topic.
const queueGroup = "casebook"

// NATSConn is the bus connection used by the multi-process deployment.
// One connection is established per process at startup and closed at
// shutdown; handlers never open their own.
type NATSConn struct {
	nc   *nats.Conn
	subs []*nats.Subscription
}

// DialNATS connects to the NATS server at url.
func DialNATS(url, name string) (*NATSConn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(timeouts.BusConnect),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return &NATSConn{nc: nc}, nil
}

// Request issues one call and decodes the reply or failure.
func (c *NATSConn) Request(ctx context.Context, topic string, in, out any) error {
	ctx, span := otel.Tracer("bus").Start(ctx, "bus.request")
	span.SetAttributes(attribute.String("bus.topic", topic))
	defer span.End()

	err := c.request(ctx, topic, in, out)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *NATSConn) request(ctx context.Context, topic string, in, out any) error {
	data, err := encodeEnvelope(topic, ClaimsFromContext(ctx), in)
	if err != nil {
		return err
	}
	msg, err := c.nc.RequestWithContext(ctx, topic, data)
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return normalizeTimeout(topic, context.DeadlineExceeded)
		}
		return fmt.Errorf("request %s: %w", topic, err)
	}
	return decodeReply(msg.Data, out)
}

// Publish sends a one-way notification; failures are logged and dropped.
func (c *NATSConn) Publish(topic string, in any) {
	data, err := encodeEnvelope(topic, nil, in)
	if err != nil {
		log.Printf("publish %s: %v", topic, err)
		return
	}
	if err := c.nc.Publish(topic, data); err != nil {
		log.Printf("publish %s: %v", topic, err)
	}
}

// Subscribe registers the handler on the shared queue group. Each inbound
// request is dispatched on its own goroutine by the NATS client, so
// handlers share no per-call state.
func (c *NATSConn) Subscribe(topic string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler is required for %s", topic)
	}
	sub, err := c.nc.QueueSubscribe(topic, queueGroup, func(msg *nats.Msg) {
		req, err := decodeEnvelope(msg.Data)
		if err != nil {
			log.Printf("handle %s: %v", topic, err)
			return
		}
		value, handlerErr := handler(context.Background(), req)
		if msg.Reply == "" {
			// One-way notification; nothing to send back.
			if handlerErr != nil {
				log.Printf("handle %s: %v", topic, handlerErr)
			}
			return
		}
		data, err := encodeReply(value, handlerErr)
		if err != nil {
			log.Printf("handle %s: %v", topic, err)
			return
		}
		if err := msg.Respond(data); err != nil {
			log.Printf("respond %s: %v", topic, err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	c.subs = append(c.subs, sub)
	return nil
}

// Close drains the subscriptions and releases the connection.
func (c *NATSConn) Close() error {
	if c == nil || c.nc == nil {
		return nil
	}
	if err := c.nc.Drain(); err != nil {
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}
