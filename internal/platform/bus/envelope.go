package bus

import (
	"fmt"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	cberrors "github.com/casebooklabs/casebook/internal/errors"
	"github.com/fxamacker/cbor/v2"
)

// envelope is the wire form of one request. It is constructed by the caller,
// consumed once by the receiving handler, and never persisted.
type envelope struct {
	Topic   string          `cbor:"topic"`
	Claims  *claims.Claims  `cbor:"claims,omitempty"`
	Payload cbor.RawMessage `cbor:"payload,omitempty"`
}

// reply is the wire form of one response: either a payload or a failure,
// never both.
type reply struct {
	Payload cbor.RawMessage `cbor:"payload,omitempty"`
	Failure *Failure        `cbor:"failure,omitempty"`
}

// Failure is the structured error that crosses service boundaries. Handlers
// normalize every error to the shared taxonomy before it is encoded here.
type Failure struct {
	Kind     string            `cbor:"kind"`
	Code     string            `cbor:"code"`
	Message  string            `cbor:"message"`
	Metadata map[string]string `cbor:"metadata,omitempty"`
}

// failureFromError converts a handler error into its wire form.
func failureFromError(err error) *Failure {
	return &Failure{
		Kind:     string(cberrors.GetKind(err)),
		Code:     string(cberrors.GetCode(err)),
		Message:  err.Error(),
		Metadata: cberrors.GetMetadata(err),
	}
}

// Err rehydrates the wire failure into a domain error on the caller side.
func (f *Failure) Err() error {
	return &cberrors.Error{
		Kind:     cberrors.Kind(f.Kind),
		Code:     cberrors.Code(f.Code),
		Message:  f.Message,
		Metadata: f.Metadata,
	}
}

func encodeEnvelope(topic string, c *claims.Claims, in any) ([]byte, error) {
	var payload cbor.RawMessage
	if in != nil {
		encoded, err := cbor.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode payload for %s: %w", topic, err)
		}
		payload = encoded
	}
	data, err := cbor.Marshal(envelope{Topic: topic, Claims: c, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode envelope for %s: %w", topic, err)
	}
	return data, nil
}

func decodeEnvelope(data []byte) (*Request, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &Request{Topic: env.Topic, Claims: env.Claims, payload: env.Payload}, nil
}

func encodeReply(value any, handlerErr error) ([]byte, error) {
	var out reply
	if handlerErr != nil {
		out.Failure = failureFromError(handlerErr)
	} else if value != nil {
		encoded, err := cbor.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode reply: %w", err)
		}
		out.Payload = encoded
	}
	data, err := cbor.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode reply wrapper: %w", err)
	}
	return data, nil
}

func decodeReply(data []byte, out any) error {
	var in reply
	if err := cbor.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if in.Failure != nil {
		return in.Failure.Err()
	}
	if out == nil || len(in.Payload) == 0 {
		return nil
	}
	return cbor.Unmarshal(in.Payload, out)
}
