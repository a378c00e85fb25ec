// Package wire implements the envelope framing and payload
// (de)serialization of spec.md §4.7: a JSON envelope whose
// dto_payload field is itself a JSON string carrying a typed,
// self-describing body.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sshlog/agent/internal/errs"
)

// Envelope is the wire shape shared by requests and responses.
// correlation_id is opaque to the server and echoed verbatim;
// client_id identifies the router's peer.
type Envelope struct {
	ClientID      string      `json:"client_id"`
	CorrelationID string      `json:"correlation_id"`
	PayloadType   PayloadType `json:"payload_type"`
	DTOPayload    string      `json:"dto_payload"`
}

// NewCorrelationID generates a fresh 128-bit UUID in text form, as
// spec.md §4.7 requires for correlation_id.
func NewCorrelationID() string {
	return uuid.NewString()
}

// Encode marshals payload as the envelope's dto_payload string and
// returns the full wire-format envelope bytes.
func Encode(clientID, correlationID string, payloadType PayloadType, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding dto_payload: %v", errs.ErrProtocol, err)
	}

	env := Envelope{
		ClientID:      clientID,
		CorrelationID: correlationID,
		PayloadType:   payloadType,
		DTOPayload:    string(body),
	}

	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding envelope: %v", errs.ErrProtocol, err)
	}
	return out, nil
}

// Decode parses raw into an Envelope. It rejects frames whose
// payload_type is not one of the known codes (spec.md §4.7): unknown
// payload_type is a protocol error, to be logged and dropped with no
// response.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: malformed envelope: %v", errs.ErrProtocol, err)
	}
	if !env.PayloadType.Known() {
		return Envelope{}, fmt.Errorf("%w: unknown payload_type %d", errs.ErrProtocol, env.PayloadType)
	}
	return env, nil
}

// DecodeBody unmarshals an envelope's dto_payload string into out. The
// caller picks out's concrete type from env.PayloadType.
func (env Envelope) DecodeBody(out interface{}) error {
	if err := json.Unmarshal([]byte(env.DTOPayload), out); err != nil {
		return fmt.Errorf("%w: malformed dto_payload: %v", errs.ErrProtocol, err)
	}
	return nil
}
