package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultMessageType is assumed for payloads without a "type" field.
const DefaultMessageType = "default"

// Message is one claimed queue item.
type Message struct {
	ID         int64
	ReadCount  int
	EnqueuedAt time.Time
	VisibleAt  time.Time
	Payload    json.RawMessage
}

// Type returns the payload's "type" field, or DefaultMessageType when the
// payload has none or is not a JSON object.
func (m Message) Type() string {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(m.Payload, &envelope); err != nil || envelope.Type == "" {
		return DefaultMessageType
	}
	return envelope.Type
}

// Decode unmarshals the payload into v. Decoding failures are permanent:
// the same bytes will never decode on a later attempt.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return Permanent(fmt.Errorf("%w: %v", ErrMalformedPayload, err))
	}
	return nil
}
