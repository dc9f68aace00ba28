package commsutil

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"
)

const (
	HeaderContentType = "Content-Type"
	HeaderMessageID   = "Nats-Msg-Id"
	contentTypeJSON   = "application/json"
)

// NewMessage encodes v as a JSON COMMS message on subject, stamped with a
// unique message id.
func NewMessage(subject string, v any) (*comms.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("commsutil:codec - failed to encode payload for %s: %w", subject, err)
	}
	msg := comms.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(HeaderContentType, contentTypeJSON)
	msg.Header.Set(HeaderMessageID, uuid.NewString())
	return msg, nil
}

// DecodeMessage decodes a JSON COMMS message into v.
func DecodeMessage(msg *comms.Msg, v any) error {
	if msg == nil || len(msg.Data) == 0 {
		return fmt.Errorf("commsutil:codec - empty message")
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("commsutil:codec - failed to decode %s: %w", msg.Subject, err)
	}
	return nil
}
