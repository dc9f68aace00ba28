package transport

import (
	"encoding/json"
	"errors"
	"net/http"
)

// EnvelopeSuccess is the only envelope code treated as success.
const EnvelopeSuccess = http.StatusOK

// Envelope is the uniform wire wrapper around every response payload.
type Envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// wireEnvelope distinguishes absent fields from zero values.
type wireEnvelope struct {
	Code      *int            `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

var (
	errEnvelopeMissingCode = errors.New("envelope has no code")
	errEnvelopeMissingData = errors.New("envelope has no data")
)

// parseEnvelope decodes body strictly: code must be present, and a success
// envelope must carry a data key (an explicit null is accepted).
func parseEnvelope(body []byte) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, err
	}
	if w.Code == nil {
		return nil, errEnvelopeMissingCode
	}
	if *w.Code == EnvelopeSuccess && w.Data == nil {
		return nil, errEnvelopeMissingData
	}
	return &Envelope{Code: *w.Code, Message: w.Message, Data: w.Data, Timestamp: w.Timestamp}, nil
}

// envelopeMessage extracts a message from an arbitrary error body.
func envelopeMessage(body []byte) string {
	var m struct {
		Message string `json:"message"`
	}
	if len(body) == 0 || json.Unmarshal(body, &m) != nil {
		return ""
	}
	return m.Message
}
