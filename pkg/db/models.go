package db

import (
	"encoding/json"
	"time"
)

// Credential represents a row in the client_credentials table.
type Credential struct {
	Profile  string          `json:"profile"`
	Token    string          `json:"token"`
	UserInfo json.RawMessage `json:"user_info,omitempty"`
	Modified time.Time       `json:"modified"`
}
