package commsutil

import (
	"testing"

	comms "github.com/nats-io/nats.go"
)

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage("client.notify.error", map[string]string{"message": "boom"})
	if err != nil {
		t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
	}
	if msg.Subject != "client.notify.error" {
		t.Errorf("commsutil:codec_test - subject = %q", msg.Subject)
	}
	if string(msg.Data) != `{"message":"boom"}` {
		t.Errorf("commsutil:codec_test - data = %s", msg.Data)
	}
	if msg.Header.Get(HeaderContentType) != "application/json" {
		t.Errorf("commsutil:codec_test - content type = %q", msg.Header.Get(HeaderContentType))
	}
	if len(msg.Header.Get(HeaderMessageID)) != 36 {
		t.Errorf("commsutil:codec_test - message id = %q, want uuid", msg.Header.Get(HeaderMessageID))
	}

	again, _ := NewMessage("client.notify.error", nil)
	if again.Header.Get(HeaderMessageID) == msg.Header.Get(HeaderMessageID) {
		t.Error("commsutil:codec_test - message ids should be unique")
	}
}

func TestNewMessage_Unencodable(t *testing.T) {
	if _, err := NewMessage("x", make(chan int)); err == nil {
		t.Error("commsutil:codec_test - expected error for channel payload")
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     *comms.Msg
		wantErr bool
	}{
		{"valid", &comms.Msg{Subject: "s", Data: []byte(`{"message":"hi"}`)}, false},
		{"nil", nil, true},
		{"empty", &comms.Msg{Subject: "s"}, true},
		{"invalid json", &comms.Msg{Subject: "s", Data: []byte(`{`)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Message string `json:"message"`
			}
			err := DecodeMessage(tt.msg, &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("commsutil:codec_test - err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && out.Message != "hi" {
				t.Errorf("commsutil:codec_test - message = %q", out.Message)
			}
		})
	}
}
