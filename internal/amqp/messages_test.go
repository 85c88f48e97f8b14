package amqp

import (
	"testing"
)

func TestSyncMessageRoundTrip(t *testing.T) {
	msg := NewSyncMessage("v-123", 4)
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := VerificationSyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Action != ActionSync || got.ID != "v-123" || got.Version != 4 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDeleteMessage(t *testing.T) {
	msg := NewDeleteMessage("v-9")
	if msg.Action != ActionDelete || msg.ID != "v-9" || msg.Version != 0 {
		t.Fatalf("unexpected delete message: %+v", msg)
	}
}

func TestMessageFromInvalidJSON(t *testing.T) {
	if _, err := VerificationSyncMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
