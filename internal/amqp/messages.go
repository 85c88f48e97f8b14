package amqp

import (
	"encoding/json"
	"time"
)

// Message actions understood by the sync worker.
const (
	ActionSync   = "sync"
	ActionDelete = "delete"
)

// VerificationSyncMessage carries only the verification ID and version; the
// worker fetches the full record from the database before exporting. Delete
// messages carry the ID alone.
type VerificationSyncMessage struct {
	Action    string    `json:"action"`
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncMessage(id string, version int64) *VerificationSyncMessage {
	return &VerificationSyncMessage{
		Action:    ActionSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewDeleteMessage(id string) *VerificationSyncMessage {
	return &VerificationSyncMessage{
		Action:    ActionDelete,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *VerificationSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func VerificationSyncMessageFromJSON(data []byte) (*VerificationSyncMessage, error) {
	var msg VerificationSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
