package amqp

import (
	"encoding/json"
	"time"
)

// RecordSyncMessage asks the worker to export one persisted record. It
// carries only the record's kind and id; the worker fetches the full row
// from the database.
type RecordSyncMessage struct {
	Kind      string    `json:"kind"` // "transaction" or "receipt"
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordSyncMessage creates a sync message for one record.
func NewRecordSyncMessage(kind, id string) *RecordSyncMessage {
	return &RecordSyncMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON creates a message from JSON bytes
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
