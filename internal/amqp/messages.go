package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"daftar/internal/ledger"
)

// LedgerChangedMessage announces that a project's transactions changed on a
// date. It is deliberately small: consumers re-fetch whatever they need and
// drop every memoized balance at or after Date.
type LedgerChangedMessage struct {
	MessageID string    `json:"message_id"`
	ProjectID string    `json:"project_id"`
	Date      string    `json:"date"`
	SourceID  string    `json:"source_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a change message for one project day.
func NewLedgerChangedMessage(projectID string, date ledger.Date, sourceID string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		MessageID: uuid.NewString(),
		ProjectID: projectID,
		Date:      date.String(),
		SourceID:  sourceID,
		Timestamp: time.Now(),
	}
}

// ChangedOn parses the message date.
func (m *LedgerChangedMessage) ChangedOn() (ledger.Date, error) {
	return ledger.ParseDate(m.Date)
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
