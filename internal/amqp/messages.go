package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"costbook/internal/core"
	"costbook/internal/remote"
)

// Op is the remote operation a sync message asks for.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

func (o Op) Validate() error {
	switch o {
	case OpCreate, OpUpdate, OpDelete:
		return nil
	default:
		return fmt.Errorf("unknown op %q", string(o))
	}
}

// RecordSyncMessage carries one local mutation to the sync worker. Document
// is the full record for create and update; delete only needs its id.
type RecordSyncMessage struct {
	User      string          `json:"user"`
	Kind      core.Kind       `json:"kind"`
	Op        Op              `json:"op"`
	Document  remote.Document `json:"document"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewRecordSyncMessage stamps the message with the current time.
func NewRecordSyncMessage(user string, kind core.Kind, op Op, doc remote.Document) *RecordSyncMessage {
	return &RecordSyncMessage{
		User:      user,
		Kind:      kind,
		Op:        op,
		Document:  doc,
		Timestamp: time.Now(),
	}
}

// Validate rejects messages the worker could not apply.
func (m *RecordSyncMessage) Validate() error {
	if err := remote.CheckScope(m.User, m.Kind); err != nil {
		return err
	}
	if err := m.Op.Validate(); err != nil {
		return err
	}
	if m.Document.ID == "" {
		return errors.New("document id is required")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON decodes and validates a message.
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sync message: %w", err)
	}
	return &msg, nil
}
