package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType says what happened to the transaction.
type MessageType string

const (
	MessageSync   MessageType = "transaction.sync"
	MessageDelete MessageType = "transaction.delete"
)

// TransactionMessage announces a transaction change. It carries only the id;
// consumers read the current record from the store.
type TransactionMessage struct {
	Type      MessageType `json:"type"`
	ID        uuid.UUID   `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewTransactionSyncMessage(id uuid.UUID) *TransactionMessage {
	return &TransactionMessage{Type: MessageSync, ID: id, Timestamp: time.Now()}
}

func NewTransactionDeleteMessage(id uuid.UUID) *TransactionMessage {
	return &TransactionMessage{Type: MessageDelete, ID: id, Timestamp: time.Now()}
}

func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionMessageFromJSON decodes and checks a message body.
func TransactionMessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case MessageSync, MessageDelete:
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	if msg.ID == uuid.Nil {
		return nil, fmt.Errorf("message has no transaction id")
	}
	return &msg, nil
}
