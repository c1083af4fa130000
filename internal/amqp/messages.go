package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	OperationSync   = "sync"
	OperationDelete = "delete"
)

// TransactionSyncMessage tells the worker which transaction changed. The
// worker loads the current state from storage, so only the ID travels.
type TransactionSyncMessage struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id string) *TransactionSyncMessage {
	return &TransactionSyncMessage{ID: id, Operation: OperationSync, Timestamp: time.Now()}
}

func NewTransactionDeleteMessage(id string) *TransactionSyncMessage {
	return &TransactionSyncMessage{ID: id, Operation: OperationDelete, Timestamp: time.Now()}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON decodes and checks a message body.
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message without id")
	}
	switch msg.Operation {
	case OperationSync, OperationDelete:
	case "":
		msg.Operation = OperationSync
	default:
		return nil, fmt.Errorf("unknown operation %q", msg.Operation)
	}
	return &msg, nil
}
