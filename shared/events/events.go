package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	TransactionsSeeded = "transactions.seeded"
)

// Stream names
const (
	TransactionEventsStream = "transaction.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// TransactionsSeededEvent is published after the record store has been populated.
type TransactionsSeededEvent struct {
	SeedID      string `json:"seedId"`
	Count       int    `json:"count"`
	RequestedBy string `json:"requestedBy"`
}

// DecodeData re-decodes e.Data (a generic map after JSON transport) into out.
func (e Event) DecodeData(out any) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to re-encode event data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", e.Type, err)
	}
	return nil
}
