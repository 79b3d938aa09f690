package notifier

import "time"

// Event is a trading event announced to notification channels.
type Event struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"` // "BUY" or "SELL"
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Commission float64   `json:"commission"`
	Note       string    `json:"note,omitempty"`
	Time       time.Time `json:"time"`
}

// Notifier defines the interface for event notification channels
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers a single event notification
	Send(event Event) error

	// SendBatch delivers multiple event notifications
	SendBatch(events []Event) error
}
