// Package notify renders and delivers user-facing emails.
package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind identifies which email to send.
type Kind string

const (
	KindWelcome        Kind = "welcome"
	KindExpenseCreated Kind = "expense_created"
	KindExpenseUpdated Kind = "expense_updated"
	KindInsights       Kind = "insights"
)

func (k Kind) valid() bool {
	switch k {
	case KindWelcome, KindExpenseCreated, KindExpenseUpdated, KindInsights:
		return true
	}
	return false
}

// Expense is the expense payload carried by created/updated notifications.
type Expense struct {
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type,omitempty"`
}

// Message is one email job. It is also the body published to the notification queue.
type Message struct {
	Kind      Kind      `json:"kind"`
	To        string    `json:"to"`
	Name      string    `json:"name"`
	Expense   *Expense  `json:"expense,omitempty"`
	Insights  []string  `json:"insights,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks that a message can be rendered and addressed.
func (m *Message) Validate() error {
	if !m.Kind.valid() {
		return fmt.Errorf("unknown notification kind %q", m.Kind)
	}
	if m.To == "" {
		return errors.New("missing recipient")
	}
	if (m.Kind == KindExpenseCreated || m.Kind == KindExpenseUpdated) && m.Expense == nil {
		return errors.New("missing expense payload")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes and validates a queued message.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
