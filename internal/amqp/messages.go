package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"ovdeclare/internal/core"
)

// MonthSelectionMessage tells the declaration UI which rows of a month to tick.
// Selected holds zero-based row indexes in source order.
type MonthSelectionMessage struct {
	RunID     string    `json:"run_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Selected  []int     `json:"selected"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMonthSelectionMessage(runID string, m core.Month, events []core.Event) *MonthSelectionMessage {
	selected := core.Selected(events)
	if selected == nil {
		selected = []int{}
	}
	return &MonthSelectionMessage{
		RunID:     runID,
		Year:      m.Year,
		Month:     int(m.Month),
		Selected:  selected,
		Timestamp: time.Now(),
	}
}

func (m *MonthSelectionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DeclarationTextMessage carries the rendered text of a submitted declaration
// page back from the UI.
type DeclarationTextMessage struct {
	RunID string `json:"run_id"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Text  string `json:"text"`
}

// MonthOf validates the year and month carried by the message.
func (m *DeclarationTextMessage) MonthOf() (core.Month, error) {
	return core.NewMonth(m.Year, m.Month)
}

func (m *DeclarationTextMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DeclarationTextMessageFromJSON(data []byte) (*DeclarationTextMessage, error) {
	var msg DeclarationTextMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := msg.MonthOf(); err != nil {
		return nil, fmt.Errorf("declaration message: %w", err)
	}
	return &msg, nil
}
