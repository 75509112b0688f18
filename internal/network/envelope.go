package network

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"imbridge/contracts/events"
)

// Envelope is the wire form of one domain event pushed to clients.
type Envelope struct {
	EventID string       `json:"event_id"`
	Time    int64        `json:"time"` // unix 毫秒
	Kind    events.Kind  `json:"kind"`
	Event   events.Event `json:"event"`
}

func NewEnvelope(ev events.Event) Envelope {
	return Envelope{
		EventID: uuid.NewString(),
		Time:    time.Now().UnixMilli(),
		Kind:    ev.Kind(),
		Event:   ev,
	}
}

// UnmarshalJSON decodes the event body by kind; Event holds a pointer type
// such as *events.GroupPoke afterwards.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		EventID string          `json:"event_id"`
		Time    int64           `json:"time"`
		Kind    events.Kind     `json:"kind"`
		Event   json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ev, err := events.Decode(raw.Kind, raw.Event)
	if err != nil {
		return fmt.Errorf("envelope %s: %w", raw.EventID, err)
	}

	e.EventID = raw.EventID
	e.Time = raw.Time
	e.Kind = raw.Kind
	e.Event = ev
	return nil
}
