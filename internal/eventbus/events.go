package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы событий движка обрушений
const (
	EventCollapseTriggered = "collapse.triggered"
	EventCollapseRestored  = "collapse.restored"
)

// ReportVersion — версия схемы CollapseReport
const ReportVersion = 1

// CollapseReport — полезная нагрузка событий обрушения и восстановления
type CollapseReport struct {
	World        string    `json:"world"`
	X            int       `json:"x"`
	Y            int       `json:"y"`
	Z            int       `json:"z"`
	Kind         string    `json:"kind"`
	Axis         string    `json:"axis,omitempty"`
	Direction    int       `json:"direction,omitempty"`
	RunLength    int       `json:"run_length,omitempty"`
	SupportFound bool      `json:"support_found"`
	Spawned      int       `json:"spawned"`
	Cleared      int       `json:"cleared"`
	Restored     int       `json:"restored,omitempty"`
	ActorID      string    `json:"actor_id,omitempty"`
	At           time.Time `json:"at"`
}

// NewEnvelope упаковывает полезную нагрузку в JSON-конверт
func NewEnvelope(source, eventType string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("сериализация %s: %w", eventType, err)
	}

	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   ReportVersion,
		Payload:   data,
	}, nil
}

// DecodeReport извлекает CollapseReport из конверта
func DecodeReport(ev *Envelope) (CollapseReport, error) {
	var r CollapseReport
	if ev == nil {
		return r, fmt.Errorf("пустой конверт")
	}
	if err := json.Unmarshal(ev.Payload, &r); err != nil {
		return r, fmt.Errorf("разбор %s (%s): %w", ev.EventType, ev.ID, err)
	}
	return r, nil
}
