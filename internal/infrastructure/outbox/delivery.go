package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/taskmarket/domain"
)

// Target names the external system a delivery is bound for.
type Target string

const (
	TargetNotification Target = "notification"
	TargetMirror       Target = "mirror"
	TargetStream       Target = "stream"
)

// Ordered reports whether deliveries for one aggregate must reach the target in
// commit order.
func (t Target) Ordered() bool {
	return t == TargetMirror || t == TargetStream
}

// priority orders the bucket: users see notifications before the mirror catches up.
func (t Target) priority() int {
	switch t {
	case TargetNotification:
		return 1
	case TargetMirror:
		return 2
	default:
		return 3
	}
}

// Delivery is one side effect of a committed event that has not reached its target yet.
type Delivery struct {
	ID        string          `json:"id"`
	Target    Target          `json:"target"`
	Aggregate string          `json:"aggregate,omitempty"`
	Event     json.RawMessage `json:"event"`
	Attempts  int             `json:"attempts"`
	QueuedAt  time.Time       `json:"queued_at"`

	key []byte
}

// NewDelivery snapshots event for target.
func NewDelivery(target Target, event domain.Event) (Delivery, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{
		ID:        uuid.NewString(),
		Target:    target,
		Aggregate: event.AggregateID,
		Event:     payload,
		QueuedAt:  time.Now(),
	}, nil
}

// Decode returns the event the delivery carries.
func (d Delivery) Decode() (domain.Event, error) {
	var event domain.Event
	err := json.Unmarshal(d.Event, &event)
	return event, err
}

func (d *Delivery) normalize() {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.QueuedAt.IsZero() {
		d.QueuedAt = time.Now()
	}
}
