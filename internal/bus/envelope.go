package bus

import "github.com/google/uuid"

// Envelope is the serialized form of an event sent to out-of-process consumers.
type Envelope struct {
	EventID      string `json:"event_id"`
	Instance     string `json:"instance"`
	Kind         string `json:"kind"`
	OccurredAtMs int64  `json:"occurred_at_ms"`
	Payload      any    `json:"payload,omitempty"`
}

// Wrap assigns the event a fresh ID for delivery outside the process.
func Wrap(instance string, evt Event) Envelope {
	return Envelope{
		EventID:      uuid.NewString(),
		Instance:     instance,
		Kind:         evt.Kind,
		OccurredAtMs: evt.Timestamp.UnixMilli(),
		Payload:      evt.Payload,
	}
}
