package servicetest

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvent is an alias for the CloudEvents Event type for convenience
type CloudEvent = cloudevents.Event

// ObserverFunc receives the lifecycle events of a Rule. Events are delivered
// synchronously, in order; a returned error is logged and otherwise ignored.
type ObserverFunc func(ctx context.Context, event cloudevents.Event) error

// EventSource is the CloudEvents source of every event a Rule emits.
const EventSource = "servicetest/rule"

// Event types emitted by a Rule
const (
	EventTypeRuleStarting   = "com.servicetest.rule.starting"
	EventTypeServiceStarted = "com.servicetest.service.started"
	EventTypeRuleRunning    = "com.servicetest.rule.running"
	EventTypeRuleStopping   = "com.servicetest.rule.stopping"
	EventTypeServiceStopped = "com.servicetest.service.stopped"
	EventTypeRuleStopped    = "com.servicetest.rule.stopped"
	EventTypeRuleFailed     = "com.servicetest.rule.failed"
)

// NewCloudEvent creates a new CloudEvent with the specified parameters.
func NewCloudEvent(eventType, source string, data any) cloudevents.Event {
	event := cloudevents.NewEvent()

	event.SetID(generateEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	return event
}

// generateEventID generates a unique identifier for CloudEvents using UUIDv7.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails for any reason
		id = uuid.New()
	}
	return id.String()
}

type emitter struct {
	observers []ObserverFunc
	logger    Logger
}

func (e *emitter) emit(ctx context.Context, eventType string, data map[string]any) {
	if len(e.observers) == 0 {
		return
	}
	var payload any
	if data != nil {
		payload = data
	}
	event := NewCloudEvent(eventType, EventSource, payload)
	for _, observer := range e.observers {
		if err := observer(ctx, event); err != nil {
			e.logger.Warn("Observer failed", "event", eventType, "error", err)
		}
	}
}
