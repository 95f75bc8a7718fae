package notify

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

const (
	eventSource     = "letterdesk"
	eventTypePrefix = "com.letterdesk.letter."
)

// eventPayload is the JSON body delivered to the sink.
type eventPayload struct {
	LetterID   string             `json:"letter_id"`
	OwnerID    string             `json:"owner_id"`
	Status     model.LetterStatus `json:"status"`
	Reason     string             `json:"reason,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// CloudEventsNotifier posts letter decisions to an HTTP sink as CloudEvents.
type CloudEventsNotifier struct {
	client cloudevents.Client
	target string
}

// NewCloudEventsNotifier creates a notifier delivering to target.
func NewCloudEventsNotifier(target string) (*CloudEventsNotifier, error) {
	if target == "" {
		return nil, fmt.Errorf("notify sink url must be provided")
	}
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("create cloudevents client: %w", err)
	}
	return &CloudEventsNotifier{client: client, target: target}, nil
}

// Notify sends event and reports delivery failures and NACKs.
func (n *CloudEventsNotifier) Notify(ctx context.Context, event model.LetterEvent) error {
	e, err := newEvent(event)
	if err != nil {
		return err
	}
	result := n.client.Send(cloudevents.ContextWithTarget(ctx, n.target), e)
	if !cloudevents.IsACK(result) {
		return fmt.Errorf("deliver %s for letter %s: %w", e.Type(), event.LetterID, result)
	}
	return nil
}

func newEvent(event model.LetterEvent) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(eventSource)
	e.SetType(eventTypePrefix + string(event.Status))
	e.SetSubject(event.LetterID)
	e.SetTime(event.OccurredAt)
	err := e.SetData(cloudevents.ApplicationJSON, eventPayload{
		LetterID:   event.LetterID,
		OwnerID:    event.OwnerID,
		Status:     event.Status,
		Reason:     event.Reason,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return e, fmt.Errorf("encode event: %w", err)
	}
	return e, nil
}
