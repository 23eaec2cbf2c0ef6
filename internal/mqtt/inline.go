package mqtt

import (
	"fmt"

	"github.com/sweeney/solard/internal/logic"
)

// Sink delivers a message to a topic without a network client, such as the
// inline client of an embedded broker.
type Sink interface {
	Publish(topic string, payload []byte, retain bool) error
}

// InlinePublisher publishes through a Sink in the same process. Nothing is
// buffered: the sink is always reachable.
type InlinePublisher struct {
	sink Sink
}

// NewInlinePublisher creates a publisher writing to sink.
func NewInlinePublisher(sink Sink) *InlinePublisher {
	return &InlinePublisher{sink: sink}
}

// Publish sends a controller event.
func (p *InlinePublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.sink.Publish(TopicEvents, payload, false)
}

// PublishState sends the retained state snapshot.
func (p *InlinePublisher) PublishState(payload []byte) error {
	return p.sink.Publish(TopicState, payload, true)
}

// PublishSystem sends a system lifecycle event.
func (p *InlinePublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.sink.Publish(TopicSystem, payload, event.Retained)
}

// Close is a no-op; the sink belongs to the caller.
func (p *InlinePublisher) Close() error {
	return nil
}

// IsConnected always reports true.
func (p *InlinePublisher) IsConnected() bool {
	return true
}
