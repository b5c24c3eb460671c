package service

import (
	"context"
	"time"

	"floatchat-be/internal/pkg/logger"
	"floatchat-be/pkg/events"
)

// EventBus is satisfied by *nats.Publisher.
type EventBus interface {
	Publish(ctx context.Context, event events.Event) error
}

// ITurnEventPublisher reports finished turns. Failures are logged, never
// returned, because the bus is auxiliary to the chat.
type ITurnEventPublisher interface {
	PublishTurn(ctx context.Context, outcome events.TurnOutcome)
}

type turnEventPublisher struct {
	bus    EventBus
	logger logger.ILogger
	now    func() time.Time
}

// NewTurnEventPublisher accepts a nil bus, in which case nothing is sent.
func NewTurnEventPublisher(bus EventBus, log logger.ILogger) ITurnEventPublisher {
	return &turnEventPublisher{bus: bus, logger: log, now: time.Now}
}

func (p *turnEventPublisher) PublishTurn(ctx context.Context, outcome events.TurnOutcome) {
	if p.bus == nil {
		return
	}

	evt := events.NewTurnEvent(outcome, p.now())
	if err := p.bus.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+evt.EventType()+" event", map[string]interface{}{
			"error":      err.Error(),
			"session_id": outcome.SessionID,
		})
	}
}
