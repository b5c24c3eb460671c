package service

import (
	"context"
	"encoding/json"
	"fmt"

	"floatchat-be/internal/dto"
	"floatchat-be/pkg/ocean"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ContextWriter hands an analysed turn to the similarity store.
type ContextWriter interface {
	WriteContext(ctx context.Context, rec ocean.ContextRecord) error
}

type IPublisherService interface {
	ContextWriter
	Publish(ctx context.Context, payload []byte) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}

// WriteContext queues the record for the context consumer, so the turn does
// not wait on embedding and storage.
func (ps *publisherService) WriteContext(ctx context.Context, rec ocean.ContextRecord) error {
	payload, err := json.Marshal(dto.PublishContextMessage{Record: rec})
	if err != nil {
		return fmt.Errorf("marshal context message: %w", err)
	}
	return ps.Publish(ctx, payload)
}
