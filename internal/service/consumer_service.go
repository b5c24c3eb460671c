package service

import (
	"context"
	"encoding/json"

	"floatchat-be/internal/dto"
	"floatchat-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber   message.Subscriber
	topicName    string
	contextStore IContextStoreService
	logger       logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	contextStore IContextStoreService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:   subscriber,
		topicName:    topicName,
		contextStore: contextStore,
		logger:       log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks. Records that fail to store are logged and
// dropped.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.PublishContextMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal context message", map[string]interface{}{
			"error":      err.Error(),
			"message_id": msg.UUID,
		})
		return
	}

	if err := cs.contextStore.Save(ctx, payload.Record); err != nil {
		cs.logger.Error("CONSUMER", "Failed to store context", map[string]interface{}{
			"error": err.Error(),
			"id":    payload.Record.ID,
		})
		return
	}

	cs.logger.Debug("CONSUMER", "Context message processed", map[string]interface{}{
		"id": payload.Record.ID,
	})
}
