package analytics

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Consumer consumes meme analytics events and persists them to the store.
type Consumer struct {
	subscriber message.Subscriber
	store      Store
	logger     *zap.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewConsumer creates a new analytics consumer.
func NewConsumer(subscriber message.Subscriber, store Store, logger *zap.Logger) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		store:      store,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins consuming messages from both topics.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	generatedMsgs, err := c.subscriber.Subscribe(ctx, TopicMemeGenerated)
	if err != nil {
		close(c.done)

		return err
	}

	usedMsgs, err := c.subscriber.Subscribe(ctx, TopicTemplateUsed)
	if err != nil {
		close(c.done)

		return err
	}

	go c.consumeLoop(ctx, generatedMsgs, usedMsgs)

	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context, generatedMsgs, usedMsgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-generatedMsgs:
			if !ok {
				return
			}

			c.handleMemeGenerated(ctx, msg)
		case msg, ok := <-usedMsgs:
			if !ok {
				return
			}

			c.handleTemplateUsed(ctx, msg)
		}
	}
}

func (c *Consumer) handleMemeGenerated(ctx context.Context, msg *message.Message) {
	var event MemeGeneratedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.logger.Error("failed to unmarshal meme generated event",
			zap.Error(err),
		)
		msg.Nack()

		return
	}

	if err := c.store.SaveMemeGenerated(ctx, &event); err != nil {
		c.logger.Error("failed to save meme generated event",
			zap.String("memeId", event.MemeID),
			zap.Error(err),
		)
		msg.Nack()

		return
	}

	msg.Ack()

	c.logger.Debug("processed meme generated event",
		zap.String("memeId", event.MemeID),
	)
}

func (c *Consumer) handleTemplateUsed(ctx context.Context, msg *message.Message) {
	var event TemplateUsedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.logger.Error("failed to unmarshal template used event",
			zap.Error(err),
		)
		msg.Nack()

		return
	}

	if err := c.store.SaveTemplateUsed(ctx, &event); err != nil {
		c.logger.Error("failed to save template used event",
			zap.String("templateId", event.TemplateID),
			zap.Error(err),
		)
		msg.Nack()

		return
	}

	msg.Ack()

	c.logger.Debug("processed template used event",
		zap.String("templateId", event.TemplateID),
	)
}

// Shutdown stops the consumer and waits for in-flight messages to complete.
func (c *Consumer) Shutdown() error {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}

	return c.subscriber.Close()
}
