// Package kafka consumes the courier location topic and feeds the samples to
// the location ingest pipeline.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/location"
)

// HandleFunc processes a single location report from Kafka.
type HandleFunc func(context.Context, location.Report) error

// Consumer wraps a Sarama consumer group and dispatches location samples to a
// handler. A nil Consumer (Kafka not configured) is a safe no-op.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler HandleFunc
	log     logx.Logger
}

// NewConsumer creates a Kafka consumer. Returns nil when Kafka is not
// configured so the rest of the app can run without a broker.
func NewConsumer(brokers []string, groupID, topic string, h HandleFunc, log logx.Logger) (*Consumer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" || strings.TrimSpace(groupID) == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:   group,
		topic:   topic,
		handler: h,
		log:     log,
	}, nil
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	h := &groupHandler{c: c}

	for {
		if err := c.group.Consume(ctx, []string{c.topic}, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("kafka consume error", logx.Any("err", err))
			time.Sleep(time.Second)
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close shuts the consumer group down.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var dto LocationDTO
		if err := json.Unmarshal(msg.Value, &dto); err != nil {
			h.c.log.Warn("kafka: bad location payload", logx.Any("err", err))
			sess.MarkMessage(msg, "")
			continue
		}
		if dto.CourierID <= 0 {
			h.c.log.Warn("kafka: location sample without courier id")
			sess.MarkMessage(msg, "")
			continue
		}

		if err := h.c.handler(sess.Context(), ToReport(dto)); err != nil {
			if permanent(err) {
				h.c.log.Warn("kafka: location sample dropped",
					logx.Int64("courier_id", dto.CourierID),
					logx.Any("err", err),
				)
				sess.MarkMessage(msg, "")
				continue
			}
			h.c.log.Error("kafka: handle failed, retrying",
				logx.Int64("courier_id", dto.CourierID),
				logx.Any("err", err),
			)
			return err
		}

		sess.MarkMessage(msg, "")
	}
	return nil
}

// permanent reports whether a redelivery could possibly succeed. Validation
// failures and unknown couriers stay broken forever; everything else retries.
func permanent(err error) bool {
	var pe PermanentError
	if errors.As(err, &pe) {
		return true
	}
	return errors.Is(err, apperr.ErrInvalid) || errors.Is(err, apperr.ErrNotFound)
}
