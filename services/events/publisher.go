package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"courtcal/models"
	"courtcal/services/tasks"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Publisher hands scheduling events to the host application. Callers log publish
// failures; a failed publish never undoes the write that produced the event.
type Publisher interface {
	Publish(ctx context.Context, evt models.SchedulingEvent) error
}

func NewEvent(eventType, aggregateID string, payload map[string]any, now time.Time) models.SchedulingEvent {
	return models.SchedulingEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  now.UTC(),
	}
}

// AsynqPublisher enqueues events for the worker in cron, which persists them.
type AsynqPublisher struct {
	Client *asynq.Client
	Logger *zap.Logger
}

func NewAsynqPublisher(client *asynq.Client, logger *zap.Logger) *AsynqPublisher {
	return &AsynqPublisher{Client: client, Logger: logger}
}

func (p *AsynqPublisher) Publish(ctx context.Context, evt models.SchedulingEvent) error {
	task, opts, err := tasks.NewSchedulingEventTask(evt)
	if err != nil {
		return err
	}
	return p.enqueue(ctx, task, opts)
}

// ScheduleDeadlineReminder enqueues a reminder delivered at fireAt.
func (p *AsynqPublisher) ScheduleDeadlineReminder(ctx context.Context, payload models.DeadlineReminderPayload, fireAt time.Time) error {
	task, opts, err := tasks.NewDeadlineReminderTask(payload, fireAt)
	if err != nil {
		return err
	}
	return p.enqueue(ctx, task, opts)
}

func (p *AsynqPublisher) enqueue(ctx context.Context, task *asynq.Task, opts []asynq.Option) error {
	info, err := p.Client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}
	if p.Logger != nil {
		p.Logger.Debug("task enqueued", zap.String("type", task.Type()), zap.String("taskID", info.ID), zap.String("queue", info.Queue))
	}
	return nil
}

// KafkaPublisher writes events to a topic keyed by aggregate id.
type KafkaPublisher struct {
	Writer *kafka.Writer
	Topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		Topic: topic,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt models.SchedulingEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: p.Topic,
		Key:   []byte(evt.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.ID)},
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}
	carrier := &headerCarrier{headers: msg.Headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	msg.Headers = carrier.headers

	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event %s to kafka: %w", evt.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.Writer.Close()
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// LogPublisher only logs events.
type LogPublisher struct {
	Logger *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, evt models.SchedulingEvent) error {
	p.Logger.Info("scheduling event",
		zap.String("eventID", evt.ID),
		zap.String("type", evt.Type),
		zap.String("aggregateID", evt.AggregateID),
		zap.Any("payload", evt.Payload),
	)
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []models.SchedulingEvent
}

func (r *Recorder) Publish(_ context.Context, evt models.SchedulingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Events() []models.SchedulingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SchedulingEvent(nil), r.events...)
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
