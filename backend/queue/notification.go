package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jghoshh/bienestar/backend/metrics"
	storage "github.com/jghoshh/bienestar/backend/storage/cache"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// NotificationsQueue is the durable queue carrying every notification.
const NotificationsQueue = "notifications"

// processedTTL is how long a delivered notification id is remembered.
const processedTTL = 72 * time.Hour

// Notification kinds.
const (
	KindReminder      = "reminder"
	KindPasswordReset = "password_reset"
	KindStreakAtRisk  = "streak_at_risk"
)

// NotificationMessage is the wire format of the notifications queue.
type NotificationMessage struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NewNotification returns a message with a fresh id.
func NewNotification(kind, to, title, body string) *NotificationMessage {
	return &NotificationMessage{ID: uuid.NewString(), Kind: kind, To: to, Title: title, Body: body}
}

// Sender delivers a rendered notification, e.g. *email.Mailer.
type Sender interface {
	Send(to, title, body string) error
}

// Publisher hands notifications to whatever delivers them.
type Publisher interface {
	PublishNotification(ctx context.Context, msg *NotificationMessage) error
}

// Outcome of handling one message.
type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
	OutcomeRejected  Outcome = "rejected"
)

// Handler sends notifications at most once per id, using the cache to
// remember delivered ids.
type Handler struct {
	Cache  storage.CacheInterface
	Sender Sender
	Logger *zap.Logger
}

func processedKey(id string) string {
	return "notification_" + id
}

// Handle decodes and delivers body. Failed outcomes are worth retrying;
// rejected ones are not.
func (h *Handler) Handle(ctx context.Context, body []byte) Outcome {
	message := &NotificationMessage{}
	if err := json.Unmarshal(body, message); err != nil || message.ID == "" || message.To == "" {
		h.Logger.Warn("dropping malformed notification", zap.ByteString("body", body), zap.Error(err))
		return h.record(message.Kind, OutcomeRejected)
	}

	processed, err := h.Cache.Exists(ctx, processedKey(message.ID))
	if err != nil {
		h.Logger.Error("error checking cache", zap.String("id", message.ID), zap.Error(err))
		return h.record(message.Kind, OutcomeFailed)
	}
	if processed {
		return h.record(message.Kind, OutcomeDuplicate)
	}

	if err := h.Sender.Send(message.To, message.Title, message.Body); err != nil {
		h.Logger.Error("failed to send notification",
			zap.String("id", message.ID),
			zap.String("kind", message.Kind),
			zap.Error(err))
		return h.record(message.Kind, OutcomeFailed)
	}

	if err := h.Cache.Set(ctx, processedKey(message.ID), true, processedTTL); err != nil {
		h.Logger.Warn("failed to mark notification processed", zap.String("id", message.ID), zap.Error(err))
	}
	h.Logger.Info("notification sent", zap.String("id", message.ID), zap.String("kind", message.Kind))
	return h.record(message.Kind, OutcomeSent)
}

func (h *Handler) record(kind string, outcome Outcome) Outcome {
	metrics.RecordNotification(kind, string(outcome))
	return outcome
}

// NotificationProducerFactory creates NotificationProducers.
type NotificationProducerFactory struct{}

// NotificationConsumerFactory creates NotificationConsumers sharing Handler.
type NotificationConsumerFactory struct {
	Handler *Handler
}

// publisher is the part of *amqp.Channel a producer publishes through.
type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NotificationProducer publishes JSON notifications to the queue on its own
// confirming channel. Publish returns once the broker has confirmed the message.
type NotificationProducer struct {
	channel  publisher
	confirms <-chan amqp.Confirmation
	queue    *amqp.Queue

	mu sync.Mutex
}

// NotificationConsumer acknowledges deliveries according to Handler's outcome.
type NotificationConsumer struct {
	channel *amqp.Channel
	queue   *amqp.Queue
	handler *Handler
}

// CreateProducer opens a dedicated channel in confirm mode so that delivery
// tags, and therefore confirmations, belong to this producer alone.
func (f *NotificationProducerFactory) CreateProducer(conn *amqp.Connection, _ *amqp.Channel, queue *amqp.Queue) (Producer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, err
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return &NotificationProducer{channel: ch, confirms: confirms, queue: queue}, nil
}

func (f *NotificationConsumerFactory) CreateConsumer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Consumer, error) {
	if f.Handler == nil {
		return nil, errors.New("notification consumer needs a handler")
	}
	return &NotificationConsumer{channel: ch, queue: queue, handler: f.Handler}, nil
}

// Publish sends a persistent JSON message to the queue and waits for the
// broker to confirm it. A nack or a closed channel is an error.
func (p *NotificationProducer) Publish(body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.Publish(
		"",           // exchange
		p.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}

	confirm, ok := <-p.confirms
	if !ok {
		return errors.New("channel closed before the broker confirmed the message")
	}
	if !confirm.Ack {
		return fmt.Errorf("broker nacked message %d", confirm.DeliveryTag)
	}
	return nil
}

// Consume registers a consumer on the queue and deploys a worker that
// handles deliveries until ctx is done or the channel closes.
func (c *NotificationConsumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(
		c.queue.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, err
	}

	go Work(ctx, msgs, c.handler)
	return msgs, nil
}

// Work handles deliveries from msgs: acked when sent or duplicate,
// dropped when rejected. A failed delivery is requeued once; when the
// redelivery fails too it is dropped so a dead sender cannot spin the queue.
func Work(ctx context.Context, msgs <-chan amqp.Delivery, h *Handler) {
	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				return
			}
			var err error
			switch h.Handle(ctx, d.Body) {
			case OutcomeSent, OutcomeDuplicate:
				err = d.Ack(false)
			case OutcomeFailed:
				if d.Redelivered {
					h.Logger.Warn("dropping notification after failed redelivery", zap.Uint64("tag", d.DeliveryTag))
				}
				err = d.Nack(false, !d.Redelivered)
			case OutcomeRejected:
				err = d.Nack(false, false)
			}
			if err != nil {
				h.Logger.Error("failed to acknowledge delivery", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// BuildNotificationQueue connects the notifications queue with the given
// number of producers and consumers.
func BuildNotificationQueue(rabbitMQURL string, numProducers, numConsumers int, handler *Handler, logger *zap.Logger) (*Queue, error) {
	prodFactories := make([]ProducerFactory, numProducers)
	for i := range prodFactories {
		prodFactories[i] = &NotificationProducerFactory{}
	}
	consFactories := make([]ConsumerFactory, numConsumers)
	for i := range consFactories {
		consFactories[i] = &NotificationConsumerFactory{Handler: handler}
	}
	return InitQueue(rabbitMQURL, NotificationsQueue, prodFactories, consFactories, logger)
}

// PublishNotification serializes msg and publishes it on the queue.
func (q *Queue) PublishNotification(ctx context.Context, msg *NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := q.Publish(body); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// DirectPublisher delivers notifications inline through a Handler. It is
// used when no broker is configured.
type DirectPublisher struct {
	Handler *Handler
}

func (p *DirectPublisher) PublishNotification(ctx context.Context, msg *NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if outcome := p.Handler.Handle(ctx, body); outcome == OutcomeFailed || outcome == OutcomeRejected {
		return fmt.Errorf("notification %s: %s", msg.ID, outcome)
	}
	return nil
}

var (
	_ Publisher = (*Queue)(nil)
	_ Publisher = (*DirectPublisher)(nil)
)
