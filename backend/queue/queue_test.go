package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	storage "github.com/jghoshh/bienestar/backend/storage/cache"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type sentMail struct{ to, title, body string }

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (s *fakeSender) Send(to, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to, title, body})
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type ack struct {
	tag     uint64
	acked   bool
	requeue bool
}

type fakeAcknowledger struct {
	mu   sync.Mutex
	acks []ack
	done chan struct{}
}

func (a *fakeAcknowledger) push(x ack) error {
	a.mu.Lock()
	a.acks = append(a.acks, x)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	return a.push(ack{tag: tag, acked: true})
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	return a.push(ack{tag: tag, requeue: requeue})
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.push(ack{tag: tag, requeue: requeue})
}

type recordingProducer struct {
	name   string
	bodies *[]string
}

func (p recordingProducer) Publish(body []byte) error {
	*p.bodies = append(*p.bodies, p.name)
	return nil
}

func newHandler(sender Sender) *Handler {
	return &Handler{Cache: storage.NewMemoryCache(), Sender: sender, Logger: zap.NewNop()}
}

func encode(t *testing.T, msg *NotificationMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func TestHandleSendsOnce(t *testing.T) {
	sender := &fakeSender{}
	h := newHandler(sender)
	body := encode(t, NewNotification(KindReminder, "ana@example.com", "Drink water", "Time for a glass."))

	assert.Equal(t, OutcomeSent, h.Handle(context.Background(), body))
	assert.Equal(t, OutcomeDuplicate, h.Handle(context.Background(), body))

	require.Equal(t, 1, sender.count())
	assert.Equal(t, sentMail{"ana@example.com", "Drink water", "Time for a glass."}, sender.sent[0])
}

func TestHandleFailureIsRetryable(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	h := newHandler(sender)
	body := encode(t, NewNotification(KindPasswordReset, "ana@example.com", "Reset", "token"))

	assert.Equal(t, OutcomeFailed, h.Handle(context.Background(), body))

	sender.err = nil
	assert.Equal(t, OutcomeSent, h.Handle(context.Background(), body))
}

func TestHandleRejectsMalformed(t *testing.T) {
	h := newHandler(&fakeSender{})

	assert.Equal(t, OutcomeRejected, h.Handle(context.Background(), []byte("{not json")))
	assert.Equal(t, OutcomeRejected, h.Handle(context.Background(), []byte(`{"kind":"reminder"}`)))
}

func TestWorkAcknowledgesByOutcome(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &fakeSender{}
	h := newHandler(sender)
	acker := &fakeAcknowledger{done: make(chan struct{}, 3)}
	msgs := make(chan amqp.Delivery)
	ctx, cancel := context.WithCancel(context.Background())

	finished := make(chan struct{})
	go func() {
		Work(ctx, msgs, h)
		close(finished)
	}()

	good := encode(t, NewNotification(KindStreakAtRisk, "ana@example.com", "Streak", "Log today"))
	msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: good}
	msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: good}
	msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 3, Body: []byte("garbage")}
	for i := 0; i < 3; i++ {
		select {
		case <-acker.done:
		case <-time.After(5 * time.Second):
			t.Fatal("delivery not acknowledged")
		}
	}

	cancel()
	<-finished

	assert.Equal(t, []ack{
		{tag: 1, acked: true},
		{tag: 2, acked: true},
		{tag: 3, requeue: false},
	}, acker.acks)
	assert.Equal(t, 1, sender.count())
}

func TestWorkRequeuesFailures(t *testing.T) {
	h := newHandler(&fakeSender{err: errors.New("smtp down")})
	acker := &fakeAcknowledger{done: make(chan struct{}, 1)}
	msgs := make(chan amqp.Delivery, 1)

	msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 7, Body: encode(t, NewNotification(KindReminder, "a@example.com", "t", "b"))}
	close(msgs)
	Work(context.Background(), msgs, h)

	assert.Equal(t, []ack{{tag: 7, requeue: true}}, acker.acks)
}

func TestWorkDropsFailedRedelivery(t *testing.T) {
	h := newHandler(&fakeSender{err: errors.New("smtp down")})
	acker := &fakeAcknowledger{done: make(chan struct{}, 1)}
	msgs := make(chan amqp.Delivery, 1)

	msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 8, Redelivered: true, Body: encode(t, NewNotification(KindReminder, "a@example.com", "t", "b"))}
	close(msgs)
	Work(context.Background(), msgs, h)

	assert.Equal(t, []ack{{tag: 8, requeue: false}}, acker.acks)
}

type confirmingChannel struct {
	confirms chan amqp.Confirmation
	ack      bool
	tag      uint64
	bodies   [][]byte
}

func (c *confirmingChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.tag++
	c.bodies = append(c.bodies, msg.Body)
	c.confirms <- amqp.Confirmation{DeliveryTag: c.tag, Ack: c.ack}
	return nil
}

func newConfirmingProducer(ack bool) (*NotificationProducer, *confirmingChannel) {
	ch := &confirmingChannel{confirms: make(chan amqp.Confirmation, 1), ack: ack}
	return &NotificationProducer{channel: ch, confirms: ch.confirms, queue: &amqp.Queue{Name: NotificationsQueue}}, ch
}

func TestProducerWaitsForConfirm(t *testing.T) {
	p, ch := newConfirmingProducer(true)

	require.NoError(t, p.Publish([]byte("one")))
	require.NoError(t, p.Publish([]byte("two")))
	assert.Equal(t, [][]byte{[]byte("one"), []byte("two")}, ch.bodies)
}

func TestProducerReportsNack(t *testing.T) {
	p, _ := newConfirmingProducer(false)

	err := p.Publish([]byte("one"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nacked")
}

func TestProducerReportsClosedChannel(t *testing.T) {
	confirms := make(chan amqp.Confirmation)
	close(confirms)
	p := &NotificationProducer{channel: nopChannel{}, confirms: confirms, queue: &amqp.Queue{Name: NotificationsQueue}}

	assert.Error(t, p.Publish([]byte("one")))
}

type nopChannel struct{}

func (nopChannel) Publish(string, string, bool, bool, amqp.Publishing) error { return nil }

func TestPublishRoundRobin(t *testing.T) {
	var order []string
	q := &Queue{Producers: []Producer{
		recordingProducer{name: "p0", bodies: &order},
		recordingProducer{name: "p1", bodies: &order},
	}}

	for i := 0; i < 4; i++ {
		require.NoError(t, q.PublishNotification(context.Background(), NewNotification(KindReminder, "a@example.com", "t", "b")))
	}
	assert.Equal(t, []string{"p0", "p1", "p0", "p1"}, order)
}

func TestPublishWithoutProducers(t *testing.T) {
	q := &Queue{}
	assert.Error(t, q.PublishNotification(context.Background(), NewNotification(KindReminder, "a@example.com", "t", "b")))
}

func TestDirectPublisher(t *testing.T) {
	sender := &fakeSender{}
	p := &DirectPublisher{Handler: newHandler(sender)}

	require.NoError(t, p.PublishNotification(context.Background(), NewNotification(KindReminder, "a@example.com", "t", "b")))
	assert.Equal(t, 1, sender.count())

	sender.err = errors.New("down")
	assert.Error(t, p.PublishNotification(context.Background(), NewNotification(KindReminder, "a@example.com", "t", "b")))
}

func TestNewNotificationIDsAreUnique(t *testing.T) {
	a := NewNotification(KindReminder, "a@example.com", "t", "b")
	b := NewNotification(KindReminder, "a@example.com", "t", "b")
	assert.NotEqual(t, a.ID, b.ID)
}
