package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Producer publishes a message body to RabbitMQ.
type Producer interface {
	Publish(body []byte) error
}

// Consumer listens to messages from RabbitMQ and handles the stream until
// ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context) (<-chan amqp.Delivery, error)
}

// ProducerFactory creates a Producer bound to a connection, channel and queue.
type ProducerFactory interface {
	CreateProducer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Producer, error)
}

// ConsumerFactory creates a Consumer bound to a connection, channel and queue.
type ConsumerFactory interface {
	CreateConsumer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Consumer, error)
}

// Queue holds the producers and consumers of one RabbitMQ queue.
type Queue struct {
	Producers []Producer
	Consumers []Consumer

	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *zap.Logger

	mu   sync.Mutex
	next int
}

// connect establishes a connection to RabbitMQ and opens the channel used to
// declare the queue and consume from it.
// A dropped connection is logged; the process keeps running without a queue.
func connect(url string, logger *zap.Logger) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err := <-notifyClose; err != nil {
			logger.Error("RabbitMQ connection closed", zap.Error(err))
		}
	}()

	return conn, ch, nil
}

// InitQueue connects to RabbitMQ, declares a durable queue named queueName
// and creates one producer or consumer per factory.
func InitQueue(url, queueName string, prodFactories []ProducerFactory, consFactories []ConsumerFactory, logger *zap.Logger) (*Queue, error) {
	conn, ch, err := connect(url, logger)
	if err != nil {
		return nil, fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}

	queue, err := ch.QueueDeclare(
		queueName,
		true,  // Durable
		false, // Delete when unused
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("error declaring queue: %w", err)
	}

	q := &Queue{conn: conn, ch: ch, logger: logger}
	for _, prodFactory := range prodFactories {
		producer, err := prodFactory.CreateProducer(conn, ch, &queue)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("error creating producer: %w", err)
		}
		q.Producers = append(q.Producers, producer)
	}
	for _, consFactory := range consFactories {
		consumer, err := consFactory.CreateConsumer(conn, ch, &queue)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("error creating consumer: %w", err)
		}
		q.Consumers = append(q.Consumers, consumer)
	}
	return q, nil
}

// StartConsumers starts every consumer. Their workers stop when ctx is
// cancelled.
func (q *Queue) StartConsumers(ctx context.Context) error {
	for _, consumer := range q.Consumers {
		if _, err := consumer.Consume(ctx); err != nil {
			return fmt.Errorf("error starting consumer: %w", err)
		}
	}
	return nil
}

// Publish sends body through the producers in round-robin order.
func (q *Queue) Publish(body []byte) error {
	q.mu.Lock()
	producerCount := len(q.Producers)
	if producerCount == 0 {
		q.mu.Unlock()
		return fmt.Errorf("no producers available")
	}
	producer := q.Producers[q.next%producerCount]
	q.next++
	q.mu.Unlock()

	return producer.Publish(body)
}

// Close closes the channel and the connection.
func (q *Queue) Close() error {
	if q.ch != nil {
		q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
