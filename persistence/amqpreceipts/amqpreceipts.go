// Package amqpreceipts publishes appended receipts onto a durable
// RabbitMQ queue for external consumers, grounded on
// queue.RabbitMQService's connect/channel/declare-queue/publish
// lifecycle, narrowed from a FlowProcessMessage payload to a
// receipt.Receipt payload and acting purely as a fan-out Sink (no
// subscribe side; external consumers own their own queue bindings).
package amqpreceipts

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/chatman-systems/workflowkernel/receipt"
)

// Publisher publishes receipts to a durable AMQP queue.
type Publisher struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	queueName  string
}

// Config names the connection URL and destination queue.
type Config struct {
	URL       string
	QueueName string
}

// New dials url, opens a channel, and declares a durable queue.
func New(cfg Config) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqpreceipts: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqpreceipts: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqpreceipts: declare queue: %w", err)
	}
	return &Publisher{connection: conn, channel: ch, queueName: cfg.QueueName}, nil
}

// Append implements receipt.Sink: it publishes r as JSON to the
// configured queue via the default exchange.
func (p *Publisher) Append(r receipt.Receipt) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("amqpreceipts: marshal receipt: %w", err)
	}
	return p.channel.Publish("", p.queueName, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Close tears down the channel and connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.connection != nil {
		return p.connection.Close()
	}
	return nil
}
