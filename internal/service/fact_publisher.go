// Package service provides the collaborators that deliver contract facts
// to the outside world.  Publish errors are returned so the processor can
// log them; they never undo a committed command.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/facility-placement/internal/queue"
	"github.com/iliyamo/facility-placement/internal/utils"
)

// DefaultExchange is the topic exchange facts are published to.
const DefaultExchange = "placement.facts"

// FactPublisher publishes contract facts to a RabbitMQ topic exchange
// under contract.created, contract.updated and contract.deactivated.
// The connection is opened lazily and re-opened after a failure, so a
// broker outage only costs the facts emitted while it lasts.
type FactPublisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewFactPublisher returns a publisher for url.  No connection is made
// until the first fact is published.
func NewFactPublisher(url, exchange string) *FactPublisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &FactPublisher{url: url, exchange: exchange}
}

// PublishContractFact sends fact as a persistent JSON message.
func (p *FactPublisher) PublishContractFact(ctx context.Context, fact queue.ContractFact) error {
	msg, err := factPublishing(fact)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureChannelLocked(); err != nil {
		return err
	}
	if err := p.ch.PublishWithContext(ctx,
		p.exchange,
		fact.Kind.RoutingKey(),
		false, // mandatory
		false, // immediate
		msg,
	); err != nil {
		p.closeLocked()
		return fmt.Errorf("rabbitmq: publish %s: %w", fact.Kind.RoutingKey(), err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *FactPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *FactPublisher) ensureChannelLocked() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.closeLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	// Durable topic exchange; declaring it again is a no-op.
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: declare exchange %s: %w", p.exchange, err)
	}
	p.conn, p.ch = conn, ch
	utils.Logger.WithField("exchange", p.exchange).Info("fact publisher connected")
	return nil
}

func (p *FactPublisher) closeLocked() error {
	var err error
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}

// factPublishing builds the AMQP message for fact.  MessageId carries the
// fact id so consumers can deduplicate redeliveries.
func factPublishing(fact queue.ContractFact) (amqp.Publishing, error) {
	body, err := json.Marshal(fact)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal fact: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    fact.FactID,
		Type:         string(fact.Kind),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}
