package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/facility-placement/internal/utils"
)

// ConsumerConfig selects the broker, exchange and queue the fact consumer
// binds to.
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// FactKeys are the routing keys the consumer binds.
var FactKeys = []string{
	FactCreated.RoutingKey(),
	FactUpdated.RoutingKey(),
	FactDeactivated.RoutingKey(),
}

// Recorder appends one line per contract fact to <dir>/contracts.log.
// Facts already recorded are skipped, so redeliveries are harmless.
type Recorder struct {
	dir   string
	dedup Deduper
	mu    sync.Mutex
}

// NewRecorder returns a Recorder writing under dir ("logs" if empty).
func NewRecorder(dir string, dedup Deduper) *Recorder {
	if dir == "" {
		dir = "logs"
	}
	if dedup == nil {
		dedup = NewMemoryDeduper()
	}
	return &Recorder{dir: dir, dedup: dedup}
}

// Path is the file facts are written to.
func (r *Recorder) Path() string { return filepath.Join(r.dir, "contracts.log") }

// Handle decodes body and records the fact.  A malformed body is an error;
// a duplicate is not.
func (r *Recorder) Handle(ctx context.Context, body []byte) error {
	var f ContractFact
	if err := json.Unmarshal(body, &f); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if f.FactID == "" || f.ContractID == "" {
		return errors.New("fact without id")
	}
	first, err := r.dedup.Claim(ctx, f.FactID)
	if err != nil {
		return fmt.Errorf("dedup claim: %w", err)
	}
	if !first {
		utils.Logger.WithField("fact_id", f.FactID).Debug("duplicate fact skipped")
		return nil
	}
	if err := r.write(f); err != nil {
		_ = r.dedup.Release(ctx, f.FactID)
		return err
	}
	return nil
}

func (r *Recorder) write(f ContractFact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", r.dir, err)
	}
	file, err := os.OpenFile(r.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(formatFact(f)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatFact(f ContractFact) string {
	return fmt.Sprintf("[%s] Contract %s | fact_id=%s | contract_id=%s | number=%s | facility=%s | equipment=%s | quantity=%d | active=%t\n",
		f.Timestamp, f.Kind, f.FactID, f.ContractID, f.ContractNo, f.FacilityCode, f.EquipmentCode, f.Quantity, f.IsActive)
}

// StartFactConsumer binds cfg.Queue to the fact exchange and records
// every delivery with rec.  It reconnects with exponential backoff and
// returns only when ctx is cancelled.
func StartFactConsumer(ctx context.Context, cfg ConsumerConfig, rec *Recorder) error {
	log := utils.Logger.WithField("component", "fact-consumer")
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, cfg, rec)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, rec *Recorder) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		utils.Logger.WithError(err).Warn("fact-consumer: set QoS failed")
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range FactKeys {
		if err := ch.QueueBind(q.Name, key, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for d := range msgs {
		if err := rec.Handle(ctx, d.Body); err != nil {
			utils.Logger.WithError(err).WithField("message_id", d.MessageId).Error("fact-consumer: handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
