package rabbitmq

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery body. A returned error rejects the delivery
// without requeue, which dead-letters it.
type Handler func(ctx context.Context, body []byte) error

type Consumer struct {
	conn        *amqp.Connection
	ch          *amqp.Channel
	queue       string
	concurrency int
	log         *slog.Logger
}

func NewConsumer(url, queue string, concurrency int, log *slog.Logger) (*Consumer, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	conn, ch, err := dial(url, queue)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consumer: %w", err)
	}
	//  strict concurrency control
	if err := ch.Qos(concurrency, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}
	return &Consumer{conn: conn, ch: ch, queue: queue, concurrency: concurrency, log: log}, nil
}

func (c *Consumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

// Run dispatches deliveries to a fixed pool of workers until ctx is done or
// the broker closes the delivery channel. Deliveries of one partition always
// go to the same worker, so they are handled in queue order.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.log.Info("consumer started", "queue", c.queue, "concurrency", c.concurrency)

	jobs := make([]chan amqp.Delivery, c.concurrency)
	var wg sync.WaitGroup
	wg.Add(c.concurrency)
	for i := range jobs {
		jobs[i] = make(chan amqp.Delivery, 2)
		go func(workerID int, in <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range in {
				c.handle(ctx, workerID, d, h)
			}
		}(i, jobs[i])
	}

	defer func() {
		for _, in := range jobs {
			close(in)
		}
		wg.Wait()
	}()

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			c.log.Info("consumer shutting down")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			jobs[workerFor(partitionOf(d), c.concurrency)] <- d
		}
	}
}

func partitionOf(d amqp.Delivery) string {
	key, _ := d.Headers[HeaderPartition].(string)
	return key
}

func workerFor(key string, workers int) int {
	if workers <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(workers))
}

func (c *Consumer) handle(ctx context.Context, workerID int, d amqp.Delivery, h Handler) {
	start := time.Now()
	if err := h(ctx, d.Body); err != nil {
		c.log.Warn("delivery failed", "worker", workerID, "type", d.Type, "cost", time.Since(start), "err", err)
		_ = d.Nack(false, false)
		return
	}
	if err := d.Ack(false); err != nil {
		c.log.Warn("ack failed", "worker", workerID, "type", d.Type, "err", err)
	}
}
