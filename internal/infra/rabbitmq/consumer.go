package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
	"github.com/AstraLink99/backend-video-processing/internal/infra/metrics"
)

// JobHandler processes one delivered job body. It never fails the loop:
// a job that produces no usable result comes back Skipped with a reason.
type JobHandler func(ctx context.Context, body []byte) entity.Outcome

type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	workerCount int
	handler     JobHandler
	logger      *zap.Logger
	wg          sync.WaitGroup
}

type ConsumerConfig struct {
	URL         string
	Exchange    string
	Queue       string
	Prefetch    int
	WorkerCount int
}

// NewConsumer dials the broker, declares the worker-class queue and binds
// it to the fanout exchange. A dial or declare failure here is fatal to
// the worker process.
func NewConsumer(cfg ConsumerConfig, handler JobHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w: %s", entity.ErrBrokerUnavailable, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}

	if err := ch.QueueBind(cfg.Queue, "", cfg.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s: %w", cfg.Queue, err)
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       cfg.Queue,
		workerCount: cfg.WorkerCount,
		handler:     handler,
		logger:      logger,
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue,
		"",
		false, // autoAck=false, we ack after the handler runs
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("starting worker pool",
		zap.Int("workers", c.workerCount),
		zap.String("queue", c.queue),
	)

	for i := 0; i < c.workerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, waiting for workers to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			c.processDelivery(ctx, d, log)
		}
	}
}

// processDelivery acknowledges unconditionally once the handler returns.
// Skipped jobs are dropped, not redelivered: workers are best-effort even
// though the broker delivers at least once.
func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	outcome := c.handler(ctx, d.Body)

	metrics.JobsProcessedTotal.WithLabelValues(c.queue, string(outcome.Status)).Inc()

	if outcome.Status == entity.OutcomeSkipped {
		log.Warn("job skipped",
			zap.String("reason", outcome.Reason),
			zap.Uint64("delivery_tag", d.DeliveryTag),
		)
	}

	if err := d.Ack(false); err != nil {
		log.Error("ack failed", zap.Error(err), zap.Uint64("delivery_tag", d.DeliveryTag))
	}
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
