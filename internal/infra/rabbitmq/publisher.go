package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
)

type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

// NewPublisher opens a channel on conn and declares the fanout exchange
// every worker-class queue binds to, so one copy of each job reaches each
// worker class.
func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Publisher{channel: ch, exchange: exchange}, nil
}

type JobPublisher struct {
	pub *Publisher
}

func NewJobPublisher(pub *Publisher) *JobPublisher {
	return &JobPublisher{pub: pub}
}

func (jp *JobPublisher) PublishJob(ctx context.Context, job entity.JobDescriptor) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job descriptor: %w", err)
	}

	err = jp.pub.channel.PublishWithContext(ctx,
		jp.pub.exchange,
		"",
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish job for %s: %w: %s", job.Filename, entity.ErrBrokerUnavailable, err)
	}
	return nil
}
