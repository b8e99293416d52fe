package outbox

import (
	"context"
	"time"

	"github.com/blisslabs/consulting-reservations/internal/adapters/pg"
	"github.com/blisslabs/consulting-reservations/internal/adapters/rabbit"
	"github.com/blisslabs/consulting-reservations/internal/observability"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher drains NEW outbox rows to RabbitMQ so reservation events leave the
// system at least once without coupling commits to broker availability.
type Publisher struct {
	repo      *pg.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(repo *pg.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			records, err := p.repo.GetUnpublishedOutbox(ctx, 10)
			if err != nil {
				p.logger.WithError(err).Error("failed to fetch outbox records")
				continue
			}
			for _, rec := range records {
				observability.OutboxLag.Set(time.Since(rec.CreatedAt).Seconds())
				msg := amqp.Publishing{
					MessageId:   rec.DedupeKey,
					ContentType: "application/json",
					Body:        rec.Payload,
				}
				if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
					observability.RabbitPublishRetries.Inc()
					p.logger.WithError(err).WithField("event_type", rec.EventType).Warn("outbox publish failed, will retry")
					continue
				}
				if err := p.repo.MarkPublished(ctx, rec.ID, time.Now(), rec.DedupeKey); err != nil {
					p.logger.WithError(err).Error("failed to mark outbox record published")
				}
			}
		}
	}
}
