package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blisslabs/consulting-reservations/internal/adapters/pg"
	"github.com/blisslabs/consulting-reservations/internal/adapters/rabbit"
	redisadapter "github.com/blisslabs/consulting-reservations/internal/adapters/redis"
	"github.com/blisslabs/consulting-reservations/internal/config"
	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/blisslabs/consulting-reservations/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PGDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := pg.NewRepository(pool)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	worker := NewExpiryWorker(repo, redisCache, rabbitPub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, time.Minute)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry worker")
}

// ExpiryWorker lets abandoned holds lapse: it releases expired intents,
// removes their slot locks, and announces the expiry so other clients can see
// the slot again. This is the backend's own timeout policy; the booking flow
// never waits on it.
type ExpiryWorker struct {
	repo      *pg.Repository
	redis     *redisadapter.Cache
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewExpiryWorker(repo *pg.Repository, redis *redisadapter.Cache, rabbitPub *rabbit.Publisher, logger observability.Logger) *ExpiryWorker {
	return &ExpiryWorker{repo: repo, redis: redis, rabbitPub: rabbitPub, logger: logger}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			intents, err := w.repo.GetExpiredIntents(ctx, now)
			if err != nil {
				w.logger.WithError(err).Error("failed to get expired intents")
				continue
			}

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(4)
			for _, intent := range intents {
				intent := intent
				g.Go(func() error {
					if err := w.expireWithRetry(gctx, intent); err != nil {
						w.logger.WithError(err).WithField("intent_id", intent.ID).Error("failed to expire intent after retries")
					}
					return nil
				})
			}
			g.Wait()
		}
	}
}

func (w *ExpiryWorker) expireWithRetry(ctx context.Context, intent domain.ReservationIntent) error {
	const maxRetries = 3
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = w.repo.ReleaseIntent(ctx, intent.ID); err != nil {
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}

		slot := intent.DateTime.UTC().Format(time.RFC3339)
		if err := w.redis.DeleteSlotLock(ctx, intent.DesignerID.String(), slot); err != nil {
			w.logger.WithError(err).Warn("failed to delete slot lock for expired intent")
		}

		payload, _ := json.Marshal(map[string]interface{}{"intent_id": intent.ID})
		msg := amqp.Publishing{
			MessageId:   uuid.New().String(),
			ContentType: "application/json",
			Body:        payload,
		}
		return w.rabbitPub.Publish(ctx, "hold.expired", msg)
	}
	return err
}
