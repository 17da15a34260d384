package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"quiz-platform-service/internal/app"
	"quiz-platform-service/internal/config"
	"quiz-platform-service/internal/infra/memory"
	"quiz-platform-service/internal/infra/postgres"
	"quiz-platform-service/internal/infra/rabbitmq"
	redisinfra "quiz-platform-service/internal/infra/redis"
	"quiz-platform-service/internal/infra/storage"
)

// services is the wired application plus the resources to release on exit.
type services struct {
	quizzes   *app.QuizService
	attempts  *app.AttemptService
	analytics *app.AnalyticsService
	closers   []func() error
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close resource")
		}
	}
}

// buildServices picks every backend from config; missing endpoints fall back to in-memory adapters.
func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	s := &services{}
	fail := func(err error) (*services, error) {
		s.Close()
		return nil, err
	}

	var (
		quizStore    app.QuizStore
		attemptStore app.AttemptStore
		loader       app.QuizLoader
	)
	if cfg.Postgres.URL != "" {
		db := postgres.OpenDB(cfg.Postgres.URL)
		s.closers = append(s.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			return fail(err)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		store := postgres.NewStore(db)
		quizStore, attemptStore, loader = store, store, postgres.NewQuizLoader(pool)
		log.Info().Msg("using postgres store")
	} else {
		store := memory.NewStore()
		quizStore, attemptStore, loader = store, store, store
		log.Warn().Msg("postgres not configured, data is kept in memory")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizRepo app.QuizRepository
		locker   app.AttemptLocker
		rosters  app.RosterRepository
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("ping redis: %w", err))
		}
		quizRepo = redisinfra.NewQuizRepository(client, loader, quizTTL)
		locker = redisinfra.NewAttemptLocker(client, config.TTLDuration(cfg.Redis.LockTTL, 10*time.Second))
		rosters = redisinfra.NewRosterStore(client, quizTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis cache and locks")
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		locker = memory.NewAttemptLocker()
		rosters = memory.NewRosterStore()
	}

	var events app.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL)
		if err != nil {
			return fail(err)
		}
		s.closers = append(s.closers, publisher.Close)
		events = publisher
		log.Info().Msg("publishing events to rabbitmq")
	} else {
		events = memory.NewEventRecorder()
	}

	var covers app.CoverStore
	if cfg.Storage.Endpoint != "" {
		store, err := storage.NewCoverStore(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			return fail(err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return fail(err)
		}
		covers = store
	} else {
		log.Warn().Msg("object storage not configured, cover uploads disabled")
	}

	s.quizzes = app.NewQuizService(quizStore, quizRepo, attemptStore, covers)
	s.attempts = app.NewAttemptService(quizRepo, attemptStore, quizStore, locker, events, rosters)
	s.analytics = app.NewAnalyticsService(quizStore, quizRepo, attemptStore)
	return s, nil
}
