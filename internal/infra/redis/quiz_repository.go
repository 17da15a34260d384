package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"quiz-platform-service/internal/app"
	"quiz-platform-service/internal/domain"
)

// QuizRepository caches full quiz details in Redis and falls back to a loader on cache miss.
// Details are stored as JSON: SET quiz:{quizID}:detail {json} EX ttl
type QuizRepository struct {
	client *redis.Client
	loader app.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuizRepository(client *redis.Client, loader app.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.QuizDetail, error) {
	if detail, ok := r.cached(ctx, quizID); ok {
		return detail, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if detail, ok := r.cached(ctx, quizID); ok {
			return detail, nil
		}

		detail, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizDetail{}, err
		}
		raw, err := json.Marshal(detail)
		if err != nil {
			return domain.QuizDetail{}, err
		}
		if err := r.client.Set(ctx, r.detailKey(quizID), raw, r.ttlWithJitter()).Err(); err != nil {
			log.Warn().Err(err).Str("quizID", quizID).Msg("cache quiz detail")
		}
		return detail, nil
	})
	if err != nil {
		return domain.QuizDetail{}, err
	}
	return result.(domain.QuizDetail), nil
}

// Invalidate removes the cached detail after an authoring change.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	r.sf.Forget(quizID)
	return r.client.Del(ctx, r.detailKey(quizID)).Err()
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.QuizDetail, bool) {
	raw, err := r.client.Get(ctx, r.detailKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("quizID", quizID).Msg("read cached quiz")
		}
		return domain.QuizDetail{}, false
	}
	var detail domain.QuizDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		log.Warn().Err(err).Str("quizID", quizID).Msg("decode cached quiz")
		return domain.QuizDetail{}, false
	}
	return detail, true
}

func (r *QuizRepository) detailKey(quizID string) string {
	return "quiz:" + quizID + ":detail"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
