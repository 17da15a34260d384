package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-platform-service/internal/app"
	"quiz-platform-service/internal/domain"
)

// QuizRepository keeps full quiz details in process for the grading path.
// A non-positive ttl disables caching and every read goes to the loader.
type QuizRepository struct {
	loader app.QuizLoader
	ttl    time.Duration
	now    func() time.Time
	sf     singleflight.Group

	mu      sync.Mutex
	rnd     *rand.Rand
	entries map[string]cacheEntry
}

type cacheEntry struct {
	detail    domain.QuizDetail
	expiresAt time.Time
}

func NewQuizRepository(loader app.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]cacheEntry),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.QuizDetail, error) {
	if detail, ok := r.lookup(quizID); ok {
		return detail, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if detail, ok := r.lookup(quizID); ok {
			return detail, nil
		}
		detail, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizDetail{}, err
		}
		r.store(quizID, detail)
		return detail, nil
	})
	if err != nil {
		return domain.QuizDetail{}, err
	}
	return cloneDetail(result.(domain.QuizDetail)), nil
}

// Invalidate drops the cached copy so the next read hits the loader.
func (r *QuizRepository) Invalidate(_ context.Context, quizID string) error {
	r.sf.Forget(quizID)
	r.mu.Lock()
	delete(r.entries, quizID)
	r.mu.Unlock()
	return nil
}

func (r *QuizRepository) lookup(quizID string) (domain.QuizDetail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[quizID]
	if !ok {
		return domain.QuizDetail{}, false
	}
	if !entry.expiresAt.After(r.now()) {
		delete(r.entries, quizID)
		return domain.QuizDetail{}, false
	}
	return cloneDetail(entry.detail), true
}

func (r *QuizRepository) store(quizID string, detail domain.QuizDetail) {
	if r.ttl <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, entry := range r.entries {
		if !entry.expiresAt.After(now) {
			delete(r.entries, id)
		}
	}
	// up to 10% jitter
	jitter := time.Duration(r.rnd.Int63n(int64(r.ttl)/10 + 1))
	r.entries[quizID] = cacheEntry{detail: cloneDetail(detail), expiresAt: now.Add(r.ttl + jitter)}
}

// cloneDetail copies the question and option slices so callers cannot mutate cached state.
func cloneDetail(d domain.QuizDetail) domain.QuizDetail {
	questions := make([]domain.Question, len(d.Questions))
	for i, q := range d.Questions {
		questions[i] = cloneQuestion(q)
	}
	d.Questions = questions
	return d
}
