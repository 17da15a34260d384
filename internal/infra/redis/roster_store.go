package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"quiz-platform-service/internal/app"
)

// RosterStore keeps live rosters in process and marks them in Redis so
// other instances can see which quizzes have activity.
type RosterStore struct {
	client  *redis.Client
	ttl     time.Duration
	mu      sync.Mutex
	rosters map[string]*app.Roster
}

func NewRosterStore(client *redis.Client, ttl time.Duration) *RosterStore {
	return &RosterStore{
		client:  client,
		ttl:     ttl,
		rosters: make(map[string]*app.Roster),
	}
}

// Update runs fn on the quiz roster, creating it first when needed, then
// refreshes the liveness key outside the lock.
func (s *RosterStore) Update(quizID string, fn func(*app.Roster)) {
	s.mu.Lock()
	roster, ok := s.rosters[quizID]
	if !ok {
		roster = app.NewRoster(quizID)
		s.rosters[quizID] = roster
	}
	fn(roster)
	s.mu.Unlock()

	s.touch(quizID)
}

func (s *RosterStore) Get(quizID string) (*app.Roster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.rosters[quizID]
	return roster, ok
}

func (s *RosterStore) DeleteIfIdle(quizID string) {
	s.mu.Lock()
	roster, ok := s.rosters[quizID]
	idle := ok && roster.Idle()
	if idle {
		delete(s.rosters, quizID)
	}
	s.mu.Unlock()

	if !idle {
		return
	}
	if err := s.client.Del(context.Background(), s.key(quizID)).Err(); err != nil {
		log.Warn().Err(err).Str("quizID", quizID).Msg("clear roster marker")
	}
}

// Active reports whether any instance has marked the quiz live.
func (s *RosterStore) Active(ctx context.Context, quizID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(quizID)).Result()
	return n > 0, err
}

// touch refreshes the liveness key; failures are only logged.
func (s *RosterStore) touch(quizID string) {
	if err := s.client.Set(context.Background(), s.key(quizID), "1", s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("quizID", quizID).Msg("mark roster live")
	}
}

func (s *RosterStore) key(quizID string) string {
	return "quiz:roster:" + quizID
}
