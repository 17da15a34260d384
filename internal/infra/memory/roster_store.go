package memory

import (
	"sync"

	"quiz-platform-service/internal/app"
)

// RosterStore is an in-memory implementation of app.RosterRepository.
type RosterStore struct {
	mu      sync.Mutex
	rosters map[string]*app.Roster
}

func NewRosterStore() *RosterStore {
	return &RosterStore{
		rosters: make(map[string]*app.Roster),
	}
}

// Update runs fn on the quiz roster, creating it first when needed.
func (s *RosterStore) Update(quizID string, fn func(*app.Roster)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.rosters[quizID]
	if !ok {
		roster = app.NewRoster(quizID)
		s.rosters[quizID] = roster
	}
	fn(roster)
}

func (s *RosterStore) Get(quizID string) (*app.Roster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.rosters[quizID]
	return roster, ok
}

func (s *RosterStore) DeleteIfIdle(quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if roster, ok := s.rosters[quizID]; ok && roster.Idle() {
		delete(s.rosters, quizID)
	}
}

// Len reports how many quizzes currently hold a roster.
func (s *RosterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rosters)
}
