package app

import (
	"sort"
	"sync"
	"time"

	"quiz-platform-service/internal/domain"
)

// NewRoster is exported for infrastructure layers that keep rosters.
func NewRoster(quizID string) *Roster {
	return newRosterWithClock(quizID, time.Now)
}

// NewRosterWithClock is test-only for deterministic timestamps.
func NewRosterWithClock(quizID string, now func() time.Time) *Roster {
	return newRosterWithClock(quizID, now)
}

// Roster is an in-memory view of attempt activity on one quiz.
type Roster struct {
	quizID      string
	now         func() time.Time
	mu          sync.RWMutex
	entries     map[string]*domain.RosterEntry
	subscribers map[chan domain.Roster]struct{}
}

func newRosterWithClock(quizID string, now func() time.Time) *Roster {
	return &Roster{
		quizID:      quizID,
		now:         now,
		entries:     make(map[string]*domain.RosterEntry),
		subscribers: make(map[chan domain.Roster]struct{}),
	}
}

func (r *Roster) started(a domain.Attempt, answered int) domain.Roster {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[a.StudentID] = &domain.RosterEntry{
		StudentID:     a.StudentID,
		AttemptID:     a.ID,
		AttemptNumber: a.AttemptNumber,
		Answered:      answered,
		UpdatedAt:     r.now(),
	}
	return r.broadcastLocked()
}

func (r *Roster) answered(a domain.Attempt, answered int) domain.Roster {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[a.StudentID]
	if !ok || entry.AttemptID != a.ID {
		entry = &domain.RosterEntry{StudentID: a.StudentID, AttemptID: a.ID, AttemptNumber: a.AttemptNumber}
		r.entries[a.StudentID] = entry
	}
	entry.Answered = answered
	entry.UpdatedAt = r.now()
	return r.broadcastLocked()
}

func (r *Roster) completed(a domain.Attempt, answered int) domain.Roster {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[a.StudentID] = &domain.RosterEntry{
		StudentID:     a.StudentID,
		AttemptID:     a.ID,
		AttemptNumber: a.AttemptNumber,
		Answered:      answered,
		Completed:     true,
		Score:         a.Score,
		UpdatedAt:     r.now(),
	}
	return r.broadcastLocked()
}

// Idle reports whether nobody is watching and no attempt is running.
func (r *Roster) Idle() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.subscribers) > 0 {
		return false
	}
	for _, e := range r.entries {
		if !e.Completed {
			return false
		}
	}
	return true
}

// Snapshot returns the current roster.
func (r *Roster) Snapshot() domain.Roster {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Roster) subscribe() (<-chan domain.Roster, func()) {
	ch := make(chan domain.Roster, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	initial := r.snapshotLocked()
	r.mu.Unlock()

	ch <- initial

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Roster) broadcastLocked() domain.Roster {
	snap := r.snapshotLocked()
	for ch := range r.subscribers {
		select {
		case ch <- snap:
		default:
			// slow subscriber: replace the stale snapshot
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (r *Roster) snapshotLocked() domain.Roster {
	entries := make([]domain.RosterEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, *e)
	}

	// Finished students first by score, then running ones by progress.
	sort.Slice(entries, func(i, j int) bool {
		ei, ej := entries[i], entries[j]
		if ei.Completed != ej.Completed {
			return ei.Completed
		}
		si, sj := scoreOrMinus(ei.Score), scoreOrMinus(ej.Score)
		if si != sj {
			return si > sj
		}
		if ei.Answered != ej.Answered {
			return ei.Answered > ej.Answered
		}
		if !ei.UpdatedAt.Equal(ej.UpdatedAt) {
			return ei.UpdatedAt.Before(ej.UpdatedAt)
		}
		return ei.StudentID < ej.StudentID
	})

	return domain.Roster{
		QuizID:    r.quizID,
		Entries:   entries,
		UpdatedAt: r.now(),
	}
}

func scoreOrMinus(score *int) int {
	if score == nil {
		return -1
	}
	return *score
}
