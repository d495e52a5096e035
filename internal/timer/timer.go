// Package timer implements the per-turn timer service: grace periods,
// pause/resume across disconnections, and automatic time-out callbacks
// (spec.md §4.9). Grounded on the teacher's startActionTimer/stopActionTimer/
// Pause/Resume/HandleTimeout pattern in engine/game.go.
package timer

import (
	"sync"
	"time"
)

const DefaultGracePeriod = 2 * time.Second

// entry is the armed (or paused) timer state for one game.
type entry struct {
	playerID         string
	timeout          time.Duration // configured timeout + grace
	deadline         time.Time
	osTimer          *time.Timer
	paused           bool
	pausedAt         time.Time
	remainingAtPause time.Duration
	onTimeout        func(playerID string)
}

// Service manages one timer per gameId. All methods are safe for
// concurrent use.
type Service struct {
	mu          sync.Mutex
	timers      map[string]*entry
	gracePeriod time.Duration
}

func NewService() *Service {
	return &Service{timers: make(map[string]*entry), gracePeriod: DefaultGracePeriod}
}

func NewServiceWithGrace(grace time.Duration) *Service {
	return &Service{timers: make(map[string]*entry), gracePeriod: grace}
}

// StartTurn cancels any existing timer for gameID and arms a new one for
// timeoutSeconds plus the grace period.
func (s *Service) StartTurn(gameID, playerID string, timeoutSeconds int, onTimeout func(playerID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(gameID)

	d := time.Duration(timeoutSeconds)*time.Second + s.gracePeriod
	e := &entry{
		playerID:  playerID,
		timeout:   d,
		deadline:  time.Now().Add(d),
		onTimeout: onTimeout,
	}
	e.osTimer = time.AfterFunc(d, func() { s.fire(gameID) })
	s.timers[gameID] = e
}

// CancelTurn clears any armed timer for gameID. Safe to call when none is
// armed.
func (s *Service) CancelTurn(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(gameID)
}

func (s *Service) cancelLocked(gameID string) {
	if e, ok := s.timers[gameID]; ok {
		if e.osTimer != nil {
			e.osTimer.Stop()
		}
		delete(s.timers, gameID)
	}
}

// PauseTurn records the remaining duration and tears down the OS timer
// without losing track of who was on the clock.
func (s *Service) PauseTurn(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[gameID]
	if !ok || e.paused {
		return
	}
	if e.osTimer != nil {
		e.osTimer.Stop()
	}
	e.paused = true
	e.pausedAt = time.Now()
	e.remainingAtPause = time.Until(e.deadline)
}

// ResumeTurn rearms for exactly the remaining duration recorded at pause.
// If that remaining duration is zero or negative, the timeout fires
// immediately.
func (s *Service) ResumeTurn(gameID string) {
	s.mu.Lock()
	e, ok := s.timers[gameID]
	if !ok || !e.paused {
		s.mu.Unlock()
		return
	}
	remaining := e.remainingAtPause
	e.paused = false
	e.deadline = time.Now().Add(remaining)
	if remaining <= 0 {
		s.mu.Unlock()
		s.fire(gameID)
		return
	}
	e.osTimer = time.AfterFunc(remaining, func() { s.fire(gameID) })
	s.mu.Unlock()
}

func (s *Service) fire(gameID string) {
	s.mu.Lock()
	e, ok := s.timers[gameID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.timers, gameID)
	cb := e.onTimeout
	playerID := e.playerID
	s.mu.Unlock()
	if cb != nil {
		cb(playerID)
	}
}

// Active reports whether a timer is currently armed (not paused) for gameID.
func (s *Service) Active(gameID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[gameID]
	return ok && !e.paused
}
