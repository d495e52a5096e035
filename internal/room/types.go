// Package room implements the room lifecycle manager, connection tracking
// and reconnect orchestration, and private-room join request manager
// (spec.md §4.1-§4.4). Grounded on engine/table_manager.go's TableManager
// (registry-of-entities-by-id shape) and
// platform/backend/internal/server/game/action_tracker.go (map + mutex +
// cleanup-goroutine shape, repurposed here for join-request rate limiting).
package room

import (
	"sync"
	"time"

	"cardroom/internal/engine"
)

const emptySlot = ""

type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

type RoomState string

const (
	StateLobby  RoomState = "lobby"
	StateInGame RoomState = "in-game"
	StateEnded  RoomState = "ended"
)

// JoinRequestRecord tracks one requester's private-room join attempts
// (spec.md §4.4).
type JoinRequestRecord struct {
	RequesterID   string    `json:"requesterId"`
	RequesterName string    `json:"requesterName"`
	RequestedAt   time.Time `json:"requestedAt"`
	Attempts      int       `json:"attempts"`
}

// Room is the full authoritative room record (spec.md §3). Every mutation
// runs under mu, matching engine.Table's per-entity mutex (SPEC_FULL.md §7).
type Room struct {
	mu sync.Mutex

	ID               string          `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Users            []User          `json:"users"`
	LeaderID         string          `json:"leaderId"`
	ReadyStates      map[string]bool `json:"readyStates"`
	State            RoomState       `json:"state"`
	GameID           string          `json:"gameId,omitempty"`
	SelectedGameType string          `json:"selectedGameType,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`

	IsPrivate    bool       `json:"isPrivate"`
	MaxPlayers   int        `json:"maxPlayers"`
	Teams        [][]string `json:"teams,omitempty"`
	Settings     map[string]any `json:"settings"`
	GameSettings map[string]any `json:"gameSettings"`

	IsPaused  bool       `json:"isPaused"`
	PausedAt  *time.Time `json:"pausedAt,omitempty"`
	TimeoutAt *time.Time `json:"timeoutAt,omitempty"`

	Spectators    []string `json:"spectators,omitempty"`
	KickedUserIDs []string `json:"kickedUserIds,omitempty"`

	// internal bookkeeping, not serialized
	deletionTimer       *time.Timer
	reconnectAbortTimer *time.Timer
}

// Snapshot is a value-copy of a Room's observable state, safe to emit and
// marshal outside the room's lock. Lifecycle operations return Snapshots so
// callers never hold a reference into live, mutex-guarded state.
type Snapshot struct {
	ID               string          `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Users            []User          `json:"users"`
	LeaderID         string          `json:"leaderId"`
	ReadyStates      map[string]bool `json:"readyStates"`
	State            RoomState       `json:"state"`
	GameID           string          `json:"gameId,omitempty"`
	SelectedGameType string          `json:"selectedGameType,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`

	IsPrivate    bool           `json:"isPrivate"`
	MaxPlayers   int            `json:"maxPlayers"`
	Teams        [][]string     `json:"teams,omitempty"`
	Settings     map[string]any `json:"settings"`
	GameSettings map[string]any `json:"gameSettings"`

	IsPaused  bool       `json:"isPaused"`
	PausedAt  *time.Time `json:"pausedAt,omitempty"`
	TimeoutAt *time.Time `json:"timeoutAt,omitempty"`

	Spectators    []string `json:"spectators,omitempty"`
	KickedUserIDs []string `json:"kickedUserIds,omitempty"`
}

func (r *Room) userIDs() []string {
	ids := make([]string, len(r.Users))
	for i, u := range r.Users {
		ids[i] = u.ID
	}
	return ids
}

func (r *Room) hasUser(userID string) bool {
	for _, u := range r.Users {
		if u.ID == userID {
			return true
		}
	}
	return false
}

func (r *Room) userIndex(userID string) int {
	for i, u := range r.Users {
		if u.ID == userID {
			return i
		}
	}
	return -1
}

func (r *Room) isKicked(userID string) bool {
	for _, id := range r.KickedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *Room) connectedCount() int {
	n := 0
	for _, u := range r.Users {
		if u.Connected {
			n++
		}
	}
	return n
}

func (r *Room) firstConnectedUserID(exclude string) (string, bool) {
	for _, u := range r.Users {
		if u.ID != exclude && u.Connected {
			return u.ID, true
		}
	}
	return "", false
}

func (r *Room) firstUserID(exclude string) (string, bool) {
	for _, u := range r.Users {
		if u.ID != exclude {
			return u.ID, true
		}
	}
	return "", false
}

func toEngineUsers(users []User) []engine.User {
	out := make([]engine.User, len(users))
	for i, u := range users {
		out[i] = engine.User{ID: u.ID, Name: u.Name, Connected: u.Connected}
	}
	return out
}
