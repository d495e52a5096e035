// Package engine implements the pluggable game-module framework: the
// reducer abstraction, per-type module registry, and per-game dispatch.
package engine

import (
	"sync"

	"cardroom/internal/engine/settings"
	"cardroom/internal/roomerrors"
)

// User is the minimal per-player identity a game module sees. The room
// layer owns the full User record (spec.md §3); only id/name/connected
// cross into game state.
type User struct {
	ID        string
	Name      string
	Connected bool
}

// State is the interface every module's concrete state satisfies so the
// registry can store heterogeneous game states behind one map.
type State interface {
	GameID() string
	PhaseName() string
}

// Action is a single dispatched action: a type tag plus free-form payload
// decoded by the owning module.
type Action struct {
	Type     string
	PlayerID string
	Data     map[string]any
}

// Module is a pluggable game implementation, matching spec.md §4.5.
type Module interface {
	Type() string
	Metadata() Metadata
	SettingsDefinitions() []settings.Definition
	DefaultSettings() map[string]any

	// teams carries the room's leader-assigned team slots (spec.md §4.2),
	// already strict-validated by the room layer; modules that don't
	// require teams (RequiresTeams=false) ignore it.
	Init(gameID, roomID string, users []User, teams [][]string, rawSettings map[string]any) (State, error)
	Reduce(state State, action Action) (State, error)

	// GetState strips private fields (hands) from state, replacing them with
	// counts, for broadcast to the whole room.
	GetState(state State) any
	// GetPlayerState projects state into a view revealing userID's private
	// data plus a seat-rotated ordering.
	GetPlayerState(state State, userID string) any

	// CheckMinimumPlayers reports whether enough connected players remain
	// for the game to continue.
	CheckMinimumPlayers(state State, connected map[string]bool) bool

	// OnReconnect/OnDisconnect are optional hooks; implementations that
	// don't need them can embed NoHooks.
	OnReconnect(state State, userID string) (State, error)
	OnDisconnect(state State, userID string) (State, error)
	// TransferSlot rewrites fromUserID's identity to toUserID, preserving
	// hand/bids/scores, for the spectator-claim path (spec.md §4.3).
	TransferSlot(state State, fromUserID, toUserID string) (State, error)

	// TimeoutAction builds the auto-action dispatched when a turn timer
	// fires (spec.md §4.9).
	TimeoutAction(state State, playerID string) (Action, error)
	// NextTimer reports whether the resulting state needs an armed turn
	// timer, and if so for whom and for how long.
	NextTimer(state State) (playerID string, timeoutSeconds int, ok bool)
}

// Metadata describes a module's shape for the /games HTTP surface.
type Metadata struct {
	Type           string `json:"type"`
	DisplayName    string `json:"displayName"`
	RequiresTeams  bool   `json:"requiresTeams"`
	MinPlayers     int    `json:"minPlayers"`
	MaxPlayers     int    `json:"maxPlayers"`
	NumTeams       int    `json:"numTeams,omitempty"`
	PlayersPerTeam int    `json:"playersPerTeam,omitempty"`
}

// Registry stores modules by type id and live games by gameId, matching
// engine/table_manager.go's TableManager shape generalized to multiple
// game types.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
	games   map[string]State
	owners  map[string]string // gameId -> roomId, for dispatch bookkeeping
}

func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
		games:   make(map[string]State),
		owners:  make(map[string]string),
	}
}

func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.Type()] = m
}

func (r *Registry) Module(gameType string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[gameType]
	return m, ok
}

func (r *Registry) ListModules() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m.Metadata())
	}
	return out
}

// CreateGame initializes a new game via its module and stores it under a
// fresh gameId owned by roomID.
func (r *Registry) CreateGame(gameID, roomID, gameType string, users []User, teams [][]string, rawSettings map[string]any) (State, error) {
	m, ok := r.Module(gameType)
	if !ok {
		return nil, roomerrors.BadRequest("unknown game type %q", gameType)
	}
	state, err := m.Init(gameID, roomID, users, teams, rawSettings)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.games[gameID] = state
	r.owners[gameID] = roomID
	r.mu.Unlock()
	return state, nil
}

func (r *Registry) GetGame(gameID string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.games[gameID]
	return s, ok
}

func (r *Registry) RemoveGame(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, gameID)
	delete(r.owners, gameID)
}

// Dispatch is the single mutation entry point: look up state, call the
// owning module's reducer, and write the result atomically. A reducer error
// never partially mutates stored state.
func (r *Registry) Dispatch(gameID string, gameType string, action Action) (State, error) {
	m, ok := r.Module(gameType)
	if !ok {
		return nil, roomerrors.Internal("dispatch: unknown game type %q", gameType)
	}
	r.mu.RLock()
	state, ok := r.games[gameID]
	r.mu.RUnlock()
	if !ok {
		return nil, roomerrors.NotFound("game %q not found", gameID)
	}

	next, err := m.Reduce(state, action)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.games[gameID] = next
	r.mu.Unlock()
	return next, nil
}

// MutateGame stores a state object produced outside of Dispatch (used by
// the connection tracker for reconnect/disconnect/slot-transfer hooks,
// which are not player actions but still commit atomically).
func (r *Registry) MutateGame(gameID string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[gameID] = state
}
