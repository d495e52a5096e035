package room

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardroom/internal/config"
	"cardroom/internal/engine"
	"cardroom/internal/events"
	"cardroom/internal/roomerrors"
	"cardroom/internal/timer"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Registry is the process-wide index of rooms by id and by code, plus the
// socket<->user connection indices (spec.md §4.1/§4.3). It only ever
// guards indices; room and game state are guarded by each Room's own
// mutex (SPEC_FULL.md §7). Grounded on engine/table_manager.go's
// TableManager{tables map, mu}.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	codes map[string]string // code -> roomId

	socketToUser map[string]socketBinding // socketId -> {roomId, userId}
	userToSocket map[string]string        // userId -> socketId (one active connection per user)

	joinRequests map[string]map[string]*JoinRequestRecord // roomId -> requesterId -> record

	games   *engine.Registry
	emitter events.Emitter
	timers  *timer.Service
	cfg     *config.Config
}

type socketBinding struct {
	RoomID string
	UserID string
}

// SetEmitter wires the transport after construction, breaking the
// construction cycle between Registry and a transport.Server that itself
// needs a *Registry to resolve room membership for broadcast (spec.md §6).
// Must be called once, before any room mutation, and is not safe for
// concurrent use with other Registry methods.
func (reg *Registry) SetEmitter(emitter events.Emitter) {
	reg.emitter = emitter
}

func NewRegistry(games *engine.Registry, emitter events.Emitter, timers *timer.Service, cfg *config.Config) *Registry {
	return &Registry{
		rooms:        make(map[string]*Room),
		codes:        make(map[string]string),
		socketToUser: make(map[string]socketBinding),
		userToSocket: make(map[string]string),
		joinRequests: make(map[string]map[string]*JoinRequestRecord),
		games:        games,
		emitter:      emitter,
		timers:       timers,
		cfg:          cfg,
	}
}

// generateCodeLocked draws candidate codes until one misses the live-code
// index. Caller must hold reg.mu for writing so the check and the insert
// are one atomic step.
func (reg *Registry) generateCodeLocked() (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		if _, exists := reg.codes[code]; !exists {
			return code, nil
		}
	}
	return "", roomerrors.Internal("failed to generate a unique room code")
}

func randomCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 6)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

// CreateRoom creates a new room with creator as sole member and leader
// (spec.md §4.1).
func (reg *Registry) CreateRoom(name string, creatorID, creatorName string, isPrivate bool, maxPlayers int) (*Room, error) {
	r := &Room{
		ID:           uuid.New().String(),
		Name:         name,
		Users:        []User{{ID: creatorID, Name: creatorName, Connected: true}},
		LeaderID:     creatorID,
		ReadyStates:  map[string]bool{creatorID: false},
		State:        StateLobby,
		CreatedAt:    time.Now(),
		IsPrivate:    isPrivate,
		MaxPlayers:   maxPlayers,
		Settings:     map[string]any{},
		GameSettings: map[string]any{},
	}

	reg.mu.Lock()
	code, err := reg.generateCodeLocked()
	if err != nil {
		reg.mu.Unlock()
		return nil, err
	}
	r.Code = code
	reg.rooms[r.ID] = r
	reg.codes[code] = r.ID
	reg.mu.Unlock()

	r.mu.Lock()
	snap := reg.snapshotLocked(r)
	r.mu.Unlock()
	reg.emitter.EmitToRoom(r.ID, events.RoomCreated, events.NewRoomEnvelope(events.RoomCreated, snap, nil))
	return r, nil
}

// GetRoomByID looks up a room by id.
func (reg *Registry) GetRoomByID(id string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[id]
	return r, ok
}

// GetRoomByCode normalizes the code to upper case before lookup (spec.md §4.1).
func (reg *Registry) GetRoomByCode(code string) (*Room, bool) {
	code = normalizeCode(code)
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	id, ok := reg.codes[code]
	if !ok {
		return nil, false
	}
	r, ok := reg.rooms[id]
	return r, ok
}

// SnapshotByID returns a value-copy of the room's observable state, for
// callers outside this package that must not read live, mutex-guarded
// fields (the HTTP handlers and the WebSocket action dispatch).
func (reg *Registry) SnapshotByID(roomID string) (Snapshot, bool) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return reg.snapshotLocked(r), true
}

// RoomMemberIDs returns every user id currently attached to a room
// (players and spectators), for the transport's room broadcast fan-out.
func (reg *Registry) RoomMemberIDs(roomID string) []string {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.Users)+len(r.Spectators))
	for _, u := range r.Users {
		ids = append(ids, u.ID)
	}
	ids = append(ids, r.Spectators...)
	return ids
}

func normalizeCode(code string) string {
	out := make([]byte, 0, len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// deleteRoom removes a room from both indices. Caller must not hold the
// room's own lock when calling this (it only touches the registry lock).
func (reg *Registry) deleteRoom(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.rooms[roomID]; ok {
		delete(reg.codes, r.Code)
		delete(reg.rooms, roomID)
	}
	delete(reg.joinRequests, roomID)
}

// snapshotLocked returns a value-copy of r suitable for emission. Caller
// must hold r.mu (or be constructing r before publishing it).
func (reg *Registry) snapshotLocked(r *Room) Snapshot {
	return Snapshot{
		ID:               r.ID,
		Code:             r.Code,
		Name:             r.Name,
		Users:            append([]User(nil), r.Users...),
		LeaderID:         r.LeaderID,
		ReadyStates:      copyBoolMap(r.ReadyStates),
		State:            r.State,
		GameID:           r.GameID,
		SelectedGameType: r.SelectedGameType,
		CreatedAt:        r.CreatedAt,
		IsPrivate:        r.IsPrivate,
		MaxPlayers:       r.MaxPlayers,
		Teams:            copyTeams(r.Teams),
		Settings:         copyAnyMap(r.Settings),
		GameSettings:     copyAnyMap(r.GameSettings),
		IsPaused:         r.IsPaused,
		PausedAt:         r.PausedAt,
		TimeoutAt:        r.TimeoutAt,
		Spectators:       append([]string(nil), r.Spectators...),
		KickedUserIDs:    append([]string(nil), r.KickedUserIDs...),
	}
}

func copyBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyAnyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTeams(teams [][]string) [][]string {
	if teams == nil {
		return nil
	}
	out := make([][]string, len(teams))
	for i, t := range teams {
		out[i] = append([]string(nil), t...)
	}
	return out
}
