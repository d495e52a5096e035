package room

import (
	"cardroom/internal/engine"
	"cardroom/internal/events"
	"cardroom/internal/roomerrors"

	"github.com/google/uuid"
)

// StartGame implements spec.md §4.2's start-game preconditions: leader-only,
// every member ready, strict team validation when the module requires
// teams, then initializes the game and transitions the room to in-game.
func (reg *Registry) StartGame(roomID, callerID string) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.LeaderID != callerID {
		return Snapshot{}, roomerrors.Forbidden("only the leader may start the game")
	}
	if r.SelectedGameType == "" {
		return Snapshot{}, roomerrors.BadRequest("no game type selected")
	}
	module, ok := reg.games.Module(r.SelectedGameType)
	if !ok {
		return Snapshot{}, roomerrors.BadRequest("unknown game type %q", r.SelectedGameType)
	}
	for _, u := range r.Users {
		if !r.ReadyStates[u.ID] {
			return Snapshot{}, roomerrors.BadRequest("all members must be ready")
		}
	}
	meta := module.Metadata()
	if meta.RequiresTeams {
		if err := validateTeams(r, r.Teams, true); err != nil {
			return Snapshot{}, err
		}
	}

	for i := range r.Users {
		r.Users[i].Connected = true
	}

	gameID := uuid.New().String()
	state, err := reg.games.CreateGame(gameID, r.ID, r.SelectedGameType, toEngineUsers(r.Users), r.Teams, r.GameSettings)
	if err != nil {
		return Snapshot{}, err
	}
	r.GameID = gameID
	r.State = StateInGame
	r.IsPaused = false
	r.PausedAt = nil
	r.TimeoutAt = nil

	reg.armTimerIfNeeded(r, module, state)

	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.GameStarted, events.NewRoomEnvelope(events.GameStarted, snap, nil))
	reg.publishGameStateLocked(r, module, state)
	return snap, nil
}

// armTimerIfNeeded starts a turn timer when the module's current phase
// requires one (spec.md §4.2, §4.9).
func (reg *Registry) armTimerIfNeeded(r *Room, module engine.Module, state engine.State) {
	playerID, timeoutSeconds, ok := module.NextTimer(state)
	if !ok {
		return
	}
	gameID := r.GameID
	reg.timers.StartTurn(gameID, playerID, timeoutSeconds, func(pid string) {
		reg.handleTurnTimeout(r.ID, gameID, pid)
	})
}

// publishGameStateLocked emits the public game envelope to the room and a
// per-player envelope to each participant. Caller must hold r.mu.
func (reg *Registry) publishGameStateLocked(r *Room, module engine.Module, state engine.State) {
	reg.emitter.EmitToRoom(r.ID, events.Sync, events.NewGamePublicEnvelope(events.Sync, module.GetState(state), nil))
	for _, u := range r.Users {
		reg.emitter.EmitToUser(u.ID, events.Sync, events.NewGamePlayerEnvelope(events.Sync, module.GetPlayerState(state, u.ID), nil))
	}
}
