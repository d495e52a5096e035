package room

import (
	"cardroom/internal/events"
	"cardroom/internal/roomerrors"
)

// JoinAsSpectator attaches a user to an in-game room without occupying a
// player seat. Unlike JoinRoom's replacement-player path (which requires
// isPaused), a spectator may attach to a live, unpaused round — they later
// use ClaimSlot to take over a disconnected seat (spec.md Glossary
// "Spectator").
func (reg *Registry) JoinAsSpectator(roomID, userID string) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isKicked(userID) {
		return Snapshot{}, roomerrors.Forbidden("you have been removed from this room")
	}
	if r.State != StateInGame {
		return Snapshot{}, roomerrors.Conflict("no active game to spectate")
	}
	if r.hasUser(userID) || isSpectator(r, userID) {
		return reg.snapshotLocked(r), nil
	}

	r.Spectators = append(r.Spectators, userID)

	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.PlayerMovedToSpectators, events.NewRoomEnvelope(events.PlayerMovedToSpectators, snap, nil))
	return snap, nil
}

// AbortGame is leader-only: tears down the active game and returns the
// room to lobby without waiting for a reconnect-timeout.
func (reg *Registry) AbortGame(roomID, callerID string) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.LeaderID != callerID {
		return Snapshot{}, roomerrors.Forbidden("only the leader may abort the game")
	}
	if r.State != StateInGame {
		return Snapshot{}, roomerrors.Conflict("no active game")
	}

	reg.abortGameLocked(r)

	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.GameAborted, events.NewRoomEnvelope(events.GameAborted, snap, map[string]any{
		"reason": "leader_aborted",
	}))
	return snap, nil
}

// abortGameLocked tears down the active game and returns the room to lobby:
// reconnect-abort and turn timers cancelled, game state disposed, ready
// flags reset. Caller must hold r.mu and emit the game_aborted envelope
// with its reason.
func (reg *Registry) abortGameLocked(r *Room) {
	reg.cancelReconnectAbortLocked(r)
	if r.GameID != "" {
		reg.timers.CancelTurn(r.GameID)
		reg.games.RemoveGame(r.GameID)
	}
	r.GameID = ""
	r.State = StateLobby
	r.IsPaused = false
	r.PausedAt = nil
	r.TimeoutAt = nil
	for uid := range r.ReadyStates {
		r.ReadyStates[uid] = false
	}
}
