package room

import (
	"time"

	"cardroom/internal/engine"
	"cardroom/internal/events"
	"cardroom/internal/roomerrors"
)

// RegisterResult tells the caller (transport) whether to forcibly close a
// stale socket for the same user (spec.md §4.3 "Register").
type RegisterResult struct {
	AlreadyConnectedSocketID string
}

// Register binds a new socket to (roomId,userId) after the transport
// reports a connection carrying the handshake (spec.md §4.3).
func (reg *Registry) Register(socketID, roomID, userID string) (RegisterResult, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return RegisterResult{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isKicked(userID) {
		return RegisterResult{}, roomerrors.Forbidden("you have been removed from this room")
	}

	var result RegisterResult
	reg.mu.Lock()
	if existingSocket, ok := reg.userToSocket[userID]; ok {
		if binding, ok := reg.socketToUser[existingSocket]; ok && binding.RoomID == roomID {
			result.AlreadyConnectedSocketID = existingSocket
		}
	}
	reg.socketToUser[socketID] = socketBinding{RoomID: roomID, UserID: userID}
	reg.userToSocket[userID] = socketID
	reg.mu.Unlock()

	idx := r.userIndex(userID)
	if idx >= 0 && !r.Users[idx].Connected {
		r.Users[idx].Connected = true
		if r.State == StateInGame && r.GameID != "" {
			reg.callReconnectHookLocked(r, userID)
			reg.emitter.EmitToRoom(r.ID, events.UserReconnected, events.NewRoomEnvelope(events.UserReconnected, reg.snapshotLocked(r), nil))
			reg.syncPlayerLocked(r, userID)
		}
	}

	if r.State == StateInGame && r.IsPaused {
		if idx >= 0 && !isSpectator(r, userID) {
			r.Users[idx].Connected = true
			reg.maybeResumeLocked(r)
		}
	}

	return result, nil
}

func isSpectator(r *Room, userID string) bool {
	for _, id := range r.Spectators {
		if id == userID {
			return true
		}
	}
	return false
}

func (reg *Registry) callReconnectHookLocked(r *Room, userID string) {
	module, ok := reg.games.Module(r.SelectedGameType)
	if !ok {
		return
	}
	state, ok := reg.games.GetGame(r.GameID)
	if !ok {
		return
	}
	next, err := module.OnReconnect(state, userID)
	if err != nil {
		return
	}
	reg.games.MutateGame(r.GameID, next)
}

// syncPlayerLocked unicasts the caller's private game projection so a
// freshly reconnected client can redraw its hand without waiting for the
// next action's fan-out.
func (reg *Registry) syncPlayerLocked(r *Room, userID string) {
	module, ok := reg.games.Module(r.SelectedGameType)
	if !ok {
		return
	}
	state, ok := reg.games.GetGame(r.GameID)
	if !ok {
		return
	}
	reg.emitter.EmitToUser(userID, events.Sync, events.NewGamePlayerEnvelope(events.Sync, module.GetPlayerState(state, userID), nil))
}

func (reg *Registry) maybeResumeLocked(r *Room) {
	module, ok := reg.games.Module(r.SelectedGameType)
	if !ok {
		return
	}
	state, ok := reg.games.GetGame(r.GameID)
	if !ok {
		return
	}
	if !module.CheckMinimumPlayers(state, connectedMap(r)) {
		return
	}
	reg.resumeGameLocked(r, module, state)
}

// Disconnect handles a reported socket drop (spec.md §4.3 "Disconnect").
func (reg *Registry) Disconnect(socketID string) {
	reg.mu.Lock()
	binding, ok := reg.socketToUser[socketID]
	if !ok {
		reg.mu.Unlock()
		return
	}
	delete(reg.socketToUser, socketID)
	superseded := reg.userToSocket[binding.UserID] != socketID
	if !superseded {
		delete(reg.userToSocket, binding.UserID)
	}
	reg.mu.Unlock()

	// A newer socket for the same user already took over (spec.md §5's
	// duplicate-connection policy): the close of the stale socket must not
	// touch the roster.
	if superseded {
		return
	}

	r, ok := reg.GetRoomByID(binding.RoomID)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.userIndex(binding.UserID)
	if idx < 0 {
		return
	}

	if r.State == StateInGame {
		r.Users[idx].Connected = false
		reg.callDisconnectHookLocked(r, binding.UserID)

		module, ok := reg.games.Module(r.SelectedGameType)
		if ok {
			if state, ok := reg.games.GetGame(r.GameID); ok && !module.CheckMinimumPlayers(state, connectedMap(r)) {
				reg.pauseGameLocked(r, module, state)
			}
		}
		if r.LeaderID == binding.UserID {
			reg.promoteNewLeaderLocked(r, binding.UserID, true)
			reg.emitter.EmitToRoom(r.ID, events.LeaderPromoted, events.NewRoomEnvelope(events.LeaderPromoted, reg.snapshotLocked(r), nil))
		}
		reg.emitter.EmitToRoom(r.ID, events.UserDisconnected, events.NewRoomEnvelope(events.UserDisconnected, reg.snapshotLocked(r), nil))
		return
	}

	// lobby/ended: remove outright
	r.Users = append(r.Users[:idx], r.Users[idx+1:]...)
	delete(r.ReadyStates, binding.UserID)
	reg.removeFromTeamsLocked(r, binding.UserID)
	if r.LeaderID == binding.UserID {
		reg.promoteNewLeaderLocked(r, binding.UserID, false)
	}
	reg.emitter.EmitToRoom(r.ID, events.UserLeft, events.NewRoomEnvelope(events.UserLeft, reg.snapshotLocked(r), nil))
	if len(r.Users) == 0 {
		reg.scheduleEmptyRoomDeletionLocked(r)
	}
}

func (reg *Registry) callDisconnectHookLocked(r *Room, userID string) {
	module, ok := reg.games.Module(r.SelectedGameType)
	if !ok {
		return
	}
	state, ok := reg.games.GetGame(r.GameID)
	if !ok {
		return
	}
	next, err := module.OnDisconnect(state, userID)
	if err != nil {
		return
	}
	reg.games.MutateGame(r.GameID, next)
}

// pauseGameLocked pauses the turn timer, records pause bookkeeping, and
// arms the reconnect-abort timer (spec.md §4.3).
func (reg *Registry) pauseGameLocked(r *Room, module engine.Module, state engine.State) {
	if r.IsPaused {
		return
	}
	now := time.Now()
	r.IsPaused = true
	r.PausedAt = &now
	reconnectTimeout := 120 * time.Second
	if reg.cfg != nil {
		reconnectTimeout = reg.cfg.ReconnectTimeout
	}
	timeoutAt := now.Add(reconnectTimeout)
	r.TimeoutAt = &timeoutAt

	reg.timers.PauseTurn(r.GameID)
	reg.armReconnectAbortLocked(r, reconnectTimeout)
	reg.emitter.EmitToRoom(r.ID, events.GamePaused, events.NewRoomEnvelope(events.GamePaused, reg.snapshotLocked(r), nil))
}

// resumeGameLocked clears pause bookkeeping, cancels the reconnect-abort
// timer, and resumes the turn timer (spec.md §4.3).
func (reg *Registry) resumeGameLocked(r *Room, module engine.Module, state engine.State) {
	if !r.IsPaused {
		return
	}
	r.IsPaused = false
	r.PausedAt = nil
	r.TimeoutAt = nil
	reg.cancelReconnectAbortLocked(r)
	reg.timers.ResumeTurn(r.GameID)
	reg.emitter.EmitToRoom(r.ID, events.GameResumed, events.NewRoomEnvelope(events.GameResumed, reg.snapshotLocked(r), nil))
}

func (reg *Registry) armReconnectAbortLocked(r *Room, timeout time.Duration) {
	reg.cancelReconnectAbortLocked(r)
	roomID := r.ID
	r.reconnectAbortTimer = time.AfterFunc(timeout, func() {
		reg.handleReconnectAbort(roomID)
	})
}

func (reg *Registry) cancelReconnectAbortLocked(r *Room) {
	if r.reconnectAbortTimer != nil {
		r.reconnectAbortTimer.Stop()
		r.reconnectAbortTimer = nil
	}
}

// handleReconnectAbort fires after RECONNECT_TIMEOUT: disposes the game,
// returns the room to lobby, and emits game_aborted(reconnect_timeout)
// (spec.md §4.3).
func (reg *Registry) handleReconnectAbort(roomID string) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.IsPaused {
		return
	}

	reg.abortGameLocked(r)

	if !anyConnected(r) {
		r.Users = nil
		r.ReadyStates = map[string]bool{}
		reg.scheduleEmptyRoomDeletionLocked(r)
	}

	reg.emitter.EmitToRoom(r.ID, events.GameAborted, events.NewRoomEnvelope(events.GameAborted, reg.snapshotLocked(r), map[string]any{
		"reason": "reconnect_timeout",
	}))
}

func anyConnected(r *Room) bool {
	for _, u := range r.Users {
		if u.Connected {
			return true
		}
	}
	return false
}

// Kick is leader-only: adds target to the kick-list, removes them from the
// roster/teams, and aborts or resumes the game depending on quorum
// (spec.md §4.3).
func (reg *Registry) Kick(roomID, callerID, targetID string) (string, Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return "", Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.LeaderID != callerID {
		return "", Snapshot{}, roomerrors.Forbidden("only the leader may kick")
	}
	if !r.hasUser(targetID) {
		return "", Snapshot{}, roomerrors.BadRequest("not a member of this room")
	}

	r.KickedUserIDs = append(r.KickedUserIDs, targetID)

	reg.mu.Lock()
	socketID := reg.userToSocket[targetID]
	reg.mu.Unlock()

	idx := r.userIndex(targetID)
	wasPausedForTarget := r.IsPaused
	r.Users = append(r.Users[:idx], r.Users[idx+1:]...)
	delete(r.ReadyStates, targetID)
	reg.removeFromTeamsLocked(r, targetID)

	if r.LeaderID == targetID {
		reg.promoteNewLeaderLocked(r, targetID, r.State == StateInGame)
	}

	if r.State == StateInGame && r.GameID != "" {
		module, ok := reg.games.Module(r.SelectedGameType)
		if ok {
			state, ok := reg.games.GetGame(r.GameID)
			if ok {
				if !module.CheckMinimumPlayers(state, connectedMap(r)) {
					// A kicked player can never reconnect, so there is no
					// point pausing for them: tear the game down now.
					reg.abortGameLocked(r)
					reg.emitter.EmitToRoom(r.ID, events.GameAborted, events.NewRoomEnvelope(events.GameAborted, reg.snapshotLocked(r), map[string]any{
						"reason": "player_kicked",
					}))
				} else if wasPausedForTarget {
					reg.maybeResumeLocked(r)
				}
			}
		}
	}

	if len(r.Users) == 0 {
		reg.scheduleEmptyRoomDeletionLocked(r)
	}

	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.UserKicked, events.NewRoomEnvelope(events.UserKicked, snap, nil))
	return socketID, snap, nil
}

// ClaimSlot lets an existing spectator take over a disconnected player's
// seat (spec.md §4.3).
func (reg *Registry) ClaimSlot(roomID, requesterID, targetUserID string) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !isSpectator(r, requesterID) {
		return Snapshot{}, roomerrors.Forbidden("only a spectator may claim a slot")
	}
	if r.GameID == "" {
		return Snapshot{}, roomerrors.Conflict("no active game")
	}
	module, ok := reg.games.Module(r.SelectedGameType)
	if !ok {
		return Snapshot{}, roomerrors.Internal("unknown game type")
	}
	state, ok := reg.games.GetGame(r.GameID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("game not found")
	}

	next, err := module.TransferSlot(state, targetUserID, requesterID)
	if err != nil {
		return Snapshot{}, err
	}
	reg.games.MutateGame(r.GameID, next)

	idx := r.userIndex(targetUserID)
	if idx >= 0 {
		r.Users[idx].ID = requesterID
		r.Users[idx].Connected = true
		if ready, ok := r.ReadyStates[targetUserID]; ok {
			r.ReadyStates[requesterID] = ready
			delete(r.ReadyStates, targetUserID)
		}
	}
	for i := range r.Teams {
		for j, uid := range r.Teams[i] {
			if uid == targetUserID {
				r.Teams[i][j] = requesterID
			}
		}
	}
	reg.removeSpectatorLocked(r, requesterID)

	if module.CheckMinimumPlayers(next, connectedMap(r)) {
		reg.resumeGameLocked(r, module, next)
	}

	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.PlayerSlotClaimed, events.NewRoomEnvelope(events.PlayerSlotClaimed, snap, nil))
	return snap, nil
}

func (reg *Registry) removeSpectatorLocked(r *Room, userID string) {
	out := r.Spectators[:0]
	for _, id := range r.Spectators {
		if id != userID {
			out = append(out, id)
		}
	}
	r.Spectators = out
}
