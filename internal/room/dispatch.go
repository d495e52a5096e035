package room

import (
	"cardroom/internal/engine"
	"cardroom/internal/events"
	"cardroom/internal/roomerrors"
)

// DispatchAction is the single entry point for in-game player actions
// (PLACE_BID, PLAY_CARD, PLACE_TILE, PASS, CONTINUE_AFTER_TRICK_RESULT,
// CONTINUE_AFTER_ROUND_SUMMARY). It cancels the current turn timer before
// delivering the action, dispatches through the engine registry, and
// arms a new timer based on the resulting state (spec.md §4.9).
func (reg *Registry) DispatchAction(roomID string, action engine.Action) (any, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return nil, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State != StateInGame || r.GameID == "" {
		return nil, roomerrors.Conflict("no active game")
	}
	module, ok := reg.games.Module(r.SelectedGameType)
	if !ok {
		return nil, roomerrors.Internal("unknown game type %q", r.SelectedGameType)
	}

	reg.timers.CancelTurn(r.GameID)

	next, err := reg.games.Dispatch(r.GameID, r.SelectedGameType, action)
	if err != nil {
		// re-arm the timer for the turn that was in progress; the failed
		// action must not silently drop the clock.
		if state, ok := reg.games.GetGame(r.GameID); ok {
			reg.armTimerIfNeeded(r, module, state)
		}
		return nil, err
	}

	reg.armTimerIfNeeded(r, module, next)
	reg.publishGameStateLocked(r, module, next)
	return module.GetState(next), nil
}

// handleTurnTimeout is the timer service's callback: it builds the
// module's auto-action and dispatches it through the normal reducer path
// (spec.md §4.9).
func (reg *Registry) handleTurnTimeout(roomID, gameID, playerID string) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return
	}
	r.mu.Lock()
	if r.GameID != gameID || r.State != StateInGame {
		r.mu.Unlock()
		return
	}
	module, ok := reg.games.Module(r.SelectedGameType)
	if !ok {
		r.mu.Unlock()
		return
	}
	state, ok := reg.games.GetGame(gameID)
	if !ok {
		r.mu.Unlock()
		return
	}
	action, err := module.TimeoutAction(state, playerID)
	r.mu.Unlock()
	if err != nil || action.Type == "" {
		return
	}

	if _, err := reg.DispatchAction(roomID, action); err != nil {
		// A timeout racing a just-delivered human action is expected and
		// harmless; the failure is reported in the turn_timeout event data.
		reg.emitTurnTimeout(roomID, map[string]any{"playerId": playerID, "error": err.Error()})
		return
	}
	reg.emitTurnTimeout(roomID, map[string]any{"playerId": playerID})
}

func (reg *Registry) emitTurnTimeout(roomID string, data map[string]any) {
	snap, ok := reg.SnapshotByID(roomID)
	if !ok {
		return
	}
	reg.emitter.EmitToRoom(roomID, events.TurnTimeout, events.NewRoomEnvelope(events.TurnTimeout, snap, data))
}

// LeaveGame removes a player from the room (not a reconnect candidate):
// drops them from the member list, ready states and their team slot,
// promotes a leader if needed, and pauses the game if below minimum
// (spec.md §4.3 "Leave game (voluntary)"). The game state itself is not
// changed: the player stays in the engine's play order and hands.
func (reg *Registry) LeaveGame(roomID, userID string) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	reg.removeFromTeamsLocked(r, userID)
	idx := r.userIndex(userID)
	if idx >= 0 {
		r.Users = append(r.Users[:idx], r.Users[idx+1:]...)
	}
	delete(r.ReadyStates, userID)

	if r.LeaderID == userID {
		reg.promoteNewLeaderLocked(r, userID, false)
	}

	if r.State == StateInGame && r.GameID != "" {
		reg.pauseIfBelowMinimumLocked(r)
	}
	if len(r.Users) == 0 {
		reg.scheduleEmptyRoomDeletionLocked(r)
	}

	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.UserLeft, events.NewRoomEnvelope(events.UserLeft, snap, nil))
	return snap, nil
}

func (reg *Registry) removeFromTeamsLocked(r *Room, userID string) {
	for i, team := range r.Teams {
		for j, uid := range team {
			if uid == userID {
				r.Teams[i][j] = emptySlot
			}
		}
	}
}

// pauseIfBelowMinimumLocked checks the module's quorum and, if unmet, pauses
// the game and arms the reconnect-abort timer (spec.md §4.3).
func (reg *Registry) pauseIfBelowMinimumLocked(r *Room) {
	module, ok := reg.games.Module(r.SelectedGameType)
	if !ok {
		return
	}
	state, ok := reg.games.GetGame(r.GameID)
	if !ok {
		return
	}
	connected := connectedMap(r)
	if module.CheckMinimumPlayers(state, connected) {
		return
	}
	reg.pauseGameLocked(r, module, state)
}

func connectedMap(r *Room) map[string]bool {
	m := make(map[string]bool, len(r.Users))
	for _, u := range r.Users {
		m[u.ID] = u.Connected
	}
	return m
}
