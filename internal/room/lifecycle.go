package room

import (
	"time"

	"cardroom/internal/events"
	"cardroom/internal/roomerrors"
)

// JoinRoom implements spec.md §4.1's "Join room (by code)". It takes the
// room id; callers holding a code resolve it first via GetRoomByCode.
func (reg *Registry) JoinRoom(roomID, userID, userName string, bypassPrivate bool) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isKicked(userID) {
		return Snapshot{}, roomerrors.Forbidden("you have been removed from this room")
	}
	if r.IsPrivate && !bypassPrivate && !r.hasUser(userID) {
		return Snapshot{}, roomerrors.ForbiddenCode("PRIVATE_ROOM", "this room is private")
	}
	if r.hasUser(userID) {
		return reg.snapshotLocked(r), nil
	}
	if r.State == StateInGame && !r.IsPaused {
		return Snapshot{}, roomerrors.Conflict("game already in progress")
	}
	if r.MaxPlayers > 0 && len(r.Users) >= r.MaxPlayers {
		return Snapshot{}, roomerrors.Conflict("room is full")
	}

	r.Users = append(r.Users, User{ID: userID, Name: userName, Connected: true})
	r.ReadyStates[userID] = false
	reg.cancelScheduledRoomDeletionLocked(r)

	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.UserJoined, events.NewRoomEnvelope(events.UserJoined, snap, nil))
	return snap, nil
}

// PromoteLeader is explicit promotion by the current leader (spec.md §4.1).
func (reg *Registry) PromoteLeader(roomID, callerID, newLeaderID string) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LeaderID != callerID {
		return Snapshot{}, roomerrors.Forbidden("only the leader may promote")
	}
	if !r.hasUser(newLeaderID) {
		return Snapshot{}, roomerrors.BadRequest("new leader must be a current member")
	}
	r.LeaderID = newLeaderID
	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.LeaderPromoted, events.NewRoomEnvelope(events.LeaderPromoted, snap, nil))
	return snap, nil
}

func (reg *Registry) promoteNewLeaderLocked(r *Room, exclude string, requireConnected bool) {
	var candidate string
	var ok bool
	if requireConnected {
		candidate, ok = r.firstConnectedUserID(exclude)
	} else {
		candidate, ok = r.firstUserID(exclude)
	}
	if ok {
		r.LeaderID = candidate
	}
}

// CloseRoom: leader-only (spec.md §4.1).
func (reg *Registry) CloseRoom(roomID, callerID string) error {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	if r.LeaderID != callerID {
		r.mu.Unlock()
		return roomerrors.Forbidden("only the leader may close the room")
	}
	reg.cancelScheduledRoomDeletionLocked(r)
	reg.cancelReconnectAbortLocked(r)
	if r.GameID != "" {
		reg.games.RemoveGame(r.GameID)
	}
	r.mu.Unlock()

	reg.mu.Lock()
	delete(reg.joinRequests, roomID)
	reg.mu.Unlock()
	reg.deleteRoom(roomID)
	return nil
}

// scheduleEmptyRoomDeletionLocked arms the TTL timer. Deletion is skipped
// in development mode (spec.md §4.1).
func (reg *Registry) scheduleEmptyRoomDeletionLocked(r *Room) {
	if reg.cfg != nil && reg.cfg.IsDevelopment() {
		return
	}
	ttl := 300 * time.Second
	if reg.cfg != nil {
		ttl = reg.cfg.RoomEmptyTTL
	}
	reg.cancelScheduledRoomDeletionLocked(r)
	roomID := r.ID
	r.deletionTimer = time.AfterFunc(ttl, func() {
		reg.deleteRoom(roomID)
	})
}

func (reg *Registry) cancelScheduledRoomDeletionLocked(r *Room) {
	if r.deletionTimer != nil {
		r.deletionTimer.Stop()
		r.deletionTimer = nil
	}
}

// SetTeams validates and stores a team layout. strict=true requires every
// slot filled (used for game start); strict=false allows partial slots
// (used for UI edits). Leader-only (spec.md §4.2).
func (reg *Registry) SetTeams(roomID, callerID string, teams [][]string, strict bool) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LeaderID != callerID {
		return Snapshot{}, roomerrors.Forbidden("only the leader may set teams")
	}
	if err := validateTeams(r, teams, strict); err != nil {
		return Snapshot{}, err
	}
	r.Teams = teams
	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.TeamsSet, events.NewRoomEnvelope(events.TeamsSet, snap, nil))
	return snap, nil
}

func validateTeams(r *Room, teams [][]string, strict bool) error {
	seen := map[string]bool{}
	for _, team := range teams {
		for _, uid := range team {
			if uid == emptySlot {
				if strict {
					return roomerrors.BadRequest("all team slots must be filled to start")
				}
				continue
			}
			if seen[uid] {
				return roomerrors.BadRequest("duplicate player %q across teams", uid)
			}
			seen[uid] = true
			if !r.hasUser(uid) {
				return roomerrors.BadRequest("player %q is not a current member", uid)
			}
		}
	}
	return nil
}

// RandomizeTeams shuffles the member list and deals round-robin into
// numTeams teams of playersPerTeam slots (spec.md §4.2).
func (reg *Registry) RandomizeTeams(roomID, callerID string, numTeams, playersPerTeam int, shuffle func([]string)) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LeaderID != callerID {
		return Snapshot{}, roomerrors.Forbidden("only the leader may randomize teams")
	}
	members := append([]string(nil), r.userIDs()...)
	shuffle(members)

	teams := make([][]string, numTeams)
	for i := range teams {
		teams[i] = make([]string, playersPerTeam)
		for j := range teams[i] {
			teams[i][j] = emptySlot
		}
	}
	idx := 0
	for _, uid := range members {
		t, s := idx%numTeams, idx/numTeams
		if t < numTeams && s < playersPerTeam {
			teams[t][s] = uid
		}
		idx++
	}
	r.Teams = teams
	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.TeamsSet, events.NewRoomEnvelope(events.TeamsSet, snap, nil))
	return snap, nil
}

// ToggleReady sets the caller's ready flag to ready.
func (reg *Registry) ToggleReady(roomID, userID string, ready bool) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasUser(userID) {
		return Snapshot{}, roomerrors.BadRequest("not a member of this room")
	}
	r.ReadyStates[userID] = ready
	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.UserReadyStateChanged, events.NewRoomEnvelope(events.UserReadyStateChanged, snap, nil))
	return snap, nil
}

// SelectGame sets the room's chosen game type (leader-only).
func (reg *Registry) SelectGame(roomID, callerID, gameType string) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LeaderID != callerID {
		return Snapshot{}, roomerrors.Forbidden("only the leader may select the game")
	}
	if _, ok := reg.games.Module(gameType); !ok {
		return Snapshot{}, roomerrors.BadRequest("unknown game type %q", gameType)
	}
	r.SelectedGameType = gameType
	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.GameSelected, events.NewRoomEnvelope(events.GameSelected, snap, nil))
	return snap, nil
}

// UpdateRoomSettings merges patch into the room-level settings as given,
// without validation (leader-only).
func (reg *Registry) UpdateRoomSettings(roomID, callerID string, patch map[string]any) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LeaderID != callerID {
		return Snapshot{}, roomerrors.Forbidden("only the leader may update room settings")
	}
	for k, v := range patch {
		r.Settings[k] = v
	}
	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.RoomSettingsUpdated, events.NewRoomEnvelope(events.RoomSettingsUpdated, snap, nil))
	return snap, nil
}

// UpdateGameSettings stores validated as the room's last-edited per-game
// settings (leader-only, spec.md §4.2). It does not validate; the caller
// checks the patch against the selected module's definitions first.
func (reg *Registry) UpdateGameSettings(roomID, callerID string, validated map[string]any) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LeaderID != callerID {
		return Snapshot{}, roomerrors.Forbidden("only the leader may update game settings")
	}
	r.GameSettings = validated
	snap := reg.snapshotLocked(r)
	reg.emitter.EmitToRoom(r.ID, events.GameSettingsUpdated, events.NewRoomEnvelope(events.GameSettingsUpdated, snap, nil))
	return snap, nil
}
