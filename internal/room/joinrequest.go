package room

import (
	"time"

	"cardroom/internal/events"
	"cardroom/internal/roomerrors"
)

// RequestJoin implements spec.md §4.4's rate-limited private-room join
// request. Grounded on the map+mutex+attempts-counter shape of
// platform/backend/internal/server/game/action_tracker.go, repurposed from
// action-idempotency tracking to per-requester cooldown/attempts.
func (reg *Registry) RequestJoin(code, requesterID, requesterName string) error {
	r, ok := reg.GetRoomByCode(code)
	if !ok {
		return roomerrors.NotFound("room not found")
	}

	r.mu.Lock()
	if !r.IsPrivate {
		r.mu.Unlock()
		return roomerrors.BadRequest("room is not private")
	}
	if r.hasUser(requesterID) {
		r.mu.Unlock()
		return roomerrors.Conflict("already a member")
	}
	if r.isKicked(requesterID) {
		r.mu.Unlock()
		return roomerrors.Forbidden("you have been removed from this room")
	}
	r.mu.Unlock()

	cooldown := 5 * time.Minute
	maxAttempts := 3
	if reg.cfg != nil {
		cooldown = reg.cfg.JoinRequestCooldown
		maxAttempts = reg.cfg.JoinRequestMaxAttempts
	}

	reg.mu.Lock()
	byRoom, ok := reg.joinRequests[r.ID]
	if !ok {
		byRoom = make(map[string]*JoinRequestRecord)
		reg.joinRequests[r.ID] = byRoom
	}
	rec, ok := byRoom[requesterID]
	now := time.Now()
	if ok {
		if rec.Attempts >= maxAttempts && now.Sub(rec.RequestedAt) < cooldown {
			reg.mu.Unlock()
			return roomerrors.TooManyRequests("too many join requests, try again later")
		}
		rec.Attempts++
		rec.RequestedAt = now
	} else {
		rec = &JoinRequestRecord{RequesterID: requesterID, RequesterName: requesterName, RequestedAt: now, Attempts: 1}
		byRoom[requesterID] = rec
	}
	recCopy := *rec
	reg.mu.Unlock()

	snap, ok := reg.SnapshotByID(r.ID)
	if !ok {
		return roomerrors.NotFound("room not found")
	}
	reg.emitter.EmitToUser(snap.LeaderID, events.JoinRequest, events.NewRoomEnvelope(events.JoinRequest, snap, map[string]any{
		"request": recCopy,
	}))
	return nil
}

// AcceptJoin is leader-only: deletes the request entry and joins the
// requester with the private-bypass flag (spec.md §4.4).
func (reg *Registry) AcceptJoin(roomID, callerID, requesterID string) (Snapshot, error) {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return Snapshot{}, roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	if r.LeaderID != callerID {
		r.mu.Unlock()
		return Snapshot{}, roomerrors.Forbidden("only the leader may accept join requests")
	}
	r.mu.Unlock()

	reg.mu.Lock()
	byRoom, ok := reg.joinRequests[roomID]
	var rec *JoinRequestRecord
	if ok {
		rec, ok = byRoom[requesterID]
	}
	if ok {
		delete(byRoom, requesterID)
	}
	reg.mu.Unlock()
	if !ok || rec == nil {
		return Snapshot{}, roomerrors.NotFound("no pending join request")
	}

	return reg.JoinRoom(roomID, requesterID, rec.RequesterName, true)
}

// RejectJoin is leader-only: keeps the attempt counter so rate limits
// survive rejection (spec.md §4.4).
func (reg *Registry) RejectJoin(roomID, callerID, requesterID string) error {
	r, ok := reg.GetRoomByID(roomID)
	if !ok {
		return roomerrors.NotFound("room not found")
	}
	r.mu.Lock()
	isLeader := r.LeaderID == callerID
	r.mu.Unlock()
	if !isLeader {
		return roomerrors.Forbidden("only the leader may reject join requests")
	}
	// intentionally does not delete the record: attempts/requestedAt persist.
	return nil
}
