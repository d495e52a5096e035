package transport

import (
	"cardroom/internal/engine"
	"cardroom/internal/engine/settings"
	"cardroom/internal/roomerrors"
)

// Inbound message type tags (spec.md §6). The first frame on a connection
// must be joinRoom; everything else requires an already-registered client.
const (
	msgJoinRoom                  = "joinRoom"
	msgToggleReady               = "toggleReady"
	msgSelectGame                = "selectGame"
	msgSetTeams                  = "setTeams"
	msgRandomizeTeams            = "randomizeTeams"
	msgUpdateRoomSettings        = "updateRoomSettings"
	msgUpdateGameSettings        = "updateGameSettings"
	msgStartGame                 = "startGame"
	msgCloseRoom                 = "closeRoom"
	msgPromoteLeader             = "promoteLeader"
	msgKickUser                  = "kickUser"
	msgLeaveGame                 = "leaveGame"
	msgAbortGame                 = "abortGame"
	msgJoinAsSpectator           = "joinAsSpectator"
	msgClaimSlot                 = "claimSlot"
	msgRequestJoin               = "requestJoin"
	msgAcceptJoin                = "acceptJoin"
	msgRejectJoin                = "rejectJoin"
	msgPlaceBid                  = "placeBid"
	msgPlayCard                  = "playCard"
	msgPlaceTile                 = "placeTile"
	msgPass                      = "pass"
	msgContinueAfterTrick        = "continueAfterTrickResult"
	msgContinueAfterRoundSummary = "continueAfterRoundSummary"
)

// handleMessage dispatches one inbound frame. Every handler after joinRoom
// requires c.UserID to be set (the handshake has completed).
func (s *Server) handleMessage(c *Client, msg InboundMessage) {
	if msg.Type != msgJoinRoom && c.UserID == "" {
		writeError(c, roomerrors.BadRequest("must send joinRoom before any other message"))
		return
	}

	var err error
	switch msg.Type {
	case msgJoinRoom:
		err = s.handleJoinRoom(c, msg.Data)
	case msgToggleReady:
		_, err = s.rooms.ToggleReady(c.RoomID, c.UserID, boolField(msg.Data, "ready"))
	case msgSelectGame:
		_, err = s.rooms.SelectGame(c.RoomID, c.UserID, strField(msg.Data, "gameType"))
	case msgSetTeams:
		_, err = s.rooms.SetTeams(c.RoomID, c.UserID, teamsField(msg.Data, "teams"), boolField(msg.Data, "strict"))
	case msgRandomizeTeams:
		_, err = s.rooms.RandomizeTeams(c.RoomID, c.UserID, intField(msg.Data, "numTeams"), intField(msg.Data, "playersPerTeam"), shuffleStrings)
	case msgUpdateRoomSettings:
		_, err = s.rooms.UpdateRoomSettings(c.RoomID, c.UserID, mapField(msg.Data, "settings"))
	case msgUpdateGameSettings:
		err = s.handleUpdateGameSettings(c, msg.Data)
	case msgStartGame:
		_, err = s.rooms.StartGame(c.RoomID, c.UserID)
	case msgCloseRoom:
		err = s.rooms.CloseRoom(c.RoomID, c.UserID)
	case msgPromoteLeader:
		_, err = s.rooms.PromoteLeader(c.RoomID, c.UserID, strField(msg.Data, "userId"))
	case msgKickUser:
		err = s.handleKick(c, msg.Data)
	case msgLeaveGame:
		_, err = s.rooms.LeaveGame(c.RoomID, c.UserID)
	case msgAbortGame:
		_, err = s.rooms.AbortGame(c.RoomID, c.UserID)
	case msgJoinAsSpectator:
		_, err = s.rooms.JoinAsSpectator(c.RoomID, c.UserID)
	case msgClaimSlot:
		_, err = s.rooms.ClaimSlot(c.RoomID, c.UserID, strField(msg.Data, "targetUserId"))
	case msgRequestJoin:
		err = s.rooms.RequestJoin(strField(msg.Data, "code"), c.UserID, strField(msg.Data, "name"))
	case msgAcceptJoin:
		_, err = s.rooms.AcceptJoin(c.RoomID, c.UserID, strField(msg.Data, "requesterId"))
	case msgRejectJoin:
		err = s.rooms.RejectJoin(c.RoomID, c.UserID, strField(msg.Data, "requesterId"))
	case msgPlaceBid, msgPlayCard, msgPlaceTile, msgPass, msgContinueAfterTrick, msgContinueAfterRoundSummary:
		_, err = s.rooms.DispatchAction(c.RoomID, engine.Action{Type: actionType(msg.Type), PlayerID: c.UserID, Data: msg.Data})
	default:
		err = roomerrors.BadRequest("unknown message type %q", msg.Type)
	}

	if err != nil {
		writeError(c, err)
	}
}

// actionType maps a wire message type to the reducer action type constants
// the game modules switch on (spec.md §4.6/§4.8).
func actionType(msgType string) string {
	switch msgType {
	case msgPlaceBid:
		return "PLACE_BID"
	case msgPlayCard:
		return "PLAY_CARD"
	case msgPlaceTile:
		return "PLACE_TILE"
	case msgPass:
		return "PASS"
	case msgContinueAfterTrick:
		return "CONTINUE_AFTER_TRICK_RESULT"
	case msgContinueAfterRoundSummary:
		return "CONTINUE_AFTER_ROUND_SUMMARY"
	default:
		return msgType
	}
}

func (s *Server) handleJoinRoom(c *Client, data map[string]any) error {
	roomID := strField(data, "roomId")
	userID := strField(data, "userId")
	if roomID == "" || userID == "" {
		return roomerrors.BadRequest("roomId and userId are required")
	}

	socketID := socketIDFor(c)
	result, err := s.rooms.Register(socketID, roomID, userID)
	if err != nil {
		return err
	}
	c.ID = socketID
	c.RoomID = roomID
	c.UserID = userID

	s.mu.RLock()
	displaced, hadPrior := s.clients[userID]
	s.mu.RUnlock()

	s.registerClient(c)

	// The later connection wins (spec.md §5): terminate the stale socket.
	// Its disconnect is a no-op on the roster because the user index
	// already points at the new socket.
	if result.AlreadyConnectedSocketID != "" {
		s.rooms.Disconnect(result.AlreadyConnectedSocketID)
		if hadPrior && displaced != c {
			s.closeClient(displaced)
		}
	}
	return nil
}

func (s *Server) handleKick(c *Client, data map[string]any) error {
	targetID := strField(data, "userId")
	socketID, _, err := s.rooms.Kick(c.RoomID, c.UserID, targetID)
	if err != nil {
		return err
	}
	if socketID != "" {
		s.rooms.Disconnect(socketID)
		s.mu.RLock()
		target, ok := s.clients[targetID]
		s.mu.RUnlock()
		if ok {
			s.closeClient(target)
		}
	}
	return nil
}

func (s *Server) handleUpdateGameSettings(c *Client, data map[string]any) error {
	patch := mapField(data, "settings")
	snap, ok := s.rooms.SnapshotByID(c.RoomID)
	if !ok {
		return roomerrors.NotFound("room not found")
	}
	merged := mergeRaw(snap.GameSettings, patch)
	module, ok := s.games.Module(snap.SelectedGameType)
	if !ok {
		// unknown game types pass through unchanged
		_, err := s.rooms.UpdateGameSettings(c.RoomID, c.UserID, merged)
		return err
	}
	validated := settings.Validate(module.SettingsDefinitions(), merged)
	_, err := s.rooms.UpdateGameSettings(c.RoomID, c.UserID, validated)
	return err
}

func mergeRaw(current, patch map[string]any) map[string]any {
	out := make(map[string]any, len(current)+len(patch))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func socketIDFor(c *Client) string {
	if c.ID != "" {
		return c.ID
	}
	return newSocketID()
}
