package dominoes

import (
	"cardroom/internal/engine"
	"cardroom/internal/tiles"
)

type PublicState struct {
	GameID              string         `json:"id"`
	RoomID              string         `json:"roomId"`
	PlayOrder           []string       `json:"playOrder"`
	CurrentTurnIndex    int            `json:"currentTurnIndex"`
	StartingPlayerIndex int            `json:"startingPlayerIndex"`
	HandsCounts         map[string]int `json:"handsCounts"`
	Board               Board          `json:"board"`
	Phase               Phase          `json:"phase"`
	Round               int            `json:"round"`
	ConsecutivePasses   int            `json:"consecutivePasses"`
	PlayerScores        map[string]int `json:"playerScores"`
	RoundPipCounts      map[string]int `json:"roundPipCounts,omitempty"`
	RoundWinner         *string        `json:"roundWinner,omitempty"`
	IsRoundTie          bool           `json:"isRoundTie,omitempty"`
	GameWinner          *string        `json:"gameWinner,omitempty"`
}

type PlayerState struct {
	PublicState
	Hand          []tiles.Tile `json:"hand"`
	LocalOrdering []string     `json:"localOrdering"`
}

func (m *Module) GetState(st engine.State) any {
	s := st.(*State)
	counts := make(map[string]int, len(s.Hands))
	for uid, h := range s.Hands {
		counts[uid] = len(h)
	}
	return PublicState{
		GameID: s.GameIDValue, RoomID: s.RoomID, PlayOrder: s.PlayOrder,
		CurrentTurnIndex: s.CurrentTurnIndex, StartingPlayerIndex: s.StartingPlayerIndex,
		HandsCounts: counts, Board: s.Board, Phase: s.Phase, Round: s.Round,
		ConsecutivePasses: s.ConsecutivePasses, PlayerScores: s.PlayerScores,
		RoundPipCounts: s.RoundPipCounts, RoundWinner: s.RoundWinner, IsRoundTie: s.IsRoundTie,
		GameWinner: s.GameWinner,
	}
}

func (m *Module) GetPlayerState(st engine.State, userID string) any {
	s := st.(*State)
	pub := m.GetState(st).(PublicState)
	idx := -1
	for i, uid := range s.PlayOrder {
		if uid == userID {
			idx = i
			break
		}
	}
	ordering := make([]string, len(s.PlayOrder))
	if idx >= 0 {
		for i := range s.PlayOrder {
			ordering[i] = s.PlayOrder[(idx+i)%len(s.PlayOrder)]
		}
	} else {
		copy(ordering, s.PlayOrder)
	}
	return PlayerState{PublicState: pub, Hand: s.Hands[userID], LocalOrdering: ordering}
}

func (m *Module) CheckMinimumPlayers(st engine.State, connected map[string]bool) bool {
	s := st.(*State)
	for _, uid := range s.PlayOrder {
		if !connected[uid] {
			return false
		}
	}
	return true
}

func (m *Module) OnReconnect(st engine.State, userID string) (engine.State, error) {
	s := st.(*State).clone()
	if u, ok := s.Players[userID]; ok {
		u.Connected = true
		s.Players[userID] = u
	}
	return s, nil
}

func (m *Module) OnDisconnect(st engine.State, userID string) (engine.State, error) {
	s := st.(*State).clone()
	if u, ok := s.Players[userID]; ok {
		u.Connected = false
		s.Players[userID] = u
	}
	return s, nil
}

func (m *Module) TransferSlot(st engine.State, fromUserID, toUserID string) (engine.State, error) {
	s := st.(*State).clone()
	for i, uid := range s.PlayOrder {
		if uid == fromUserID {
			s.PlayOrder[i] = toUserID
		}
	}
	if h, ok := s.Hands[fromUserID]; ok {
		s.Hands[toUserID] = h
		delete(s.Hands, fromUserID)
	}
	if sc, ok := s.PlayerScores[fromUserID]; ok {
		s.PlayerScores[toUserID] = sc
		delete(s.PlayerScores, fromUserID)
	}
	if u, ok := s.Players[fromUserID]; ok {
		u.ID = toUserID
		u.Connected = true
		s.Players[toUserID] = u
		delete(s.Players, fromUserID)
	}
	return s, nil
}

// TimeoutAction passes when no legal tile exists; otherwise it places the
// first tile in hand that fits an open end, trying the left end before the
// right.
func (m *Module) TimeoutAction(st engine.State, playerID string) (engine.Action, error) {
	s := st.(*State)
	hand := s.Hands[playerID]
	if !HasLegalMove(s.Board, hand) {
		return engine.Action{Type: ActionPass, PlayerID: playerID}, nil
	}
	for _, t := range hand {
		if CanPlace(s.Board, t, "left") {
			return engine.Action{Type: ActionPlaceTile, PlayerID: playerID, Data: map[string]any{
				"tileId": t.ID, "side": "left",
			}}, nil
		}
		if CanPlace(s.Board, t, "right") {
			return engine.Action{Type: ActionPlaceTile, PlayerID: playerID, Data: map[string]any{
				"tileId": t.ID, "side": "right",
			}}, nil
		}
	}
	return engine.Action{Type: ActionPass, PlayerID: playerID}, nil
}

func (m *Module) NextTimer(st engine.State) (string, int, bool) {
	s := st.(*State)
	if s.Phase == PhasePlaying {
		return currentPlayer(s), int(s.Settings.TurnTimeoutSeconds), true
	}
	return "", 0, false
}
