package spades

import (
	"cardroom/internal/cards"
	"cardroom/internal/engine"
)

// PublicState is broadcast to the whole room: no hands, just counts.
type PublicState struct {
	GameID               string                    `json:"id"`
	RoomID               string                    `json:"roomId"`
	Teams                map[string]*Team          `json:"teams"`
	PlayOrder            []string                  `json:"playOrder"`
	DealerIndex          int                       `json:"dealerIndex"`
	CurrentTurnIndex     int                       `json:"currentTurnIndex"`
	HandsCounts          map[string]int            `json:"handsCounts"`
	Bids                 map[string]Bid            `json:"bids"`
	SpadesBroken         bool                      `json:"spadesBroken"`
	CurrentTrick         *Trick                    `json:"currentTrick,omitempty"`
	CompletedTricks      []CompletedTrick          `json:"completedTricks"`
	Phase                Phase                     `json:"phase"`
	Round                int                       `json:"round"`
	WinnerTeamID         *string                   `json:"winnerTeamId,omitempty"`
	IsTie                bool                      `json:"isTie,omitempty"`
	LastTrickWinnerID    *string                   `json:"lastTrickWinnerId,omitempty"`
	LastTrickWinningCard *cards.Card               `json:"lastTrickWinningCard,omitempty"`
	RoundTrickCounts     map[string]int            `json:"roundTrickCounts,omitempty"`
	RoundTeamScores      map[string]int            `json:"roundTeamScores,omitempty"`
	RoundScoreBreakdown  map[string]ScoreBreakdown `json:"roundScoreBreakdown,omitempty"`
	TeamEligibleForBlind map[string]bool           `json:"teamEligibleForBlind"`
}

// PlayerState additionally reveals the requesting player's own hand and a
// seat-rotated localOrdering so clients can render "my seat at bottom"
// layouts (spec.md §4.5).
type PlayerState struct {
	PublicState
	Hand          []cards.Card `json:"hand"`
	LocalOrdering []string     `json:"localOrdering"`
}

func (m *Module) GetState(st engine.State) any {
	s := st.(*State)
	counts := make(map[string]int, len(s.Hands))
	for uid, h := range s.Hands {
		counts[uid] = len(h)
	}
	return PublicState{
		GameID: s.GameIDValue, RoomID: s.RoomID, Teams: s.Teams, PlayOrder: s.PlayOrder,
		DealerIndex: s.DealerIndex, CurrentTurnIndex: s.CurrentTurnIndex, HandsCounts: counts,
		Bids: s.Bids, SpadesBroken: s.SpadesBroken, CurrentTrick: s.CurrentTrick,
		CompletedTricks: s.CompletedTricks, Phase: s.Phase, Round: s.Round,
		WinnerTeamID: s.WinnerTeamID, IsTie: s.IsTie, LastTrickWinnerID: s.LastTrickWinnerID,
		LastTrickWinningCard: s.LastTrickWinningCard, RoundTrickCounts: s.RoundTrickCounts,
		RoundTeamScores: s.RoundTeamScores, RoundScoreBreakdown: s.RoundScoreBreakdown,
		TeamEligibleForBlind: s.TeamEligibleForBlind,
	}
}

func (m *Module) GetPlayerState(st engine.State, userID string) any {
	s := st.(*State)
	pub := m.GetState(st).(PublicState)
	idx := seatIndex(s, userID)
	ordering := make([]string, 4)
	if idx >= 0 {
		for i := 0; i < 4; i++ {
			ordering[i] = s.PlayOrder[(idx+i)%4]
		}
	} else {
		copy(ordering, s.PlayOrder)
	}
	return PlayerState{
		PublicState:   pub,
		Hand:          s.Hands[userID],
		LocalOrdering: ordering,
	}
}

// CheckMinimumPlayers requires all four players connected to continue.
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

// TransferSlot rewrites a disconnected seat's identity for a spectator
// claim, preserving hand/bids/scores (spec.md §4.3).
func (m *Module) TransferSlot(st engine.State, fromUserID, toUserID string) (engine.State, error) {
	s := st.(*State).clone()

	for i, uid := range s.PlayOrder {
		if uid == fromUserID {
			s.PlayOrder[i] = toUserID
		}
	}
	for _, t := range s.Teams {
		for i, p := range t.Players {
			if p == fromUserID {
				t.Players[i] = toUserID
			}
		}
	}
	if h, ok := s.Hands[fromUserID]; ok {
		s.Hands[toUserID] = h
		delete(s.Hands, fromUserID)
	}
	if b, ok := s.Bids[fromUserID]; ok {
		s.Bids[toUserID] = b
		delete(s.Bids, fromUserID)
	}
	if u, ok := s.Players[fromUserID]; ok {
		u.ID = toUserID
		u.Connected = true
		s.Players[toUserID] = u
		delete(s.Players, fromUserID)
	}
	return s, nil
}

// TimeoutAction builds the auto-action for an expired turn timer
// (spec.md §4.9): lowest-legal bid while bidding, first legal card while
// playing.
func (m *Module) TimeoutAction(st engine.State, playerID string) (engine.Action, error) {
	s := st.(*State)
	switch s.Phase {
	case PhaseBidding:
		if s.Settings.AllowNil {
			return engine.Action{Type: ActionPlaceBid, PlayerID: playerID, Data: map[string]any{
				"amount": float64(0), "type": string(BidNil), "isBlind": false,
			}}, nil
		}
		return engine.Action{Type: ActionPlaceBid, PlayerID: playerID, Data: map[string]any{
			"amount": float64(1), "type": string(BidNormal), "isBlind": false,
		}}, nil
	case PhasePlaying:
		hand := s.Hands[playerID]
		for _, c := range hand {
			if CanPlayCard(hand, c, s.CurrentTrick, s.SpadesBroken) {
				return engine.Action{Type: ActionPlayCard, PlayerID: playerID, Data: map[string]any{
					"card": map[string]any{"rank": string(c.Rank), "suit": string(c.Suit)},
				}}, nil
			}
		}
	}
	return engine.Action{}, nil
}

// NextTimer arms a timer for the current bidder/player whenever the phase
// is actively awaiting input.
func (m *Module) NextTimer(st engine.State) (string, int, bool) {
	s := st.(*State)
	switch s.Phase {
	case PhaseBidding, PhasePlaying:
		return currentPlayer(s), int(s.Settings.TurnTimeoutSeconds), true
	default:
		return "", 0, false
	}
}
