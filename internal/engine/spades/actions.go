package spades

import (
	"time"

	"cardroom/internal/cards"
	"cardroom/internal/engine"
	"cardroom/internal/roomerrors"
)

const (
	ActionPlaceBid                  = "PLACE_BID"
	ActionPlayCard                  = "PLAY_CARD"
	ActionContinueAfterTrickResult  = "CONTINUE_AFTER_TRICK_RESULT"
	ActionContinueAfterRoundSummary = "CONTINUE_AFTER_ROUND_SUMMARY"
)

func (m *Module) Reduce(st engine.State, action engine.Action) (engine.State, error) {
	s, ok := st.(*State)
	if !ok {
		return nil, roomerrors.Internal("spades: wrong state type")
	}
	switch action.Type {
	case ActionPlaceBid:
		return m.placeBid(s, action)
	case ActionPlayCard:
		return m.playCard(s, action)
	case ActionContinueAfterTrickResult:
		return m.continueAfterTrickResult(s, action)
	case ActionContinueAfterRoundSummary:
		return m.continueAfterRoundSummary(s, action)
	default:
		return nil, roomerrors.BadRequest("spades: unknown action %q", action.Type)
	}
}

func currentPlayer(s *State) string {
	return s.PlayOrder[s.CurrentTurnIndex]
}

func advanceTurn(s *State) {
	s.CurrentTurnIndex = (s.CurrentTurnIndex + 1) % 4
}

func (m *Module) placeBid(s *State, action engine.Action) (engine.State, error) {
	if s.Phase != PhaseBidding {
		return nil, roomerrors.BadRequest("not in bidding phase")
	}
	if action.PlayerID != currentPlayer(s) {
		return nil, roomerrors.BadRequest("not your turn to bid")
	}
	if !s.Players[action.PlayerID].Connected {
		return nil, roomerrors.BadRequest("player disconnected")
	}
	if _, already := s.Bids[action.PlayerID]; already {
		return nil, roomerrors.BadRequest("already bid")
	}

	bidType, _ := action.Data["type"].(string)
	amountF, _ := action.Data["amount"].(float64)
	amount := int(amountF)
	isBlind, _ := action.Data["isBlind"].(bool)

	team := teamIDForSeat(seatIndex(s, action.PlayerID))

	switch BidType(bidType) {
	case BidNormal:
		if isBlind || amount < 1 || amount > 13 {
			return nil, roomerrors.BadRequest("invalid normal bid")
		}
	case BidNil:
		if isBlind || amount != 0 {
			return nil, roomerrors.BadRequest("invalid nil bid")
		}
		if !s.Settings.AllowNil {
			return nil, roomerrors.BadRequest("nil bids are disabled")
		}
	case BidBlind:
		if !isBlind || amount < 4 {
			return nil, roomerrors.BadRequest("invalid blind bid")
		}
		if !s.Settings.BlindBidEnabled || !s.TeamEligibleForBlind[team] {
			return nil, roomerrors.BadRequest("blind bid not available")
		}
	case BidBlindNil:
		if !isBlind || amount != 0 {
			return nil, roomerrors.BadRequest("invalid blind-nil bid")
		}
		if !s.Settings.BlindNilEnabled || !s.Settings.AllowNil || !s.TeamEligibleForBlind[team] {
			return nil, roomerrors.BadRequest("blind nil bid not available")
		}
	default:
		return nil, roomerrors.BadRequest("unknown bid type %q", bidType)
	}

	next := s.clone()
	next.Bids[action.PlayerID] = Bid{Amount: amount, Type: BidType(bidType), IsBlind: isBlind}
	advanceTurn(next)
	if len(next.Bids) == 4 {
		next.Phase = PhasePlaying
	}
	next.TurnStartedAt = time.Now()
	next.History = append(next.History, "bid placed by "+action.PlayerID)
	return next, nil
}

func seatIndex(s *State, userID string) int {
	for i, uid := range s.PlayOrder {
		if uid == userID {
			return i
		}
	}
	return -1
}

func hasCard(hand []cards.Card, c cards.Card) bool {
	for _, h := range hand {
		if h == c {
			return true
		}
	}
	return false
}

func removeCard(hand []cards.Card, c cards.Card) []cards.Card {
	out := make([]cards.Card, 0, len(hand)-1)
	removed := false
	for _, h := range hand {
		if !removed && h == c {
			removed = true
			continue
		}
		out = append(out, h)
	}
	return out
}

// CanPlayCard reports whether c is a legal play from hand given the current
// trick state and settings (spec.md §8 "legal-play coverage").
func CanPlayCard(hand []cards.Card, c cards.Card, trick *Trick, spadesBroken bool) bool {
	if !hasCard(hand, c) {
		return false
	}
	if trick == nil || len(trick.Plays) == 0 {
		if c.Suit == cards.Spades && !spadesBroken && !handIsAllSpades(hand) {
			return false
		}
		return true
	}
	leadSuit := trick.LeadSuit
	if c.Suit == leadSuit {
		return true
	}
	return !handHasSuit(hand, leadSuit)
}

func handIsAllSpades(hand []cards.Card) bool {
	for _, c := range hand {
		if c.Suit != cards.Spades && !c.IsJoker() {
			return false
		}
	}
	return true
}

func handHasSuit(hand []cards.Card, suit cards.Suit) bool {
	for _, c := range hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

func (m *Module) playCard(s *State, action engine.Action) (engine.State, error) {
	if s.Phase != PhasePlaying {
		return nil, roomerrors.BadRequest("not in playing phase")
	}
	if action.PlayerID != currentPlayer(s) {
		return nil, roomerrors.BadRequest("not your turn to play")
	}
	if !s.Players[action.PlayerID].Connected {
		return nil, roomerrors.BadRequest("player disconnected")
	}

	cardData, _ := action.Data["card"].(map[string]any)
	rank, _ := cardData["rank"].(string)
	suit, _ := cardData["suit"].(string)
	card := cards.Card{Rank: cards.Rank(rank), Suit: cards.Suit(suit)}

	hand := s.Hands[action.PlayerID]
	if !CanPlayCard(hand, card, s.CurrentTrick, s.SpadesBroken) {
		return nil, roomerrors.BadRequest("illegal play")
	}

	next := s.clone()
	next.Hands[action.PlayerID] = removeCard(next.Hands[action.PlayerID], card)

	if next.CurrentTrick == nil {
		next.CurrentTrick = &Trick{LeadSuit: card.Suit}
	}
	next.CurrentTrick.Plays = append(next.CurrentTrick.Plays, Play{PlayerID: action.PlayerID, Card: card})

	if card.Suit == cards.Spades {
		next.SpadesBroken = true
	}

	next.History = append(next.History, "card played by "+action.PlayerID)

	if len(next.CurrentTrick.Plays) == 4 {
		winner := resolveTrick(next.CurrentTrick, next.Settings)
		next.CompletedTricks = append(next.CompletedTricks, CompletedTrick{
			Plays:    next.CurrentTrick.Plays,
			WinnerID: winner.PlayerID,
		})
		winnerCard := winner.Card
		next.LastTrickWinnerID = &winner.PlayerID
		next.LastTrickWinningCard = &winnerCard
		next.CurrentTrick = nil
		next.Phase = PhaseTrickResult

		if allHandsEmpty(next) {
			finishRound(next)
		}
		return next, nil
	}

	advanceTurn(next)
	next.TurnStartedAt = time.Now()
	return next, nil
}

func allHandsEmpty(s *State) bool {
	for _, h := range s.Hands {
		if len(h) > 0 {
			return false
		}
	}
	return true
}

// resolveTrick determines the winning play of a completed trick using
// cardBeats semantics (spec.md §4.6).
func resolveTrick(t *Trick, cfg Settings) Play {
	best := t.Plays[0]
	for _, p := range t.Plays[1:] {
		if cards.Beats(p.Card, best.Card, t.LeadSuit, cfg.JokersEnabled, cfg.DeuceOfSpadesHigh) {
			best = p
		}
	}
	return best
}

func (m *Module) continueAfterTrickResult(s *State, action engine.Action) (engine.State, error) {
	if s.Phase != PhaseTrickResult {
		return nil, roomerrors.BadRequest("not in trick-result phase")
	}
	next := s.clone()
	next.CurrentTurnIndex = seatIndex(next, *next.LastTrickWinnerID)
	next.CurrentTrick = nil
	next.TurnStartedAt = time.Now()
	next.Phase = PhasePlaying
	next.History = append(next.History, "continued after trick result")
	return next, nil
}

func (m *Module) continueAfterRoundSummary(s *State, action engine.Action) (engine.State, error) {
	if s.Phase != PhaseRoundSummary {
		return nil, roomerrors.BadRequest("not in round-summary phase")
	}
	next := s.clone()
	next.Round++
	next.DealerIndex = (next.DealerIndex + 1) % 4
	next.CurrentTurnIndex = next.DealerIndex
	next.Bids = make(map[string]Bid)
	next.SpadesBroken = false
	next.CompletedTricks = []CompletedTrick{}
	next.CurrentTrick = nil
	next.LastTrickWinnerID = nil
	next.LastTrickWinningCard = nil
	next.RoundTrickCounts = nil
	next.RoundTeamScores = nil
	next.RoundScoreBreakdown = nil

	max := maxTeamScore(next.Teams)
	next.TeamEligibleForBlind = make(map[string]bool, len(next.Teams))
	for id, t := range next.Teams {
		next.TeamEligibleForBlind[id] = (max - t.Score) >= 100
	}

	rng := m.rngFactory()
	if err := dealHands(next, rng); err != nil {
		return nil, err
	}
	next.Phase = PhaseBidding
	next.TurnStartedAt = time.Now()
	next.History = append(next.History, "next round started")
	return next, nil
}

func maxTeamScore(teams map[string]*Team) int {
	max := 0
	first := true
	for _, t := range teams {
		if first || t.Score > max {
			max = t.Score
			first = false
		}
	}
	return max
}
