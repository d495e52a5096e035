package dominoes

import (
	"time"

	"cardroom/internal/engine"
	"cardroom/internal/roomerrors"
	"cardroom/internal/tiles"
)

const (
	ActionPlaceTile                 = "PLACE_TILE"
	ActionPass                      = "PASS"
	ActionContinueAfterRoundSummary = "CONTINUE_AFTER_ROUND_SUMMARY"
)

func (m *Module) Reduce(st engine.State, action engine.Action) (engine.State, error) {
	s, ok := st.(*State)
	if !ok {
		return nil, roomerrors.Internal("dominoes: wrong state type")
	}
	switch action.Type {
	case ActionPlaceTile:
		return m.placeTile(s, action)
	case ActionPass:
		return m.pass(s, action)
	case ActionContinueAfterRoundSummary:
		return m.continueAfterRoundSummary(s, action)
	default:
		return nil, roomerrors.BadRequest("dominoes: unknown action %q", action.Type)
	}
}

func currentPlayer(s *State) string { return s.PlayOrder[s.CurrentTurnIndex] }
func advanceTurn(s *State)          { s.CurrentTurnIndex = (s.CurrentTurnIndex + 1) % len(s.PlayOrder) }

func findTile(hand []tiles.Tile, id string) (tiles.Tile, bool) {
	for _, t := range hand {
		if t.ID == id {
			return t, true
		}
	}
	return tiles.Tile{}, false
}

func removeTile(hand []tiles.Tile, id string) []tiles.Tile {
	out := make([]tiles.Tile, 0, len(hand)-1)
	for _, t := range hand {
		if t.ID == id {
			continue
		}
		out = append(out, t)
	}
	return out
}

// CanPlace reports whether t can legally be placed on the given side
// ("left" or "right") of the board.
func CanPlace(board Board, t tiles.Tile, side string) bool {
	if board.LeftEnd == nil && board.RightEnd == nil {
		return true
	}
	var end *BoardEnd
	if side == "left" {
		end = board.LeftEnd
	} else {
		end = board.RightEnd
	}
	if end == nil {
		return false
	}
	return t.HasValue(end.Value)
}

// HasLegalMove reports whether any tile in hand matches either open end.
func HasLegalMove(board Board, hand []tiles.Tile) bool {
	if board.LeftEnd == nil && board.RightEnd == nil {
		return len(hand) > 0
	}
	for _, t := range hand {
		if (board.LeftEnd != nil && t.HasValue(board.LeftEnd.Value)) ||
			(board.RightEnd != nil && t.HasValue(board.RightEnd.Value)) {
			return true
		}
	}
	return false
}

func (m *Module) placeTile(s *State, action engine.Action) (engine.State, error) {
	if s.Phase != PhasePlaying {
		return nil, roomerrors.BadRequest("not in playing phase")
	}
	if action.PlayerID != currentPlayer(s) {
		return nil, roomerrors.BadRequest("not your turn")
	}
	if !s.Players[action.PlayerID].Connected {
		return nil, roomerrors.BadRequest("player disconnected")
	}

	tileID, _ := action.Data["tileId"].(string)
	side, _ := action.Data["side"].(string)

	hand := s.Hands[action.PlayerID]
	t, ok := findTile(hand, tileID)
	if !ok {
		return nil, roomerrors.BadRequest("tile not in hand")
	}
	if !CanPlace(s.Board, t, side) {
		return nil, roomerrors.BadRequest("illegal placement")
	}

	next := s.clone()
	next.Hands[action.PlayerID] = removeTile(next.Hands[action.PlayerID], tileID)
	placeOnBoard(&next.Board, t, side)
	next.ConsecutivePasses = 0
	next.History = append(next.History, "tile placed by "+action.PlayerID)

	if len(next.Hands[action.PlayerID]) == 0 {
		finishRoundGoOut(next, action.PlayerID)
		return next, nil
	}

	advanceTurn(next)
	next.TurnStartedAt = time.Now()
	return next, nil
}

// placeOnBoard mutates board to add t at the given side, initializing both
// ends if the board was empty.
func placeOnBoard(board *Board, t tiles.Tile, side string) {
	if board.LeftEnd == nil && board.RightEnd == nil {
		board.Tiles = append(board.Tiles, PlacedTile{Tile: t, Side: ""})
		board.LeftEnd = &BoardEnd{Value: t.Left, TileID: t.ID}
		board.RightEnd = &BoardEnd{Value: t.Right, TileID: t.ID}
		return
	}
	board.Tiles = append(board.Tiles, PlacedTile{Tile: t, Side: side})
	var end *BoardEnd
	if side == "left" {
		end = board.LeftEnd
	} else {
		end = board.RightEnd
	}
	newValue := t.Left
	if t.Left == end.Value {
		newValue = t.Right
	}
	newEnd := &BoardEnd{Value: newValue, TileID: t.ID}
	if side == "left" {
		board.LeftEnd = newEnd
	} else {
		board.RightEnd = newEnd
	}
}

func (m *Module) pass(s *State, action engine.Action) (engine.State, error) {
	if s.Phase != PhasePlaying {
		return nil, roomerrors.BadRequest("not in playing phase")
	}
	if action.PlayerID != currentPlayer(s) {
		return nil, roomerrors.BadRequest("not your turn")
	}
	if !s.Players[action.PlayerID].Connected {
		return nil, roomerrors.BadRequest("player disconnected")
	}
	hand := s.Hands[action.PlayerID]
	if HasLegalMove(s.Board, hand) {
		return nil, roomerrors.BadRequest("a legal move is available, cannot pass")
	}

	next := s.clone()
	next.ConsecutivePasses++
	next.History = append(next.History, "pass by "+action.PlayerID)

	if next.ConsecutivePasses >= 4 {
		finishRoundBlocked(next)
		return next, nil
	}

	advanceTurn(next)
	next.TurnStartedAt = time.Now()
	return next, nil
}

func (m *Module) continueAfterRoundSummary(s *State, action engine.Action) (engine.State, error) {
	if s.Phase != PhaseRoundSummary {
		return nil, roomerrors.BadRequest("not in round-summary phase")
	}
	next := s.clone()
	next.Round++
	next.ConsecutivePasses = 0
	next.RoundPipCounts = nil
	next.RoundWinner = nil
	next.IsRoundTie = false

	rng := m.rngFactory()
	if err := dealHands(next, rng); err != nil {
		return nil, err
	}
	startIdx, found := tiles.HighestDouble(handsInOrder(next))
	if !found {
		startIdx = (next.StartingPlayerIndex + 1) % len(next.PlayOrder)
	}
	next.StartingPlayerIndex = startIdx
	next.CurrentTurnIndex = startIdx
	next.Phase = PhasePlaying
	next.TurnStartedAt = time.Now()
	next.History = append(next.History, "next round started")
	return next, nil
}
