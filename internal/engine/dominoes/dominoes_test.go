package dominoes

import (
	"math/rand"
	"testing"

	"cardroom/internal/engine"
	"cardroom/internal/tiles"
)

func fourUsers() []engine.User {
	return []engine.User{
		{ID: "p1", Name: "Alice", Connected: true},
		{ID: "p2", Name: "Bob", Connected: true},
		{ID: "p3", Name: "Carol", Connected: true},
		{ID: "p4", Name: "Dave", Connected: true},
	}
}

func newTestModule(seed int64) *Module {
	return NewModuleWithRand(rand.New(rand.NewSource(seed)))
}

func TestInit_DealsSevenTilesPerPlayerNoDuplicates(t *testing.T) {
	m := newTestModule(9)
	st, err := m.Init("game1", "room1", fourUsers(), nil, DefaultSettingsMap())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	s := st.(*State)

	seen := map[string]bool{}
	total := 0
	for _, uid := range s.PlayOrder {
		hand := s.Hands[uid]
		if len(hand) != 7 {
			t.Errorf("expected 7 tiles for %s, got %d", uid, len(hand))
		}
		for _, tl := range hand {
			if seen[tl.ID] {
				t.Fatalf("tile %v dealt twice", tl)
			}
			seen[tl.ID] = true
			total++
		}
	}
	if total != 28 {
		t.Errorf("expected 28 tiles dealt total, got %d", total)
	}
	if s.Phase != PhasePlaying {
		t.Errorf("expected initial phase playing, got %v", s.Phase)
	}
}

func TestInit_RejectsWrongPlayerCount(t *testing.T) {
	m := newTestModule(1)
	_, err := m.Init("game1", "room1", fourUsers()[:2], nil, DefaultSettingsMap())
	if err == nil {
		t.Error("expected error for 2 players")
	}
}

func TestCanPlace_EmptyBoardAcceptsAnyTile(t *testing.T) {
	board := Board{}
	if !CanPlace(board, tiles.Tile{Left: 3, Right: 5}, "left") {
		t.Error("an empty board should accept any tile")
	}
}

func TestCanPlace_RejectsMismatchedEnd(t *testing.T) {
	board := Board{LeftEnd: &BoardEnd{Value: 4}, RightEnd: &BoardEnd{Value: 6}}
	if CanPlace(board, tiles.Tile{Left: 1, Right: 2}, "left") {
		t.Error("a tile matching neither end must be illegal")
	}
	if !CanPlace(board, tiles.Tile{Left: 4, Right: 2}, "left") {
		t.Error("a tile matching the left end must be legal on the left")
	}
}

func TestHasLegalMove_FalseWhenNoTileMatchesEitherEnd(t *testing.T) {
	board := Board{LeftEnd: &BoardEnd{Value: 1}, RightEnd: &BoardEnd{Value: 2}}
	hand := []tiles.Tile{{Left: 3, Right: 4}, {Left: 5, Right: 6}}
	if HasLegalMove(board, hand) {
		t.Error("expected no legal move")
	}
	hand = append(hand, tiles.Tile{Left: 1, Right: 6})
	if !HasLegalMove(board, hand) {
		t.Error("expected a legal move once a matching tile is in hand")
	}
}

func TestPlaceTile_FirstTileSetsBothEnds(t *testing.T) {
	m := newTestModule(4)
	st, _ := m.Init("game1", "room1", fourUsers(), nil, DefaultSettingsMap())
	s := st.(*State)
	s.Board = Board{}
	current := s.PlayOrder[s.CurrentTurnIndex]
	tile := s.Hands[current][0]
	s.Hands[current] = []tiles.Tile{tile}

	next, err := m.Reduce(s, engine.Action{Type: ActionPlaceTile, PlayerID: current, Data: map[string]any{"tileId": tile.ID, "side": "left"}})
	if err != nil {
		t.Fatalf("place tile: %v", err)
	}
	ns := next.(*State)
	if ns.Board.LeftEnd == nil || ns.Board.RightEnd == nil {
		t.Fatal("expected both board ends set after the first tile")
	}
	if ns.Board.LeftEnd.Value != tile.Left || ns.Board.RightEnd.Value != tile.Right {
		t.Errorf("expected ends %d/%d, got %d/%d", tile.Left, tile.Right, ns.Board.LeftEnd.Value, ns.Board.RightEnd.Value)
	}
}

func TestPlaceTile_EmptyingHandFinishesRoundAsGoOut(t *testing.T) {
	m := newTestModule(4)
	st, _ := m.Init("game1", "room1", fourUsers(), nil, DefaultSettingsMap())
	s := st.(*State)
	current := s.PlayOrder[s.CurrentTurnIndex]
	tile := tiles.Tile{ID: "solo", Left: 2, Right: 2}
	s.Hands[current] = []tiles.Tile{tile}
	s.Board = Board{}

	next, err := m.Reduce(s, engine.Action{Type: ActionPlaceTile, PlayerID: current, Data: map[string]any{"tileId": tile.ID, "side": "left"}})
	if err != nil {
		t.Fatalf("place tile: %v", err)
	}
	ns := next.(*State)
	if ns.RoundWinner == nil || *ns.RoundWinner != current {
		t.Errorf("expected %s to be recorded as round winner, got %v", current, ns.RoundWinner)
	}
}

func TestPass_RejectedWhenLegalMoveExists(t *testing.T) {
	m := newTestModule(4)
	st, _ := m.Init("game1", "room1", fourUsers(), nil, DefaultSettingsMap())
	s := st.(*State)
	current := s.PlayOrder[s.CurrentTurnIndex]
	s.Board = Board{} // empty board always has a legal move
	_, err := m.Reduce(s, engine.Action{Type: ActionPass, PlayerID: current})
	if err == nil {
		t.Error("expected error passing while a legal move exists")
	}
}

func TestFinishRoundGoOut_WinnerScoresSumOfOpponentPips(t *testing.T) {
	s := &State{
		Settings:     Settings{WinTarget: 150},
		PlayOrder:    []string{"p1", "p2", "p3", "p4"},
		PlayerScores: map[string]int{"p1": 0, "p2": 0, "p3": 0, "p4": 0},
		Hands: map[string][]tiles.Tile{
			"p1": {},
			"p2": {{Left: 3, Right: 4}},              // 7 pips
			"p3": {{Left: 6, Right: 6}},               // 12 pips
			"p4": {{Left: 1, Right: 2}, {Left: 0, Right: 0}}, // 3 pips
		},
	}
	finishRoundGoOut(s, "p1")
	if s.PlayerScores["p1"] != 22 {
		t.Errorf("expected p1 to score 22 (7+12+3), got %d", s.PlayerScores["p1"])
	}
	if s.Phase != PhaseRoundSummary {
		t.Errorf("expected round-summary phase below win target, got %v", s.Phase)
	}
}

func TestFinishRoundBlocked_TieScoresNobody(t *testing.T) {
	s := &State{
		Settings:     Settings{WinTarget: 150},
		PlayOrder:    []string{"p1", "p2", "p3", "p4"},
		PlayerScores: map[string]int{"p1": 0, "p2": 0, "p3": 0, "p4": 0},
		Hands: map[string][]tiles.Tile{
			"p1": {{Left: 2, Right: 3}}, // 5 pips, tied lowest
			"p2": {{Left: 1, Right: 4}}, // 5 pips, tied lowest
			"p3": {{Left: 6, Right: 6}}, // 12 pips
			"p4": {{Left: 5, Right: 5}}, // 10 pips
		},
	}
	finishRoundBlocked(s)
	if !s.IsRoundTie {
		t.Error("expected a tie for lowest pip count")
	}
	if s.RoundWinner != nil {
		t.Errorf("expected no round winner on a tie, got %v", s.RoundWinner)
	}
	for uid, score := range s.PlayerScores {
		if score != 0 {
			t.Errorf("expected nobody to score on a tied block, %s has %d", uid, score)
		}
	}
}

func TestFinishRoundBlocked_SingleLowestWinsDifference(t *testing.T) {
	s := &State{
		Settings:     Settings{WinTarget: 150},
		PlayOrder:    []string{"p1", "p2", "p3", "p4"},
		PlayerScores: map[string]int{"p1": 0, "p2": 0, "p3": 0, "p4": 0},
		Hands: map[string][]tiles.Tile{
			"p1": {{Left: 1, Right: 1}}, // 2 pips, lowest
			"p2": {{Left: 6, Right: 6}}, // 12 pips
			"p3": {{Left: 5, Right: 5}}, // 10 pips
			"p4": {{Left: 4, Right: 4}}, // 8 pips
		},
	}
	finishRoundBlocked(s)
	if s.RoundWinner == nil || *s.RoundWinner != "p1" {
		t.Fatalf("expected p1 to win the block, got %v", s.RoundWinner)
	}
	// (12-2) + (10-2) + (8-2) = 10+8+6 = 24
	if s.PlayerScores["p1"] != 24 {
		t.Errorf("expected p1 to score 24, got %d", s.PlayerScores["p1"])
	}
}
