package dominoes

import (
	"math/rand"
	"time"

	"cardroom/internal/engine"
	"cardroom/internal/engine/settings"
	"cardroom/internal/roomerrors"
	"cardroom/internal/tiles"
)

const Type = "dominoes"

type Module struct {
	rngFactory func() *rand.Rand
}

func NewModule() *Module {
	return &Module{rngFactory: func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }}
}

func NewModuleWithRand(rng *rand.Rand) *Module {
	return &Module{rngFactory: func() *rand.Rand { return rng }}
}

func (m *Module) Type() string { return Type }

func (m *Module) Metadata() engine.Metadata {
	return engine.Metadata{
		Type:          Type,
		DisplayName:   "Block Dominoes",
		RequiresTeams: false,
		MinPlayers:    4,
		MaxPlayers:    4,
	}
}

func (m *Module) SettingsDefinitions() []settings.Definition { return Definitions() }
func (m *Module) DefaultSettings() map[string]any            { return DefaultSettingsMap() }

// Init deals 7 tiles to each of the 4 players in the room's user order and
// picks the starting player: whoever holds the highest double, falling
// back to seat 0 (spec.md §4.8). Dominoes has no teams (Metadata.RequiresTeams
// is false), so teams is ignored.
func (m *Module) Init(gameID, roomID string, users []engine.User, teams [][]string, rawSettings map[string]any) (engine.State, error) {
	if len(users) != 4 {
		return nil, roomerrors.BadRequest("dominoes requires exactly 4 players, got %d", len(users))
	}
	validated := settings.Validate(Definitions(), rawSettings)
	cfg := FromMap(validated)

	playOrder := make([]string, 4)
	playerMap := make(map[string]engine.User, 4)
	for i, u := range users {
		playOrder[i] = u.ID
		playerMap[u.ID] = u
	}

	rng := m.rngFactory()
	state := &State{
		GameIDValue:  gameID,
		RoomID:       roomID,
		Players:      playerMap,
		Settings:     cfg,
		PlayOrder:    playOrder,
		Phase:        PhasePlaying,
		Round:        1,
		PlayerScores: map[string]int{},
	}
	for _, uid := range playOrder {
		state.PlayerScores[uid] = 0
	}
	if err := dealHands(state, rng); err != nil {
		return nil, err
	}

	startIdx, found := tiles.HighestDouble(handsInOrder(state))
	if !found {
		startIdx = 0
	}
	state.StartingPlayerIndex = startIdx
	state.CurrentTurnIndex = startIdx
	state.TurnStartedAt = time.Now()
	state.History = append(state.History, "game initialized")
	return state, nil
}

func dealHands(state *State, rng *rand.Rand) error {
	set := tiles.NewSet(rng)
	state.Hands = make(map[string][]tiles.Tile, 4)
	for _, uid := range state.PlayOrder {
		hand, err := set.DealMultiple(7)
		if err != nil {
			return err
		}
		state.Hands[uid] = hand
	}
	state.Board = Board{}
	return nil
}

func handsInOrder(s *State) [][]tiles.Tile {
	out := make([][]tiles.Tile, len(s.PlayOrder))
	for i, uid := range s.PlayOrder {
		out[i] = s.Hands[uid]
	}
	return out
}
