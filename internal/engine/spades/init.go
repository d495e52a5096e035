package spades

import (
	"math/rand"
	"time"

	"cardroom/internal/cards"
	"cardroom/internal/engine"
	"cardroom/internal/engine/settings"
	"cardroom/internal/roomerrors"
)

const Type = "spades"

// Module implements engine.Module for Spades. rngFactory lets tests inject
// a deterministic source; production wires a time-seeded one.
type Module struct {
	rngFactory func() *rand.Rand
}

func NewModule() *Module {
	return &Module{rngFactory: func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }}
}

// NewModuleWithRand is used by tests wanting deterministic shuffles.
func NewModuleWithRand(rng *rand.Rand) *Module {
	return &Module{rngFactory: func() *rand.Rand { return rng }}
}

func (m *Module) Type() string { return Type }

func (m *Module) Metadata() engine.Metadata {
	return engine.Metadata{
		Type:           Type,
		DisplayName:    "Spades",
		RequiresTeams:  true,
		MinPlayers:     4,
		MaxPlayers:     4,
		NumTeams:       2,
		PlayersPerTeam: 2,
	}
}

func (m *Module) SettingsDefinitions() []settings.Definition { return Definitions() }
func (m *Module) DefaultSettings() map[string]any            { return DefaultSettingsMap() }

// Init builds a fresh Spades game: playOrder is built by interleaving the
// room's leader-assigned teams (seats 0,2 -> team1; seats 1,3 -> team2, per
// teamIDForSeat), so the alternating-team structure reflects the actual
// assignment rather than arbitrary join order (spec.md §4.6, §4.2). Random
// dealer, shuffled deal, sorted hands, phase=bidding.
func (m *Module) Init(gameID, roomID string, users []engine.User, teams [][]string, rawSettings map[string]any) (engine.State, error) {
	if len(users) != 4 {
		return nil, roomerrors.BadRequest("spades requires exactly 4 players, got %d", len(users))
	}
	playOrder, err := playOrderFromTeams(teams)
	if err != nil {
		return nil, err
	}
	validated := settings.Validate(Definitions(), rawSettings)
	cfg := FromMap(validated)

	rng := m.rngFactory()
	dealerIndex := rng.Intn(4)

	state := &State{
		GameIDValue:          gameID,
		RoomID:               roomID,
		Players:              usersMap(users),
		Settings:             cfg,
		Teams:                buildTeams(playOrder),
		PlayOrder:            playOrder,
		DealerIndex:          dealerIndex,
		CurrentTurnIndex:     dealerIndex,
		Phase:                PhaseBidding,
		Round:                1,
		TeamEligibleForBlind: map[string]bool{"team1": false, "team2": false},
		TurnStartedAt:        time.Now(),
		Bids:                 make(map[string]Bid),
		CompletedTricks:      []CompletedTrick{},
	}
	if err := dealHands(state, rng); err != nil {
		return nil, err
	}
	state.History = append(state.History, "game initialized")
	return state, nil
}

// playOrderFromTeams interleaves two strictly-filled 2-player teams into a
// 4-seat play order: seat i and i+2 are teammates (teamIDForSeat), so
// teams[0] occupies seats 0,2 and teams[1] occupies seats 1,3.
func playOrderFromTeams(teams [][]string) ([]string, error) {
	if len(teams) != 2 || len(teams[0]) != 2 || len(teams[1]) != 2 {
		return nil, roomerrors.BadRequest("spades requires exactly 2 teams of 2 players")
	}
	return []string{teams[0][0], teams[1][0], teams[0][1], teams[1][1]}, nil
}

func usersMap(users []engine.User) map[string]engine.User {
	out := make(map[string]engine.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}

func buildTeams(playOrder []string) map[string]*Team {
	teams := map[string]*Team{
		"team1": {ID: "team1"},
		"team2": {ID: "team2"},
	}
	for i, uid := range playOrder {
		tid := teamIDForSeat(i)
		teams[tid].Players = append(teams[tid].Players, uid)
	}
	return teams
}

func dealHands(state *State, rng *rand.Rand) error {
	deck := cards.NewDeck(rng, cards.DeckOptions{
		RemoveTwoOfClubsAndDiamonds: state.Settings.JokersEnabled,
		IncludeJokers:               state.Settings.JokersEnabled,
	})
	state.Hands = make(map[string][]cards.Card, 4)
	for _, uid := range state.PlayOrder {
		hand, err := deck.DealMultiple(13)
		if err != nil {
			return err
		}
		cards.SortHand(hand)
		state.Hands[uid] = hand
	}
	return nil
}
