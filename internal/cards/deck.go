// Package cards implements card representation, deck construction, and
// shuffling for the trick-taking game module.
package cards

import (
	"fmt"
	"math/rand"
)

type Suit string
type Rank string

const (
	Spades   Suit = "S"
	Hearts   Suit = "H"
	Clubs    Suit = "C"
	Diamonds Suit = "D"
)

const (
	Two         Rank = "2"
	Three       Rank = "3"
	Four        Rank = "4"
	Five        Rank = "5"
	Six         Rank = "6"
	Seven       Rank = "7"
	Eight       Rank = "8"
	Nine        Rank = "9"
	Ten         Rank = "T"
	Jack        Rank = "J"
	Queen       Rank = "Q"
	King        Rank = "K"
	Ace         Rank = "A"
	LittleJoker Rank = "LJ"
	BigJoker    Rank = "BJ"
)

// Card is a single playing card. Jokers always carry suit Spades, matching
// spec.md's data model.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

func (c Card) IsJoker() bool {
	return c.Rank == LittleJoker || c.Rank == BigJoker
}

// baseRank returns the ordinal rank used for same-suit comparisons, ignoring
// the deuce-of-spades-high rule (callers apply that separately).
func (c Card) baseRank() int {
	switch c.Rank {
	case Two:
		return 2
	case Three:
		return 3
	case Four:
		return 4
	case Five:
		return 5
	case Six:
		return 6
	case Seven:
		return 7
	case Eight:
		return 8
	case Nine:
		return 9
	case Ten:
		return 10
	case Jack:
		return 11
	case Queen:
		return 12
	case King:
		return 13
	case Ace:
		return 14
	case LittleJoker:
		return 100
	case BigJoker:
		return 101
	}
	return 0
}

// suitOrder ranks suits for hand sorting: Spades > Hearts > Clubs > Diamonds.
func suitOrder(s Suit) int {
	switch s {
	case Spades:
		return 3
	case Hearts:
		return 2
	case Clubs:
		return 1
	case Diamonds:
		return 0
	}
	return -1
}

// SortHand orders a hand by suit (Spades>Hearts>Clubs>Diamonds) then rank,
// low to high, with jokers (if present) sorted last among spades.
func SortHand(hand []Card) {
	less := func(i, j int) bool {
		a, b := hand[i], hand[j]
		sa, sb := suitOrder(a.Suit), suitOrder(b.Suit)
		if sa != sb {
			return sa < sb
		}
		return a.baseRank() < b.baseRank()
	}
	// insertion sort: hands are at most 13 cards, no need for sort.Slice import churn
	for i := 1; i < len(hand); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			hand[j], hand[j-1] = hand[j-1], hand[j]
		}
	}
}

// Deck is a shuffled stack of cards backed by an injectable random source so
// callers can reproduce a deal deterministically under a fixed seed.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// DeckOptions controls which cards a deck is built from.
type DeckOptions struct {
	RemoveTwoOfClubsAndDiamonds bool
	IncludeJokers               bool
}

// NewDeck builds and shuffles a deck using rng for all randomness. Passing
// the same rng seed always yields the same shuffle.
func NewDeck(rng *rand.Rand, opts DeckOptions) *Deck {
	d := &Deck{rng: rng}
	d.Reset(opts)
	return d
}

func (d *Deck) Reset(opts DeckOptions) {
	suits := []Suit{Spades, Hearts, Clubs, Diamonds}
	ranks := []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

	d.cards = make([]Card, 0, 54)
	for _, suit := range suits {
		for _, rank := range ranks {
			if opts.RemoveTwoOfClubsAndDiamonds && rank == Two && (suit == Clubs || suit == Diamonds) {
				continue
			}
			d.cards = append(d.cards, Card{Rank: rank, Suit: suit})
		}
	}
	if opts.IncludeJokers {
		d.cards = append(d.cards, Card{Rank: LittleJoker, Suit: Spades}, Card{Rank: BigJoker, Suit: Spades})
	}
	d.Shuffle()
}

// Shuffle performs an in-place Fisher-Yates shuffle using the deck's rng.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

func (d *Deck) Deal() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, fmt.Errorf("deck is empty")
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

func (d *Deck) DealMultiple(n int) ([]Card, error) {
	if len(d.cards) < n {
		return nil, fmt.Errorf("not enough cards in deck: requested %d, available %d", n, len(d.cards))
	}
	out := make([]Card, n)
	for i := 0; i < n; i++ {
		c, err := d.Deal()
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}

// Beats reports whether card a beats card b when a is compared against b
// under the given lead suit and rule settings. Both-joker and joker-vs-card
// comparisons are resolved first, then same-suit rank, then the led-suit
// rule: spades beat everything else; otherwise only the lead suit wins.
func Beats(a, b Card, leadSuit Suit, jokersEnabled, deuceOfSpadesHigh bool) bool {
	if jokersEnabled && (a.IsJoker() || b.IsJoker()) {
		if a.IsJoker() && b.IsJoker() {
			return a.baseRank() > b.baseRank()
		}
		return a.IsJoker()
	}

	aRank, bRank := rankValue(a, deuceOfSpadesHigh), rankValue(b, deuceOfSpadesHigh)

	if a.Suit == b.Suit {
		return aRank > bRank
	}
	if a.Suit == Spades {
		return true
	}
	if b.Suit == Spades {
		return false
	}
	// neither is a spade and suits differ: only the lead suit can win
	if a.Suit == leadSuit && b.Suit != leadSuit {
		return true
	}
	return false
}

// rankValue returns a's comparison rank, promoting the 2 of spades above the
// ace of spades (but below jokers) when deuceOfSpadesHigh is set.
func rankValue(c Card, deuceOfSpadesHigh bool) int {
	if deuceOfSpadesHigh && c.Suit == Spades && c.Rank == Two {
		return 15 // above ace(14), below joker ranks(100,101)
	}
	return c.baseRank()
}
