package cards

import (
	"math/rand"
	"testing"
)

func TestNewDeck_StandardSizeNoJokers(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(42)), DeckOptions{})
	if d.CardsRemaining() != 52 {
		t.Errorf("expected 52 cards, got %d", d.CardsRemaining())
	}
}

func TestNewDeck_JokersAndRemovedTwos(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(42)), DeckOptions{RemoveTwoOfClubsAndDiamonds: true, IncludeJokers: true})
	// 52 - 2 removed twos + 2 jokers = 52
	if d.CardsRemaining() != 52 {
		t.Errorf("expected 52 cards, got %d", d.CardsRemaining())
	}
	seen := map[Card]bool{}
	for {
		c, err := d.Deal()
		if err != nil {
			break
		}
		if seen[c] {
			t.Fatalf("duplicate card dealt: %v", c)
		}
		seen[c] = true
		if c.Rank == Two && (c.Suit == Clubs || c.Suit == Diamonds) {
			t.Errorf("two of clubs/diamonds should have been removed, got %v", c)
		}
	}
}

func TestDeck_DealDeterministicUnderSeed(t *testing.T) {
	d1 := NewDeck(rand.New(rand.NewSource(42)), DeckOptions{})
	d2 := NewDeck(rand.New(rand.NewSource(42)), DeckOptions{})

	h1, err := d1.DealMultiple(13)
	if err != nil {
		t.Fatalf("deal: %v", err)
	}
	h2, err := d2.DealMultiple(13)
	if err != nil {
		t.Fatalf("deal: %v", err)
	}
	for i := range h1 {
		if h1[i] != h2[i] {
			t.Fatalf("same seed produced different deals at index %d: %v vs %v", i, h1[i], h2[i])
		}
	}
}

func TestDeck_DealMultipleExhausted(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(1)), DeckOptions{})
	if _, err := d.DealMultiple(53); err == nil {
		t.Error("expected error dealing more cards than the deck holds")
	}
}

func TestSortHand_OrdersBySuitThenRank(t *testing.T) {
	hand := []Card{
		{Rank: Ace, Suit: Diamonds},
		{Rank: Two, Suit: Spades},
		{Rank: King, Suit: Hearts},
		{Rank: Three, Suit: Spades},
	}
	SortHand(hand)
	if hand[0].Suit != Diamonds {
		t.Errorf("expected diamonds first, got %v", hand[0])
	}
	if hand[len(hand)-1].Suit != Spades || hand[len(hand)-1].Rank != Three {
		t.Errorf("expected 3 of spades last, got %v", hand[len(hand)-1])
	}
}

func TestBeats_SpadeBeatsLeadSuit(t *testing.T) {
	lead := Hearts
	spade := Card{Rank: Two, Suit: Spades}
	heart := Card{Rank: Ace, Suit: Hearts}
	if !Beats(spade, heart, lead, false, false) {
		t.Error("expected spade to beat the ace of the lead suit")
	}
	if Beats(heart, spade, lead, false, false) {
		t.Error("lead-suit ace should not beat a spade")
	}
}

func TestBeats_OffSuitNeverWins(t *testing.T) {
	lead := Hearts
	club := Card{Rank: Ace, Suit: Clubs}
	heart := Card{Rank: Two, Suit: Hearts}
	if Beats(club, heart, lead, false, false) {
		t.Error("an off-suit, non-spade card can never beat the lead suit")
	}
}

func TestBeats_DeuceOfSpadesHigh(t *testing.T) {
	deuce := Card{Rank: Two, Suit: Spades}
	ace := Card{Rank: Ace, Suit: Spades}
	if !Beats(deuce, ace, Hearts, false, true) {
		t.Error("expected 2 of spades to beat ace of spades when deuceOfSpadesHigh is set")
	}
	if Beats(deuce, ace, Hearts, false, false) {
		t.Error("2 of spades should not beat ace of spades when the rule is off")
	}
}

func TestBeats_JokerBeatsEverything(t *testing.T) {
	bigJoker := Card{Rank: BigJoker, Suit: Spades}
	littleJoker := Card{Rank: LittleJoker, Suit: Spades}
	ace := Card{Rank: Ace, Suit: Spades}
	if !Beats(bigJoker, ace, Spades, true, false) {
		t.Error("big joker should beat ace of spades")
	}
	if !Beats(bigJoker, littleJoker, Spades, true, false) {
		t.Error("big joker should beat little joker")
	}
	if Beats(littleJoker, bigJoker, Spades, true, false) {
		t.Error("little joker should not beat big joker")
	}
}
