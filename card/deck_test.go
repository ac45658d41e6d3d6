package card

import (
	"bytes"
	"testing"
)

func TestParse_RoundTripAllCards(t *testing.T) {
	for _, c := range FullDeck() {
		got, err := Parse(c.String())
		if err != nil {
			t.Fatalf("Parse(%q) err: %v", c.String(), err)
		}
		if got != c {
			t.Fatalf("Parse(%q)=0x%02x want 0x%02x", c.String(), byte(got), byte(c))
		}
	}
	if c, err := Parse("10h"); err != nil || c != New(Heart, 10) {
		t.Fatalf("Parse(10h)=%v,%v", c, err)
	}
	for _, bad := range []string{"", "A", "1s", "Ax", "ZZs"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFullDeck_52UniqueCards(t *testing.T) {
	deck := FullDeck()
	if len(deck) != 52 {
		t.Fatalf("len=%d want 52", len(deck))
	}
	seen := map[Card]bool{}
	for _, c := range deck {
		if !c.Valid() {
			t.Fatalf("invalid card in deck: 0x%02x", byte(c))
		}
		if seen[c] {
			t.Fatalf("duplicate card %s", c)
		}
		seen[c] = true
	}
}

func TestNewDeckFromSeed_DeterministicPermutation(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, SeedSize)
	a, err := NewDeckFromSeed(seed)
	if err != nil {
		t.Fatalf("NewDeckFromSeed err: %v", err)
	}
	b, _ := NewDeckFromSeed(seed)
	if a.Cards.String() != b.Cards.String() {
		t.Fatalf("same seed produced different decks")
	}
	if a.Commitment() != b.Commitment() {
		t.Fatalf("same deck produced different commitments")
	}

	other, _ := NewDeckFromSeed(bytes.Repeat([]byte{8}, SeedSize))
	if other.Cards.String() == a.Cards.String() {
		t.Fatalf("different seeds produced identical order")
	}
	if other.Commitment() == a.Commitment() {
		t.Fatalf("different decks share a commitment")
	}

	seen := map[Card]bool{}
	for _, c := range a.Cards {
		seen[c] = true
	}
	if len(seen) != 52 || len(a.Cards) != 52 {
		t.Fatalf("shuffled deck is not a permutation: %d unique of %d", len(seen), len(a.Cards))
	}
}

func TestNewDeckFromSeed_RejectsShortSeed(t *testing.T) {
	if _, err := NewDeckFromSeed([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for short seed")
	}
}

func TestNewShuffledDeck_FreshSeedEachCall(t *testing.T) {
	a, err := NewShuffledDeck()
	if err != nil {
		t.Fatalf("NewShuffledDeck err: %v", err)
	}
	b, err := NewShuffledDeck()
	if err != nil {
		t.Fatalf("NewShuffledDeck err: %v", err)
	}
	if bytes.Equal(a.Seed, b.Seed) {
		t.Fatalf("two decks share a seed")
	}
}

func TestNewDeckFromString_StacksTopCards(t *testing.T) {
	d, err := NewDeckFromString("As Kd 7c")
	if err != nil {
		t.Fatalf("NewDeckFromString err: %v", err)
	}
	if len(d.Cards) != 52 {
		t.Fatalf("len=%d want 52", len(d.Cards))
	}
	if got := d.Cards[:3].String(); got != "As Kd 7c" {
		t.Fatalf("top=%q", got)
	}
	if _, err := NewDeckFromString("As As"); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestCardList_JSONUsesCardStrings(t *testing.T) {
	in := MustParseList("As Td 2c")
	b, err := in.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON err: %v", err)
	}
	if string(b) != `["As","Td","2c"]` {
		t.Fatalf("json=%s", b)
	}
	var out CardList
	if err := out.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON err: %v", err)
	}
	if out.String() != in.String() {
		t.Fatalf("round trip=%q", out.String())
	}
}
