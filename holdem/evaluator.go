package holdem

import (
	"fmt"
	"sort"

	"holdem-live/card"
)

// HandValue orders hands: category first, then TieBreak. Bigger is stronger.
type HandValue struct {
	Category byte          `json:"category"`
	TieBreak uint32        `json:"tieBreak"`
	Best     card.CardList `json:"best"`
}

// Score packs category and tie-break into one comparable number.
func (v HandValue) Score() uint32 { return uint32(v.Category)<<20 | v.TieBreak }

func (v HandValue) Compare(o HandValue) int {
	a, b := v.Score(), o.Score()
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

func (v HandValue) Name() string { return CategoryName(v.Category) }

// Evaluate returns the best five-card value of 5..7 cards.
func Evaluate(cards []card.Card) (HandValue, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandValue{}, fmt.Errorf("evaluate needs 5..7 cards, got %d", len(cards))
	}
	seen := make(map[card.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return HandValue{}, fmt.Errorf("invalid card 0x%02x", byte(c))
		}
		if seen[c] {
			return HandValue{}, fmt.Errorf("duplicate card %s", c)
		}
		seen[c] = true
	}

	var best HandValue
	found := false
	n := len(cards)
	var five [5]card.Card
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						five = [5]card.Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						cat, tb := eval5(five)
						v := HandValue{Category: cat, TieBreak: tb}
						if !found || v.Compare(best) > 0 {
							v.Best = append(card.CardList{}, five[:]...)
							best = v
							found = true
						}
					}
				}
			}
		}
	}
	return best, nil
}

type rankGroup struct {
	rank  int
	count int
}

func eval5(cards [5]card.Card) (byte, uint32) {
	flush := true
	counts := make(map[int]int, 5)
	for i, c := range cards {
		counts[c.HandRealVal()]++
		if i > 0 && c.Suit() != cards[0].Suit() {
			flush = false
		}
	}

	groups := make([]rankGroup, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, rankGroup{rank: r, count: n})
	}
	// 按张数降序，再按点数降序
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	ordered := make([]int, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g.rank)
	}

	straightHigh := 0
	if len(groups) == 5 {
		if ordered[0]-ordered[4] == 4 {
			straightHigh = ordered[0]
		} else if ordered[0] == 14 && ordered[1] == 5 {
			// wheel: A-2-3-4-5 is the lowest straight
			straightHigh = 5
		}
	}

	switch {
	case straightHigh > 0 && flush && straightHigh == 14:
		return HandRoyalFlush, pack(14)
	case straightHigh > 0 && flush:
		return HandStraightFlush, pack(straightHigh)
	case groups[0].count == 4:
		return HandFourOfKind, pack(ordered...)
	case groups[0].count == 3 && groups[1].count == 2:
		return HandFullHouse, pack(ordered...)
	case flush:
		return HandFlush, pack(ordered...)
	case straightHigh > 0:
		return HandStraight, pack(straightHigh)
	case groups[0].count == 3:
		return HandThreeOfKind, pack(ordered...)
	case groups[0].count == 2 && groups[1].count == 2:
		return HandTwoPair, pack(ordered...)
	case groups[0].count == 2:
		return HandOnePair, pack(ordered...)
	}
	return HandHighCard, pack(ordered...)
}

// pack writes significant ranks as 4-bit digits, most significant first, left aligned
// to five digits so that shorter lists still compare correctly within a category.
func pack(ranks ...int) uint32 {
	var v uint32
	for i := 0; i < 5; i++ {
		v <<= 4
		if i < len(ranks) {
			v |= uint32(ranks[i])
		}
	}
	return v
}
