package holdem

import "sort"

// Pot is one layer of the pot and the live seats that may win it.
type Pot struct {
	Amount   int64 `json:"amount"`
	Eligible []int `json:"eligible"`
}

// buildPots layers the hand contributions into a main pot and side pots.
// 按照每个座位本手牌的总投入分层；弃牌座位的筹码留在池中但不参与分配。
func buildPots(seats []*Seat) []Pot {
	levels := make([]int64, 0, len(seats))
	seenLevel := make(map[int64]bool, len(seats))
	for _, s := range seats {
		if s == nil || !s.InHand || s.Contributed <= 0 {
			continue
		}
		if !seenLevel[s.Contributed] {
			seenLevel[s.Contributed] = true
			levels = append(levels, s.Contributed)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []Pot
	var carry int64
	prev := int64(0)
	for _, level := range levels {
		p := Pot{}
		for _, s := range seats {
			if s == nil || !s.InHand {
				continue
			}
			p.Amount += clampContribution(s.Contributed, level) - clampContribution(s.Contributed, prev)
			if s.live() && s.Contributed >= level {
				p.Eligible = append(p.Eligible, s.Index)
			}
		}
		prev = level
		if len(p.Eligible) == 0 {
			// nobody live funded this layer: fold it into the previous pot
			if len(pots) > 0 {
				pots[len(pots)-1].Amount += p.Amount
			} else {
				carry += p.Amount
			}
			continue
		}
		p.Amount += carry
		carry = 0

		// 检查最后一个底池是否具有相同参与者，如果是则合并金额
		if n := len(pots); n > 0 && sameSeats(pots[n-1].Eligible, p.Eligible) {
			pots[n-1].Amount += p.Amount
			continue
		}
		pots = append(pots, p)
	}
	return pots
}

func clampContribution(contributed, level int64) int64 {
	if contributed < level {
		return contributed
	}
	return level
}

func sameSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
