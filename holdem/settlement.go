package holdem

import (
	"sort"

	"holdem-live/card"
)

// ShowdownHand is one contender handed to SettleShowdown.
type ShowdownHand struct {
	Seat  int
	Value HandValue
}

// Award is a seat's share of one pot.
type Award struct {
	Seat   int   `json:"seat"`
	Amount int64 `json:"amount"`
}

// SettleShowdown splits pot among every hand tied for best. order lists seats clockwise
// from the first seat after the dealer; odd chips go one each to winners in that order.
func SettleShowdown(pot int64, hands []ShowdownHand, order []int) []Award {
	if pot <= 0 || len(hands) == 0 {
		return nil
	}
	best := hands[0].Value
	for _, h := range hands[1:] {
		if h.Value.Compare(best) > 0 {
			best = h.Value
		}
	}
	winners := make(map[int]bool, len(hands))
	for _, h := range hands {
		if h.Value.Compare(best) == 0 {
			winners[h.Seat] = true
		}
	}

	ranked := make([]int, 0, len(winners))
	for _, seat := range order {
		if winners[seat] {
			ranked = append(ranked, seat)
			delete(winners, seat)
		}
	}
	// seats missing from order still win, after the ordered ones
	rest := make([]int, 0, len(winners))
	for seat := range winners {
		rest = append(rest, seat)
	}
	sort.Ints(rest)
	ranked = append(ranked, rest...)

	share := pot / int64(len(ranked))
	remainder := pot % int64(len(ranked))
	out := make([]Award, 0, len(ranked))
	for i, seat := range ranked {
		amt := share
		if int64(i) < remainder {
			amt++
		}
		out = append(out, Award{Seat: seat, Amount: amt})
	}
	return out
}

// PotResult records how one pot was split.
type PotResult struct {
	Amount   int64   `json:"amount"`
	Eligible []int   `json:"eligible"`
	Awards   []Award `json:"awards"`
}

// SeatResult is one seat's line in a hand result.
type SeatResult struct {
	Seat      int           `json:"seat"`
	UserID    string        `json:"userId"`
	Won       int64         `json:"won"`
	Winner    bool          `json:"winner"`
	Category  string        `json:"category,omitempty"`
	HoleCards card.CardList `json:"holeCards,omitempty"`
	Best      card.CardList `json:"best,omitempty"`
}

// HandResult is what clients see about the last finished hand.
type HandResult struct {
	HandID     string        `json:"handId"`
	HandNumber int           `json:"handNumber"`
	Showdown   bool          `json:"showdown"`
	Community  card.CardList `json:"community"`
	Pots       []PotResult   `json:"pots"`
	Seats      []SeatResult  `json:"seats"`
}

func (r *HandResult) clone() *HandResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Community = r.Community.Clone()
	cp.Pots = make([]PotResult, len(r.Pots))
	for i, p := range r.Pots {
		p.Eligible = append([]int(nil), p.Eligible...)
		p.Awards = append([]Award(nil), p.Awards...)
		cp.Pots[i] = p
	}
	cp.Seats = make([]SeatResult, len(r.Seats))
	for i, s := range r.Seats {
		s.HoleCards = s.HoleCards.Clone()
		s.Best = s.Best.Clone()
		cp.Seats[i] = s
	}
	return &cp
}

// Winners lists the seats that won any chips.
func (r *HandResult) Winners() []int {
	var out []int
	for _, s := range r.Seats {
		if s.Winner {
			out = append(out, s.Seat)
		}
	}
	return out
}

// settleByEval runs the evaluator over every live seat and pays each pot layer.
func (t *Table) settleByEval() (*HandResult, error) {
	h := t.Hand
	values := make(map[int]HandValue)
	for _, s := range t.Seats {
		if s == nil || !s.live() {
			continue
		}
		all := make(card.CardList, 0, 7)
		all = append(all, s.HoleCards...)
		all = append(all, h.Community...)
		v, err := Evaluate(all)
		if err != nil {
			return nil, err
		}
		values[s.Index] = v
	}

	order := t.clockwiseFrom(h.Dealer, func(s *Seat) bool { return s.InHand })
	res := &HandResult{HandID: h.ID, HandNumber: h.Number, Showdown: true, Community: h.Community.Clone()}
	won := make(map[int]int64)
	contested := make(map[int]bool)
	for _, pot := range buildPots(t.Seats) {
		hands := make([]ShowdownHand, 0, len(pot.Eligible))
		for _, seat := range pot.Eligible {
			hands = append(hands, ShowdownHand{Seat: seat, Value: values[seat]})
		}
		awards := SettleShowdown(pot.Amount, hands, order)
		for _, a := range awards {
			won[a.Seat] += a.Amount
			// a single-seat layer is an uncalled refund, not a win
			if len(pot.Eligible) > 1 && a.Amount > 0 {
				contested[a.Seat] = true
			}
		}
		res.Pots = append(res.Pots, PotResult{Amount: pot.Amount, Eligible: pot.Eligible, Awards: awards})
	}

	for _, s := range t.Seats {
		if s == nil || !s.InHand {
			continue
		}
		s.Chips += won[s.Index]
		sr := SeatResult{Seat: s.Index, UserID: s.UserID, Won: won[s.Index]}
		if v, ok := values[s.Index]; ok {
			sr.Category = v.Name()
			sr.HoleCards = s.HoleCards.Clone()
			sr.Best = v.Best.Clone()
			sr.Winner = contested[s.Index]
		}
		res.Seats = append(res.Seats, sr)
	}
	return res, nil
}

// settleNoShowdown 无摊牌：只剩一个未弃牌玩家，整池归他，不需要比牌
func (t *Table) settleNoShowdown() (*HandResult, error) {
	h := t.Hand
	winner := t.nextSeat(h.Dealer, (*Seat).live)
	if winner == NoSeat {
		return nil, ErrInvalidState("no winner in no-showdown state")
	}
	w := t.Seats[winner]
	w.Chips += h.Pot
	res := &HandResult{
		HandID:     h.ID,
		HandNumber: h.Number,
		Community:  h.Community.Clone(),
		Pots: []PotResult{{
			Amount:   h.Pot,
			Eligible: []int{winner},
			Awards:   []Award{{Seat: winner, Amount: h.Pot}},
		}},
	}
	for _, s := range t.Seats {
		if s == nil || !s.InHand {
			continue
		}
		sr := SeatResult{Seat: s.Index, UserID: s.UserID}
		if s.Index == winner {
			sr.Won = h.Pot
			sr.Winner = true
		}
		res.Seats = append(res.Seats, sr)
	}
	return res, nil
}
