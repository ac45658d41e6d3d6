package holdem

import (
	"time"

	"holdem-live/card"
)

// ActionRecord is immutable once appended.
type ActionRecord struct {
	Seat   int        `json:"seat"`
	UserID string     `json:"userId"`
	Kind   ActionType `json:"kind"`
	// Amount is the chips this action moved into the pot.
	Amount int64     `json:"amount"`
	Phase  Phase     `json:"phase"`
	At     time.Time `json:"at"`

	Forced     bool `json:"forced,omitempty"`
	Auto       bool `json:"auto,omitempty"`
	Aggressive bool `json:"aggressive,omitempty"`

	Pot        int64 `json:"pot"`
	CurrentBet int64 `json:"currentBet"`
}

// Hand is one dealt round of cards.
type Hand struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Phase  Phase  `json:"phase"`

	Dealer     int `json:"dealer"`
	SmallBlind int `json:"smallBlind"`
	BigBlind   int `json:"bigBlind"`
	Acting     int `json:"acting"`

	CurrentBet int64         `json:"currentBet"`
	Pot        int64         `json:"pot"`
	Community  card.CardList `json:"community"`

	// Actions holds the current phase only; History holds the whole hand.
	Actions []ActionRecord `json:"actions"`
	History []ActionRecord `json:"history"`

	Stock      card.CardList `json:"stock"`
	Seed       []byte        `json:"seed,omitempty"`
	Commitment string        `json:"commitment"`

	StartChips    map[int]int64 `json:"startChips"`
	ExpectedTotal int64         `json:"expectedTotal"`

	StartedAt    time.Time `json:"startedAt"`
	TurnDeadline time.Time `json:"turnDeadline"`
}

func (h *Hand) clone() *Hand {
	if h == nil {
		return nil
	}
	cp := *h
	cp.Community = h.Community.Clone()
	cp.Stock = h.Stock.Clone()
	cp.Seed = append([]byte(nil), h.Seed...)
	cp.Actions = append([]ActionRecord(nil), h.Actions...)
	cp.History = append([]ActionRecord(nil), h.History...)
	cp.StartChips = make(map[int]int64, len(h.StartChips))
	for k, v := range h.StartChips {
		cp.StartChips[k] = v
	}
	return &cp
}

func (h *Hand) append(rec ActionRecord) {
	h.Actions = append(h.Actions, rec)
	h.History = append(h.History, rec)
}

// lastAggression is the index in Actions of the latest voluntary record that raised the
// current bet, or -1.
func (h *Hand) lastAggression() int {
	idx := -1
	for i, a := range h.Actions {
		if !a.Forced && a.Aggressive {
			idx = i
		}
	}
	return idx
}

// actedSince reports whether seat has a voluntary record at or after from.
func (h *Hand) actedSince(seat, from int) bool {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(h.Actions); i++ {
		a := h.Actions[i]
		if a.Seat == seat && !a.Forced {
			return true
		}
	}
	return false
}

func (h *Hand) deal(n int) card.CardList {
	cards, ok := h.Stock.PopCards(n)
	if !ok {
		panic(ErrInvalidState("deck underflow"))
	}
	return cards
}
