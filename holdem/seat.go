package holdem

import (
	"time"

	"holdem-live/card"
)

// Seat is one table position. Per-hand fields are only meaningful while InHand.
type Seat struct {
	Index    int    `json:"index"`
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	Chips    int64  `json:"chips"`
	Ready    bool   `json:"ready"`
	Absent   bool   `json:"absent"`

	// LeavePending frees the seat once the current hand ends.
	LeavePending bool `json:"leavePending,omitempty"`

	InHand       bool          `json:"inHand"`
	Folded       bool          `json:"folded"`
	Committed    int64         `json:"committed"`
	Contributed  int64         `json:"contributed"`
	HoleCards    card.CardList `json:"holeCards,omitempty"`
	LastActionAt time.Time     `json:"lastActionAt"`
}

// AllIn 已全下：仍在手牌中但没有筹码
func (s *Seat) AllIn() bool { return s.InHand && !s.Folded && s.Chips == 0 }

// live seats still contest the pot.
func (s *Seat) live() bool { return s.InHand && !s.Folded }

// canAct seats are in turn rotation.
func (s *Seat) canAct() bool { return s.InHand && !s.Folded && s.Chips > 0 }

// pay moves up to amount chips from the stack into the phase bet and returns what moved.
func (s *Seat) pay(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	if amount > s.Chips {
		amount = s.Chips
	}
	s.Chips -= amount
	s.Committed += amount
	s.Contributed += amount
	return amount
}

func (s *Seat) resetForHand() {
	s.InHand = false
	s.Folded = false
	s.Committed = 0
	s.Contributed = 0
	s.HoleCards = nil
}

func (s *Seat) clone() *Seat {
	if s == nil {
		return nil
	}
	cp := *s
	cp.HoleCards = s.HoleCards.Clone()
	return &cp
}
