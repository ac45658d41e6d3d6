package npc

import (
	"holdem-live/card"
	"holdem-live/holdem"
)

// GameView is the part of a table snapshot a bot decides on.
type GameView struct {
	Phase       holdem.Phase
	HoleCards   card.CardList
	Community   card.CardList
	Pot         int64
	CurrentBet  int64
	MyBet       int64
	MyStack     int64
	Legal       holdem.LegalActions
	ActiveCount int
	Street      int // 0=preflop, 1=flop, 2=turn, 3=river
}

// Decision is what a Brain returns. Amount is the "to" total for bet and raise and is
// ignored otherwise.
type Decision struct {
	Action holdem.ActionType
	Amount int64
}

// Brain picks a move for the seat on the clock.
type Brain interface {
	Decide(view GameView) Decision
	Name() string
}

// Observe projects a viewer-scoped snapshot into a GameView. It reports false when the
// viewer is not the acting seat.
func Observe(v holdem.View) (GameView, bool) {
	if v.Hand == nil || v.Viewer.Legal == nil || v.Hand.Acting != v.Viewer.Seat {
		return GameView{}, false
	}
	view := GameView{
		Phase:      v.Hand.Phase,
		Community:  v.Hand.Community,
		Pot:        v.Hand.Pot,
		CurrentBet: v.Hand.CurrentBet,
		Legal:      *v.Viewer.Legal,
		Street:     int(v.Hand.Phase - holdem.PhaseTypePreflop),
	}
	for _, s := range v.Seats {
		if s.InHand && !s.Folded {
			view.ActiveCount++
		}
		if s.Index == v.Viewer.Seat {
			view.HoleCards = s.HoleCards
			view.MyBet = s.Committed
			view.MyStack = s.Chips
		}
	}
	return view, true
}

// Legalize clamps d to what the engine accepts right now. A kind that is not on offer
// falls back to check, then call, then fold.
func Legalize(d Decision, legal holdem.LegalActions) Decision {
	if !contains(legal.Kinds, d.Action) {
		for _, k := range []holdem.ActionType{holdem.PlayerActionTypeCheck, holdem.PlayerActionTypeCall} {
			if contains(legal.Kinds, k) {
				return Decision{Action: k}
			}
		}
		return Decision{Action: holdem.PlayerActionTypeFold}
	}
	switch d.Action {
	case holdem.PlayerActionTypeBet:
		d.Amount = min(max(d.Amount, legal.MinBet), legal.MaxTo)
	case holdem.PlayerActionTypeRaise:
		d.Amount = min(max(d.Amount, legal.MinRaise), legal.MaxTo)
	default:
		d.Amount = 0
	}
	return d
}
