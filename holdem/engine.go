package holdem

import (
	"crypto/rand"
	"math/big"
	"time"

	"holdem-live/card"
)

// Outcome describes what one accepted operation did to the hand.
type Outcome struct {
	Action       *ActionRecord
	HandStarted  bool
	PhaseChanged bool
	Phase        Phase
	HandEnded    bool
	Result       *HandResult
	Record       *CompletedHand
	Violation    *InvariantViolation
}

// StartHand moves a waiting table to preflop: rotates the button, posts blinds and deals
// hole cards from deck. The table is left untouched on error.
func (t *Table) StartHand(requester string, deck card.Deck, handID string, now time.Time) (*Outcome, error) {
	if err := t.CanStart(requester); err != nil {
		return nil, err
	}
	if len(deck.Cards) < 2*len(t.Seats)+5 {
		return nil, ErrInvalidState("deck too short")
	}
	out := &Outcome{HandStarted: true}
	err := t.commit(now, func(next *Table) error {
		return next.startHand(deck, handID, now, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Table) startHand(deck card.Deck, handID string, now time.Time, out *Outcome) error {
	h := &Hand{
		ID:         handID,
		Number:     t.HandNumber,
		Phase:      PhaseTypePreflop,
		Acting:     NoSeat,
		Stock:      deck.Cards.Clone(),
		Seed:       append([]byte(nil), deck.Seed...),
		Commitment: deck.Commitment(),
		StartChips: make(map[int]int64),
		StartedAt:  now,
	}
	for _, s := range t.Seats {
		if s == nil {
			continue
		}
		s.resetForHand()
		if s.Chips > 0 {
			s.InHand = true
			h.StartChips[s.Index] = s.Chips
			h.ExpectedTotal += s.Chips
		}
	}
	t.Hand = h
	t.Status = StatusPlaying
	t.LastResult = nil

	inHand := func(s *Seat) bool { return s.InHand }
	players := t.countSeats(inHand)
	if t.LastDealer == NoSeat {
		idx, err := randomIndex(players)
		if err != nil {
			return err
		}
		h.Dealer = t.clockwiseFrom(-1, inHand)[idx]
	} else {
		h.Dealer = t.nextSeat(t.LastDealer, inHand)
	}
	// 单挑时庄家即小盲
	if players == 2 {
		h.SmallBlind = h.Dealer
	} else {
		h.SmallBlind = t.nextSeat(h.Dealer, inHand)
	}
	h.BigBlind = t.nextSeat(h.SmallBlind, inHand)

	t.postBlind(h.SmallBlind, t.Settings.SmallBlind, now)
	t.postBlind(h.BigBlind, t.Settings.BigBlind, now)
	h.CurrentBet = t.Settings.BigBlind

	order := t.clockwiseFrom(h.SmallBlind-1, inHand)
	for round := 0; round < 2; round++ {
		for _, idx := range order {
			t.Seats[idx].HoleCards = append(t.Seats[idx].HoleCards, h.deal(1)...)
		}
	}
	return t.progress(now, h.BigBlind, out)
}

func (t *Table) postBlind(idx int, blind int64, now time.Time) {
	h := t.Hand
	s := t.Seats[idx]
	paid := s.pay(blind)
	h.Pot += paid
	h.append(ActionRecord{
		Seat:       idx,
		UserID:     s.UserID,
		Kind:       PlayerActionTypeBet,
		Amount:     paid,
		Phase:      h.Phase,
		At:         now,
		Forced:     true,
		Pot:        h.Pot,
		CurrentBet: max(h.CurrentBet, s.Committed),
	})
}

func randomIndex(n int) (int, error) {
	if n <= 1 {
		return 0, nil
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// Act validates and applies an action for seat.
func (t *Table) Act(seat int, kind ActionType, amount int64, now time.Time) (*Outcome, error) {
	if err := t.Validate(seat, kind, amount, now); err != nil {
		return nil, err
	}
	return t.applyCommitted(seat, kind, amount, now, false)
}

// ActAs resolves userID to its seat and calls Act.
func (t *Table) ActAs(userID string, kind ActionType, amount int64, now time.Time) (*Outcome, error) {
	if t.Status != StatusPlaying || t.Hand == nil {
		return nil, reject(ReasonTableNotPlaying, "status=%s", t.Status)
	}
	s := t.SeatOf(userID)
	if s == nil {
		return nil, ErrNotSeated
	}
	return t.Act(s.Index, kind, amount, now)
}

// Timeout synthesizes check, or fold when a check is not legal, for an acting seat whose
// deadline has passed. It returns nil when nothing is due.
func (t *Table) Timeout(now time.Time) (*Outcome, error) {
	h := t.Hand
	if t.Status != StatusPlaying || h == nil || h.Phase >= PhaseTypeShowdown || h.Acting == NoSeat {
		return nil, nil
	}
	if h.TurnDeadline.IsZero() || now.Before(h.TurnDeadline) {
		return nil, nil
	}
	s := t.seat(h.Acting)
	if s == nil || !s.canAct() {
		return nil, ErrInvalidState("acting seat cannot act")
	}
	kind := PlayerActionTypeFold
	if s.Committed >= h.CurrentBet {
		kind = PlayerActionTypeCheck
	}
	return t.applyCommitted(h.Acting, kind, 0, now, true)
}

func (t *Table) applyCommitted(seat int, kind ActionType, amount int64, now time.Time, auto bool) (*Outcome, error) {
	out := &Outcome{}
	err := t.commit(now, func(next *Table) error {
		return next.apply(seat, kind, amount, now, auto, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Table) apply(seat int, kind ActionType, amount int64, now time.Time, auto bool, out *Outcome) error {
	h := t.Hand
	s := t.Seats[seat]
	before := h.CurrentBet

	var moved int64
	switch kind {
	case PlayerActionTypeCheck:
	case PlayerActionTypeCall:
		moved = s.pay(h.CurrentBet - s.Committed)
	case PlayerActionTypeBet, PlayerActionTypeRaise:
		moved = s.pay(amount - s.Committed)
	case PlayerActionTypeAllin:
		moved = s.pay(s.Chips)
	case PlayerActionTypeFold:
		s.Folded = true
	default:
		return ErrInvalidState("unknown action " + kind.String())
	}
	h.Pot += moved
	if s.Committed > h.CurrentBet {
		h.CurrentBet = s.Committed
	}
	if !auto {
		s.LastActionAt = now
	}

	rec := ActionRecord{
		Seat:       seat,
		UserID:     s.UserID,
		Kind:       kind,
		Amount:     moved,
		Phase:      h.Phase,
		At:         now,
		Auto:       auto,
		Aggressive: h.CurrentBet > before,
		Pot:        h.Pot,
		CurrentBet: h.CurrentBet,
	}
	h.append(rec)
	out.Action = &rec
	return t.progress(now, seat, out)
}

// needsToAct: a seat that can act owes a decision while it is below the current bet, or
// has not acted voluntarily since the last bet-raising record of this phase.
func (t *Table) needsToAct(s *Seat) bool {
	if !s.canAct() {
		return false
	}
	h := t.Hand
	if s.Committed < h.CurrentBet {
		return true
	}
	if t.countSeats((*Seat).canAct) < 2 {
		return false
	}
	return !h.actedSince(s.Index, h.lastAggression())
}

// RoundComplete reports whether the current betting round is closed.
func (t *Table) RoundComplete() bool {
	if t.Hand == nil {
		return false
	}
	if t.countSeats((*Seat).live) <= 1 {
		return true
	}
	return t.nextSeat(0, t.needsToAct) == NoSeat
}

// progress hands the turn to the next seat that owes a decision, or closes the round and
// keeps dealing until someone must act or the hand is over.
func (t *Table) progress(now time.Time, from int, out *Outcome) error {
	h := t.Hand
	for {
		if t.countSeats((*Seat).live) <= 1 {
			res, err := t.settleNoShowdown()
			if err != nil {
				return err
			}
			return t.finish(now, res, out)
		}
		if next := t.nextSeat(from, t.needsToAct); next != NoSeat {
			h.Acting = next
			h.TurnDeadline = now.Add(t.Policy.TurnTimeout)
			out.Violation = t.checkChips("action")
			return nil
		}
		if h.Phase == PhaseTypeRiver {
			h.Phase = PhaseTypeShowdown
			h.Acting = NoSeat
			out.PhaseChanged = true
			out.Phase = h.Phase
			res, err := t.settleByEval()
			if err != nil {
				return err
			}
			return t.finish(now, res, out)
		}
		t.nextPhase()
		out.PhaseChanged = true
		out.Phase = h.Phase
		// 翻牌后从小盲位开始
		from = h.SmallBlind - 1
	}
}

func (t *Table) nextPhase() {
	h := t.Hand
	h.Phase++
	h.CurrentBet = 0
	h.Actions = nil
	h.Acting = NoSeat
	h.TurnDeadline = time.Time{}
	for _, s := range t.Seats {
		if s != nil {
			s.Committed = 0
		}
	}
	if need := h.Phase.communityCount() - len(h.Community); need > 0 {
		h.Community = append(h.Community, h.deal(need)...)
	}
}

// checkChips compares the participants' stacks plus the pot with the hand-start total.
func (t *Table) checkChips(where string) *InvariantViolation {
	h := t.Hand
	var actual int64
	for idx := range h.StartChips {
		if s := t.seat(idx); s != nil {
			actual += s.Chips
		}
	}
	actual += h.Pot
	if actual == h.ExpectedTotal {
		return nil
	}
	return &InvariantViolation{HandID: h.ID, Expected: h.ExpectedTotal, Actual: actual, Where: where}
}

// finish records the result and returns the table to waiting.
func (t *Table) finish(now time.Time, res *HandResult, out *Outcome) error {
	h := t.Hand
	final := h.Phase
	h.Pot = 0
	h.Acting = NoSeat
	if v := t.checkChips("settle"); v != nil {
		out.Violation = v
	}
	out.HandEnded = true
	out.Result = res
	out.Record = t.completedHand(res, final, now)
	h.Phase = PhaseTypeEnded

	t.LastDealer = h.Dealer
	t.LastResult = res.clone()
	for i, s := range t.Seats {
		if s == nil {
			continue
		}
		s.Ready = false
		s.resetForHand()
		if s.LeavePending {
			t.freeSeat(i)
		}
	}
	t.Status = StatusWaiting
	t.HandNumber++
	t.Hand = nil
	return nil
}
