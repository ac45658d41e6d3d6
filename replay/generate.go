package replay

import (
	"encoding/hex"
	"slices"

	"holdem-live/card"
	"holdem-live/holdem"
)

// Generate re-deals rec from its seed and re-applies every recorded decision, returning the
// snapshots viewer would have received. The record is rejected when the seed does not match
// its commitment, when the engine disagrees about whose turn it is, or when the replayed
// result differs from the archived one.
func Generate(rec *holdem.CompletedHand, viewer string) (*Tape, error) {
	if rec == nil || len(rec.Players) < holdem.MinSeats {
		return nil, failf(-1, ReasonBadRecord, "a hand needs at least %d players", holdem.MinSeats)
	}
	deck, err := deckFor(rec)
	if err != nil {
		return nil, err
	}
	tbl, err := seatTable(rec)
	if err != nil {
		return nil, err
	}

	b := &tapeBuilder{tbl: tbl, viewer: viewer, tape: &Tape{
		TapeVersion: TapeVersion,
		TableID:     rec.TableID,
		HandID:      rec.HandID,
		Viewer:      viewer,
	}}

	start, err := tbl.StartHand(tbl.OwnerID, deck, rec.HandID, rec.StartedAt)
	if err != nil {
		return nil, failf(-1, ReasonStartFailed, "%v", err)
	}
	// Blinds alone can end the hand, in which case the table is already back to waiting.
	var final *holdem.HandResult
	dealer := tbl.LastDealer
	if start.HandEnded {
		final = start.Result
	} else {
		dealer = tbl.Hand.Dealer
	}
	if dealer != rec.Dealer {
		return nil, failf(-1, ReasonStartFailed, "button landed on seat %d, record says %d", dealer, rec.Dealer)
	}
	b.add(EventHandStart, nil, nil)

	for step, a := range rec.Actions {
		if a.Forced {
			continue
		}
		h := tbl.Hand
		if tbl.Status != holdem.StatusPlaying || h == nil {
			return nil, failf(step, ReasonNoActionExpected, "hand already complete; seat %d %s is extra", a.Seat, a.Kind)
		}
		if h.Acting != a.Seat {
			e := failf(step, ReasonOutOfTurn, "seat %d acted but seat %d was on the clock", a.Seat, h.Acting)
			e.Expected = expected(tbl)
			return nil, e
		}
		if h.Phase != a.Phase {
			e := failf(step, ReasonWrongPhase, "recorded on %s, engine is on %s", a.Phase, h.Phase)
			e.Expected = expected(tbl)
			return nil, e
		}

		var to int64
		if a.Kind == holdem.PlayerActionTypeBet || a.Kind == holdem.PlayerActionTypeRaise {
			to = tbl.Seats[a.Seat].Committed + a.Amount
		}
		out, err := tbl.Act(a.Seat, a.Kind, to, a.At)
		if err != nil {
			e := failf(step, ReasonRejected, "%v", err)
			e.Expected = expected(tbl)
			return nil, e
		}
		if out.Action.Amount != a.Amount {
			return nil, failf(step, ReasonAmountMismatch, "seat %d moved %d, record says %d", a.Seat, out.Action.Amount, a.Amount)
		}
		// timeouts are re-applied as ordinary moves; keep the recorded flag on the tape
		act := *out.Action
		act.Auto = a.Auto
		b.add(EventAction, &act, nil)
		if out.HandEnded {
			final = out.Result
		}
	}

	if final == nil {
		return nil, failf(len(rec.Actions), ReasonUnfinished, "record ends with the hand still running")
	}
	if err := compare(tbl, final, rec); err != nil {
		return nil, err
	}
	b.add(EventHandEnd, nil, final)
	return b.tape, nil
}

// Verify replays rec without keeping the tape.
func Verify(rec *holdem.CompletedHand) error {
	_, err := Generate(rec, "")
	return err
}

func deckFor(rec *holdem.CompletedHand) (card.Deck, error) {
	seed, err := hex.DecodeString(rec.Seed)
	if err != nil || len(seed) != card.SeedSize {
		return card.Deck{}, failf(-1, ReasonBadSeed, "hand %s has no usable shuffle seed", rec.HandID)
	}
	deck, err := card.NewDeckFromSeed(seed)
	if err != nil {
		return card.Deck{}, failf(-1, ReasonBadSeed, "%v", err)
	}
	if got := deck.Commitment(); got != rec.Commitment {
		return card.Deck{}, failf(-1, ReasonCommitment, "seed commits to %s, record says %s", got, rec.Commitment)
	}
	return deck, nil
}

// seatTable rebuilds the table as it stood when the hand was dealt.
func seatTable(rec *holdem.CompletedHand) (*holdem.Table, error) {
	owner := rec.Players[0].UserID
	tbl, err := holdem.NewTable(rec.TableID, rec.TableName, owner, rec.Settings, holdem.Policy{}, "", rec.StartedAt)
	if err != nil {
		return nil, failf(-1, ReasonBadRecord, "%v", err)
	}
	for _, p := range rec.Players {
		if p.Seat < 0 || p.Seat >= len(tbl.Seats) || tbl.Seats[p.Seat] != nil {
			return nil, failf(-1, ReasonBadRecord, "player %s has a bad seat %d", p.UserID, p.Seat)
		}
		tbl.Seats[p.Seat] = &holdem.Seat{
			Index:    p.Seat,
			UserID:   p.UserID,
			Nickname: p.Nickname,
			Chips:    p.InitialChips,
			Ready:    true,
		}
	}
	if rec.Dealer < 0 || rec.Dealer >= len(tbl.Seats) || tbl.Seats[rec.Dealer] == nil {
		return nil, failf(-1, ReasonBadRecord, "dealer seat %d is empty", rec.Dealer)
	}
	// The button moves one seat clockwise from LastDealer.
	n := len(tbl.Seats)
	tbl.LastDealer = (rec.Dealer - 1 + n) % n
	tbl.HandNumber = rec.HandNumber
	return tbl, nil
}

func compare(tbl *holdem.Table, res *holdem.HandResult, rec *holdem.CompletedHand) error {
	step := len(rec.Actions)
	for _, p := range rec.Players {
		s := tbl.Seats[p.Seat]
		if s == nil || s.Chips != p.FinalChips {
			var got int64
			if s != nil {
				got = s.Chips
			}
			return failf(step, ReasonResultMismatch, "seat %d finished with %d, record says %d", p.Seat, got, p.FinalChips)
		}
	}
	if w := res.Winners(); !slices.Equal(w, rec.Winners) {
		return failf(step, ReasonResultMismatch, "winners %v, record says %v", w, rec.Winners)
	}
	if !slices.Equal(res.Community, rec.Community) {
		return failf(step, ReasonResultMismatch, "board %s, record says %s", res.Community, rec.Community)
	}
	return nil
}

func expected(tbl *holdem.Table) *ExpectedState {
	h := tbl.Hand
	if h == nil {
		return nil
	}
	legal := tbl.Legal(h.Acting)
	return &ExpectedState{
		ActingSeat:   h.Acting,
		LegalActions: legal.Kinds,
		MinRaiseTo:   legal.MinRaise,
		CallAmount:   legal.ToCall,
		Phase:        h.Phase.String(),
	}
}

type tapeBuilder struct {
	tbl    *holdem.Table
	viewer string
	tape   *Tape
	seq    uint64
}

func (b *tapeBuilder) add(kind string, action *holdem.ActionRecord, res *holdem.HandResult) {
	b.seq++
	b.tape.Events = append(b.tape.Events, Event{
		Type:   kind,
		Seq:    b.seq,
		Action: action,
		Result: res,
		View:   b.tbl.Snapshot(b.viewer),
	})
}
