package holdem

import "time"

// Validate checks a proposed action without touching state. The first failing rule wins:
// table/hand state, turn order, seat eligibility, per-kind legality and sizing, a
// non-negative amount, then the per-seat debounce window.
func (t *Table) Validate(seat int, kind ActionType, amount int64, now time.Time) error {
	// 1. table must be playing and the hand not over
	if t.Status != StatusPlaying || t.Hand == nil {
		return reject(ReasonTableNotPlaying, "status=%s", t.Status)
	}
	h := t.Hand
	if h.Phase >= PhaseTypeShowdown {
		return reject(ReasonHandOver, "phase=%s", h.Phase)
	}

	// 2. turn order
	if seat != h.Acting {
		return reject(ReasonNotYourTurn, "acting seat is %d", h.Acting)
	}
	s := t.seat(seat)
	if s == nil || !s.InHand {
		return reject(ReasonNotYourTurn, "seat %d is not in this hand", seat)
	}

	// 3. eligibility
	if s.Folded {
		return reject(ReasonAlreadyFolded, "seat %d folded", seat)
	}
	if s.Chips == 0 {
		return reject(ReasonIllegalForPhase, "seat %d is all-in", seat)
	}

	// 4. per kind
	owed := h.CurrentBet - s.Committed
	switch kind {
	case PlayerActionTypeCheck:
		if owed > 0 {
			return reject(ReasonIllegalForPhase, "cannot check facing %d", owed)
		}
	case PlayerActionTypeCall:
		if owed <= 0 {
			return reject(ReasonIllegalForPhase, "nothing to call")
		}
	case PlayerActionTypeBet:
		if h.CurrentBet != 0 {
			return reject(ReasonIllegalForPhase, "bet already open at %d, raise instead", h.CurrentBet)
		}
		bb := t.Settings.BigBlind
		if amount < bb {
			return reject(ReasonAmountTooLow, "minimum bet is %d", bb)
		}
		if amount > s.Chips {
			if s.Chips < bb {
				return reject(ReasonInsufficientChips, "stack %d below minimum bet %d", s.Chips, bb)
			}
			return reject(ReasonAmountTooHigh, "maximum bet is %d", s.Chips)
		}
	case PlayerActionTypeRaise:
		if h.CurrentBet <= 0 {
			return reject(ReasonIllegalForPhase, "nothing to raise, bet instead")
		}
		minTo := MinRaiseMultiplier * h.CurrentBet
		if amount < minTo {
			return reject(ReasonAmountTooLow, "minimum raise is to %d", minTo)
		}
		maxTo := s.Committed + s.Chips
		if amount > maxTo {
			if maxTo < minTo {
				return reject(ReasonInsufficientChips, "stack reaches %d, minimum raise is to %d", maxTo, minTo)
			}
			return reject(ReasonAmountTooHigh, "maximum raise is to %d", maxTo)
		}
	case PlayerActionTypeAllin, PlayerActionTypeFold:
		// all-in needs chips > 0, checked above; fold is always open to an eligible seat
	default:
		return reject(ReasonIllegalForPhase, "unknown action %s", kind)
	}

	// 5. amount sign
	if amount < 0 {
		return reject(ReasonAmountTooLow, "amount must be non-negative")
	}

	// 6. debounce; a clock that runs behind the last action is not inside the window
	if d := t.Policy.Debounce; d > 0 && !s.LastActionAt.IsZero() {
		if since := now.Sub(s.LastActionAt); since >= 0 && since < d {
			return reject(ReasonRateLimited, "seat %d acted %s ago", seat, since)
		}
	}
	return nil
}

// LegalActions lists the kinds an acting seat could take right now, with sizing bounds.
type LegalActions struct {
	Kinds    []ActionType `json:"kinds"`
	ToCall   int64        `json:"toCall"`
	MinBet   int64        `json:"minBet,omitempty"`
	MinRaise int64        `json:"minRaise,omitempty"`
	MaxTo    int64        `json:"maxTo"`
}

// Legal projects rule 4 for seat. It is empty when the seat is not acting.
func (t *Table) Legal(seat int) LegalActions {
	var out LegalActions
	if t.Status != StatusPlaying || t.Hand == nil || t.Hand.Phase >= PhaseTypeShowdown || t.Hand.Acting != seat {
		return out
	}
	s := t.seat(seat)
	if s == nil || !s.canAct() {
		return out
	}
	h := t.Hand
	owed := h.CurrentBet - s.Committed
	out.MaxTo = s.Committed + s.Chips
	if owed <= 0 {
		out.Kinds = append(out.Kinds, PlayerActionTypeCheck)
	} else {
		out.Kinds = append(out.Kinds, PlayerActionTypeCall)
		out.ToCall = min(owed, s.Chips)
	}
	if h.CurrentBet == 0 && s.Chips >= t.Settings.BigBlind {
		out.Kinds = append(out.Kinds, PlayerActionTypeBet)
		out.MinBet = t.Settings.BigBlind
	}
	if h.CurrentBet > 0 && out.MaxTo >= MinRaiseMultiplier*h.CurrentBet {
		out.Kinds = append(out.Kinds, PlayerActionTypeRaise)
		out.MinRaise = MinRaiseMultiplier * h.CurrentBet
	}
	out.Kinds = append(out.Kinds, PlayerActionTypeAllin, PlayerActionTypeFold)
	return out
}
