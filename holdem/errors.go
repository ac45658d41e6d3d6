package holdem

import (
	"errors"
	"fmt"
)

// Reason is the wire code of a rejected request.
type Reason string

// Action validation taxonomy.
const (
	ReasonNotYourTurn       Reason = "not-your-turn"
	ReasonTableNotPlaying   Reason = "table-not-playing"
	ReasonHandOver          Reason = "hand-over"
	ReasonAlreadyFolded     Reason = "already-folded"
	ReasonIllegalForPhase   Reason = "illegal-for-phase"
	ReasonAmountTooLow      Reason = "amount-too-low"
	ReasonAmountTooHigh     Reason = "amount-too-high"
	ReasonInsufficientChips Reason = "insufficient-chips"
	ReasonRateLimited       Reason = "rate-limited"
)

// Rejection is a user-correctable validation failure. It never changes state.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return string(r.Reason) + ": " + r.Detail
}

func reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Membership and administration errors.
var (
	ErrTableFull        = errors.New("table is full")
	ErrTablePlaying     = errors.New("table is playing")
	ErrBadPassword      = errors.New("wrong table password")
	ErrNotOwner         = errors.New("only the table owner can do that")
	ErrNotAllReady      = errors.New("not every seated player is ready")
	ErrNotEnoughPlayers = errors.New("need at least two seated players with chips")
	ErrNotSeated        = errors.New("not seated at this table")
	ErrBadSettings      = errors.New("invalid table settings")
)

var reasonByErr = map[error]Reason{
	ErrTableFull:        "table-full",
	ErrTablePlaying:     "table-playing",
	ErrBadPassword:      "bad-password",
	ErrNotOwner:         "not-owner",
	ErrNotAllReady:      "not-all-ready",
	ErrNotEnoughPlayers: "not-enough-players",
	ErrNotSeated:        "not-seated",
	ErrBadSettings:      "bad-settings",
}

// ReasonOf maps an engine error to its wire reason; unknown errors map to "internal".
func ReasonOf(err error) Reason {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason
	}
	for sentinel, reason := range reasonByErr {
		if errors.Is(err, sentinel) {
			return reason
		}
	}
	return "internal"
}

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }

// InvariantViolation reports a chip-sum mismatch. The hand keeps going.
type InvariantViolation struct {
	HandID   string
	Expected int64
	Actual   int64
	Where    string
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("chip invariant violated at %s: hand=%s expected=%d actual=%d", v.Where, v.HandID, v.Expected, v.Actual)
}
