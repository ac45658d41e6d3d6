package holdem

import (
	"testing"
	"time"
)

func TestValidate_TableNotPlaying(t *testing.T) {
	f := newFixture(t, 2, DefaultSettings())
	err := f.tbl.Validate(0, PlayerActionTypeCheck, 0, f.now)
	if reasonOf(err) != ReasonTableNotPlaying {
		t.Fatalf("err=%v want table-not-playing", err)
	}
	if _, err := f.tbl.ActAs("u0", PlayerActionTypeCheck, 0, f.now); reasonOf(err) != ReasonTableNotPlaying {
		t.Fatalf("ActAs err=%v", err)
	}
}

func TestValidate_RuleOrder(t *testing.T) {
	f := newFixture(t, 2, DefaultSettings())
	f.start(0, "")
	now := f.now.Add(time.Second)
	sb := f.tbl.Hand.SmallBlind

	cases := []struct {
		name   string
		seat   int
		kind   ActionType
		amount int64
		want   Reason
	}{
		// turn order beats everything after it
		{"not your turn", 1, PlayerActionTypeRaise, 1, ReasonNotYourTurn},
		{"check facing a bet", sb, PlayerActionTypeCheck, 0, ReasonIllegalForPhase},
		{"bet when open", sb, PlayerActionTypeBet, 40, ReasonIllegalForPhase},
		{"raise below 2x", sb, PlayerActionTypeRaise, 39, ReasonAmountTooLow},
		{"raise beyond stack", sb, PlayerActionTypeRaise, 1001, ReasonAmountTooHigh},
		{"negative fold", sb, PlayerActionTypeFold, -1, ReasonAmountTooLow},
		{"unknown kind", sb, PlayerActionTypeNone, 0, ReasonIllegalForPhase},
	}
	for _, tc := range cases {
		if got := reasonOf(f.tbl.Validate(tc.seat, tc.kind, tc.amount, now)); got != tc.want {
			t.Fatalf("%s: reason=%q want %q", tc.name, got, tc.want)
		}
	}
	for _, ok := range []struct {
		kind   ActionType
		amount int64
	}{
		{PlayerActionTypeCall, 0},
		{PlayerActionTypeRaise, 40},
		{PlayerActionTypeRaise, 1000},
		{PlayerActionTypeAllin, 0},
		{PlayerActionTypeFold, 0},
	} {
		if err := f.tbl.Validate(sb, ok.kind, ok.amount, now); err != nil {
			t.Fatalf("%s %d: unexpected err %v", ok.kind, ok.amount, err)
		}
	}
}

func TestValidate_MinimumRaiseIsTwiceCurrentBet(t *testing.T) {
	f := newFixture(t, 3, DefaultSettings())
	f.start(0, "")
	f.act(0, PlayerActionTypeRaise, 50)
	now := f.now.Add(time.Second)
	// seat 1 faces 50 with 10 in
	for amount := int64(0); amount <= 1000; amount += 5 {
		err := f.tbl.Validate(1, PlayerActionTypeRaise, amount, now)
		switch {
		case amount < 100 && reasonOf(err) != ReasonAmountTooLow:
			t.Fatalf("raise to %d: err=%v want amount-too-low", amount, err)
		case amount >= 100 && err != nil:
			t.Fatalf("raise to %d: unexpected err %v", amount, err)
		}
	}
}

func TestValidate_InsufficientChips(t *testing.T) {
	f := newFixture(t, 2, DefaultSettings())
	f.start(0, "")
	f.tbl.Seats[0].Chips = 15
	now := f.now.Add(time.Second)
	if got := reasonOf(f.tbl.Validate(0, PlayerActionTypeRaise, 40, now)); got != ReasonInsufficientChips {
		t.Fatalf("reason=%q want insufficient-chips", got)
	}
	// call is capped at the stack rather than rejected
	if err := f.tbl.Validate(0, PlayerActionTypeCall, 0, now); err != nil {
		t.Fatalf("short call err: %v", err)
	}

	g := newFixture(t, 2, DefaultSettings())
	g.start(0, "")
	g.act(0, PlayerActionTypeCall, 0)
	g.act(1, PlayerActionTypeCheck, 0)
	g.tbl.Seats[0].Chips = 15
	now = g.now.Add(time.Second)
	if got := reasonOf(g.tbl.Validate(0, PlayerActionTypeBet, 20, now)); got != ReasonInsufficientChips {
		t.Fatalf("bet reason=%q want insufficient-chips", got)
	}
	if got := reasonOf(g.tbl.Validate(0, PlayerActionTypeBet, 10, now)); got != ReasonAmountTooLow {
		t.Fatalf("bet reason=%q want amount-too-low", got)
	}
	g.tbl.Seats[0].Chips = 980
	if got := reasonOf(g.tbl.Validate(0, PlayerActionTypeBet, 981, now)); got != ReasonAmountTooHigh {
		t.Fatalf("bet reason=%q want amount-too-high", got)
	}
	if got := reasonOf(g.tbl.Validate(0, PlayerActionTypeRaise, 40, now)); got != ReasonIllegalForPhase {
		t.Fatalf("raise with no bet reason=%q", got)
	}
	if got := reasonOf(g.tbl.Validate(0, PlayerActionTypeCall, 0, now)); got != ReasonIllegalForPhase {
		t.Fatalf("call with nothing owed reason=%q", got)
	}
}

func TestValidate_FoldedAndAllInSeats(t *testing.T) {
	f := newFixture(t, 2, DefaultSettings())
	f.start(0, "")
	now := f.now.Add(time.Second)

	f.tbl.Seats[0].Folded = true
	if got := reasonOf(f.tbl.Validate(0, PlayerActionTypeFold, 0, now)); got != ReasonAlreadyFolded {
		t.Fatalf("reason=%q want already-folded", got)
	}
	f.tbl.Seats[0].Folded = false
	f.tbl.Seats[0].Chips = 0
	if got := reasonOf(f.tbl.Validate(0, PlayerActionTypeAllin, 0, now)); got != ReasonIllegalForPhase {
		t.Fatalf("reason=%q want illegal-for-phase", got)
	}
}

func TestValidate_HandOver(t *testing.T) {
	f := newFixture(t, 2, DefaultSettings())
	f.start(0, "")
	f.tbl.Hand.Phase = PhaseTypeEnded
	if got := reasonOf(f.tbl.Validate(0, PlayerActionTypeFold, 0, f.now.Add(time.Second))); got != ReasonHandOver {
		t.Fatalf("reason=%q want hand-over", got)
	}
}

func TestValidate_DebounceIsCheckedLast(t *testing.T) {
	f := newFixture(t, 2, DefaultSettings())
	f.start(0, "")
	called := f.now.Add(time.Second)
	if _, err := f.tbl.Act(0, PlayerActionTypeCall, 0, called); err != nil {
		t.Fatalf("call err: %v", err)
	}
	if _, err := f.tbl.Act(1, PlayerActionTypeCheck, 0, called.Add(10*time.Millisecond)); err != nil {
		t.Fatalf("check err: %v", err)
	}
	// seat 0 opens the flop too soon after its preflop call
	soon := called.Add(50 * time.Millisecond)
	if got := reasonOf(f.tbl.Validate(0, PlayerActionTypeCheck, 0, soon)); got != ReasonRateLimited {
		t.Fatalf("reason=%q want rate-limited", got)
	}
	// a game-state rejection still wins over the debounce
	if got := reasonOf(f.tbl.Validate(0, PlayerActionTypeBet, 5, soon)); got != ReasonAmountTooLow {
		t.Fatalf("reason=%q want amount-too-low", got)
	}
	if _, err := f.tbl.Act(0, PlayerActionTypeCheck, 0, called.Add(150*time.Millisecond)); err != nil {
		t.Fatalf("check after window err: %v", err)
	}
}

func TestValidate_DebounceIgnoresClockBehindLastAction(t *testing.T) {
	f := newFixture(t, 2, DefaultSettings())
	f.start(0, "")
	called := f.now.Add(time.Hour)
	if _, err := f.tbl.Act(0, PlayerActionTypeCall, 0, called); err != nil {
		t.Fatalf("call err: %v", err)
	}
	if _, err := f.tbl.Act(1, PlayerActionTypeCheck, 0, called.Add(time.Second)); err != nil {
		t.Fatalf("check err: %v", err)
	}
	// a rehydrated table on a host whose clock lags the stored stamps
	behind := called.Add(-59 * time.Minute)
	if err := f.tbl.Validate(0, PlayerActionTypeCheck, 0, behind); err != nil {
		t.Fatalf("lagging clock rejected: %v", err)
	}
}

func TestLegal_MatchesValidator(t *testing.T) {
	f := newFixture(t, 2, DefaultSettings())
	f.start(0, "")
	legal := f.tbl.Legal(0)
	want := []ActionType{PlayerActionTypeCall, PlayerActionTypeRaise, PlayerActionTypeAllin, PlayerActionTypeFold}
	if len(legal.Kinds) != len(want) {
		t.Fatalf("kinds=%v want %v", legal.Kinds, want)
	}
	for i := range want {
		if legal.Kinds[i] != want[i] {
			t.Fatalf("kinds=%v want %v", legal.Kinds, want)
		}
	}
	if legal.ToCall != 10 || legal.MinRaise != 40 || legal.MaxTo != 1000 {
		t.Fatalf("legal=%+v", legal)
	}
	if got := f.tbl.Legal(1); len(got.Kinds) != 0 {
		t.Fatalf("non-acting seat has legal moves: %+v", got)
	}
}
