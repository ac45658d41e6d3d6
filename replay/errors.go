package replay

import (
	"fmt"

	"holdem-live/holdem"
)

const (
	ReasonBadRecord        = "bad_record"
	ReasonBadSeed          = "bad_seed"
	ReasonCommitment       = "commitment_mismatch"
	ReasonStartFailed      = "start_hand_failed"
	ReasonNoActionExpected = "no_action_expected"
	ReasonOutOfTurn        = "out_of_turn"
	ReasonWrongPhase       = "wrong_phase"
	ReasonRejected         = "action_rejected"
	ReasonAmountMismatch   = "amount_mismatch"
	ReasonUnfinished       = "hand_unfinished"
	ReasonResultMismatch   = "result_mismatch"
)

// ReplayError pins a failed replay to the recorded action it stopped at. StepIndex is -1
// when the failure happens before the first action.
type ReplayError struct {
	StepIndex int            `json:"step_index"`
	Reason    string         `json:"reason"`
	Message   string         `json:"message"`
	Expected  *ExpectedState `json:"expected,omitempty"`
}

// ExpectedState is what the engine was waiting for when the record diverged.
type ExpectedState struct {
	ActingSeat   int                 `json:"acting_seat"`
	LegalActions []holdem.ActionType `json:"legal_actions,omitempty"`
	MinRaiseTo   int64               `json:"min_raise_to,omitempty"`
	CallAmount   int64               `json:"call_amount,omitempty"`
	Phase        string              `json:"phase,omitempty"`
}

func (e *ReplayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("replay error(step=%d reason=%s): %s", e.StepIndex, e.Reason, e.Message)
}

func failf(step int, reason, format string, args ...any) *ReplayError {
	return &ReplayError{StepIndex: step, Reason: reason, Message: fmt.Sprintf(format, args...)}
}
