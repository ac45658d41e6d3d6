package replay

import "holdem-live/holdem"

const TapeVersion = 1

const (
	EventHandStart = "handStart"
	EventAction    = "actionResult"
	EventHandEnd   = "handEnd"
)

// Tape is a recorded hand re-run through the engine, one snapshot per step, as one viewer
// would have seen it.
type Tape struct {
	TapeVersion int     `json:"tape_version"`
	TableID     string  `json:"table_id"`
	HandID      string  `json:"hand_id"`
	Viewer      string  `json:"viewer,omitempty"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type   string               `json:"type"`
	Seq    uint64               `json:"seq"`
	Action *holdem.ActionRecord `json:"action,omitempty"`
	Result *holdem.HandResult   `json:"result,omitempty"`
	View   holdem.View          `json:"view"`
}
