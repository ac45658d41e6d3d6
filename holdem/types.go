package holdem

import (
	"fmt"
	"strings"
)

// NoSeat marks an unset seat index.
const NoSeat = -1

// Status is the table lifecycle.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
)

// Phase 游戏阶段
type Phase byte

const (
	PhaseTypeNone     Phase = 0
	PhaseTypePreflop  Phase = 1
	PhaseTypeFlop     Phase = 2
	PhaseTypeTurn     Phase = 3
	PhaseTypeRiver    Phase = 4
	PhaseTypeShowdown Phase = 5
	PhaseTypeEnded    Phase = 6
)

var PhaseTypeDictionary = map[Phase]string{
	PhaseTypeNone:     "none",
	PhaseTypePreflop:  "preflop",
	PhaseTypeFlop:     "flop",
	PhaseTypeTurn:     "turn",
	PhaseTypeRiver:    "river",
	PhaseTypeShowdown: "showdown",
	PhaseTypeEnded:    "ended",
}

func (p Phase) String() string {
	if s, ok := PhaseTypeDictionary[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", byte(p))
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for k, v := range PhaseTypeDictionary {
		if v == string(b) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(b))
}

// communityCount is how many board cards exist once a phase has been dealt.
func (p Phase) communityCount() int {
	switch p {
	case PhaseTypeFlop:
		return 3
	case PhaseTypeTurn:
		return 4
	case PhaseTypeRiver, PhaseTypeShowdown, PhaseTypeEnded:
		return 5
	}
	return 0
}

// ActionType 动作类型
type ActionType byte

const (
	PlayerActionTypeNone  ActionType = 0
	PlayerActionTypeCheck ActionType = 1
	PlayerActionTypeBet   ActionType = 2
	PlayerActionTypeCall  ActionType = 3
	PlayerActionTypeRaise ActionType = 4
	PlayerActionTypeFold  ActionType = 5
	PlayerActionTypeAllin ActionType = 6
)

var PlayerActionTypeDictionary = map[ActionType]string{
	PlayerActionTypeNone:  "none",
	PlayerActionTypeCheck: "check",
	PlayerActionTypeBet:   "bet",
	PlayerActionTypeCall:  "call",
	PlayerActionTypeRaise: "raise",
	PlayerActionTypeFold:  "fold",
	PlayerActionTypeAllin: "all-in",
}

func (a ActionType) String() string {
	if s, ok := PlayerActionTypeDictionary[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", byte(a))
}

func (a ActionType) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *ActionType) UnmarshalText(b []byte) error {
	parsed, ok := ParseActionType(string(b))
	if !ok {
		return fmt.Errorf("unknown action %q", string(b))
	}
	*a = parsed
	return nil
}

// ParseActionType accepts the wire names plus "allin".
func ParseActionType(s string) (ActionType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "allin" {
		return PlayerActionTypeAllin, true
	}
	for k, v := range PlayerActionTypeDictionary {
		if v == s && k != PlayerActionTypeNone {
			return k, true
		}
	}
	return PlayerActionTypeNone, false
}

// 手牌常量定义
const (
	HandHighCard      byte = iota + 1 // 高牌
	HandOnePair                       // 一对
	HandTwoPair                       // 两对
	HandThreeOfKind                   // 三条
	HandStraight                      // 顺子
	HandFlush                         // 同花
	HandFullHouse                     // 葫芦
	HandFourOfKind                    // 四条
	HandStraightFlush                 // 同花顺
	HandRoyalFlush                    // 皇家同花顺
)

var handCategoryNames = map[byte]string{
	HandHighCard:      "high-card",
	HandOnePair:       "one-pair",
	HandTwoPair:       "two-pair",
	HandThreeOfKind:   "three-of-a-kind",
	HandStraight:      "straight",
	HandFlush:         "flush",
	HandFullHouse:     "full-house",
	HandFourOfKind:    "four-of-a-kind",
	HandStraightFlush: "straight-flush",
	HandRoyalFlush:    "royal-flush",
}

func CategoryName(c byte) string {
	if s, ok := handCategoryNames[c]; ok {
		return s
	}
	return "unknown"
}
