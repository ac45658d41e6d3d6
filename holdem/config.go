package holdem

import (
	"fmt"
	"time"
)

const (
	MinSeats           = 2
	MaxSeatsLimit      = 10
	MinRaiseMultiplier = 2

	DefaultTurnTimeout = 30 * time.Second
	DefaultDebounce    = 100 * time.Millisecond
)

// Settings are the owner-editable game parameters.
type Settings struct {
	MaxSeats      int   `json:"maxSeats"`
	StartingStack int64 `json:"startingStack"`
	SmallBlind    int64 `json:"smallBlind"`
	BigBlind      int64 `json:"bigBlind"`
}

func DefaultSettings() Settings {
	return Settings{MaxSeats: 6, StartingStack: 1000, SmallBlind: 10, BigBlind: 20}
}

func (s Settings) Validate() error {
	if s.MaxSeats < MinSeats || s.MaxSeats > MaxSeatsLimit {
		return fmt.Errorf("%w: maxSeats must be in %d..%d, got %d", ErrBadSettings, MinSeats, MaxSeatsLimit, s.MaxSeats)
	}
	if s.SmallBlind <= 0 || s.BigBlind < s.SmallBlind {
		return fmt.Errorf("%w: invalid blinds sb=%d bb=%d", ErrBadSettings, s.SmallBlind, s.BigBlind)
	}
	if s.StartingStack < s.BigBlind {
		return fmt.Errorf("%w: startingStack %d below big blind %d", ErrBadSettings, s.StartingStack, s.BigBlind)
	}
	return nil
}

// Policy holds server-side timing rules; clients cannot change it.
type Policy struct {
	TurnTimeout time.Duration `json:"turnTimeout"`
	Debounce    time.Duration `json:"debounce"`
}

func DefaultPolicy() Policy {
	return Policy{TurnTimeout: DefaultTurnTimeout, Debounce: DefaultDebounce}
}

func (p Policy) withDefaults() Policy {
	if p.TurnTimeout <= 0 {
		p.TurnTimeout = DefaultTurnTimeout
	}
	if p.Debounce < 0 {
		p.Debounce = 0
	}
	return p
}
