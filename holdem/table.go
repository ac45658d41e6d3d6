package holdem

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Table is the authoritative per-table record. It is not safe for concurrent use;
// the owning actor serializes every call.
type Table struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OwnerID      string `json:"ownerId"`
	PasswordHash []byte `json:"passwordHash,omitempty"`

	Settings Settings `json:"settings"`
	Policy   Policy   `json:"policy"`
	Status   Status   `json:"status"`

	// Seats has MaxSeats entries; nil is a free seat.
	Seats []*Seat `json:"seats"`

	HandNumber int         `json:"handNumber"`
	Hand       *Hand       `json:"hand,omitempty"`
	LastResult *HandResult `json:"lastResult,omitempty"`
	LastDealer int         `json:"lastDealer"`

	// Version increments once per accepted mutation.
	Version        uint64    `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// NewTable creates an empty waiting table. An empty password leaves it open.
func NewTable(id, name, ownerID string, s Settings, p Policy, password string, now time.Time) (*Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("table id is required")
	}
	t := &Table{
		ID:             id,
		Name:           strings.TrimSpace(name),
		OwnerID:        ownerID,
		Settings:       s,
		Policy:         p.withDefaults(),
		Status:         StatusWaiting,
		Seats:          make([]*Seat, s.MaxSeats),
		HandNumber:     1,
		LastDealer:     NoSeat,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if t.Name == "" {
		t.Name = "Table " + id
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash table password: %w", err)
		}
		t.PasswordHash = hash
	}
	return t, nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cp := *t
	cp.PasswordHash = append([]byte(nil), t.PasswordHash...)
	cp.Seats = make([]*Seat, len(t.Seats))
	for i, s := range t.Seats {
		cp.Seats[i] = s.clone()
	}
	cp.Hand = t.Hand.clone()
	cp.LastResult = t.LastResult.clone()
	return &cp
}

// commit runs fn against a copy and swaps it in only when fn succeeds.
func (t *Table) commit(now time.Time, fn func(next *Table) error) error {
	next := t.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.Version++
	next.LastActivityAt = now
	*t = *next
	return nil
}

// SeatOf returns the seat held by userID, or nil.
func (t *Table) SeatOf(userID string) *Seat {
	for _, s := range t.Seats {
		if s != nil && s.UserID == userID {
			return s
		}
	}
	return nil
}

func (t *Table) seat(i int) *Seat {
	if i < 0 || i >= len(t.Seats) {
		return nil
	}
	return t.Seats[i]
}

// Occupied returns the occupied seats in index order.
func (t *Table) Occupied() []*Seat {
	out := make([]*Seat, 0, len(t.Seats))
	for _, s := range t.Seats {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Members returns the user ids of every occupied seat in seat order.
func (t *Table) Members() []string {
	seats := t.Occupied()
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		out = append(out, s.UserID)
	}
	return out
}

func (t *Table) IsEmpty() bool { return len(t.Occupied()) == 0 }

// TotalChips sums stacks plus the live pot.
func (t *Table) TotalChips() int64 {
	var total int64
	for _, s := range t.Seats {
		if s != nil {
			total += s.Chips
		}
	}
	if t.Hand != nil {
		total += t.Hand.Pot
	}
	return total
}

// nextSeat walks clockwise from (exclusive) and returns the first seat matching pred.
func (t *Table) nextSeat(from int, pred func(*Seat) bool) int {
	n := len(t.Seats)
	for i := 1; i <= n; i++ {
		idx := ((from+i)%n + n) % n
		if s := t.Seats[idx]; s != nil && pred(s) {
			return idx
		}
	}
	return NoSeat
}

// seatFrom is nextSeat including the start seat itself.
func (t *Table) seatFrom(start int, pred func(*Seat) bool) int {
	return t.nextSeat(start-1, pred)
}

func (t *Table) countSeats(pred func(*Seat) bool) int {
	n := 0
	for _, s := range t.Seats {
		if s != nil && pred(s) {
			n++
		}
	}
	return n
}

// clockwiseFrom lists seat indexes matching pred, starting after the given seat.
func (t *Table) clockwiseFrom(after int, pred func(*Seat) bool) []int {
	out := make([]int, 0, len(t.Seats))
	n := len(t.Seats)
	for i := 1; i <= n; i++ {
		idx := ((after+i)%n + n) % n
		if s := t.Seats[idx]; s != nil && pred(s) {
			out = append(out, idx)
		}
	}
	return out
}
