package holdem

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const maxNicknameRunes = 32

// JoinResult tells the caller whether a seat was assigned or an existing one re-attached.
type JoinResult struct {
	Seat     int
	Rejoined bool
}

// Join seats userID at the lowest free index. Joining again while seated re-attaches.
func (t *Table) Join(userID, nickname, password string, now time.Time) (JoinResult, error) {
	if s := t.SeatOf(userID); s != nil {
		idx := s.Index
		err := t.commit(now, func(next *Table) error {
			ns := next.Seats[idx]
			ns.Absent = false
			ns.LeavePending = false
			if strings.TrimSpace(nickname) != "" {
				ns.Nickname = normalizeNickname(nickname, userID)
			}
			return nil
		})
		return JoinResult{Seat: idx, Rejoined: true}, err
	}
	if t.Status != StatusWaiting {
		return JoinResult{}, ErrTablePlaying
	}
	if len(t.PasswordHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(t.PasswordHash, []byte(password)); err != nil {
			return JoinResult{}, ErrBadPassword
		}
	}
	free := NoSeat
	for i, s := range t.Seats {
		if s == nil {
			free = i
			break
		}
	}
	if free == NoSeat {
		return JoinResult{}, ErrTableFull
	}
	err := t.commit(now, func(next *Table) error {
		next.Seats[free] = &Seat{
			Index:    free,
			UserID:   userID,
			Nickname: normalizeNickname(nickname, userID),
			Chips:    next.Settings.StartingStack,
		}
		if next.OwnerID == "" {
			next.OwnerID = userID
		}
		return nil
	})
	return JoinResult{Seat: free}, err
}

// LeaveResult describes the seat change a leave caused.
type LeaveResult struct {
	Seat     int
	Freed    bool
	NewOwner string
	Empty    bool
}

// Leave frees the seat while waiting. While playing the seat is only marked absent and
// freed when the hand ends.
func (t *Table) Leave(userID string, now time.Time) (LeaveResult, error) {
	s := t.SeatOf(userID)
	if s == nil {
		return LeaveResult{}, ErrNotSeated
	}
	idx := s.Index
	prevOwner := t.OwnerID
	res := LeaveResult{Seat: idx}
	err := t.commit(now, func(next *Table) error {
		if next.Status == StatusPlaying && next.Seats[idx].InHand {
			next.Seats[idx].Absent = true
			next.Seats[idx].LeavePending = true
			return nil
		}
		next.freeSeat(idx)
		res.Freed = true
		if next.OwnerID != prevOwner {
			res.NewOwner = next.OwnerID
		}
		res.Empty = next.IsEmpty()
		return nil
	})
	if err != nil {
		return LeaveResult{}, err
	}
	return res, nil
}

// freeSeat empties a seat and hands ownership to the lowest remaining seat if needed.
func (t *Table) freeSeat(idx int) {
	leaving := t.Seats[idx]
	t.Seats[idx] = nil
	if leaving == nil || leaving.UserID != t.OwnerID {
		return
	}
	t.OwnerID = ""
	for _, s := range t.Seats {
		if s != nil {
			t.OwnerID = s.UserID
			return
		}
	}
}

// SetReady toggles the ready flag; only allowed between hands.
func (t *Table) SetReady(userID string, ready bool, now time.Time) error {
	s := t.SeatOf(userID)
	if s == nil {
		return ErrNotSeated
	}
	if t.Status != StatusWaiting {
		return ErrTablePlaying
	}
	idx := s.Index
	return t.commit(now, func(next *Table) error {
		next.Seats[idx].Ready = ready
		return nil
	})
}

// SetAbsent records presence. It reports whether anything changed.
func (t *Table) SetAbsent(userID string, absent bool, now time.Time) (bool, error) {
	s := t.SeatOf(userID)
	if s == nil {
		return false, ErrNotSeated
	}
	if s.Absent == absent {
		return false, nil
	}
	idx := s.Index
	err := t.commit(now, func(next *Table) error {
		next.Seats[idx].Absent = absent
		return nil
	})
	return err == nil, err
}

// UpdateSettings is owner-only and waiting-only. Seated stacks are left as they are.
func (t *Table) UpdateSettings(userID string, s Settings, now time.Time) error {
	if userID != t.OwnerID {
		return ErrNotOwner
	}
	if t.Status != StatusWaiting {
		return ErrTablePlaying
	}
	if err := s.Validate(); err != nil {
		return err
	}
	for i := s.MaxSeats; i < len(t.Seats); i++ {
		if t.Seats[i] != nil {
			return fmt.Errorf("%w: seat %d is occupied", ErrBadSettings, i)
		}
	}
	return t.commit(now, func(next *Table) error {
		seats := make([]*Seat, s.MaxSeats)
		copy(seats, next.Seats)
		next.Seats = seats
		next.Settings = s
		return nil
	})
}

// CanStart checks the administrative preconditions for dealing.
func (t *Table) CanStart(userID string) error {
	if userID != t.OwnerID {
		return ErrNotOwner
	}
	if t.Status != StatusWaiting {
		return ErrTablePlaying
	}
	seated := t.Occupied()
	if len(seated) < MinSeats {
		return ErrNotEnoughPlayers
	}
	for _, s := range seated {
		if !s.Ready {
			return ErrNotAllReady
		}
	}
	if t.countSeats(func(s *Seat) bool { return s.Chips > 0 }) < MinSeats {
		return ErrNotEnoughPlayers
	}
	return nil
}

func normalizeNickname(raw, userID string) string {
	nick := strings.TrimSpace(raw)
	if nick == "" {
		nick = "Player " + shortID(userID)
	}
	if r := []rune(nick); len(r) > maxNicknameRunes {
		nick = string(r[:maxNicknameRunes])
	}
	return nick
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
