package lobby

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"holdem-live/apps/server/internal/logger"
	"holdem-live/apps/server/internal/store"
	"holdem-live/apps/server/internal/table"
	"holdem-live/holdem"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrLobbyClosed   = errors.New("lobby closed")
)

// Loader reads persisted tables back. store.Writer satisfies it.
type Loader interface {
	Load(ctx context.Context, id string) (*holdem.Table, error)
	IDs(ctx context.Context) ([]string, error)
}

// Lobby manages all tables
type Lobby struct {
	mu     sync.RWMutex
	tables map[string]*table.Table
	closed bool

	settings holdem.Settings
	policy   holdem.Policy
	actor    table.Options
	store    table.Persister
	loader   Loader
	log      *zap.Logger
	clock    func() time.Time
	idleTTL  time.Duration
	sweep    time.Duration
	newID    func() string
}

type Options struct {
	Settings holdem.Settings
	Policy   holdem.Policy
	// Actor is the template for every table actor. Persister and OnEmpty are set by the lobby.
	Actor         table.Options
	Persister     table.Persister
	Loader        Loader
	Logger        *zap.Logger
	Clock         func() time.Time
	IdleTTL       time.Duration
	SweepInterval time.Duration
	NewID         func() string
}

// New creates a new lobby
func New(opt Options) *Lobby {
	l := &Lobby{
		tables:   make(map[string]*table.Table),
		settings: opt.Settings,
		policy:   opt.Policy,
		actor:    opt.Actor,
		store:    opt.Persister,
		loader:   opt.Loader,
		log:      logger.OrNop(opt.Logger).Named("lobby"),
		clock:    opt.Clock,
		idleTTL:  opt.IdleTTL,
		sweep:    opt.SweepInterval,
		newID:    opt.NewID,
	}
	if l.settings == (holdem.Settings{}) {
		l.settings = holdem.DefaultSettings()
	}
	if l.policy == (holdem.Policy{}) {
		l.policy = holdem.DefaultPolicy()
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.idleTTL <= 0 {
		l.idleTTL = 30 * time.Minute
	}
	if l.sweep <= 0 {
		l.sweep = time.Hour
	}
	if l.newID == nil {
		l.newID = newTableCode
	}
	l.actor.Persister = l.store
	l.actor.OnEmpty = l.Remove
	if l.actor.Clock == nil {
		l.actor.Clock = l.clock
	}
	if l.actor.Logger == nil {
		l.actor.Logger = opt.Logger
	}
	return l
}

// newTableCode is 8 uppercase hex characters.
func newTableCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

type CreateRequest struct {
	CreatorID string
	Nickname  string
	Name      string
	Password  string
	// Settings falls back to the lobby defaults when zero.
	Settings holdem.Settings
}

// Create registers a new table with the creator seated as owner.
func (l *Lobby) Create(ctx context.Context, req CreateRequest) (*table.Table, error) {
	if strings.TrimSpace(req.CreatorID) == "" {
		return nil, fmt.Errorf("creator is required")
	}
	settings := req.Settings
	if settings == (holdem.Settings{}) {
		settings = l.settings
	}

	id, err := l.freeID(ctx)
	if err != nil {
		return nil, err
	}
	now := l.clock()
	state, err := holdem.NewTable(id, req.Name, req.CreatorID, settings, l.policy, req.Password, now)
	if err != nil {
		return nil, err
	}
	if _, err := state.Join(req.CreatorID, req.Nickname, req.Password, now); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLobbyClosed
	}
	if _, taken := l.tables[id]; taken {
		return nil, fmt.Errorf("table id %s collided", id)
	}
	if l.store != nil {
		l.store.SaveTable(state)
	}
	t := table.New(state, l.actor)
	l.tables[id] = t
	l.log.Info("table created", zap.String("table", id), zap.String("owner", req.CreatorID))
	return t, nil
}

func (l *Lobby) freeID(ctx context.Context) (string, error) {
	for i := 0; i < 8; i++ {
		id := l.newID()
		l.mu.RLock()
		_, live := l.tables[id]
		l.mu.RUnlock()
		if live {
			continue
		}
		if l.loader != nil {
			if _, err := l.loader.Load(ctx, id); err == nil {
				continue
			}
		}
		return id, nil
	}
	return "", fmt.Errorf("could not allocate a table id")
}

// Get returns a live table, rehydrating it from the store when it is not in memory.
func (l *Lobby) Get(ctx context.Context, id string) (*table.Table, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	l.mu.RLock()
	t, closed := l.tables[id], l.closed
	l.mu.RUnlock()
	if t != nil && !t.IsClosed() {
		return t, nil
	}
	if closed || l.loader == nil {
		return nil, ErrTableNotFound
	}

	state, err := l.loader.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", id, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrTableNotFound
	}
	if cur := l.tables[id]; cur != nil && !cur.IsClosed() {
		return cur, nil
	}
	t = table.New(state, l.actor)
	l.tables[id] = t
	l.log.Info("table rehydrated",
		zap.String("table", id),
		zap.Uint64("version", state.Version),
		zap.String("status", string(state.Status)),
	)
	return t, nil
}

// TableOf returns the live table userID holds a seat at, or "".
func (l *Lobby) TableOf(userID string) string {
	l.mu.RLock()
	live := make([]*table.Table, 0, len(l.tables))
	for _, t := range l.tables {
		live = append(live, t)
	}
	l.mu.RUnlock()

	for _, t := range live {
		if !t.IsClosed() && t.IsMember(userID) {
			return t.ID
		}
	}
	return ""
}

// Remove stops t and deletes its document. A newer actor rehydrated under the same id
// is left alone, and so is its document.
func (l *Lobby) Remove(t *table.Table) {
	l.mu.Lock()
	current := l.tables[t.ID] == t
	if current {
		delete(l.tables, t.ID)
	}
	l.mu.Unlock()
	t.Stop()
	if !current {
		return
	}
	if l.store != nil {
		l.store.DeleteTable(t.ID)
	}
	l.log.Info("table removed", zap.String("table", t.ID))
}

// Sweep deletes waiting tables idle past the TTL and returns their ids.
func (l *Lobby) Sweep() []string {
	l.mu.RLock()
	candidates := make([]*table.Table, 0, len(l.tables))
	for _, t := range l.tables {
		candidates = append(candidates, t)
	}
	l.mu.RUnlock()

	var swept []string
	for _, t := range candidates {
		if t.CloseIfIdle(l.idleTTL) {
			l.Remove(t)
			swept = append(swept, t.ID)
		}
	}
	sort.Strings(swept)
	if len(swept) > 0 {
		l.log.Info("idle tables swept", zap.Strings("tables", swept))
	}
	return swept
}

// Run sweeps on an interval until ctx is done.
func (l *Lobby) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Restore starts an actor for every persisted table.
func (l *Lobby) Restore(ctx context.Context) (int, error) {
	if l.loader == nil {
		return 0, nil
	}
	ids, err := l.loader.IDs(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if _, err := l.Get(ctx, id); err != nil {
			l.log.Warn("restore table failed", zap.String("table", id), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

// List returns a summary line per live table
func (l *Lobby) List() []table.Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]table.Summary, 0, len(l.tables))
	for _, t := range l.tables {
		out = append(out, t.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops every actor and refuses further lookups. Documents stay in the store.
func (l *Lobby) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	for id, t := range l.tables {
		t.Stop()
		delete(l.tables, id)
	}
}
