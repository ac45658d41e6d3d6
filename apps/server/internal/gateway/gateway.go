package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"holdem-live/apps/server/internal/codec"
	"holdem-live/apps/server/internal/lobby"
	"holdem-live/apps/server/internal/logger"
	"holdem-live/apps/server/internal/table"
	"holdem-live/holdem"
)

var (
	ErrAlreadySeated = errors.New("already seated at another table")
	ErrNoTable       = errors.New("not at a table")
	ErrUnknownType   = errors.New("unknown message type")
)

// Client is one live connection of a user.
type Client interface {
	ID() string
	UserID() string
	Nickname() string
	// Send queues a frame without blocking; false means it was dropped.
	Send(msg table.Outbound) bool
	Close()
}

// Tables resolves a table id to its live actor. *lobby.Lobby satisfies it.
type Tables interface {
	Get(ctx context.Context, id string) (*table.Table, error)
	// TableOf finds the table a user is seated at; routes do not survive a restart.
	TableOf(userID string) string
}

// Router is the session router: identity to connections, identity to table, presence.
// It implements table.Broadcaster.
type Router struct {
	mu      sync.RWMutex
	clients map[string]Client
	byUser  map[string]map[string]Client
	tableOf map[string]string

	tables Tables
	log    *zap.Logger
}

func NewRouter(log *zap.Logger) *Router {
	return &Router{
		clients: make(map[string]Client),
		byUser:  make(map[string]map[string]Client),
		tableOf: make(map[string]string),
		log:     logger.OrNop(log).Named("gateway"),
	}
}

// Attach sets the table registry. The lobby needs the router as its broadcaster, so the two
// are wired in two steps; call Attach before serving.
func (r *Router) Attach(tables Tables) {
	r.tables = tables
}

// Deliver fans a table frame out to every connection of userID. Frames from a table the
// user is no longer routed to are dropped, except "left" which also clears the route.
func (r *Router) Deliver(userID string, msg table.Outbound) {
	r.mu.Lock()
	current := r.tableOf[userID]
	if msg.Type == table.MsgLeft {
		if current == msg.TableID {
			delete(r.tableOf, userID)
		}
	} else if msg.TableID != "" && current != msg.TableID {
		r.mu.Unlock()
		return
	}
	conns := make([]Client, 0, len(r.byUser[userID]))
	for _, c := range r.byUser[userID] {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	for _, c := range conns {
		if !c.Send(msg) {
			r.log.Warn("send buffer full, frame dropped",
				zap.String("conn", c.ID()),
				zap.String("user", userID),
				zap.String("type", msg.Type),
			)
		}
	}
}

// Register attaches a connection. A user coming back to a table is marked present again,
// which also pushes a fresh snapshot.
func (r *Router) Register(ctx context.Context, c Client) {
	r.mu.Lock()
	r.clients[c.ID()] = c
	conns := r.byUser[c.UserID()]
	if conns == nil {
		conns = make(map[string]Client)
		r.byUser[c.UserID()] = conns
	}
	conns[c.ID()] = c
	first := len(conns) == 1
	tableID := r.tableOf[c.UserID()]
	total := len(r.clients)
	r.mu.Unlock()

	r.log.Info("client connected",
		zap.String("conn", c.ID()),
		zap.String("user", c.UserID()),
		zap.Int("total", total),
	)
	if tableID == "" {
		tableID = r.reroute(c.UserID())
	}
	if tableID == "" {
		return
	}
	t, err := r.tables.Get(ctx, tableID)
	if err != nil {
		return
	}
	kind := table.EventSync
	if first {
		kind = table.EventPresence
	}
	if err := t.SubmitEvent(table.Event{Type: kind, UserID: c.UserID(), Absent: false}); err != nil {
		r.log.Debug("reattach failed", zap.String("table", tableID), zap.Error(err))
	}
}

// reroute restores a missing route from the seat the user already holds.
func (r *Router) reroute(userID string) string {
	if r.tables == nil {
		return ""
	}
	id := r.tables.TableOf(userID)
	if id == "" {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.tableOf[userID]; cur != "" {
		return cur
	}
	r.tableOf[userID] = id
	r.log.Debug("route restored", zap.String("user", userID), zap.String("table", id))
	return id
}

// Unregister detaches a connection. When the user's last connection goes the seat is
// marked absent; it keeps its cards and still owes its turn.
func (r *Router) Unregister(ctx context.Context, c Client) {
	r.mu.Lock()
	if _, ok := r.clients[c.ID()]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.clients, c.ID())
	conns := r.byUser[c.UserID()]
	delete(conns, c.ID())
	last := len(conns) == 0
	if last {
		delete(r.byUser, c.UserID())
	}
	tableID := r.tableOf[c.UserID()]
	total := len(r.clients)
	r.mu.Unlock()

	r.log.Info("client disconnected",
		zap.String("conn", c.ID()),
		zap.String("user", c.UserID()),
		zap.Int("total", total),
	)
	if !last || tableID == "" {
		return
	}
	t, err := r.tables.Get(ctx, tableID)
	if err != nil {
		return
	}
	if err := t.SubmitEvent(table.Event{Type: table.EventPresence, UserID: c.UserID(), Absent: true}); err != nil {
		r.log.Debug("mark absent failed", zap.String("table", tableID), zap.Error(err))
	}
}

// TableOf returns the table the user is routed to.
func (r *Router) TableOf(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tableOf[userID]
}

// Connections counts live connections.
func (r *Router) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// HandleInbound dispatches one client message. Rejections go back to c only.
func (r *Router) HandleInbound(ctx context.Context, c Client, in codec.Inbound) {
	if err := r.dispatch(ctx, c, in); err != nil {
		r.log.Debug("inbound rejected",
			zap.String("user", c.UserID()),
			zap.String("type", in.Type),
			zap.Error(err),
		)
		r.SendError(c, r.TableOf(c.UserID()), err)
	}
}

// SendError writes an error frame to one connection.
func (r *Router) SendError(c Client, tableID string, err error) {
	c.Send(table.Outbound{
		Type:    table.MsgError,
		TableID: tableID,
		Data:    table.ErrorMessage{Reason: string(ReasonOf(err)), Message: err.Error()},
	})
}

func (r *Router) dispatch(ctx context.Context, c Client, in codec.Inbound) error {
	userID := c.UserID()
	switch in.Type {
	case "ping":
		c.Send(table.Outbound{Type: table.MsgPong, TableID: r.TableOf(userID)})
		return nil
	case "join":
		return r.join(ctx, c, in)
	}

	t, err := r.current(ctx, userID)
	if err != nil {
		return err
	}
	e := table.Event{UserID: userID}
	switch in.Type {
	case "leave":
		e.Type = table.EventLeave
	case "ready":
		e.Type = table.EventReady
		e.Ready = in.Ready
	case "start":
		e.Type = table.EventStart
	case "action":
		e.Type = table.EventAction
		e.Action = in.Action
		e.Amount = in.Amount
	case "chat":
		e.Type = table.EventChat
		e.Text = in.Text
	case "sync":
		e.Type = table.EventSync
	case "settings":
		if in.Settings == nil {
			return holdem.ErrBadSettings
		}
		e.Type = table.EventSettings
		e.Settings = *in.Settings
	default:
		return ErrUnknownType
	}
	return t.SubmitEvent(e)
}

func (r *Router) join(ctx context.Context, c Client, in codec.Inbound) error {
	userID := c.UserID()
	tableID := strings.ToUpper(strings.TrimSpace(in.TableID))
	if tableID == "" {
		return lobby.ErrTableNotFound
	}
	t, err := r.tables.Get(ctx, tableID)
	if err != nil {
		return err
	}

	prev := r.TableOf(userID)
	if prev != "" && prev != tableID {
		if old, err := r.tables.Get(ctx, prev); err == nil && old.IsMember(userID) {
			return ErrAlreadySeated
		}
	}

	r.mu.Lock()
	r.tableOf[userID] = tableID
	r.mu.Unlock()

	nickname := in.Nickname
	if nickname == "" {
		nickname = c.Nickname()
	}
	err = t.SubmitEvent(table.Event{
		Type:     table.EventJoin,
		UserID:   userID,
		Nickname: nickname,
		Password: in.Password,
	})
	if err != nil {
		member := t.IsMember(userID)
		r.mu.Lock()
		if r.tableOf[userID] == tableID && !member {
			if prev == "" {
				delete(r.tableOf, userID)
			} else {
				r.tableOf[userID] = prev
			}
		}
		r.mu.Unlock()
		return err
	}
	r.log.Info("user joined table", zap.String("user", userID), zap.String("table", tableID))
	return nil
}

func (r *Router) current(ctx context.Context, userID string) (*table.Table, error) {
	id := r.TableOf(userID)
	if id == "" {
		return nil, ErrNoTable
	}
	t, err := r.tables.Get(ctx, id)
	if errors.Is(err, lobby.ErrTableNotFound) {
		r.mu.Lock()
		if r.tableOf[userID] == id {
			delete(r.tableOf, userID)
		}
		r.mu.Unlock()
	}
	return t, err
}

// ReasonOf maps router, lobby, codec and table errors to a wire reason.
func ReasonOf(err error) holdem.Reason {
	switch {
	case errors.Is(err, lobby.ErrTableNotFound):
		return "table-not-found"
	case errors.Is(err, ErrAlreadySeated):
		return "already-seated"
	case errors.Is(err, ErrNoTable):
		return holdem.ReasonOf(holdem.ErrNotSeated)
	case errors.Is(err, ErrUnknownType), errors.Is(err, codec.ErrBadFrame):
		return "bad-frame"
	}
	return table.ReasonOf(err)
}
