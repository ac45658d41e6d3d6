package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"holdem-live/apps/server/internal/auth"
	"holdem-live/apps/server/internal/codec"
	"holdem-live/apps/server/internal/table"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// NewUpgrader accepts the codec subprotocols. checkOrigin nil allows every origin.
func NewUpgrader(checkOrigin func(r *http.Request) bool) *websocket.Upgrader {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		Subprotocols:    codec.Protocols(),
		CheckOrigin:     checkOrigin,
	}
}

type outFrame struct {
	binary bool
	data   []byte
}

// Conn is a websocket client connection
type Conn struct {
	id       string
	identity auth.Identity
	ws       *websocket.Conn
	codec    codec.Codec
	router   *Router
	log      *zap.Logger

	// sendMu keeps seq and queue order the same across the actor and read pump
	sendMu    sync.Mutex
	seq       uint64
	send      chan outFrame
	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(ws *websocket.Conn, id auth.Identity, c codec.Codec, router *Router) *Conn {
	if c == nil {
		c = codec.JSON
	}
	connID := "conn-" + uuid.NewString()
	return &Conn{
		id:       connID,
		identity: id,
		ws:       ws,
		codec:    c,
		router:   router,
		log:      router.log.With(zap.String("conn", connID), zap.String("user", id.UserID)),
		send:     make(chan outFrame, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Conn) ID() string       { return c.id }
func (c *Conn) UserID() string   { return c.identity.UserID }
func (c *Conn) Nickname() string { return c.identity.Nickname }

// Send encodes msg with the next sequence number and queues it. A full buffer drops the
// frame without using up a number.
func (c *Conn) Send(msg table.Outbound) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	data, err := c.codec.Encode(codec.Frame{
		Type:    msg.Type,
		TableID: msg.TableID,
		Seq:     c.seq + 1,
		Data:    msg.Data,
	})
	if err != nil {
		c.log.Error("encode frame failed", zap.String("type", msg.Type), zap.Error(err))
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- outFrame{binary: c.codec.Binary(), data: data}:
		c.seq++
		return true
	default:
		return false
	}
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Serve registers the connection and pumps until the socket closes.
func (c *Conn) Serve(ctx context.Context) {
	c.router.Register(ctx, c)
	go c.writePump()
	c.readPump(ctx)
	c.Close()
	c.router.Unregister(context.WithoutCancel(ctx), c)
}

func (c *Conn) readPump(ctx context.Context) {
	defer c.ws.Close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("read error", zap.Error(err))
			}
			return
		}
		in, err := c.codec.Decode(message)
		if err != nil {
			c.router.SendError(c, c.router.TableOf(c.UserID()), err)
			continue
		}
		c.router.HandleInbound(ctx, c, in)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			kind := websocket.TextMessage
			if f.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.ws.WriteMessage(kind, f.data); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
