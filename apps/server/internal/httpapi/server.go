package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"holdem-live/apps/server/internal/auth"
	"holdem-live/apps/server/internal/codec"
	"holdem-live/apps/server/internal/gateway"
	"holdem-live/apps/server/internal/lobby"
	"holdem-live/apps/server/internal/logger"
	"holdem-live/apps/server/internal/store"
	"holdem-live/holdem"
	"holdem-live/replay"
)

// Server is the HTTP surface: health, websocket upgrade, and the table endpoints.
type Server struct {
	lobby    *lobby.Lobby
	router   *gateway.Router
	auth     *auth.JWTService
	hands    store.HandReader
	history  store.HistoryReader
	cache    *gateway.SnapshotCache
	upgrader *websocket.Upgrader
	log      *zap.Logger
	engine   *gin.Engine
}

type Options struct {
	Lobby       *lobby.Lobby
	Router      *gateway.Router
	Auth        *auth.JWTService
	// Hands serves archived hands and their replays; nil leaves those routes out.
	Hands       store.HandReader
	// History serves /me/hands; nil leaves it out.
	History     store.HistoryReader
	Logger      *zap.Logger
	CheckOrigin func(r *http.Request) bool
	// CacheSize bounds the snapshot cache; zero means 1024.
	CacheSize   int
}

func New(opt Options) (*Server, error) {
	cache, err := gateway.NewSnapshotCache(opt.CacheSize)
	if err != nil {
		return nil, err
	}
	s := &Server{
		lobby:    opt.Lobby,
		router:   opt.Router,
		auth:     opt.Auth,
		hands:    opt.Hands,
		history:  opt.History,
		cache:    cache,
		upgrader: gateway.NewUpgrader(opt.CheckOrigin),
		log:      logger.OrNop(opt.Logger).Named("http"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), accessLog(s.log))
	s.routes(r)
	s.engine = r
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/ws", s.serveWS)
	r.POST("/auth/guest", s.guestToken)

	tables := r.Group("/tables")
	tables.GET("", s.listTables)
	authed := tables.Group("")
	authed.Use(AuthRequired(s.auth))
	{
		authed.POST("", s.createTable)
		authed.GET("/:id", s.getTable)
	}

	if s.hands != nil {
		hands := r.Group("/hands")
		hands.Use(AuthRequired(s.auth))
		hands.GET("/:id", s.getHand)
		hands.GET("/:id/replay", s.replayHand)
	}
	if s.history != nil {
		r.GET("/me/hands", AuthRequired(s.auth), s.myHands)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"tables":      len(s.lobby.List()),
		"connections": s.router.Connections(),
	})
}

type guestRequest struct {
	Nickname string `json:"nickname"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

// guestToken hands out a signed guest identity so a client can reconnect as the same user.
func (s *Server) guestToken(c *gin.Context) {
	if !s.auth.AllowsGuests() {
		c.JSON(http.StatusForbidden, gin.H{"error": "guests are disabled"})
		return
	}
	var req guestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	id := auth.NewGuest()
	if nick := strings.TrimSpace(req.Nickname); nick != "" {
		id.Nickname = nick
	}
	token, err := s.auth.Issue(id)
	if err != nil {
		s.log.Error("issue guest token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token, UserID: id.UserID, Nickname: id.Nickname})
}

func (s *Server) serveWS(c *gin.Context) {
	id, err := s.auth.Resolve(tokenFromRequest(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	format := codec.Negotiate(c.Request)

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	if sub := ws.Subprotocol(); sub != "" && c.Query("codec") == "" {
		if picked, ok := codec.ByName(sub); ok {
			format = picked
		}
	}
	gateway.NewConn(ws, id, format, s.router).Serve(c.Request.Context())
}

func (s *Server) listTables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": s.lobby.List()})
}

type createTableRequest struct {
	Name     string           `json:"name"`
	Password string           `json:"password"`
	Nickname string           `json:"nickname"`
	Settings *holdem.Settings `json:"settings"`
}

func (s *Server) createTable(c *gin.Context) {
	var req createTableRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	id := identityFrom(c)
	nickname := req.Nickname
	if nickname == "" {
		nickname = id.Nickname
	}
	create := lobby.CreateRequest{
		CreatorID: id.UserID,
		Nickname:  nickname,
		Name:      req.Name,
		Password:  req.Password,
	}
	if req.Settings != nil {
		create.Settings = *req.Settings
	}

	t, err := s.lobby.Create(c.Request.Context(), create)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": t.ID, "table": s.cache.View(t, id.UserID)})
}

func (s *Server) getTable(c *gin.Context) {
	t, err := s.lobby.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.cache.View(t, identityFrom(c).UserID))
}

func (s *Server) getHand(c *gin.Context) {
	rec, err := s.hands.Hand(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// replayHand re-runs an archived hand from its seed and returns the tape as the caller
// would have seen it.
func (s *Server) replayHand(c *gin.Context) {
	rec, err := s.hands.Hand(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	tape, err := replay.Generate(rec, identityFrom(c).UserID)
	if err != nil {
		var replayErr *replay.ReplayError
		if errors.As(err, &replayErr) {
			s.log.Warn("archived hand does not replay", zap.String("hand", rec.HandID), zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": replayErr})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tape)
}

func (s *Server) myHands(c *gin.Context) {
	rows, err := s.history.PlayerHistory(c.Request.Context(), identityFrom(c).UserID, parseLimit(c.Query("limit")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hands": rows})
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 20
	}
	return min(n, 100)
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lobby.ErrTableNotFound), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, holdem.ErrBadSettings):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "reason": string(gateway.ReasonOf(err))})
}
