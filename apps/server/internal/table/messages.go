package table

// Outbound frame types.
const (
	MsgTableUpdated = "table-updated"
	MsgHandStarted  = "hand-started"
	MsgChat         = "chat-message"
	MsgLeft         = "left"
	MsgError        = "error"
	MsgPong         = "pong"
)

// Outbound is a frame addressed to one user. Data is encoded by the connection's codec.
type Outbound struct {
	Type    string
	TableID string
	Data    any
}

type ChatMessage struct {
	UserID    string `json:"userId"`
	Nickname  string `json:"nickname"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type LeftMessage struct {
	TableID string `json:"tableId"`
}

type ErrorMessage struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}
