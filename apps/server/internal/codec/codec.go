package codec

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"holdem-live/holdem"
)

// Websocket subprotocols. A client offers one in Sec-WebSocket-Protocol or passes ?codec=json|proto.
const (
	ProtocolJSON  = "holdem.json"
	ProtocolProto = "holdem.proto"
)

var ErrBadFrame = errors.New("malformed frame")

// Frame is one outbound message.
type Frame struct {
	Type    string `json:"type"`
	TableID string `json:"tableId,omitempty"`
	Seq     uint64 `json:"seq"`
	Data    any    `json:"data,omitempty"`
}

// Inbound is one client message. Fields not used by Type are ignored.
type Inbound struct {
	Type     string            `json:"type"`
	TableID  string            `json:"tableId,omitempty"`
	Password string            `json:"password,omitempty"`
	Nickname string            `json:"nickname,omitempty"`
	Ready    bool              `json:"ready,omitempty"`
	Action   holdem.ActionType `json:"action,omitempty"`
	Amount   int64             `json:"amount,omitempty"`
	Text     string            `json:"text,omitempty"`
	Settings *holdem.Settings  `json:"settings,omitempty"`
}

type Codec interface {
	Name() string
	// Binary reports whether frames go out as websocket binary messages.
	Binary() bool
	Encode(f Frame) ([]byte, error)
	Decode(data []byte) (Inbound, error)
}

var (
	JSON  Codec = jsonCodec{}
	Proto Codec = protoCodec{}
)

// Protocols lists the subprotocols the upgrader should accept, preferred first.
func Protocols() []string { return []string{ProtocolJSON, ProtocolProto} }

// ByName maps a subprotocol or short name to a codec.
func ByName(name string) (Codec, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json", ProtocolJSON:
		return JSON, true
	case "proto", "protobuf", ProtocolProto:
		return Proto, true
	}
	return nil, false
}

// Negotiate picks the codec for an upgrade request. The query parameter wins over the
// subprotocol header, which is matched in Protocols order like the websocket upgrader
// does; JSON is the fallback.
func Negotiate(r *http.Request) Codec {
	if q := r.URL.Query().Get("codec"); q != "" {
		if c, ok := ByName(q); ok {
			return c
		}
	}
	offered := make(map[string]bool)
	for _, header := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, p := range strings.Split(header, ",") {
			offered[strings.TrimSpace(p)] = true
		}
	}
	for _, p := range Protocols() {
		if offered[p] {
			c, _ := ByName(p)
			return c
		}
	}
	return JSON
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return ProtocolJSON }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

func (jsonCodec) Decode(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if in.Type == "" {
		return Inbound{}, fmt.Errorf("%w: missing type", ErrBadFrame)
	}
	return in, nil
}

// protoCodec carries the same field names as the JSON frames inside a google.protobuf.Struct,
// so both codecs share one schema.
type protoCodec struct{}

func (protoCodec) Name() string { return ProtocolProto }
func (protoCodec) Binary() bool { return true }

func (protoCodec) Encode(f Frame) ([]byte, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return proto.Marshal(s)
}

func (protoCodec) Decode(data []byte) (Inbound, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return JSON.Decode(raw)
}
