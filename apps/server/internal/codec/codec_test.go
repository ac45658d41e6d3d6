package codec

import (
	"errors"
	"net/http/httptest"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"holdem-live/holdem"
)

func TestJSONDecode(t *testing.T) {
	in, err := JSON.Decode([]byte(`{"type":"action","tableId":"AB12CD34","action":"raise","amount":120}`))
	if err != nil {
		t.Fatalf("Decode err: %v", err)
	}
	if in.Type != "action" || in.TableID != "AB12CD34" || in.Action != holdem.PlayerActionTypeRaise || in.Amount != 120 {
		t.Fatalf("in=%+v", in)
	}

	in, err = JSON.Decode([]byte(`{"type":"action","action":"allin"}`))
	if err != nil || in.Action != holdem.PlayerActionTypeAllin {
		t.Fatalf("allin alias: in=%+v err=%v", in, err)
	}

	in, err = JSON.Decode([]byte(`{"type":"settings","settings":{"maxSeats":4,"startingStack":500,"smallBlind":5,"bigBlind":10}}`))
	if err != nil || in.Settings == nil || in.Settings.MaxSeats != 4 {
		t.Fatalf("settings: in=%+v err=%v", in, err)
	}
}

func TestJSONDecode_Rejects(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"tableId":"X"}`,
		`{"type":"action","action":"shove"}`,
	} {
		if _, err := JSON.Decode([]byte(raw)); !errors.Is(err, ErrBadFrame) {
			t.Fatalf("%s: err=%v want ErrBadFrame", raw, err)
		}
	}
}

func TestJSONEncode(t *testing.T) {
	data, err := JSON.Encode(Frame{Type: "pong", Seq: 3})
	if err != nil {
		t.Fatalf("Encode err: %v", err)
	}
	if got := string(data); got != `{"type":"pong","seq":3}` {
		t.Fatalf("frame=%s", got)
	}
}

func TestProtoFrameCarriesSameFields(t *testing.T) {
	type payload struct {
		Reason string `json:"reason"`
		Pot    int64  `json:"pot"`
	}
	data, err := Proto.Encode(Frame{Type: "error", TableID: "T1", Seq: 9, Data: payload{Reason: "not-your-turn", Pot: 40}})
	if err != nil {
		t.Fatalf("Encode err: %v", err)
	}
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		t.Fatalf("Unmarshal err: %v", err)
	}
	m := s.AsMap()
	if m["type"] != "error" || m["tableId"] != "T1" || m["seq"] != float64(9) {
		t.Fatalf("frame=%v", m)
	}
	inner, ok := m["data"].(map[string]any)
	if !ok || inner["reason"] != "not-your-turn" || inner["pot"] != float64(40) {
		t.Fatalf("data=%v", m["data"])
	}
}

func TestProtoDecode(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{
		"type":   "action",
		"action": "call",
		"amount": 20,
	})
	if err != nil {
		t.Fatalf("NewStruct err: %v", err)
	}
	data, err := proto.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal err: %v", err)
	}
	in, err := Proto.Decode(data)
	if err != nil {
		t.Fatalf("Decode err: %v", err)
	}
	if in.Type != "action" || in.Action != holdem.PlayerActionTypeCall || in.Amount != 20 {
		t.Fatalf("in=%+v", in)
	}
	if _, err := Proto.Decode([]byte{0xff, 0xff}); !errors.Is(err, ErrBadFrame) {
		t.Fatalf("garbage err=%v", err)
	}
}

func TestNegotiate(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	if c := Negotiate(r); c.Name() != ProtocolJSON {
		t.Fatalf("default codec=%s", c.Name())
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "chat, holdem.proto")
	if c := Negotiate(r); c.Name() != ProtocolProto || !c.Binary() {
		t.Fatalf("subprotocol codec=%s", c.Name())
	}

	r = httptest.NewRequest("GET", "/ws?codec=json", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "holdem.proto")
	if c := Negotiate(r); c.Name() != ProtocolJSON {
		t.Fatalf("query should win: codec=%s", c.Name())
	}
}
