package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"holdem-live/holdem"
)

var ErrNotFound = errors.New("not found")

// Document is one serialized table at a given version.
type Document struct {
	ID        string
	Version   uint64
	UpdatedAt time.Time
	Body      []byte
}

// TableStore keeps the latest document per table.
type TableStore interface {
	SaveTable(ctx context.Context, doc Document) error
	LoadTable(ctx context.Context, id string) (Document, error)
	DeleteTable(ctx context.Context, id string) error
	IDs(ctx context.Context) ([]string, error)
	Close() error
}

// HandArchive receives one immutable record per finished hand. AppendHand must be idempotent
// on HandID since the writer retries.
type HandArchive interface {
	AppendHand(ctx context.Context, rec *holdem.CompletedHand) error
	Close() error
}

// HandReader looks an archived hand up by id, returning ErrNotFound when it is unknown.
type HandReader interface {
	Hand(ctx context.Context, handID string) (*holdem.CompletedHand, error)
}

// HistoryReader lists one player's archived hands, newest first.
type HistoryReader interface {
	PlayerHistory(ctx context.Context, userID string, limit int) ([]PlayerRow, error)
}

// HistoryOf returns the first archive in a that keeps per-player history, or nil.
func HistoryOf(a HandArchive) HistoryReader {
	switch v := a.(type) {
	case HistoryReader:
		return v
	case MultiArchive:
		for _, inner := range v {
			if h := HistoryOf(inner); h != nil {
				return h
			}
		}
	}
	return nil
}

func EncodeTable(t *holdem.Table) (Document, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return Document{}, fmt.Errorf("encode table %s: %w", t.ID, err)
	}
	return Document{ID: t.ID, Version: t.Version, UpdatedAt: t.LastActivityAt, Body: body}, nil
}

func DecodeTable(doc Document) (*holdem.Table, error) {
	var t holdem.Table
	if err := json.Unmarshal(doc.Body, &t); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", doc.ID, err)
	}
	if t.ID == "" {
		t.ID = doc.ID
	}
	if len(t.Seats) != t.Settings.MaxSeats {
		return nil, fmt.Errorf("decode table %s: %d seats for maxSeats %d", doc.ID, len(t.Seats), t.Settings.MaxSeats)
	}
	return &t, nil
}
