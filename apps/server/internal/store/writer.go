package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"holdem-live/apps/server/internal/logger"
	"holdem-live/holdem"
)

type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// MaxBackoff caps the doubling; zero means 5s.
	MaxBackoff time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Backoff <= 0 {
		p.Backoff = 100 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 5 * time.Second
	}
	return p
}

// Writer takes table documents and hand records off the actors' hot path. Table documents
// coalesce per table to the latest version; hand records are queued in order and never
// coalesced. Batches run one after another so a table's writes never reorder.
type Writer struct {
	tables  TableStore
	hands   HandArchive
	retry   RetryPolicy
	workers int
	log     *zap.Logger

	mu       sync.Mutex
	pending  map[string]Document
	deletes  map[string]bool
	queue    []*holdem.CompletedHand
	inflight bool
	// flushing holds the documents of the batch being written.
	flushing map[string]Document
	notify   chan struct{}
}

type WriterOptions struct {
	Retry   RetryPolicy
	Workers int
	Logger  *zap.Logger
}

func NewWriter(tables TableStore, hands HandArchive, opt WriterOptions) *Writer {
	if opt.Workers < 1 {
		opt.Workers = 4
	}
	return &Writer{
		tables:  tables,
		hands:   hands,
		retry:   opt.Retry.normalized(),
		workers: opt.Workers,
		log:     logger.OrNop(opt.Logger).Named("store"),
		pending: make(map[string]Document),
		deletes: make(map[string]bool),
		notify:  make(chan struct{}, 1),
	}
}

func (w *Writer) signal() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// SaveTable snapshots t now; the caller may keep mutating it afterwards.
func (w *Writer) SaveTable(t *holdem.Table) {
	doc, err := EncodeTable(t)
	if err != nil {
		w.log.Error("encode table failed", zap.String("table", t.ID), zap.Error(err), logger.Alert())
		return
	}
	w.mu.Lock()
	if cur, ok := w.pending[doc.ID]; !ok || cur.Version <= doc.Version {
		w.pending[doc.ID] = doc
	}
	delete(w.deletes, doc.ID)
	w.mu.Unlock()
	w.signal()
}

func (w *Writer) DeleteTable(id string) {
	w.mu.Lock()
	delete(w.pending, id)
	w.deletes[id] = true
	w.mu.Unlock()
	w.signal()
}

func (w *Writer) AppendHand(rec *holdem.CompletedHand) {
	if rec == nil {
		return
	}
	w.mu.Lock()
	w.queue = append(w.queue, rec)
	w.mu.Unlock()
	w.signal()
}

// Run drains batches until ctx is done, then makes one last pass with a short deadline.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.drain(final)
			cancel()
			return nil
		case <-w.notify:
			w.drain(ctx)
		}
	}
}

func (w *Writer) drain(ctx context.Context) {
	for {
		w.mu.Lock()
		if len(w.pending) == 0 && len(w.deletes) == 0 && len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		docs, deletes, hands := w.pending, w.deletes, w.queue
		w.pending = make(map[string]Document)
		w.deletes = make(map[string]bool)
		w.queue = nil
		w.inflight = true
		w.flushing = docs
		w.mu.Unlock()

		p := pool.New().WithMaxGoroutines(w.workers)
		for _, doc := range docs {
			p.Go(func() {
				w.do(ctx, "save table", doc.ID, func(ctx context.Context) error {
					return w.tables.SaveTable(ctx, doc)
				})
			})
		}
		for id := range deletes {
			p.Go(func() {
				w.do(ctx, "delete table", id, func(ctx context.Context) error {
					return w.tables.DeleteTable(ctx, id)
				})
			})
		}
		if w.hands != nil && len(hands) > 0 {
			p.Go(func() {
				for _, rec := range hands {
					w.do(ctx, "append hand", rec.TableID, func(ctx context.Context) error {
						return w.hands.AppendHand(ctx, rec)
					})
				}
			})
		}
		p.Wait()

		w.mu.Lock()
		w.inflight = false
		w.flushing = nil
		w.mu.Unlock()
	}
}

func (w *Writer) do(ctx context.Context, op, tableID string, fn func(context.Context) error) {
	delay := w.retry.Backoff
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return
		}
		if attempt >= w.retry.Attempts || ctx.Err() != nil {
			w.log.Error("persistence gave up",
				zap.String("op", op),
				zap.String("table", tableID),
				zap.Int("attempts", attempt),
				zap.Error(err),
				logger.Alert(),
			)
			return
		}
		w.log.Warn("persistence attempt failed",
			zap.String("op", op),
			zap.String("table", tableID),
			zap.Int("attempt", attempt),
			zap.Duration("retryIn", delay),
			zap.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		delay *= 2
		if delay > w.retry.MaxBackoff {
			delay = w.retry.MaxBackoff
		}
	}
}

// Flush blocks until everything submitted so far has been attempted.
func (w *Writer) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		w.mu.Lock()
		idle := !w.inflight && len(w.pending) == 0 && len(w.deletes) == 0 && len(w.queue) == 0
		w.mu.Unlock()
		if idle {
			return nil
		}
		w.signal()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Load prefers a document still waiting to be written over the store's copy.
func (w *Writer) Load(ctx context.Context, id string) (*holdem.Table, error) {
	w.mu.Lock()
	doc, ok := w.pending[id]
	if !ok {
		doc, ok = w.flushing[id]
	}
	deleted := w.deletes[id]
	w.mu.Unlock()
	if deleted {
		return nil, ErrNotFound
	}
	if !ok {
		var err error
		doc, err = w.tables.LoadTable(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	return DecodeTable(doc)
}

// IDs lists every table known to the store or still pending.
func (w *Writer) IDs(ctx context.Context) ([]string, error) {
	ids, err := w.tables.IDs(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if w.deletes[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	for id := range w.pending {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out, nil
}
