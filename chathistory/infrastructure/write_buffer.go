package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lhudash/chisa-api/chathistory/domain"
	"github.com/lhudash/chisa-api/pkg/metrics"
	"github.com/lhudash/chisa-api/pkg/msgworker"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDebounce         = 750 * time.Millisecond
	DefaultMaxChatsPerOwner = 30
)

// Sink is the storage the buffer drains into.
type Sink interface {
	BulkInsert(ctx context.Context, chatID string, msgs []domain.Message) error
	TouchUpdatedAt(ctx context.Context, chatID string) error
	PruneOldest(ctx context.Context, ownerID string, keep int) error
}

type BufferConfig struct {
	Debounce         time.Duration
	MaxChatsPerOwner int
}

type bufferEntry struct {
	owner    string
	messages []domain.Message
	timer    *time.Timer
	gen      uint64
}

// keyLock serializes flushes of one chat. refs counts holders and waiters so
// the lock can leave the map as soon as nobody needs it.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// WriteBuffer coalesces chat messages per chat and writes them after a quiet
// period. Delivery to the sink is at most once: a failed flush is logged and
// its messages are dropped.
type WriteBuffer struct {
	sink    Sink
	cfg     BufferConfig
	pool    *msgworker.Pool
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*bufferEntry
	locks   map[string]*keyLock
	closed  bool
}

type BufferOption func(*WriteBuffer)

// WithWorkerPool runs timer flushes on pool, sharded by chat id.
func WithWorkerPool(pool *msgworker.Pool) BufferOption {
	return func(b *WriteBuffer) { b.pool = pool }
}

func WithBufferMetrics(m *metrics.Metrics) BufferOption {
	return func(b *WriteBuffer) { b.metrics = m }
}

func NewWriteBuffer(sink Sink, cfg BufferConfig, opts ...BufferOption) *WriteBuffer {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.MaxChatsPerOwner < 1 {
		cfg.MaxChatsPerOwner = DefaultMaxChatsPerOwner
	}

	b := &WriteBuffer{
		sink:    sink,
		cfg:     cfg,
		entries: make(map[string]*bufferEntry),
		locks:   make(map[string]*keyLock),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Append queues msgs for chatID and restarts its debounce timer. Empty input
// is ignored.
func (b *WriteBuffer) Append(chatID, ownerID string, msgs []domain.Message) {
	if len(msgs) == 0 {
		return
	}

	b.mu.Lock()
	e := b.entries[chatID]
	if e == nil {
		e = &bufferEntry{}
		b.entries[chatID] = e
	}
	if ownerID != "" {
		e.owner = ownerID
	}
	e.messages = append(e.messages, msgs...)
	e.gen++

	if e.timer != nil {
		e.timer.Stop()
	}
	closed := b.closed
	if !closed {
		gen := e.gen
		e.timer = time.AfterFunc(b.cfg.Debounce, func() {
			b.onTimer(chatID, e, gen)
		})
	}
	pending := len(b.entries)
	b.mu.Unlock()

	b.metrics.SetPending(pending)
	logrus.Debugf("[BUFFER] Queued %d message(s) for chat %s", len(msgs), chatID)

	if closed {
		// Shutdown already drained the buffer, write straight through.
		b.FlushNow(context.Background(), chatID)
	}
}

// FlushNow cancels the pending timer for chatID and flushes synchronously.
func (b *WriteBuffer) FlushNow(ctx context.Context, chatID string) {
	b.flush(ctx, chatID, nil, 0)
}

func (b *WriteBuffer) onTimer(chatID string, e *bufferEntry, gen uint64) {
	run := func(ctx context.Context) error {
		b.flush(ctx, chatID, e, gen)
		return nil
	}

	if b.pool != nil && b.pool.TryDispatch(msgworker.Job{Key: chatID, Handler: run}) {
		return
	}
	_ = run(context.Background())
}

// flush drains one chat. When expect is set the call comes from a timer and
// only proceeds if that timer still owns the entry.
func (b *WriteBuffer) flush(ctx context.Context, chatID string, expect *bufferEntry, gen uint64) {
	lock := b.acquire(chatID)
	defer b.release(chatID, lock)

	b.mu.Lock()
	e := b.entries[chatID]
	if expect != nil && (e != expect || e.gen != gen) {
		// Superseded by a newer append or an explicit flush.
		b.mu.Unlock()
		return
	}
	if e == nil || len(e.messages) == 0 {
		if e != nil {
			if e.timer != nil {
				e.timer.Stop()
			}
			delete(b.entries, chatID)
		}
		pending := len(b.entries)
		b.mu.Unlock()
		b.metrics.SetPending(pending)
		b.metrics.RecordFlush("empty", 0)
		return
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	delete(b.entries, chatID)
	batch := e.messages
	owner := e.owner
	pending := len(b.entries)
	b.mu.Unlock()

	b.metrics.SetPending(pending)

	if err := b.write(ctx, chatID, owner, batch); err != nil {
		b.metrics.RecordFlush("error", len(batch))
		logrus.WithError(err).WithFields(logrus.Fields{
			"chat_id":  chatID,
			"owner_id": owner,
			"messages": len(batch),
		}).Error("[BUFFER] Flush failed, messages dropped")
		return
	}

	b.metrics.RecordFlush("ok", len(batch))
	logrus.Debugf("[BUFFER] Flushed %d message(s) for chat %s", len(batch), chatID)
}

func (b *WriteBuffer) write(ctx context.Context, chatID, owner string, batch []domain.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()

	if err := b.sink.BulkInsert(ctx, chatID, batch); err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}
	if err := b.sink.TouchUpdatedAt(ctx, chatID); err != nil {
		return fmt.Errorf("touch updated_at: %w", err)
	}
	if owner != "" {
		if err := b.sink.PruneOldest(ctx, owner, b.cfg.MaxChatsPerOwner); err != nil {
			return fmt.Errorf("prune chats: %w", err)
		}
	}
	return nil
}

func (b *WriteBuffer) acquire(chatID string) *keyLock {
	b.mu.Lock()
	l := b.locks[chatID]
	if l == nil {
		l = &keyLock{}
		b.locks[chatID] = l
	}
	l.refs++
	b.mu.Unlock()

	l.mu.Lock()
	return l
}

func (b *WriteBuffer) release(chatID string, l *keyLock) {
	l.mu.Unlock()

	b.mu.Lock()
	l.refs--
	if l.refs == 0 && b.locks[chatID] == l {
		delete(b.locks, chatID)
	}
	b.mu.Unlock()
}

// Pending returns the number of chats with unflushed messages.
func (b *WriteBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Tracked returns how many entries and key locks are held in memory.
func (b *WriteBuffer) Tracked() (entries, locks int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries), len(b.locks)
}

// Close stops accepting timers and flushes every pending chat. Appends after
// Close are written synchronously.
func (b *WriteBuffer) Close(ctx context.Context) {
	b.mu.Lock()
	b.closed = true
	keys := make([]string, 0, len(b.entries))
	for k, e := range b.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		keys = append(keys, k)
	}
	b.mu.Unlock()

	for _, k := range keys {
		if ctx.Err() != nil {
			logrus.Warnf("[BUFFER] Shutdown deadline reached with %d chat(s) unflushed", b.Pending())
			return
		}
		b.FlushNow(ctx, k)
	}
	if len(keys) > 0 {
		logrus.Infof("[BUFFER] Flushed %d chat(s) on shutdown", len(keys))
	}
}

// Discard drops any unflushed messages for chatID.
func (b *WriteBuffer) Discard(chatID string) {
	b.mu.Lock()
	if e := b.entries[chatID]; e != nil {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(b.entries, chatID)
	}
	pending := len(b.entries)
	b.mu.Unlock()
	b.metrics.SetPending(pending)
}
