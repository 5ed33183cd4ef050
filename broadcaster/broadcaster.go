package broadcaster

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spooky-finn/okx-depth-bridge/domain"
	promclient "github.com/spooky-finn/okx-depth-bridge/infrastructure/prometheus"
)

const DefaultInterval = 250 * time.Millisecond

// Subscriber is one downstream connection.
type Subscriber interface {
	Push(ctx context.Context, payload []byte) error
	Close() error
}

type TopOfBookSource interface {
	TopOfBook() domain.TopOfBook
}

type Broadcaster struct {
	source   TopOfBookSource
	interval time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	feeds map[uuid.UUID]*feed
}

// feed delivers samples to one subscriber from its own goroutine. The mailbox
// holds only the newest sample, so a slow subscriber skips stale ones.
type feed struct {
	sub     Subscriber
	mailbox chan []byte
	ctx     context.Context
	cancel  context.CancelFunc
}

func (f *feed) offer(payload []byte) {
	for {
		select {
		case f.mailbox <- payload:
			return
		default:
		}
		select {
		case <-f.mailbox:
		default:
		}
	}
}

func New(source TopOfBookSource, interval time.Duration, logger *zap.Logger) *Broadcaster {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Broadcaster{
		source:   source,
		interval: interval,
		logger:   logger.Named("broadcaster"),
		feeds:    make(map[uuid.UUID]*feed),
	}
}

// Add registers a subscriber; it receives pushes from the next iteration on.
func (b *Broadcaster) Add(sub Subscriber) uuid.UUID {
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	f := &feed{sub: sub, mailbox: make(chan []byte, 1), ctx: ctx, cancel: cancel}

	b.mu.Lock()
	b.feeds[id] = f
	count := len(b.feeds)
	b.mu.Unlock()

	go b.deliver(id, f)

	promclient.BroadcastSubscribers.Set(float64(count))
	b.logger.Debug("subscriber added", zap.Stringer("id", id), zap.Int("subscribers", count))
	return id
}

// Remove unregisters a subscriber without closing it. It reports whether the id was registered.
func (b *Broadcaster) Remove(id uuid.UUID) bool {
	b.mu.Lock()
	f, ok := b.feeds[id]
	delete(b.feeds, id)
	count := len(b.feeds)
	b.mu.Unlock()

	if ok {
		f.cancel()
		promclient.BroadcastSubscribers.Set(float64(count))
		b.logger.Debug("subscriber removed", zap.Stringer("id", id), zap.Int("subscribers", count))
	}
	return ok
}

func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.feeds)
}

// Run broadcasts every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("broadcast loop started", zap.Duration("interval", b.interval))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.BroadcastOnce(ctx)
		}
	}
}

// BroadcastOnce samples the top of book and hands it to every subscriber
// registered when the iteration starts. It never waits for a push.
func (b *Broadcaster) BroadcastOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	feeds := b.snapshot()
	if len(feeds) == 0 {
		return
	}

	payload, err := json.Marshal(b.source.TopOfBook())
	if err != nil {
		b.logger.Error("failed to encode top of book", zap.Error(err))
		return
	}
	promclient.BroadcastIterations.Inc()

	for _, f := range feeds {
		f.offer(payload)
	}
}

func (b *Broadcaster) deliver(id uuid.UUID, f *feed) {
	for {
		select {
		case <-f.ctx.Done():
			return
		case payload := <-f.mailbox:
			if f.ctx.Err() != nil {
				return
			}
			if err := f.sub.Push(f.ctx, payload); err != nil {
				b.drop(id, f.sub, err)
				return
			}
		}
	}
}

func (b *Broadcaster) snapshot() []*feed {
	b.mu.Lock()
	defer b.mu.Unlock()

	return lo.Values(b.feeds)
}

func (b *Broadcaster) drop(id uuid.UUID, sub Subscriber, cause error) {
	if !b.Remove(id) {
		return
	}
	promclient.BroadcastPushFailures.Inc()
	b.logger.Info("dropping subscriber after failed push", zap.Stringer("id", id), zap.Error(cause))

	if err := sub.Close(); err != nil {
		b.logger.Debug("failed to close subscriber", zap.Stringer("id", id), zap.Error(err))
	}
}
