// Package publisher drives the price feed on a fixed cadence and fans the
// resulting market snapshots out to subscribers.
package publisher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brokersim/brokersim/internal/domain"
	"github.com/brokersim/brokersim/internal/services/book"
	"github.com/brokersim/brokersim/internal/services/feed"
)

// Snapshot is the full market state delivered each cycle: the latest quote
// for every instrument plus every open position revalued against them.
// There is no partial or delta protocol.
type Snapshot struct {
	Timestamp time.Time                   `json:"ts"`
	Quotes    map[string]domain.PriceQuote `json:"quotes"`
	Positions []book.Valuation            `json:"positions"`
}

// Publisher owns the tick loop. Each subscriber has a buffer of one
// snapshot; a subscriber that cannot keep up loses the stale snapshot and
// receives only the latest one next cycle.
type Publisher struct {
	feed     *feed.Generator
	book     *book.Book
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	subs   map[uint64]chan Snapshot
	nextID uint64
}

// New creates a publisher ticking at the given interval.
func New(f *feed.Generator, b *book.Book, interval time.Duration, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Publisher{
		feed:     f,
		book:     b,
		interval: interval,
		logger:   logger,
		subs:     make(map[uint64]chan Snapshot),
	}
}

// Subscribe registers a consumer of market snapshots. The returned cancel
// function unsubscribes and closes the channel.
func (p *Publisher) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan Snapshot, 1)
	p.subs[id] = ch

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
}

// Run executes the publish loop until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("market data publisher started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("market data publisher stopped")
			return ctx.Err()
		case <-ticker.C:
			p.Publish(p.Cycle())
		}
	}
}

// Cycle advances the feed one tick and builds the snapshot for it. Exposed
// so tests and tools can drive cycles without the timer.
func (p *Publisher) Cycle() Snapshot {
	quotes := p.feed.Tick()
	return Snapshot{
		Timestamp: time.Now(),
		Quotes:    quotes,
		Positions: p.book.Revalue(quotes),
	}
}

// Publish fans one snapshot out to all subscribers without blocking on any
// of them.
func (p *Publisher) Publish(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.subs {
		select {
		case ch <- s:
		default:
			// drop the unconsumed snapshot, deliver only the latest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}
