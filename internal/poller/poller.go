// Package poller periodically retrieves the state of all devices registered
// to the account and publishes it to all subscribers.
package poller

import (
	"context"
	"errors"
	"github.com/clambin/aldes-monitor/internal/aldes"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the default time between two polls.
const DefaultInterval = time.Minute

// A Poller publishes device updates to subscribers at regular intervals.
type Poller interface {
	Subscribe() chan Update
	Unsubscribe(ch chan Update)
	Refresh()
	ForceRefresh(ctx context.Context) error
	Healthy() bool
	LastUpdate() (Update, bool)
}

// A ProductGetter returns the devices registered to the account. Implemented
// by aldes.APIClient.
type ProductGetter interface {
	GetProducts(ctx context.Context, forceRefresh bool) ([]aldes.Product, error)
}

var _ Poller = &ProductPoller{}

// A ProductPoller polls the vendor cloud on a fixed interval. Every completed
// poll publishes an Update: when a poll fails, the last known devices are
// republished with Healthy switched off, so subscribers always hold the
// freshest available view and can tell how trustworthy it is.
type ProductPoller struct {
	Client   ProductGetter
	interval time.Duration
	logger   *slog.Logger
	refresh  chan refreshRequest

	lock        sync.RWMutex
	subscribers map[chan Update]struct{}
	lastUpdate  *Update
}

type refreshRequest struct {
	done chan error
}

// New returns a ProductPoller polling client every interval.
func New(client ProductGetter, interval time.Duration, logger *slog.Logger) *ProductPoller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &ProductPoller{
		Client:      client,
		interval:    interval,
		logger:      logger,
		refresh:     make(chan refreshRequest),
		subscribers: make(map[chan Update]struct{}),
	}
}

// Run polls until ctx is cancelled. The first poll happens immediately. All
// polling is done by this one goroutine, so polls never overlap.
func (p *ProductPoller) Run(ctx context.Context) error {
	p.logger.Debug("started", slog.Duration("interval", p.interval))
	defer p.logger.Debug("stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if err := p.poll(ctx, false); err != nil {
		p.logger.Error("failed to get device updates", slog.Any("err", err))
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.poll(ctx, false); err != nil {
				p.logger.Error("failed to get device updates", slog.Any("err", err))
			}
		case req := <-p.refresh:
			err := p.poll(ctx, true)
			if req.done != nil {
				req.done <- err
			} else if err != nil {
				p.logger.Error("failed to get device updates", slog.Any("err", err))
			}
		}
	}
}

// Refresh nudges the Poller to poll now, without waiting for the next tick.
func (p *ProductPoller) Refresh() {
	p.refresh <- refreshRequest{}
}

// ForceRefresh polls now, bypassing the device-list cache, and returns the
// poll's error. The poll itself runs on the Run goroutine, so it never
// overlaps a scheduled one.
func (p *ProductPoller) ForceRefresh(ctx context.Context) error {
	req := refreshRequest{done: make(chan error, 1)}
	select {
	case p.refresh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ProductPoller) poll(ctx context.Context, force bool) error {
	start := time.Now()
	products, err := p.Client.GetProducts(ctx, force)
	update := p.nextUpdate(products, err)
	p.publish(update)
	p.logger.Debug("poll completed",
		slog.Duration("duration", time.Since(start)),
		slog.Any("update", update),
	)
	return err
}

// nextUpdate merges a poll outcome into the last published update.
func (p *ProductPoller) nextUpdate(products []aldes.Product, err error) Update {
	p.lock.Lock()
	defer p.lock.Unlock()

	var update Update
	if p.lastUpdate != nil {
		update = *p.lastUpdate
	}
	var staleErr *aldes.StaleDataError
	switch {
	case err == nil:
		update = Update{Products: filterProducts(products), UpdatedAt: time.Now(), Healthy: true}
	case errors.As(err, &staleErr):
		update.Products = filterProducts(products)
		update.Healthy = false
		update.Failures++
	default:
		update.Healthy = false
		update.Failures++
	}
	p.lastUpdate = &update
	return update
}

// Subscribe registers a subscriber and returns the channel it will receive
// updates on.
func (p *ProductPoller) Subscribe() chan Update {
	p.lock.Lock()
	defer p.lock.Unlock()
	ch := make(chan Update)
	p.subscribers[ch] = struct{}{}
	p.logger.Debug("subscriber added", slog.Int("subscribers", len(p.subscribers)))
	return ch
}

// Unsubscribe removes a subscriber.
func (p *ProductPoller) Unsubscribe(ch chan Update) {
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.subscribers, ch)
	p.logger.Debug("subscriber removed", slog.Int("subscribers", len(p.subscribers)))
}

func (p *ProductPoller) publish(update Update) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	for ch := range p.subscribers {
		ch <- update
	}
}

// Healthy reports whether the last poll succeeded.
func (p *ProductPoller) Healthy() bool {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.lastUpdate != nil && p.lastUpdate.Healthy
}

// LastUpdate returns the last published update. ok is false if no poll has
// completed yet.
func (p *ProductPoller) LastUpdate() (Update, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.lastUpdate == nil {
		return Update{}, false
	}
	return *p.lastUpdate, true
}
