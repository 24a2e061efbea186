package poller_test

import (
	"context"
	"errors"
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/clambin/aldes-monitor/internal/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func TestProductPoller_Run(t *testing.T) {
	getter := &fakeGetter{products: []aldes.Product{
		{Modem: "modem_1", Name: "Home"},
		{Modem: "N/A", Name: "unprovisioned"},
		{Modem: "", Name: "nameless"},
		{Modem: "modem_1", Name: "duplicate"},
		{Modem: "modem_2", Name: "Cottage"},
	}}

	p := poller.New(getter, time.Minute, slog.Default())
	ch := p.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- p.Run(ctx) }()

	// the first poll happens immediately. records without a usable modem id
	// and duplicates are dropped.
	update := <-ch
	require.Len(t, update.Products, 2)
	assert.Equal(t, "Home", update.Products[0].Name)
	assert.Equal(t, "Cottage", update.Products[1].Name)
	assert.True(t, update.Healthy)
	assert.Zero(t, update.Failures)
	assert.False(t, update.UpdatedAt.IsZero())

	assert.True(t, p.Healthy())
	last, ok := p.LastUpdate()
	require.True(t, ok)
	assert.Equal(t, update, last)

	p.Unsubscribe(ch)
	cancel()
	assert.NoError(t, <-errCh)
}

func TestProductPoller_ForceRefresh(t *testing.T) {
	getter := &fakeGetter{products: []aldes.Product{{Modem: "modem_1", Name: "Home"}}}

	p := poller.New(getter, time.Minute, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error)
	go func() { errCh <- p.Run(ctx) }()

	require.NoError(t, p.ForceRefresh(ctx))
	assert.True(t, p.Healthy())
	before, ok := p.LastUpdate()
	require.True(t, ok)

	// a failed poll raises the error and republishes the last known devices
	getter.set(nil, errors.New("api down"))
	err := p.ForceRefresh(ctx)
	assert.ErrorContains(t, err, "api down")
	assert.False(t, p.Healthy())
	after, ok := p.LastUpdate()
	require.True(t, ok)
	assert.Equal(t, before.Products, after.Products)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, 1, after.Failures)

	// recovery resets the failure count
	getter.set([]aldes.Product{{Modem: "modem_1", Name: "Home"}}, nil)
	require.NoError(t, p.ForceRefresh(ctx))
	assert.True(t, p.Healthy())
	recovered, _ := p.LastUpdate()
	assert.Zero(t, recovered.Failures)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestProductPoller_ServesStale(t *testing.T) {
	products := []aldes.Product{{Modem: "modem_1", Name: "Home"}}
	getter := &fakeGetter{products: products}

	p := poller.New(getter, time.Minute, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error)
	go func() { errCh <- p.Run(ctx) }()

	require.NoError(t, p.ForceRefresh(ctx))

	// stale devices are still published, marked unhealthy
	getter.set(products, &aldes.StaleDataError{Err: errors.New("api down"), Age: 10 * time.Minute})
	err := p.ForceRefresh(ctx)
	var staleErr *aldes.StaleDataError
	assert.ErrorAs(t, err, &staleErr)

	update, ok := p.LastUpdate()
	require.True(t, ok)
	assert.Len(t, update.Products, 1)
	assert.False(t, update.Healthy)
	assert.Equal(t, 1, update.Failures)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestProductPoller_Subscribers(t *testing.T) {
	getter := &fakeGetter{products: []aldes.Product{{Modem: "modem_1", Name: "Home"}}}
	p := poller.New(getter, time.Minute, slog.Default())

	const clients = 5
	chs := make([]chan poller.Update, clients)
	for i := range chs {
		chs[i] = p.Subscribe()
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- p.Run(ctx) }()

	var wg sync.WaitGroup
	wg.Add(clients)
	for _, ch := range chs {
		go func(ch chan poller.Update) {
			defer wg.Done()
			update := <-ch
			assert.True(t, update.Healthy)
			p.Unsubscribe(ch)
		}(ch)
	}
	wg.Wait()

	// Refresh nudges the poller without waiting for the next tick
	p.Refresh()
	assert.Eventually(t, func() bool { return getter.count() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestProductPoller_ForceRefresh_CancelledContext(t *testing.T) {
	p := poller.New(&fakeGetter{}, time.Minute, slog.Default())

	// without a running poller, ForceRefresh honors the context
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.ForceRefresh(ctx), context.DeadlineExceeded)
}

type fakeGetter struct {
	lock     sync.Mutex
	products []aldes.Product
	err      error
	calls    int
}

func (f *fakeGetter) GetProducts(_ context.Context, _ bool) ([]aldes.Product, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls++
	return f.products, f.err
}

func (f *fakeGetter) set(products []aldes.Product, err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.products = products
	f.err = err
}

func (f *fakeGetter) count() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls
}
