// Package health reports the monitor's health over HTTP, for use as a
// container liveness probe.
package health

import (
	"context"
	"encoding/json"
	"github.com/clambin/aldes-monitor/internal/poller"
	"log/slog"
	"net/http"
	"sync"
)

// Health serves the latest device update as JSON: HTTP 200 while the poller
// is healthy, 503 while it's degraded or hasn't completed a poll yet.
type Health struct {
	poller.Poller
	logger  *slog.Logger
	lock    sync.RWMutex
	update  poller.Update
	updated bool
}

func New(p poller.Poller, logger *slog.Logger) *Health {
	return &Health{
		Poller: p,
		logger: logger,
	}
}

func (h *Health) Run(ctx context.Context) error {
	h.logger.Debug("started")
	defer h.logger.Debug("stopped")

	ch := h.Poller.Subscribe()
	defer h.Poller.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-ch:
			h.lock.Lock()
			h.update = update
			h.updated = true
			h.lock.Unlock()
		}
	}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.lock.RLock()
	update, updated := h.update, h.updated
	h.lock.RUnlock()

	if !updated {
		h.Poller.Refresh()
		http.Error(w, "no update yet", http.StatusServiceUnavailable)
		return
	}

	statusCode := http.StatusOK
	if !update.Healthy {
		statusCode = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(update); err != nil {
		h.logger.Error("failed to write health response", slog.Any("err", err))
	}
}
