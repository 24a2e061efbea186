// Package bot exposes the monitor over Slack: it reports device and zone
// state, and issues commands on behalf of chat users.
package bot

import (
	"context"
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/clambin/aldes-monitor/internal/poller"
	"github.com/clambin/aldes-monitor/internal/presets"
	"github.com/clambin/go-common/slackbot"
	"log/slog"
	"sync"
	"time"
)

// A Bot handles the monitor's Slack commands. State-changing commands nudge
// the poller afterwards, so the next report reflects the change.
type Bot struct {
	client  Client
	poller  poller.Poller
	presets presets.Presets
	logger  *slog.Logger

	lock    sync.RWMutex
	update  poller.Update
	updated bool
}

// A Client issues device commands to the vendor cloud. Implemented by
// aldes.APIClient.
type Client interface {
	SetTargetTemperature(ctx context.Context, modem string, thermostatID int, name string, temperature float64) (aldes.CommandResult, error)
	ChangeMode(ctx context.Context, modem string, mode string) (aldes.CommandResult, error)
	SetVacationPeriod(ctx context.Context, modem string, start, end time.Time) (aldes.CommandResult, error)
	SetFrostProtection(ctx context.Context, modem string, enabled bool) (aldes.CommandResult, error)
}

// A SlackBot dispatches received Slack commands to registered handlers.
// Implemented by go-common's slackbot.SlackBot.
type SlackBot interface {
	Register(name string, command slackbot.CommandFunc)
}

// New returns a Bot and registers its commands with slackBot.
func New(client Client, slackBot SlackBot, p poller.Poller, vacations presets.Presets, logger *slog.Logger) *Bot {
	b := Bot{
		client:  client,
		poller:  p,
		presets: vacations,
		logger:  logger,
	}
	slackBot.Register("devices", b.onDevices)
	slackBot.Register("thermostats", b.onThermostats)
	slackBot.Register("set", b.onSet)
	slackBot.Register("mode", b.onMode)
	slackBot.Register("vacation", b.onVacation)
	slackBot.Register("frost", b.onFrost)
	slackBot.Register("refresh", b.onRefresh)
	slackBot.Register("health", b.onHealth)
	return &b
}

// Run consumes device updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Debug("started")
	defer b.logger.Debug("stopped")

	ch := b.poller.Subscribe()
	defer b.poller.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-ch:
			b.lock.Lock()
			b.update = update
			b.updated = true
			b.lock.Unlock()
		}
	}
}

func (b *Bot) getUpdate() (poller.Update, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.update, b.updated
}
