package bot

import (
	"context"
	"fmt"
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/clambin/aldes-monitor/internal/poller"
	"github.com/clambin/go-common/set"
	"github.com/slack-go/slack"
	"slices"
	"strings"
	"time"
)

const noUpdateYet = "no update yet. please check back later"

func (b *Bot) onDevices(_ context.Context, _ ...string) []slack.Attachment {
	update, ok := b.getUpdate()
	if !ok {
		return []slack.Attachment{{Color: "bad", Text: noUpdateYet}}
	}

	text := make([]string, 0, len(update.Products))
	for _, product := range update.Products {
		text = append(text, deviceLine(product))
	}
	if len(text) == 0 {
		return []slack.Attachment{{Color: "bad", Text: "no devices found"}}
	}
	slices.Sort(text)
	return []slack.Attachment{{Color: "good", Title: "devices:", Text: strings.Join(text, "\n")}}
}

func deviceLine(product aldes.Product) string {
	connected := "connected"
	if !product.IsConnected {
		connected = "not connected"
	}
	line := fmt.Sprintf("%s (%s): %s, air: %s",
		product.Name, product.FriendlyName(), connected, aldes.AirModeName(product.Indicator.CurrentAirMode),
	)
	if product.HasHotWater() {
		line += ", water: " + product.Indicator.CurrentWaterMode
	}
	return line + fmt.Sprintf(", %.1fºC", product.Indicator.MainTemperature)
}

func (b *Bot) onThermostats(_ context.Context, _ ...string) []slack.Attachment {
	update, ok := b.getUpdate()
	if !ok {
		return []slack.Attachment{{Color: "bad", Text: noUpdateYet}}
	}

	text := make([]string, 0)
	for _, product := range update.Products {
		for _, thermostat := range product.Indicator.Thermostats {
			text = append(text, fmt.Sprintf("%s: %.1fºC (target: %.1fºC)",
				thermostat.Name, thermostat.CurrentTemperature, thermostat.TemperatureSet,
			))
		}
	}
	if len(text) == 0 {
		return []slack.Attachment{{Color: "bad", Text: "no thermostats found"}}
	}
	slices.Sort(text)
	return []slack.Attachment{{Color: "good", Title: "thermostats:", Text: strings.Join(text, "\n")}}
}

func (b *Bot) onSet(ctx context.Context, args ...string) []slack.Attachment {
	update, ok := b.getUpdate()
	if !ok {
		return []slack.Attachment{{Color: "bad", Text: noUpdateYet}}
	}

	cmd, err := parseSet(args...)
	if err != nil {
		return []slack.Attachment{{Color: "bad", Text: err.Error()}}
	}
	product, thermostat, found := update.FindThermostat(cmd.zone)
	if !found {
		return []slack.Attachment{{
			Color: "bad",
			Text:  "unknown zone: " + cmd.zone + "\nzones: " + strings.Join(zoneNames(update), ", "),
		}}
	}

	if _, err = b.client.SetTargetTemperature(ctx, product.Modem, thermostat.ID, thermostat.Name, cmd.temperature); err != nil {
		return []slack.Attachment{{Color: "bad", Text: "failed: " + err.Error()}}
	}
	b.poller.Refresh()
	return []slack.Attachment{{
		Color: "good",
		Text:  fmt.Sprintf("set target temperature for %s to %.0fºC", thermostat.Name, cmd.temperature),
	}}
}

func (b *Bot) onMode(ctx context.Context, args ...string) []slack.Attachment {
	update, ok := b.getUpdate()
	if !ok {
		return []slack.Attachment{{Color: "bad", Text: noUpdateYet}}
	}

	cmd, err := parseMode(args...)
	if err != nil {
		return []slack.Attachment{{Color: "bad", Text: err.Error()}}
	}
	product, found := update.FindProduct(cmd.device)
	if !found {
		return []slack.Attachment{{
			Color: "bad",
			Text:  "unknown device: " + cmd.device + "\ndevices: " + strings.Join(deviceNames(update), ", "),
		}}
	}

	if _, err = b.client.ChangeMode(ctx, product.Modem, cmd.code); err != nil {
		return []slack.Attachment{{Color: "bad", Text: "failed: " + err.Error()}}
	}
	b.poller.Refresh()
	return []slack.Attachment{{Color: "good", Text: "set " + product.Name + " to " + cmd.name + " mode"}}
}

func (b *Bot) onVacation(ctx context.Context, args ...string) []slack.Attachment {
	update, ok := b.getUpdate()
	if !ok {
		return []slack.Attachment{{Color: "bad", Text: noUpdateYet}}
	}

	cmd, err := parseVacation(b.presets, time.Now(), args...)
	if err != nil {
		return []slack.Attachment{{Color: "bad", Text: err.Error()}}
	}
	product, found := update.FindProduct(cmd.device)
	if !found {
		return []slack.Attachment{{
			Color: "bad",
			Text:  "unknown device: " + cmd.device + "\ndevices: " + strings.Join(deviceNames(update), ", "),
		}}
	}

	if _, err = b.client.SetVacationPeriod(ctx, product.Modem, cmd.start, cmd.end); err != nil {
		return []slack.Attachment{{Color: "bad", Text: "failed: " + err.Error()}}
	}
	b.poller.Refresh()

	if cmd.start.IsZero() {
		return []slack.Attachment{{Color: "good", Text: "cleared vacation window for " + product.Name}}
	}
	return []slack.Attachment{{
		Color: "good",
		Text: fmt.Sprintf("set vacation window for %s: %s to %s",
			product.Name,
			cmd.start.Format(time.RFC3339),
			cmd.end.Format(time.RFC3339),
		),
	}}
}

func (b *Bot) onFrost(ctx context.Context, args ...string) []slack.Attachment {
	update, ok := b.getUpdate()
	if !ok {
		return []slack.Attachment{{Color: "bad", Text: noUpdateYet}}
	}

	cmd, err := parseFrost(args...)
	if err != nil {
		return []slack.Attachment{{Color: "bad", Text: err.Error()}}
	}
	product, found := update.FindProduct(cmd.device)
	if !found {
		return []slack.Attachment{{
			Color: "bad",
			Text:  "unknown device: " + cmd.device + "\ndevices: " + strings.Join(deviceNames(update), ", "),
		}}
	}

	if _, err = b.client.SetFrostProtection(ctx, product.Modem, cmd.enabled); err != nil {
		return []slack.Attachment{{Color: "bad", Text: "failed: " + err.Error()}}
	}
	b.poller.Refresh()

	state := "off"
	if cmd.enabled {
		state = "on"
	}
	return []slack.Attachment{{Color: "good", Text: "switched frost protection " + state + " for " + product.Name}}
}

func (b *Bot) onRefresh(ctx context.Context, _ ...string) []slack.Attachment {
	if err := b.poller.ForceRefresh(ctx); err != nil {
		return []slack.Attachment{{Color: "bad", Text: "refresh failed: " + err.Error()}}
	}
	return []slack.Attachment{{Color: "good", Text: "refreshed device data"}}
}

func (b *Bot) onHealth(_ context.Context, _ ...string) []slack.Attachment {
	update, ok := b.poller.LastUpdate()
	if !ok {
		return []slack.Attachment{{Color: "bad", Text: noUpdateYet}}
	}

	color, status := "good", "healthy"
	if !update.Healthy {
		color, status = "bad", "degraded"
	}
	return []slack.Attachment{{
		Color: color,
		Title: status,
		Text: fmt.Sprintf("devices: %d\nlast successful poll: %s ago\nconsecutive failures: %d",
			len(update.Products),
			time.Since(update.UpdatedAt).Truncate(time.Second),
			update.Failures,
		),
	}}
}

func zoneNames(update poller.Update) []string {
	names := set.New[string]()
	for _, product := range update.Products {
		for _, thermostat := range product.Indicator.Thermostats {
			names.Add(thermostat.Name)
		}
	}
	list := names.List()
	slices.Sort(list)
	return list
}

func deviceNames(update poller.Update) []string {
	names := set.New[string]()
	for _, product := range update.Products {
		names.Add(product.Name)
	}
	list := names.List()
	slices.Sort(list)
	return list
}
