package aldes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Target temperatures the vendor accepts, in °C.
const (
	MinTargetTemperature = 16.0
	MaxTargetTemperature = 31.0
)

// A CommandResult holds the vendor's response to a command. Its shape varies
// per command and firmware version, so it's passed through as is.
type CommandResult map[string]any

type commandEnvelope struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

type thermostatSetting struct {
	ThermostatID   int    `json:"ThermostatId"`
	Name           string `json:"Name"`
	TemperatureSet int    `json:"TemperatureSet"`
}

type indicatorPatch struct {
	Indicator indicatorFlags `json:"indicator"`
}

type indicatorFlags struct {
	HorsGel bool `json:"hors_gel"`
}

// SetTargetTemperature sets the target temperature of one thermostat zone.
// name must be the zone's current display name: the vendor rejects updates
// that omit it. temperature is truncated to a whole degree, as the vendor
// only takes integer Celsius values.
func (c *APIClient) SetTargetTemperature(ctx context.Context, modem string, thermostatID int, name string, temperature float64) (CommandResult, error) {
	payload, err := json.Marshal([]thermostatSetting{{
		ThermostatID:   thermostatID,
		Name:           name,
		TemperatureSet: int(temperature),
	}})
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("setting target temperature",
		slog.String("modem", modem),
		slog.Int("thermostat", thermostatID),
		slog.Int("temperature", int(temperature)),
	)
	return c.command(ctx, http.MethodPatch, productPath(modem)+"/updateThermostats", payload)
}

// ChangeMode switches the operating mode of a device. mode is one of the
// vendor's single-letter mode codes (see AirMode constants).
func (c *APIClient) ChangeMode(ctx context.Context, modem string, mode string) (CommandResult, error) {
	c.Logger.Debug("changing mode", slog.String("modem", modem), slog.String("mode", mode))
	return c.changeMode(ctx, modem, mode)
}

// SetVacationPeriod puts the device in vacation mode from start to end.
// Two zero times clear the vacation window.
func (c *APIClient) SetVacationPeriod(ctx context.Context, modem string, start, end time.Time) (CommandResult, error) {
	c.Logger.Debug("setting vacation period",
		slog.String("modem", modem),
		slog.Time("start", start),
		slog.Time("end", end),
	)
	return c.changeMode(ctx, modem, vacationCommand(start, end))
}

// SetFrostProtection switches frost protection ("hors gel") on or off.
// Enabling sends a vacation window that starts now and never ends; disabling
// clears the window.
func (c *APIClient) SetFrostProtection(ctx context.Context, modem string, enabled bool) (CommandResult, error) {
	c.Logger.Debug("setting frost protection", slog.String("modem", modem), slog.Bool("enabled", enabled))
	param := vacationCommand(time.Time{}, time.Time{})
	if enabled {
		param = frostProtectionCommand(time.Now())
	}
	return c.changeMode(ctx, modem, param)
}

// SetHolidayIndicator sets the device's frost protection flag by patching the
// indicator directly. This is an older wire shape; current firmware expects
// SetFrostProtection's command encoding.
func (c *APIClient) SetHolidayIndicator(ctx context.Context, modem string, frostOn bool) (CommandResult, error) {
	payload, err := json.Marshal(indicatorPatch{Indicator: indicatorFlags{HorsGel: frostOn}})
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("setting holiday indicator", slog.String("modem", modem), slog.Bool("frost", frostOn))
	return c.command(ctx, http.MethodPatch, productPath(modem), payload)
}

func (c *APIClient) changeMode(ctx context.Context, modem string, param string) (CommandResult, error) {
	payload, err := json.Marshal(commandEnvelope{Method: "changeMode", Params: []string{param}})
	if err != nil {
		return nil, err
	}
	return c.command(ctx, http.MethodPost, productPath(modem)+"/commands", payload)
}

// command sends a command and decodes the vendor's reply. Only transport
// failures are retried: a command the server may have seen is not replayed, so
// it can't run twice.
func (c *APIClient) command(ctx context.Context, method, path string, payload []byte) (CommandResult, error) {
	var raw []byte
	err := c.withRetry(ctx, commandRetryable, func() (err error) {
		raw, err = c.do(ctx, method, path, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	result := make(CommandResult)
	if len(raw) > 0 {
		if err = json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("invalid command response: %w", err)
		}
	}
	return result, nil
}

func productPath(modem string) string {
	return productsPath + "/" + url.PathEscape(modem)
}
