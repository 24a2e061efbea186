package bot

import (
	"errors"
	"fmt"
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/clambin/aldes-monitor/internal/presets"
	"strconv"
	"strings"
	"time"
)

type setCommand struct {
	zone        string
	temperature float64
}

func parseSet(args ...string) (setCommand, error) {
	if len(args) != 2 {
		return setCommand{}, errors.New("missing parameters\nUsage: set <zone> <temperature>")
	}
	temperature, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return setCommand{}, fmt.Errorf("invalid target temperature: %q", args[1])
	}
	if temperature < aldes.MinTargetTemperature || temperature > aldes.MaxTargetTemperature {
		return setCommand{}, fmt.Errorf("target temperature must be between %.0f and %.0fºC",
			aldes.MinTargetTemperature, aldes.MaxTargetTemperature,
		)
	}
	return setCommand{zone: args[0], temperature: temperature}, nil
}

type modeCommand struct {
	device string
	name   string
	code   string
}

var airModeCodes = map[string]string{
	"off":  aldes.AirModeOff,
	"heat": aldes.AirModeHeatComfort,
	"cool": aldes.AirModeCoolComfort,
	"auto": aldes.AirModeHeatProgB,
}

func parseMode(args ...string) (modeCommand, error) {
	if len(args) != 2 {
		return modeCommand{}, errors.New("missing parameters\nUsage: mode <device> off|heat|cool|auto")
	}
	name := strings.ToLower(args[1])
	code, ok := airModeCodes[name]
	if !ok {
		return modeCommand{}, fmt.Errorf("invalid mode: %q\nUsage: mode <device> off|heat|cool|auto", args[1])
	}
	return modeCommand{device: args[0], name: name, code: code}, nil
}

type vacationCommand struct {
	device string
	start  time.Time
	end    time.Time
}

// parseVacation handles "vacation <device> [<start> <end>|<preset>|off]". A
// bare "vacation <device>" applies the default preset; "off" clears the
// window (zero start and end).
func parseVacation(p presets.Presets, now time.Time, args ...string) (vacationCommand, error) {
	const usage = "Usage: vacation <device> [<start> <end>|<preset>|off]"

	cmd := vacationCommand{}
	switch len(args) {
	case 1:
		duration, _ := p.Get(presets.DefaultPreset)
		cmd = vacationCommand{device: args[0], start: now, end: now.Add(duration)}
	case 2:
		if strings.EqualFold(args[1], "off") {
			cmd = vacationCommand{device: args[0]}
			break
		}
		duration, ok := p.Get(args[1])
		if !ok {
			return vacationCommand{}, fmt.Errorf("invalid preset: %q\npresets: %s", args[1], strings.Join(p.Names(), ", "))
		}
		cmd = vacationCommand{device: args[0], start: now, end: now.Add(duration)}
	case 3:
		start, err := parseStamp(args[1])
		if err != nil {
			return vacationCommand{}, err
		}
		end, err := parseStamp(args[2])
		if err != nil {
			return vacationCommand{}, err
		}
		if !end.After(start) {
			return vacationCommand{}, fmt.Errorf("vacation end %q is not after start %q", args[2], args[1])
		}
		cmd = vacationCommand{device: args[0], start: start, end: end}
	default:
		return vacationCommand{}, errors.New("missing parameters\n" + usage)
	}
	return cmd, nil
}

var stampLayouts = []string{time.RFC3339, "2006-01-02"}

func parseStamp(value string) (time.Time, error) {
	for _, layout := range stampLayouts {
		if stamp, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return stamp, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp: %q (use RFC 3339 or YYYY-MM-DD)", value)
}

type frostCommand struct {
	device  string
	enabled bool
}

func parseFrost(args ...string) (frostCommand, error) {
	if len(args) != 2 {
		return frostCommand{}, errors.New("missing parameters\nUsage: frost <device> on|off")
	}
	switch strings.ToLower(args[1]) {
	case "on":
		return frostCommand{device: args[0], enabled: true}, nil
	case "off":
		return frostCommand{device: args[0], enabled: false}, nil
	default:
		return frostCommand{}, fmt.Errorf("invalid parameter: %q\nUsage: frost <device> on|off", args[1])
	}
}
