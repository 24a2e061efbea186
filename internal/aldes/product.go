package aldes

import (
	"encoding/json"
	"time"
)

// References of supported devices.
const (
	ReferenceTOneAir     = "TONE_AIR"
	ReferenceTOneAquaAir = "TONE_AQUA_AIR"
)

// Air mode codes, as reported in an Indicator's current_air_mode and accepted
// by ChangeMode.
const (
	AirModeOff         = "A"
	AirModeHeatComfort = "B"
	AirModeHeatEco     = "C"
	AirModeHeatProgA   = "D"
	AirModeHeatProgB   = "E"
	AirModeCoolComfort = "F"
	AirModeCoolBoost   = "G"
	AirModeCoolProgA   = "H"
	AirModeCoolProgB   = "I"
)

// A Product is one device registered to the account. Only the fields the
// monitor interprets are typed; all other top-level fields the vendor sends
// are retained in Raw and survive re-serialization.
type Product struct {
	Modem       string    `json:"modem"`
	Reference   string    `json:"reference"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	IsConnected bool      `json:"isConnected"`
	Indicator   Indicator `json:"indicator"`

	Raw map[string]json.RawMessage `json:"-"`
}

// product avoids recursion in Product's (Un)MarshalJSON.
type product Product

var promotedProductFields = []string{"modem", "reference", "name", "type", "isConnected", "indicator"}

func (p *Product) UnmarshalJSON(data []byte) error {
	var typed product
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, field := range promotedProductFields {
		delete(raw, field)
	}
	if len(raw) == 0 {
		raw = nil
	}
	*p = Product(typed)
	p.Raw = raw
	return nil
}

func (p Product) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(product(p))
	if err != nil || len(p.Raw) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err = json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for field, value := range p.Raw {
		if _, ok := merged[field]; !ok {
			merged[field] = value
		}
	}
	return json.Marshal(merged)
}

// FriendlyName returns the commercial name of the device model.
func (p Product) FriendlyName() string {
	switch p.Reference {
	case ReferenceTOneAir:
		return "T.One® AIR"
	case ReferenceTOneAquaAir:
		return "T.One® AquaAIR"
	default:
		return p.Reference
	}
}

// HasHotWater reports whether the device manages domestic hot water.
func (p Product) HasHotWater() bool {
	return p.Reference == ReferenceTOneAquaAir
}

// An Indicator carries a device's live operating state.
type Indicator struct {
	CurrentAirMode   string       `json:"current_air_mode"`
	CurrentWaterMode string       `json:"current_water_mode"`
	MainTemperature  float64      `json:"tmp_principal"`
	HotWaterQuantity float64      `json:"qte_eau_chaude"`
	FrostProtection  bool         `json:"hors_gel"`
	VacationStart    string       `json:"date_debut_vac"`
	VacationEnd      string       `json:"date_fin_vac"`
	Thermostats      []Thermostat `json:"thermostats"`
	Settings         Settings     `json:"settings"`
}

// indicatorDateLayouts lists the timestamp shapes observed in the vendor's
// vacation date fields.
var indicatorDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// VacationWindow returns the device's vacation window. ok is false if no
// window is set. A zero end time means the window is open-ended.
func (i Indicator) VacationWindow() (start, end time.Time, ok bool) {
	if start, ok = parseIndicatorDate(i.VacationStart); !ok {
		return time.Time{}, time.Time{}, false
	}
	end, _ = parseIndicatorDate(i.VacationEnd)
	return start, end, true
}

// VacationActive reports whether now falls inside the device's vacation
// window.
func (i Indicator) VacationActive(now time.Time) bool {
	start, end, ok := i.VacationWindow()
	if !ok || now.Before(start) {
		return false
	}
	return end.IsZero() || now.Before(end)
}

func parseIndicatorDate(value string) (time.Time, bool) {
	for _, layout := range indicatorDateLayouts {
		if stamp, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return stamp, true
		}
	}
	return time.Time{}, false
}

// A Thermostat is one zone thermostat connected to a device.
type Thermostat struct {
	ID                 int     `json:"ThermostatId"`
	Name               string  `json:"Name"`
	CurrentTemperature float64 `json:"CurrentTemperature"`
	TemperatureSet     float64 `json:"TemperatureSet"`
}

// Settings is the vendor's free-form device settings object.
type Settings map[string]json.RawMessage

// People returns the number of occupants configured on the device, if set.
func (s Settings) People() (int, bool) {
	raw, ok := s["people"]
	if !ok {
		return 0, false
	}
	var people int
	if err := json.Unmarshal(raw, &people); err != nil {
		return 0, false
	}
	return people, true
}

// AirModeName translates a vendor air mode code to a short human-readable
// name. Unknown codes are returned as is.
func AirModeName(code string) string {
	switch code {
	case AirModeOff:
		return "off"
	case AirModeHeatComfort, AirModeHeatEco:
		return "heat"
	case AirModeCoolComfort, AirModeCoolBoost:
		return "cool"
	case AirModeHeatProgA, AirModeHeatProgB, AirModeCoolProgA, AirModeCoolProgB:
		return "auto"
	default:
		return code
	}
}
