// Package testutils builds poller updates for tests.
package testutils

import (
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/clambin/aldes-monitor/internal/poller"
	"time"
)

func Update(options ...UpdateOption) poller.Update {
	u := poller.Update{Healthy: true}
	for _, option := range options {
		option(&u)
	}
	return u
}

type UpdateOption func(*poller.Update)

func WithUpdatedAt(updatedAt time.Time) UpdateOption {
	return func(u *poller.Update) {
		u.UpdatedAt = updatedAt
	}
}

func WithFailures(failures int) UpdateOption {
	return func(u *poller.Update) {
		u.Healthy = false
		u.Failures = failures
	}
}

func WithProduct(modem, name string, options ...ProductOption) UpdateOption {
	return func(u *poller.Update) {
		product := aldes.Product{
			Modem:       modem,
			Name:        name,
			Reference:   aldes.ReferenceTOneAir,
			IsConnected: true,
		}
		for _, option := range options {
			option(&product)
		}
		u.Products = append(u.Products, product)
	}
}

type ProductOption func(*aldes.Product)

func WithReference(reference string) ProductOption {
	return func(p *aldes.Product) {
		p.Reference = reference
	}
}

func WithDisconnected() ProductOption {
	return func(p *aldes.Product) {
		p.IsConnected = false
	}
}

func WithAirMode(mode string) ProductOption {
	return func(p *aldes.Product) {
		p.Indicator.CurrentAirMode = mode
	}
}

func WithWaterMode(mode string) ProductOption {
	return func(p *aldes.Product) {
		p.Indicator.CurrentWaterMode = mode
	}
}

func WithMainTemperature(temperature float64) ProductOption {
	return func(p *aldes.Product) {
		p.Indicator.MainTemperature = temperature
	}
}

func WithHotWater(quantity float64) ProductOption {
	return func(p *aldes.Product) {
		p.Reference = aldes.ReferenceTOneAquaAir
		p.Indicator.HotWaterQuantity = quantity
	}
}

func WithFrostProtection() ProductOption {
	return func(p *aldes.Product) {
		p.Indicator.FrostProtection = true
	}
}

func WithVacation(start, end string) ProductOption {
	return func(p *aldes.Product) {
		p.Indicator.VacationStart = start
		p.Indicator.VacationEnd = end
	}
}

func WithThermostat(id int, name string, current, target float64) ProductOption {
	return func(p *aldes.Product) {
		p.Indicator.Thermostats = append(p.Indicator.Thermostats, aldes.Thermostat{
			ID:                 id,
			Name:               name,
			CurrentTemperature: current,
			TemperatureSet:     target,
		})
	}
}
