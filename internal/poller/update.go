package poller

import (
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/clambin/go-common/set"
	"log/slog"
	"strings"
	"time"
)

// An Update is one view of the devices registered to the account. UpdatedAt
// is the time of the last successful retrieval: when Healthy is false, the
// devices date back to then, and Failures counts the polls missed since.
type Update struct {
	Products  []aldes.Product
	UpdatedAt time.Time
	Healthy   bool
	Failures  int
}

// FindProduct returns the product whose modem identifier or name matches
// device. Names are matched case-insensitively.
func (u Update) FindProduct(device string) (aldes.Product, bool) {
	for _, product := range u.Products {
		if product.Modem == device || strings.EqualFold(product.Name, device) {
			return product, true
		}
	}
	return aldes.Product{}, false
}

// FindThermostat returns the thermostat whose zone name matches zone
// (case-insensitive), along with the product it belongs to.
func (u Update) FindThermostat(zone string) (aldes.Product, aldes.Thermostat, bool) {
	for _, product := range u.Products {
		for _, thermostat := range product.Indicator.Thermostats {
			if strings.EqualFold(thermostat.Name, zone) {
				return product, thermostat, true
			}
		}
	}
	return aldes.Product{}, aldes.Thermostat{}, false
}

func (u Update) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("products", len(u.Products)),
		slog.Bool("healthy", u.Healthy),
		slog.Int("failures", u.Failures),
		slog.Time("updated_at", u.UpdatedAt),
	)
}

// filterProducts drops records the monitor can't address: products without a
// usable modem identifier, and duplicates (the first record wins).
func filterProducts(products []aldes.Product) []aldes.Product {
	filtered := make([]aldes.Product, 0, len(products))
	seen := set.New[string]()
	for _, product := range products {
		if product.Modem == "" || product.Modem == "N/A" || seen.Contains(product.Modem) {
			continue
		}
		seen.Add(product.Modem)
		filtered = append(filtered, product)
	}
	return filtered
}
