package testutils

import (
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestUpdate(t *testing.T) {
	updatedAt := time.Date(2023, time.February, 15, 12, 0, 0, 0, time.UTC)
	u := Update(WithUpdatedAt(updatedAt))
	assert.True(t, u.Healthy)
	assert.Equal(t, updatedAt, u.UpdatedAt)

	u = Update(WithFailures(3))
	assert.False(t, u.Healthy)
	assert.Equal(t, 3, u.Failures)
}

func TestWithProduct(t *testing.T) {
	u := Update(WithProduct("modem_1", "Home"))
	require.Len(t, u.Products, 1)
	assert.Equal(t, "modem_1", u.Products[0].Modem)
	assert.Equal(t, "Home", u.Products[0].Name)
	assert.Equal(t, aldes.ReferenceTOneAir, u.Products[0].Reference)
	assert.True(t, u.Products[0].IsConnected)
}

func TestProductOptions(t *testing.T) {
	u := Update(WithProduct("modem_1", "Home",
		WithDisconnected(),
		WithAirMode(aldes.AirModeHeatComfort),
		WithWaterMode("L"),
		WithMainTemperature(21.5),
		WithHotWater(80),
		WithFrostProtection(),
		WithVacation("2023-02-01T10:00:00Z", "2023-02-28T17:30:00Z"),
		WithThermostat(1, "Living room", 21.5, 21),
	))

	require.Len(t, u.Products, 1)
	product := u.Products[0]
	assert.False(t, product.IsConnected)
	assert.Equal(t, aldes.AirModeHeatComfort, product.Indicator.CurrentAirMode)
	assert.Equal(t, "L", product.Indicator.CurrentWaterMode)
	assert.Equal(t, 21.5, product.Indicator.MainTemperature)
	assert.Equal(t, aldes.ReferenceTOneAquaAir, product.Reference)
	assert.Equal(t, 80.0, product.Indicator.HotWaterQuantity)
	assert.True(t, product.Indicator.FrostProtection)
	assert.Equal(t, "2023-02-01T10:00:00Z", product.Indicator.VacationStart)
	require.Len(t, product.Indicator.Thermostats, 1)
	assert.Equal(t, "Living room", product.Indicator.Thermostats[0].Name)
}
