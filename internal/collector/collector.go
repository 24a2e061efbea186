// Package collector exports the state of all devices as Prometheus metrics.
package collector

import (
	"context"
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/clambin/aldes-monitor/internal/poller"
	"github.com/prometheus/client_golang/prometheus"
	"log/slog"
	"sync"
	"time"
)

var (
	deviceConnectionStatus = prometheus.NewDesc(
		prometheus.BuildFQName("aldes", "device", "connection_status"),
		"1 if the device is connected to the vendor cloud",
		[]string{"modem", "name"},
		nil,
	)
	deviceAirMode = prometheus.NewDesc(
		prometheus.BuildFQName("aldes", "device", "air_mode"),
		"Current air mode. Always 1. See label 'mode'",
		[]string{"modem", "name", "mode"},
		nil,
	)
	deviceWaterMode = prometheus.NewDesc(
		prometheus.BuildFQName("aldes", "device", "water_mode"),
		"Current domestic hot water mode. Always 1. See label 'mode'",
		[]string{"modem", "name", "mode"},
		nil,
	)
	deviceMainTemperature = prometheus.NewDesc(
		prometheus.BuildFQName("aldes", "device", "main_temperature_celsius"),
		"Main ambient temperature in degrees celsius",
		[]string{"modem", "name"},
		nil,
	)
	deviceHotWater = prometheus.NewDesc(
		prometheus.BuildFQName("aldes", "device", "hot_water_percentage"),
		"Remaining hot water in percent (0-100)",
		[]string{"modem", "name"},
		nil,
	)
	deviceFrostProtection = prometheus.NewDesc(
		prometheus.BuildFQName("aldes", "device", "frost_protection"),
		"1 if frost protection (\"hors gel\") is active",
		[]string{"modem", "name"},
		nil,
	)
	deviceVacationMode = prometheus.NewDesc(
		prometheus.BuildFQName("aldes", "device", "vacation_mode"),
		"1 if the device is currently inside its vacation window",
		[]string{"modem", "name"},
		nil,
	)
	thermostatTemperature = prometheus.NewDesc(
		prometheus.BuildFQName("aldes", "thermostat", "temperature_celsius"),
		"Current temperature of this zone in degrees celsius",
		[]string{"modem", "zone_name"},
		nil,
	)
	thermostatTargetTemperature = prometheus.NewDesc(
		prometheus.BuildFQName("aldes", "thermostat", "target_temp_celsius"),
		"Target temperature of this zone in degrees celsius",
		[]string{"modem", "zone_name"},
		nil,
	)
	monitorHealthy = prometheus.NewDesc(
		prometheus.BuildFQName("aldes", "monitor", "healthy"),
		"1 if the last poll of the vendor API succeeded",
		nil,
		nil,
	)
	monitorPollFailures = prometheus.NewDesc(
		prometheus.BuildFQName("aldes", "monitor", "poll_failures"),
		"Number of consecutive failed polls",
		nil,
		nil,
	)
)

type Collector struct {
	Poller     poller.Poller
	Logger     *slog.Logger
	lock       sync.RWMutex
	lastUpdate *poller.Update
}

func (c *Collector) Run(ctx context.Context) error {
	c.Logger.Debug("started")
	defer c.Logger.Debug("stopped")

	ch := c.Poller.Subscribe()
	defer c.Poller.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-ch:
			c.process(update)
		}
	}
}

func (c *Collector) process(update poller.Update) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.lastUpdate = &update
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- deviceConnectionStatus
	ch <- deviceAirMode
	ch <- deviceWaterMode
	ch <- deviceMainTemperature
	ch <- deviceHotWater
	ch <- deviceFrostProtection
	ch <- deviceVacationMode
	ch <- thermostatTemperature
	ch <- thermostatTargetTemperature
	ch <- monitorHealthy
	ch <- monitorPollFailures
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.lastUpdate == nil {
		return
	}
	c.collectMonitor(ch)
	now := time.Now()
	for _, product := range c.lastUpdate.Products {
		c.collectProduct(ch, product, now)
	}
}

func (c *Collector) collectMonitor(ch chan<- prometheus.Metric) {
	var value float64
	if c.lastUpdate.Healthy {
		value = 1.0
	}
	ch <- prometheus.MustNewConstMetric(monitorHealthy, prometheus.GaugeValue, value)
	ch <- prometheus.MustNewConstMetric(monitorPollFailures, prometheus.GaugeValue, float64(c.lastUpdate.Failures))
}

func (c *Collector) collectProduct(ch chan<- prometheus.Metric, product aldes.Product, now time.Time) {
	var value float64
	if product.IsConnected {
		value = 1.0
	}
	ch <- prometheus.MustNewConstMetric(deviceConnectionStatus, prometheus.GaugeValue, value, product.Modem, product.Name)

	indicator := product.Indicator
	if indicator.CurrentAirMode != "" {
		ch <- prometheus.MustNewConstMetric(deviceAirMode, prometheus.GaugeValue, 1, product.Modem, product.Name, indicator.CurrentAirMode)
	}
	if indicator.CurrentWaterMode != "" {
		ch <- prometheus.MustNewConstMetric(deviceWaterMode, prometheus.GaugeValue, 1, product.Modem, product.Name, indicator.CurrentWaterMode)
	}
	ch <- prometheus.MustNewConstMetric(deviceMainTemperature, prometheus.GaugeValue, indicator.MainTemperature, product.Modem, product.Name)
	if product.HasHotWater() {
		ch <- prometheus.MustNewConstMetric(deviceHotWater, prometheus.GaugeValue, indicator.HotWaterQuantity, product.Modem, product.Name)
	}

	value = 0.0
	if indicator.FrostProtection {
		value = 1.0
	}
	ch <- prometheus.MustNewConstMetric(deviceFrostProtection, prometheus.GaugeValue, value, product.Modem, product.Name)

	value = 0.0
	if indicator.VacationActive(now) {
		value = 1.0
	}
	ch <- prometheus.MustNewConstMetric(deviceVacationMode, prometheus.GaugeValue, value, product.Modem, product.Name)

	for _, thermostat := range indicator.Thermostats {
		ch <- prometheus.MustNewConstMetric(thermostatTemperature, prometheus.GaugeValue, thermostat.CurrentTemperature, product.Modem, thermostat.Name)
		ch <- prometheus.MustNewConstMetric(thermostatTargetTemperature, prometheus.GaugeValue, thermostat.TemperatureSet, product.Modem, thermostat.Name)
	}
}
