package aldestools

import (
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/clambin/go-common/http/metrics"
	"github.com/clambin/go-common/http/roundtripper"
	"github.com/prometheus/client_golang/prometheus"
	"net/http"
	"strconv"
	"strings"
)

// GetInstrumentedAldesClient returns an aldes.APIClient that records the latency
// and outcome of every AldesConnect™ call in the provided RequestMetrics. An
// empty apiKey keeps the client's built-in key.
func GetInstrumentedAldesClient(username, password, apiKey string, metrics metrics.RequestMetrics) *aldes.APIClient {
	c := aldes.New(username, password)
	if apiKey != "" {
		c.APIKey = apiKey
	}
	c.HTTPClient.Transport = getInstrumentedRoundTripper(c.HTTPClient.Transport, metrics)
	return c
}

func getInstrumentedRoundTripper(rt http.RoundTripper, metrics metrics.RequestMetrics) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return roundtripper.New(
		roundtripper.WithRequestMetrics(metrics),
		roundtripper.WithRoundTripper(rt),
	)
}

// NewAldesCallMetrics returns RequestMetrics for AldesConnect™ calls. Product
// paths contain the device's modem serial, so they are collapsed to a single
// path label to keep the metric's cardinality bounded.
func NewAldesCallMetrics(namespace, subsystem string, labels prometheus.Labels) metrics.RequestMetrics {
	return metrics.NewRequestMetrics(metrics.Options{
		Namespace:   namespace,
		Subsystem:   subsystem,
		ConstLabels: labels,
		LabelValues: func(request *http.Request, i int) (string, string, string) {
			const productsPath = "/aldesoc/v5/users/me/products"
			path := request.URL.Path
			if strings.HasPrefix(path, productsPath) {
				path = productsPath
			}
			return request.Method, path, strconv.Itoa(i)
		},
	})
}
