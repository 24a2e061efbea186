// Package aldes provides an API client for Aldes® T.One® HVAC devices connected
// through the AldesConnect™ vendor cloud.
//
// Using this package typically involves creating an APIClient as follows:
//
//	client := aldes.New("your-aldes-username", "your-aldes-password")
//
// Once a client has been created, you can retrieve the devices ("products")
// registered to the account, and issue commands to them:
//
//	GetProducts:          get the registered devices, with their current indicators
//	SetTargetTemperature: set the target temperature of a thermostat zone
//	ChangeMode:           change the air mode of a device
//	SetVacationPeriod:    set or clear the vacation window of a device
//	SetFrostProtection:   switch frost protection ("hors gel") on or off
//
// Device lists are cached for a short period. Failed retrievals are retried
// with exponential backoff, and fall back to the last retrieved list when all
// retries fail.
package aldes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the address of the AldesConnect™ cloud API.
	DefaultBaseURL = "https://aldesiotsuite-aldeswebapi.azurewebsites.net"

	// defaultAPIKey is the application key the AldesConnect™ mobile app sends
	// with every request. Override APIClient.APIKey if the vendor rotates it.
	defaultAPIKey = "d2cf8dd4-f5ba-4fb0-a258-f65f5c047d1e"

	userAgent = "aldes-monitor"

	tokenPath    = "/oauth2/token"
	productsPath = "/aldesoc/v5/users/me/products"

	requestTimeout = 30 * time.Second
	cacheTTL       = 5 * time.Minute
	maxAttempts    = 3
	maxRetryTime   = time.Minute

	productsKey = "products"
)

// An APIClient talks to the AldesConnect™ cloud on behalf of one account. It
// logs in with the account's credentials, keeps the resulting token fresh, and
// re-authenticates once when the server rejects a token mid-flight.
//
// HTTPClient, BaseURL, APIKey and Logger may be overridden before the first
// call, e.g. to add an instrumented transport or to point at a test server.
type APIClient struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Logger     *slog.Logger

	username string
	password string

	authLock sync.RWMutex
	token    string
	expiry   time.Time

	cache      *responseCache
	newBackOff func() backoff.BackOff
}

// New returns an APIClient for the given account.
func New(username, password string) *APIClient {
	return &APIClient{
		HTTPClient: &http.Client{Timeout: requestTimeout},
		BaseURL:    DefaultBaseURL,
		APIKey:     defaultAPIKey,
		Logger:     slog.Default(),
		username:   username,
		password:   password,
		cache:      newResponseCache(cacheTTL),
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxElapsedTime = maxRetryTime
	return backoff.WithMaxRetries(b, maxAttempts-1)
}

// GetProducts returns the devices registered to the account.
//
// Results are cached for a short period: within that period GetProducts
// returns the cached list without calling the API, unless forceRefresh is set.
// If a live retrieval fails after all retries and a previously retrieved list
// exists, GetProducts returns that list together with a *StaleDataError, so
// callers can tell old data from fresh.
func (c *APIClient) GetProducts(ctx context.Context, forceRefresh bool) ([]Product, error) {
	if !forceRefresh {
		if products, ok := c.cache.get(productsKey); ok {
			c.Logger.Debug("products served from cache")
			return products, nil
		}
	}

	var raw []byte
	err := c.withRetry(ctx, fetchRetryable, func() (err error) {
		raw, err = c.do(ctx, http.MethodGet, productsPath, nil)
		return err
	})
	if err == nil {
		var products []Product
		if err = json.Unmarshal(raw, &products); err == nil {
			c.cache.put(productsKey, products)
			return products, nil
		}
		err = fmt.Errorf("invalid products payload: %w", err)
	}

	if products, age, ok := c.cache.getStale(productsKey); ok {
		c.Logger.Warn("products refresh failed. serving stale data",
			slog.Duration("age", age),
			slog.Any("err", err),
		)
		return products, &StaleDataError{Err: err, Age: age}
	}
	return nil, fmt.Errorf("get products: %w", err)
}

// withRetry runs op, retrying with exponential backoff as long as canRetry
// accepts the error. Waits are aborted when ctx is cancelled.
func (c *APIClient) withRetry(ctx context.Context, canRetry func(error) bool, op func() error) error {
	return backoff.RetryNotify(
		func() error {
			err := op()
			if err != nil && !canRetry(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(c.newBackOff(), ctx),
		func(err error, wait time.Duration) {
			c.Logger.Debug("retrying", slog.Duration("wait", wait), slog.Any("err", err))
		},
	)
}

// do performs one authenticated request. A 401 response means the token is no
// longer valid: do then re-authenticates once and replays the request once.
func (c *APIClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()
		c.Logger.Debug("token rejected. re-authenticating", slog.String("path", path))
		if err = c.reauthenticate(ctx); err != nil {
			return nil, err
		}
		if resp, err = c.call(ctx, method, path, payload); err != nil {
			return nil, err
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &CommandError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *APIClient) call(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.getToken())
	req.Header.Set("apikey", c.APIKey)
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.HTTPClient.Do(req)
}
