package aldes

import (
	"context"
	_ "embed"
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"testing"
	"time"
)

//go:embed testdata/products.json
var productsPayload []byte

func TestAPIClient_GetProducts(t *testing.T) {
	client, server := newTestClient(t)
	ctx := context.Background()

	products, err := client.GetProducts(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, testProducts, products)

	authCalls, productCalls, _ := server.counts()
	assert.Equal(t, 1, authCalls)
	assert.Equal(t, 1, productCalls)

	last := server.last()
	assert.Equal(t, http.MethodGet, last.method)
	assert.Equal(t, "/aldesoc/v5/users/me/products", last.path)
	assert.Equal(t, "token_1", last.token)
}

func TestAPIClient_GetProducts_VendorPayload(t *testing.T) {
	client, server := newTestClient(t)
	server.rawProducts = productsPayload

	products, err := client.GetProducts(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, products, 2)

	maison := products[0]
	assert.Equal(t, "5f89a7c40e1d4b23", maison.Modem)
	assert.Equal(t, "T.One® AquaAIR", maison.FriendlyName())
	assert.True(t, maison.HasHotWater())
	assert.Len(t, maison.Indicator.Thermostats, 3)
	people, ok := maison.Indicator.Settings.People()
	require.True(t, ok)
	assert.Equal(t, 2, people)

	studio := products[1]
	assert.Equal(t, AirModeOff, studio.Indicator.CurrentAirMode)
	assert.True(t, studio.Indicator.FrostProtection)
	assert.True(t, studio.Indicator.VacationActive(time.Date(2023, time.February, 15, 12, 0, 0, 0, time.UTC)))

	// nothing the vendor sent is lost in decoding
	out, err := json.Marshal(products)
	require.NoError(t, err)
	assert.JSONEq(t, string(productsPayload), string(out))
}

func TestAPIClient_GetProducts_Cached(t *testing.T) {
	client, server := newTestClient(t)
	ctx := context.Background()

	_, err := client.GetProducts(ctx, false)
	require.NoError(t, err)

	// within the TTL, the cache answers without any network traffic
	products, err := client.GetProducts(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, testProducts, products)
	authCalls, productCalls, _ := server.counts()
	assert.Equal(t, 1, authCalls)
	assert.Equal(t, 1, productCalls)

	// forceRefresh bypasses the cache
	_, err = client.GetProducts(ctx, true)
	require.NoError(t, err)
	_, productCalls, _ = server.counts()
	assert.Equal(t, 2, productCalls)

	// an expired entry doesn't count as a hit
	client.cache.entries[productsKey] = cacheEntry{products: products, storedAt: time.Now().Add(-2 * cacheTTL)}
	_, err = client.GetProducts(ctx, false)
	require.NoError(t, err)
	_, productCalls, _ = server.counts()
	assert.Equal(t, 3, productCalls)
}

func TestAPIClient_GetProducts_Retries(t *testing.T) {
	client, server := newTestClient(t)
	ctx := context.Background()

	// two failures, then success: three attempts in total
	server.failProducts = 2
	products, err := client.GetProducts(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, testProducts, products)
	_, productCalls, _ := server.counts()
	assert.Equal(t, 3, productCalls)
}

func TestAPIClient_GetProducts_FailureWithoutCache(t *testing.T) {
	client, server := newTestClient(t)
	ctx := context.Background()

	server.failProducts = maxAttempts
	_, err := client.GetProducts(ctx, false)
	require.Error(t, err)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, http.StatusInternalServerError, cmdErr.StatusCode)
	_, productCalls, _ := server.counts()
	assert.Equal(t, maxAttempts, productCalls)
}

func TestAPIClient_GetProducts_ServesStale(t *testing.T) {
	client, server := newTestClient(t)
	ctx := context.Background()

	_, err := client.GetProducts(ctx, false)
	require.NoError(t, err)

	// expire the cached entry, then break the API
	client.cache.entries[productsKey] = cacheEntry{products: testProducts, storedAt: time.Now().Add(-2 * cacheTTL)}
	server.failProducts = maxAttempts

	products, err := client.GetProducts(ctx, false)
	var staleErr *StaleDataError
	require.ErrorAs(t, err, &staleErr)
	assert.Equal(t, testProducts, products)
	assert.GreaterOrEqual(t, staleErr.Age, 2*cacheTTL)
	var cmdErr *CommandError
	assert.ErrorAs(t, staleErr.Err, &cmdErr)
}

func TestAPIClient_TokenRenewal(t *testing.T) {
	client, server := newTestClient(t)
	ctx := context.Background()

	_, err := client.GetProducts(ctx, true)
	require.NoError(t, err)

	// a rejected token triggers exactly one re-authentication and one replay
	server.rejectNext = true
	_, err = client.GetProducts(ctx, true)
	require.NoError(t, err)
	authCalls, productCalls, _ := server.counts()
	assert.Equal(t, 2, authCalls)
	assert.Equal(t, 2, productCalls)
	assert.Equal(t, "token_2", server.last().token)

	// an expired token is renewed before the request goes out
	client.authLock.Lock()
	client.expiry = time.Now().Add(-time.Minute)
	client.authLock.Unlock()
	_, err = client.GetProducts(ctx, true)
	require.NoError(t, err)
	authCalls, _, _ = server.counts()
	assert.Equal(t, 3, authCalls)
}

func TestAPIClient_AuthFailure(t *testing.T) {
	client, server := newTestClient(t)
	ctx := context.Background()

	server.failAuth = true
	_, err := client.GetProducts(ctx, false)
	require.Error(t, err)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, "invalid credentials", authErr.Description())

	// bad credentials are not retried
	authCalls, _, _ := server.counts()
	assert.Equal(t, 1, authCalls)
}

func TestAPIClient_GetProducts_CancelledContext(t *testing.T) {
	client, _ := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetProducts(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAPIClient_GetProducts_InvalidPayload(t *testing.T) {
	client, server := newTestClient(t)
	ctx := context.Background()

	// without a cached copy, an undecodable response is an error
	server.garbleProducts = true
	_, err := client.GetProducts(ctx, false)
	assert.ErrorContains(t, err, "invalid products payload")

	// with one, it falls back to the cached copy
	server.garbleProducts = false
	_, err = client.GetProducts(ctx, true)
	require.NoError(t, err)
	server.garbleProducts = true
	products, err := client.GetProducts(ctx, true)
	var staleErr *StaleDataError
	require.ErrorAs(t, err, &staleErr)
	assert.ErrorContains(t, staleErr.Err, "invalid products payload")
	assert.Equal(t, testProducts, products)
}
