package aldes

import (
	"encoding/json"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// testServer fakes the vendor cloud: it issues tokens, serves a canned device
// list and accepts commands. Tests flip its failure knobs to exercise the
// retry, re-authentication and stale-serve paths.
type testServer struct {
	lock           sync.Mutex
	apiKey         string
	authCalls      int
	failAuth       bool
	rejectNext     bool
	products       int
	failProducts   int
	garbleProducts bool
	rawProducts    []byte
	commands       int
	failCommands   int
	failStatus     int
	lastRequest    recordedRequest
}

type recordedRequest struct {
	method string
	path   string
	token  string
	body   string
}

func (s *testServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if r.Method == http.MethodPost && r.URL.Path == tokenPath {
		s.handleToken(w, r)
		return
	}

	body, _ := io.ReadAll(r.Body)
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.lastRequest = recordedRequest{method: r.Method, path: r.URL.Path, token: token, body: string(body)}

	if r.Header.Get("apikey") != s.apiKey {
		http.Error(w, "invalid api key", http.StatusForbidden)
		return
	}
	if s.rejectNext || token != s.currentToken() {
		s.rejectNext = false
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == productsPath:
		s.products++
		if s.failProducts > 0 {
			s.failProducts--
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if s.garbleProducts {
			_, _ = w.Write([]byte("not json"))
			return
		}
		if s.rawProducts != nil {
			_, _ = w.Write(s.rawProducts)
			return
		}
		_ = json.NewEncoder(w).Encode(testProducts)
	case strings.HasPrefix(r.URL.Path, productsPath+"/"):
		s.commands++
		if s.failCommands > 0 {
			s.failCommands--
			http.Error(w, "rejected", s.failStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": "ok"})
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *testServer) handleToken(w http.ResponseWriter, r *http.Request) {
	s.authCalls++
	if s.failAuth {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "invalid credentials"})
		return
	}
	if err := r.ParseForm(); err != nil ||
		r.PostForm.Get("grant_type") != "password" ||
		r.PostForm.Get("username") == "" ||
		r.PostForm.Get("password") == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(oauthResponse{
		AccessToken: s.currentToken(),
		TokenType:   "bearer",
		ExpiresIn:   3600,
	})
}

func (s *testServer) currentToken() string {
	return fmt.Sprintf("token_%d", s.authCalls)
}

func (s *testServer) counts() (authCalls, products, commands int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.authCalls, s.products, s.commands
}

func (s *testServer) last() recordedRequest {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lastRequest
}

// newTestClient returns an APIClient pointed at a fake vendor cloud, with an
// instant backoff so retry tests don't wait.
func newTestClient(t *testing.T) (*APIClient, *testServer) {
	t.Helper()
	server := &testServer{apiKey: "test-api-key", failStatus: http.StatusInternalServerError}
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)

	client := New("user@example.com", "s3cr3t")
	client.BaseURL = httpServer.URL
	client.APIKey = "test-api-key"
	client.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, maxAttempts-1)
	}
	return client, server
}

var testProducts = []Product{
	{
		Modem:       "modem_1",
		Reference:   ReferenceTOneAquaAir,
		Name:        "Home",
		Type:        "TONE",
		IsConnected: true,
		Indicator: Indicator{
			CurrentAirMode:   AirModeHeatComfort,
			CurrentWaterMode: "L",
			MainTemperature:  21.5,
			HotWaterQuantity: 80,
			Thermostats: []Thermostat{
				{ID: 1, Name: "Living room", CurrentTemperature: 21.5, TemperatureSet: 21},
				{ID: 2, Name: "Bedroom", CurrentTemperature: 19, TemperatureSet: 18},
			},
		},
	},
}
