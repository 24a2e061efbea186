package aldes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tokens without an expires_in field are assumed to last an hour
const defaultTokenLifetime = 3600

type oauthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// ensureToken makes sure the client holds a token that has not expired yet,
// logging in again if needed. Concurrent callers are serialized, so a renewal
// happens at most once: later callers find the fresh token and return.
func (c *APIClient) ensureToken(ctx context.Context) error {
	c.authLock.Lock()
	defer c.authLock.Unlock()
	if c.token != "" && time.Now().Before(c.expiry) {
		return nil
	}
	return c.doAuthentication(ctx)
}

// reauthenticate discards the current token and logs in again, e.g. after the
// server rejected the token mid-flight.
func (c *APIClient) reauthenticate(ctx context.Context) error {
	c.authLock.Lock()
	defer c.authLock.Unlock()
	return c.doAuthentication(ctx)
}

// doAuthentication performs the password-grant login. It does not retry on its
// own: transport failures bubble up to the retry policy wrapped around the
// operation that needed the token. The caller must hold authLock.
func (c *APIClient) doAuthentication(ctx context.Context) error {
	c.Logger.Debug("authenticating", slog.String("username", c.username))

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.username)
	form.Set("password", c.password)
	form.Set("scope", "openid")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.APIKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var token oauthResponse
	if err = json.Unmarshal(body, &token); err != nil {
		return fmt.Errorf("invalid token response: %w", err)
	}
	if token.ExpiresIn == 0 {
		token.ExpiresIn = defaultTokenLifetime
	}
	c.token = token.AccessToken
	c.expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	c.Logger.Debug("authenticated", slog.Time("expiry", c.expiry))
	return nil
}

func (c *APIClient) getToken() string {
	c.authLock.RLock()
	defer c.authLock.RUnlock()
	return c.token
}
