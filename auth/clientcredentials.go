package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	grantTypeClientCredentials = "client_credentials"

	// maxTokenLifetime caps expires_in so the expiry cannot overflow.
	maxTokenLifetime = 24 * time.Hour
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientCredentialsConfig configures the OAuth2 client-credentials token source.
type ClientCredentialsConfig struct {
	// TokenURL is the OAuth2 token endpoint.
	TokenURL string

	// ClientID is the client identifier sent in the token request body.
	ClientID string

	// ClientSecret is the client secret sent in the token request body.
	ClientSecret string

	// Scope identifies the upstream API audience.
	Scope string

	// Timeout bounds a single token exchange.
	// Default: 30 seconds.
	Timeout time.Duration

	// HTTPClient sends the token request. If nil, a default client is used.
	HTTPClient Doer

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time

	// OnRefresh is called after every successful exchange with the new
	// expiry. It must not block.
	OnRefresh func(expiresAt time.Time)

	// OnError is called with the underlying cause of every failed exchange.
	// It must not block.
	OnError func(err error)
}

// Credential is a bearer token and the instant it stops being usable.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the credential can be used at now.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// ClientCredentials obtains and caches a single bearer token using the
// OAuth2 client-credentials grant.
//
// Contract:
//   - Concurrency: safe for concurrent use. Callers that find the cache empty
//     or expired share one in-flight exchange.
//   - Errors: every failed exchange surfaces as ErrTokenUnavailable; the cause
//     is only reported through OnError.
type ClientCredentials struct {
	config     ClientCredentialsConfig
	httpClient Doer

	mu      sync.RWMutex
	current Credential
	sfGroup singleflight.Group
}

// NewClientCredentials creates a token source. No exchange happens until the
// first call to Token.
func NewClientCredentials(config ClientCredentialsConfig) *ClientCredentials {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	var httpClient Doer = config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &ClientCredentials{
		config:     config,
		httpClient: httpClient,
	}
}

// Token returns the cached bearer token, exchanging client credentials for a
// new one when none is cached or the cached one has expired.
//
// A caller whose ctx ends while waiting on a shared exchange gets ctx.Err();
// the exchange itself continues, bounded by Timeout, for the other callers.
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	ch := c.sfGroup.DoChan("token", func() (any, error) {
		// A flight that finished just before this one started may already
		// have stored a fresh credential.
		if token, ok := c.cached(); ok {
			return token, nil
		}
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Credential returns a snapshot of the cached credential. The zero value
// means nothing is cached.
func (c *ClientCredentials) Credential() Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Invalidate drops the cached credential so the next Token call exchanges.
func (c *ClientCredentials) Invalidate() {
	c.mu.Lock()
	c.current = Credential{}
	c.mu.Unlock()
}

func (c *ClientCredentials) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current.Valid(c.config.Clock()) {
		return c.current.Token, true
	}
	return "", false
}

func (c *ClientCredentials) refresh(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	cred, err := c.exchange(ctx)
	if err != nil {
		if c.config.OnError != nil {
			c.config.OnError(err)
		}
		return "", ErrTokenUnavailable
	}

	c.mu.Lock()
	c.current = cred
	c.mu.Unlock()

	if c.config.OnRefresh != nil {
		c.config.OnRefresh(cred.ExpiresAt)
	}
	return cred.Token, nil
}

// tokenResponse is the token endpoint success body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *ClientCredentials) exchange(ctx context.Context) (Credential, error) {
	form := url.Values{}
	form.Set("grant_type", grantTypeClientCredentials)
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("scope", c.config.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Credential{}, &ExchangeError{StatusCode: resp.StatusCode}
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Credential{}, fmt.Errorf("%w: decode error: %v", ErrTokenExchange, err)
	}
	if body.AccessToken == "" {
		return Credential{}, fmt.Errorf("%w: response has no access_token", ErrTokenExchange)
	}
	if body.ExpiresIn <= 0 {
		return Credential{}, fmt.Errorf("%w: expires_in must be positive, got %d", ErrTokenExchange, body.ExpiresIn)
	}

	lifetime := maxTokenLifetime
	if body.ExpiresIn < int64(maxTokenLifetime/time.Second) {
		lifetime = time.Duration(body.ExpiresIn) * time.Second
	}

	return Credential{
		Token:     body.AccessToken,
		ExpiresAt: c.config.Clock().Add(lifetime),
	}, nil
}
