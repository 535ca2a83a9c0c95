package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testScope = "https://tapi.dvsa.gov.uk/.default"

// tokenServer is a fake token endpoint that counts exchanges.
type tokenServer struct {
	*httptest.Server
	calls atomic.Int64
}

func newTokenServer(t *testing.T, handler http.HandlerFunc) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func issue(token string, expiresIn int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": token,
			"expires_in":   expiresIn,
			"token_type":   "Bearer",
		})
	}
}

func newSource(ts *tokenServer, mutate ...func(*ClientCredentialsConfig)) *ClientCredentials {
	cfg := ClientCredentialsConfig{
		TokenURL:     ts.URL,
		ClientID:     "client123",
		ClientSecret: "secret456",
		Scope:        testScope,
		HTTPClient:   ts.Client(),
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return NewClientCredentials(cfg)
}

func TestClientCredentials_RequestShape(t *testing.T) {
	ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %v, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %v, want application/x-www-form-urlencoded", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}

		want := map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     "client123",
			"client_secret": "secret456",
			"scope":         testScope,
		}
		for key, value := range want {
			if got := r.PostForm.Get(key); got != value {
				t.Errorf("form %s = %q, want %q", key, got, value)
			}
		}
		issue("t1", 3600)(w, r)
	})

	token, err := newSource(ts).Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "t1" {
		t.Errorf("Token() = %q, want t1", token)
	}
}

func TestClientCredentials_ReusesCachedToken(t *testing.T) {
	ts := newTokenServer(t, issue("t1", 3600))
	src := newSource(ts)

	for i := 0; i < 5; i++ {
		token, err := src.Token(context.Background())
		if err != nil {
			t.Fatalf("Token() call %d error = %v", i+1, err)
		}
		if token != "t1" {
			t.Errorf("Token() call %d = %q, want t1", i+1, token)
		}
	}

	if got := ts.calls.Load(); got != 1 {
		t.Errorf("exchanges = %d, want 1", got)
	}
}

func TestClientCredentials_RefreshesAfterExpiry(t *testing.T) {
	ts := newTokenServer(t, issue("t1", 60))

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	var refreshed []time.Time
	src := newSource(ts, func(c *ClientCredentialsConfig) {
		c.Clock = clock
		c.OnRefresh = func(expiresAt time.Time) { refreshed = append(refreshed, expiresAt) }
	})

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if want := clock().Add(60 * time.Second); !src.Credential().ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", src.Credential().ExpiresAt, want)
	}

	advance(59 * time.Second)
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got := ts.calls.Load(); got != 1 {
		t.Fatalf("exchanges before expiry = %d, want 1", got)
	}

	advance(time.Second)
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got := ts.calls.Load(); got != 2 {
		t.Errorf("exchanges after expiry = %d, want 2", got)
	}
	if len(refreshed) != 2 {
		t.Errorf("OnRefresh calls = %d, want 2", len(refreshed))
	}
}

func TestClientCredentials_ExchangeRejected(t *testing.T) {
	ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	})

	var cause error
	src := newSource(ts, func(c *ClientCredentialsConfig) {
		c.OnError = func(err error) { cause = err }
		c.OnRefresh = func(time.Time) { t.Error("OnRefresh called for a failed exchange") }
	})

	_, err := src.Token(context.Background())
	if !errors.Is(err, ErrTokenUnavailable) {
		t.Fatalf("Token() error = %v, want ErrTokenUnavailable", err)
	}
	if err.Error() != "Failed to obtain access token" {
		t.Errorf("Token() error message = %q", err.Error())
	}

	var exchangeErr *ExchangeError
	if !errors.As(cause, &exchangeErr) {
		t.Fatalf("OnError cause = %v, want *ExchangeError", cause)
	}
	if exchangeErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", exchangeErr.StatusCode)
	}
	if !errors.Is(cause, ErrTokenExchange) {
		t.Error("cause does not match ErrTokenExchange")
	}

	if src.Credential().Token != "" {
		t.Error("failed exchange left a credential cached")
	}

	_, _ = src.Token(context.Background())
	if got := ts.calls.Load(); got != 2 {
		t.Errorf("exchanges = %d, want 2 (next call retries)", got)
	}
}

func TestClientCredentials_NetworkFailure(t *testing.T) {
	ts := newTokenServer(t, issue("t1", 3600))
	src := newSource(ts)
	ts.Close()

	var cause error
	src.config.OnError = func(err error) { cause = err }

	_, err := src.Token(context.Background())
	if err != ErrTokenUnavailable {
		t.Fatalf("Token() error = %v, want ErrTokenUnavailable", err)
	}
	if !errors.Is(cause, ErrTokenExchange) {
		t.Errorf("OnError cause = %v, want wrapped ErrTokenExchange", cause)
	}
}

func TestClientCredentials_MissingAccessToken(t *testing.T) {
	ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"expires_in":3600}`))
	})

	_, err := newSource(ts).Token(context.Background())
	if err != ErrTokenUnavailable {
		t.Errorf("Token() error = %v, want ErrTokenUnavailable", err)
	}
}

func TestClientCredentials_NonPositiveExpiry(t *testing.T) {
	for _, expiresIn := range []int{0, -60} {
		ts := newTokenServer(t, issue("t1", expiresIn))

		var cause error
		src := newSource(ts, func(c *ClientCredentialsConfig) {
			c.OnError = func(err error) { cause = err }
		})

		if _, err := src.Token(context.Background()); err != ErrTokenUnavailable {
			t.Errorf("expires_in=%d: Token() error = %v, want ErrTokenUnavailable", expiresIn, err)
		}
		if !errors.Is(cause, ErrTokenExchange) {
			t.Errorf("expires_in=%d: OnError cause = %v, want wrapped ErrTokenExchange", expiresIn, cause)
		}
		if src.Credential().Token != "" {
			t.Errorf("expires_in=%d: credential cached after rejected exchange", expiresIn)
		}
	}
}

func TestClientCredentials_CapsLongExpiry(t *testing.T) {
	ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"t1","expires_in":9223372036854775807}`))
	})

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	src := newSource(ts, func(c *ClientCredentialsConfig) {
		c.Clock = func() time.Time { return now }
	})

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got, want := src.Credential().ExpiresAt, now.Add(24*time.Hour); !got.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got, want)
	}
}

func TestClientCredentials_ConcurrentCallersShareOneExchange(t *testing.T) {
	release := make(chan struct{})
	ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		issue("shared", 3600)(w, r)
	})
	src := newSource(ts)

	const callers = 20
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = src.Token(context.Background())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d error = %v", i, errs[i])
		}
		if tokens[i] != "shared" {
			t.Errorf("caller %d token = %q, want shared", i, tokens[i])
		}
	}
	if got := ts.calls.Load(); got != 1 {
		t.Errorf("exchanges = %d, want 1", got)
	}
}

func TestClientCredentials_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		issue("late", 3600)(w, r)
	})
	defer close(release)
	src := newSource(ts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := src.Token(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Token() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestClientCredentials_Invalidate(t *testing.T) {
	ts := newTokenServer(t, issue("t1", 3600))
	src := newSource(ts)

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	src.Invalidate()
	if src.Credential().Token != "" {
		t.Error("Invalidate() left a credential cached")
	}
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got := ts.calls.Load(); got != 2 {
		t.Errorf("exchanges = %d, want 2", got)
	}
}

func TestCredential_Valid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		cred Credential
		want bool
	}{
		{"zero", Credential{}, false},
		{"unexpired", Credential{Token: "t", ExpiresAt: now.Add(time.Second)}, true},
		{"expires now", Credential{Token: "t", ExpiresAt: now}, false},
		{"expired", Credential{Token: "t", ExpiresAt: now.Add(-time.Second)}, false},
		{"empty token", Credential{ExpiresAt: now.Add(time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.Valid(now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
