package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/motapi/auth"
	"github.com/jonwraymond/motapi/cache"
	"github.com/jonwraymond/motapi/observe"
	"github.com/jonwraymond/motapi/resilience"
)

// Upstream endpoints.
const (
	DefaultBaseURL  = "https://history.mot.api.gov.uk/v1/trade/vehicles"
	DefaultTokenURL = "https://login.microsoftonline.com/a455b827-244f-4c97-b5b4-ce5d13b4d00c/oauth2/v2.0/token"
	DefaultScope    = "https://tapi.dvsa.gov.uk/.default"

	// APIKeyHeader carries the API key on every upstream call.
	APIKeyHeader = "X-API-Key"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a rate-gated, authenticated MOT history API client.
//
// Contract:
//   - Concurrency: safe for concurrent use by any number of goroutines.
//   - Errors: see KindOf. A failed call never poisons the token cache or
//     the admission counters for later calls.
type Client struct {
	apiKey     string
	baseURL    string
	scope      string
	httpClient Doer
	clock      func() time.Time
	newID      func() string

	credentials *auth.ClientCredentials
	admission   *resilience.Admission
	timeout     *resilience.Timeout
	lookup      *cache.Lookup

	middleware *observe.Middleware
	metrics    observe.Metrics
	logger     observe.Logger
	events     *eventBus
}

type options struct {
	httpClient     Doer
	baseURL        string
	tokenURL       string
	scope          string
	tokenTimeout   time.Duration
	requestTimeout time.Duration
	admission      resilience.AdmissionConfig
	cache          cache.Cache
	cachePolicy    cache.Policy
	middleware     *observe.Middleware
	eventBuffer    int
	clock          func() time.Time
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the transport used for token exchanges and API calls.
// Default: an *http.Client with no overall timeout.
func WithHTTPClient(d Doer) Option {
	return func(o *options) { o.httpClient = d }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithTokenURL overrides the OAuth2 token endpoint.
func WithTokenURL(u string) Option {
	return func(o *options) { o.tokenURL = u }
}

// WithScope overrides the OAuth2 scope.
func WithScope(scope string) Option {
	return func(o *options) { o.scope = scope }
}

// WithTokenTimeout bounds a single token exchange. Default: 30 seconds.
func WithTokenTimeout(d time.Duration) Option {
	return func(o *options) { o.tokenTimeout = d }
}

// WithRequestTimeout bounds each API call after admission. Zero, the
// default, leaves calls unbounded.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithAdmission sets the admission limits. Zero fields take the defaults.
// Its OnWait hook, if set, is called in addition to the client's own.
func WithAdmission(cfg resilience.AdmissionConfig) Option {
	return func(o *options) { o.admission = cfg }
}

// WithCache enables read-through caching of successful GET lookups.
// A nil c uses an in-memory cache.
func WithCache(c cache.Cache, policy cache.Policy) Option {
	return func(o *options) {
		o.cache = c
		o.cachePolicy = policy
	}
}

// WithMiddleware sets the telemetry middleware wrapping every upstream call.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *options) { o.middleware = mw }
}

// WithEventBuffer sets the per-subscriber event queue length.
func WithEventBuffer(n int) Option {
	return func(o *options) { o.eventBuffer = n }
}

// WithClock sets the time source for token expiry, admission and events.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// New creates a client. No network activity happens until the first call.
func New(clientID, clientSecret, apiKey string, opts ...Option) (*Client, error) {
	if clientID == "" || clientSecret == "" || apiKey == "" {
		return nil, ErrMissingCredentials
	}

	o := options{
		baseURL:  DefaultBaseURL,
		tokenURL: DefaultTokenURL,
		scope:    DefaultScope,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	if o.middleware == nil {
		o.middleware = observe.NewMiddleware(nil, nil, nil)
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(o.baseURL, "/"),
		scope:      o.scope,
		httpClient: o.httpClient,
		clock:      o.clock,
		newID:      uuid.NewString,
		timeout:    resilience.NewTimeout(o.requestTimeout),
		middleware: o.middleware,
		metrics:    o.middleware.Metrics(),
		logger:     o.middleware.Logger(),
	}
	c.events = newEventBus(o.eventBuffer, c.clock, c.metrics, c.logger)

	c.credentials = auth.NewClientCredentials(auth.ClientCredentialsConfig{
		TokenURL:     o.tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scope:        o.scope,
		Timeout:      o.tokenTimeout,
		HTTPClient:   o.httpClient,
		Clock:        c.clock,
		OnRefresh:    c.onTokenRefresh,
		OnError:      c.onTokenError,
	})

	admission := o.admission
	if admission.Clock == nil {
		admission.Clock = c.clock
	}
	userOnWait := admission.OnWait
	admission.OnWait = func(wait time.Duration) {
		c.onAdmissionWait(wait)
		if userOnWait != nil {
			userOnWait(wait)
		}
	}
	c.admission = resilience.NewAdmission(admission)

	if o.cachePolicy.Enabled() {
		store := o.cache
		if store == nil {
			store = cache.NewMemoryCacheWithClock(c.clock)
		}
		c.lookup = cache.NewLookup(store, nil, o.cachePolicy)
	}

	return c, nil
}

// Subscribe registers fn to receive lifecycle events on its own goroutine.
// Events that arrive while fn's queue is full are dropped. The returned
// function unsubscribes; it must not be called from inside fn.
func (c *Client) Subscribe(fn func(Event)) (unsubscribe func()) {
	return c.events.subscribe(fn)
}

// Close stops event delivery after every subscriber has drained its queue.
// Calls made after Close still work but publish no events.
func (c *Client) Close() {
	c.events.close()
}

// Budget returns the current admission counters.
func (c *Client) Budget() resilience.Budget {
	return c.admission.Snapshot()
}

// Credential returns the currently cached token and its expiry.
func (c *Client) Credential() auth.Credential {
	return c.credentials.Credential()
}

func (c *Client) onTokenRefresh(expiresAt time.Time) {
	ctx := context.Background()
	c.metrics.RecordTokenRefresh(ctx, nil)
	c.logger.Info(ctx, "access token refreshed",
		observe.Field{Key: "expires_at", Value: expiresAt.UTC().Format(time.RFC3339)},
	)
	c.events.publish(Event{Kind: EventTokenRefreshed, ExpiresAt: expiresAt})
}

func (c *Client) onTokenError(err error) {
	ctx := context.Background()
	c.metrics.RecordTokenRefresh(ctx, err)
	c.logger.Error(ctx, "token exchange failed", observe.Field{Key: "error", Value: err.Error()})
	c.events.publish(Event{Kind: EventTokenError, Err: err})
}

func (c *Client) onAdmissionWait(wait time.Duration) {
	c.metrics.RecordAdmissionWait(context.Background(), wait)
	c.events.publish(Event{Kind: EventAdmissionWait, Wait: wait})
}
