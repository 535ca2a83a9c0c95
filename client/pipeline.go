package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonwraymond/motapi/observe"
)

// call describes one upstream request.
type call struct {
	operation string
	route     string
	method    string
	path      string
	form      url.Values
}

// Execute sends an authenticated, admitted request to path, relative to
// the base URL. method must be GET or PUT; a PUT sends form url-encoded.
//
// Errors:
//   - auth.ErrTokenUnavailable when no token could be obtained; no request is sent.
//   - *APIError for a non-2xx response.
//   - the transport's own error, unmodified, when no response was obtained.
//   - ctx.Err() when ctx ends while waiting for admission.
func (c *Client) Execute(ctx context.Context, method, path string, form url.Values) (json.RawMessage, error) {
	return c.do(ctx, call{
		method: strings.ToUpper(method),
		path:   path,
		form:   form,
	})
}

func (c *Client) do(ctx context.Context, cl call) (json.RawMessage, error) {
	if cl.method != http.MethodGet && cl.method != http.MethodPut {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, cl.method)
	}

	meta := observe.RequestMeta{
		ID:        c.newID(),
		Operation: cl.operation,
		Method:    cl.method,
		Route:     cl.route,
		Endpoint:  cl.path,
	}

	send := c.middleware.Wrap(func(ctx context.Context, meta observe.RequestMeta) ([]byte, error) {
		return c.roundTrip(ctx, meta, cl.form)
	})

	if c.lookup == nil {
		body, err := send(ctx, meta)
		return body, err
	}

	body, hit, err := c.lookup.Execute(ctx, cl.method, cl.path, nil, func(ctx context.Context) ([]byte, error) {
		return send(ctx, meta)
	})
	if hit {
		c.logger.WithRequest(meta).Debug(ctx, "served from lookup cache")
	}
	return body, err
}

// roundTrip runs admission, token resolution and the HTTP exchange for one
// call, publishing lifecycle events along the way.
func (c *Client) roundTrip(ctx context.Context, meta observe.RequestMeta, form url.Values) ([]byte, error) {
	if err := c.admission.Await(ctx); err != nil {
		c.requestFailed(meta, err)
		return nil, err
	}

	token, err := c.credentials.Token(ctx)
	if err != nil {
		c.requestFailed(meta, err)
		return nil, err
	}

	var body []byte
	err = c.timeout.Execute(ctx, func(ctx context.Context) error {
		req, err := c.newRequest(ctx, meta, token, form)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.events.publish(Event{Kind: EventNetworkError, RequestID: meta.ID, Err: err})
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := Classify(resp.StatusCode)
			c.events.publish(Event{
				Kind:      EventAPIError,
				RequestID: meta.ID,
				Status:    apiErr.Status,
				Message:   apiErr.Message,
			})
			return apiErr
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			c.events.publish(Event{Kind: EventNetworkError, RequestID: meta.ID, Err: err})
			return err
		}
		return nil
	})
	if err != nil {
		c.requestFailed(meta, err)
		return nil, err
	}

	c.events.publish(Event{
		Kind:      EventRequestSuccess,
		RequestID: meta.ID,
		Endpoint:  meta.Endpoint,
		Method:    meta.Method,
	})
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, meta observe.RequestMeta, token string, form url.Values) (*http.Request, error) {
	var body io.Reader
	if meta.Method == http.MethodPut {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, meta.Method, c.baseURL+meta.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}

	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if meta.Method == http.MethodPut {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

func (c *Client) requestFailed(meta observe.RequestMeta, err error) {
	c.events.publish(Event{
		Kind:      EventRequestError,
		RequestID: meta.ID,
		Endpoint:  meta.Endpoint,
		Method:    meta.Method,
		Err:       err,
	})
}
