package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// CredentialsRequest is the body of a credential renewal.
type CredentialsRequest struct {
	APIKeyValue string
	Email       string
}

// VehicleByRegistration returns the MOT history for a registration mark.
func (c *Client) VehicleByRegistration(ctx context.Context, registration string) (json.RawMessage, error) {
	return c.do(ctx, call{
		operation: "vehicle_by_registration",
		route:     "/registration/{registration}",
		method:    http.MethodGet,
		path:      "/registration/" + url.PathEscape(registration),
	})
}

// VehicleByVIN returns the MOT history for a vehicle identification number.
func (c *Client) VehicleByVIN(ctx context.Context, vin string) (json.RawMessage, error) {
	return c.do(ctx, call{
		operation: "vehicle_by_vin",
		route:     "/vin/{vin}",
		method:    http.MethodGet,
		path:      "/vin/" + url.PathEscape(vin),
	})
}

// BulkDownload returns the bulk download file listing.
func (c *Client) BulkDownload(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, call{
		operation: "bulk_download",
		route:     "/bulk-download",
		method:    http.MethodGet,
		path:      "/bulk-download",
	})
}

// RenewCredentials rotates the API key. The result is never cached.
func (c *Client) RenewCredentials(ctx context.Context, req CredentialsRequest) (json.RawMessage, error) {
	return c.do(ctx, call{
		operation: "renew_credentials",
		route:     "/credentials",
		method:    http.MethodPut,
		path:      "/credentials",
		form: url.Values{
			"awsApiKeyValue": {req.APIKeyValue},
			"email":          {req.Email},
		},
	})
}
