// Package client calls the DVSA MOT history trade API.
//
// Every call passes through the same pipeline: an optional lookup cache,
// client-side admission against the daily quota, burst allowance and RPS
// ceiling, a cached OAuth2 client-credentials token, the HTTP transport,
// and finally error classification.
//
//	mot, err := client.New(clientID, clientSecret, apiKey)
//	if err != nil {
//	    return err
//	}
//	defer mot.Close()
//
//	vehicle, err := mot.VehicleByRegistration(ctx, "ABC123")
//	switch client.KindOf(err) {
//	case client.KindAPI:      // upstream answered with a non-2xx status
//	case client.KindAuth:     // the token exchange failed
//	case client.KindTransport: // no response; err is the transport's own error
//	}
//
// Failures are returned to the caller and, independently, published as
// lifecycle events to subscribers registered with Subscribe.
package client
