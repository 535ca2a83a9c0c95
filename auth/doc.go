// Package auth obtains bearer tokens for an upstream API using the OAuth2
// client-credentials grant.
//
// ClientCredentials keeps at most one credential per instance, refreshes it
// lazily once it expires, and collapses concurrent refreshes into a single
// token request. InspectClaims decodes the claims of an issued token for
// diagnostics without verifying its signature.
package auth
