// Package config loads client settings from an optional YAML file and
// MOTAPI_* environment variables.
//
//	client_id: ${MOT_CLIENT_ID}
//	client_secret: secretref:file:/run/secrets/mot_client_secret
//	api_key: secretref:env:MOT_API_KEY
//	limits:
//	  rps_limit: 15
//	cache:
//	  enabled: true
//	  ttl: 5m
//
// Nested keys map to variables by upper-casing and replacing dots with
// underscores: limits.rps_limit is MOTAPI_LIMITS_RPS_LIMIT.
package config
