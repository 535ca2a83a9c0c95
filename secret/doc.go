// Package secret resolves the client secret and API key from configuration
// values without keeping them in config files.
//
// A value may be:
//   - a literal, returned as-is after strict ${VAR} expansion
//   - a full reference, secretref:<provider>:<ref>
//   - text containing inline references
//
// Two providers are built in: "env" reads an environment variable and
// "file" reads a file such as a mounted container secret.
//
//	client_secret: secretref:file:/run/secrets/mot_client_secret
//	api_key: ${MOT_API_KEY}
package secret
