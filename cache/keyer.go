package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Keyer derives cache keys from requests.
//
// Contract:
// - Determinism: the same request always yields the same key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(method, path string, query url.Values) string
}

// DefaultKeyer hashes the request so vehicle identifiers are not held in
// clear as map keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns "lookup:<METHOD>:<hash>", where hash is the first 16 hex
// characters of SHA-256 over the path and the sorted query. Identifier
// case is significant upstream, so the path is not normalised.
func (k *DefaultKeyer) Key(method, path string, query url.Values) string {
	var b strings.Builder
	b.WriteString(path)
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "lookup:" + strings.ToUpper(method) + ":" + hex.EncodeToString(sum[:8])
}

var _ Keyer = (*DefaultKeyer)(nil)
