// Package cache holds successful vehicle lookups for a short time so that
// repeated reads of the same record do not spend upstream quota.
//
// Only safe methods are cached. Failed calls are never stored.
package cache
