// Package store defines the external key/value store boundary used by the
// cache policy, plus an in-memory implementation and a deterministic
// request-fingerprint keyer.
//
// The cache policy only computes keys and expiry; ownership of entries and
// their eviction lives behind the Store interface, so a Redis- or
// memcached-backed implementation can be dropped in without touching the
// policy.
package store
