// Package client implements kv.IKeyVal over the HTTP API served by the
// server package. Transport errors and 5xx responses are retried up to the
// configured count; every operation of the API is idempotent, so retries
// are safe without request deduplication.
package client
