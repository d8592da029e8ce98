// Package server implements the HTTP server for the key-value API.
//
// The routing table:
//
//	GET    /v1/kv/{store}/{key}        read a value (404 when absent or expired)
//	HEAD   /v1/kv/{store}/{key}        presence check without the expiry side effects
//	PUT    /v1/kv/{store}/{key}?ttl=N  write a value, optionally with a TTL in seconds
//	DELETE /v1/kv/{store}/{key}        delete a value and its expiration record
//	GET    /v1/kv/{store}              list the keys of a store as a JSON array
//	DELETE /v1/kv/{store}              clear a store
//	GET    /metrics                    Prometheus metrics
//
// Values travel as raw request/response bodies; only key listings are JSON.
// The server owns the database lifecycle: Serve opens it on start and closes
// it on shutdown.
package server
