// Package rpc exposes the key-value API over HTTP, so processes other than
// the one embedding the library can read and write the same databases.
//
// The package is organized into several subpackages:
//
//   - common: Configuration structures for server and client, plus the
//     shared logging setup.
//
//   - server: The HTTP server. It opens a database through the kv.Registry,
//     routes /v1/kv/{store}/{key} requests to it and serves Prometheus
//     metrics on /metrics.
//
//   - client: An HTTP client implementing the same kv.IKeyVal interface as
//     a local instance, so applications can switch between embedded and
//     remote databases without code changes.
package rpc
