// Package cmd implements the command-line interface for the idb-keyval
// key-value store. It provides a hierarchical command structure with
// operations for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value operations (get, set, delete, etc.)
//   - serve: Commands for starting and configuring the server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See idbkv -help for a list of all commands.
package cmd
