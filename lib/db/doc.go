// Package db defines the transactional engine abstraction underneath the
// key-value convenience layer. A Database is a connection to one named
// database holding any number of named stores; every access to a store runs
// as a unit of work inside its own transaction, committing when the body
// returns nil and rolling back when it returns an error.
//
// The package focuses on:
//   - A unified interface (Database, Tx) for transactional store access
//     across different backends
//   - Pluggable storage backend architecture through the Factory pattern
//
// Key Components:
//
//   - Database Interface: The core abstraction for running transactional
//     units of work against a named store. Named stores are created on first
//     read-write use, and transactions against the same store are serialized
//     by the implementation, so callers never need per-store locking.
//
//   - Tx Interface: The primitive operations available inside one
//     transaction: Get, Put, Delete, Clear and lazy key iteration. A Tx is
//     scoped to a single store and a single Run call. Deleting an absent key
//     is always a no-op success so that independent cleanup paths can race
//     on the same key without errors.
//
//   - Feature Flags: Implementations can vary in their feature support,
//     which can be queried with SupportsFeature before issuing an operation.
//
// Implementations:
//
//	The package includes two implementations of the Database interface:
//
//	- Bolt Engine: A persistent, file-backed implementation on top of bbolt.
//	  Each named store maps to a bucket and transaction semantics come
//	  directly from bbolt's Update/View calls. Available in the
//	  "github.com/colorful-bubbles/idb-keyval/lib/db/engines/bolt" package.
//
//	- Mem Engine: A purely in-memory implementation with staged write sets,
//	  suitable for tests and ephemeral data. Available in the
//	  "github.com/colorful-bubbles/idb-keyval/lib/db/engines/mem" package.
//
// Both implementations are exercised by the shared conformance suite in the
// "github.com/colorful-bubbles/idb-keyval/lib/db/testing" package.
package db
