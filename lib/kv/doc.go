// Package kv is the convenience layer over the transactional db.Database
// abstraction: get, set, delete, clear and key enumeration against named
// stores, plus an optional time-to-live per entry.
//
// # Expiration
//
// A Set with a positive TTL performs two writes in two independent
// transactions: the value into its store, and an ExpireRecord into the
// database's single Expire Index store, filed under the composite key
// storeName + "_" + key. The record carries the write time, the deadline
// (validUntil, seconds since epoch) and the store/key pair it refers to.
// Nothing ties the two transactions together; a crash between them leaves
// either a value with no record (it simply never expires) or a record with
// no value (harmless, removed by the next sweep).
//
// Entries past their deadline are removed by two cooperating paths:
//
//   - Lazy: Get consults the index before reading. An expired record causes
//     the entry and the record to be deleted (both deletions complete
//     before Get returns) and the caller sees the key as absent. The
//     deadline itself is not stale: validUntil == now still reads the value,
//     only validUntil < now expires. Records that are missing their deadline
//     or cannot be decoded count as expired, so malformed index state is
//     cleaned up rather than leaked.
//
//   - Eager: a background sweep, started lazily by the first TTL-bearing Set
//     and stopped by Close, snapshots the index key set once per interval
//     (60 seconds by default) and purges every expired record it finds,
//     locating the value through the record's store and key fields. A
//     deletion that fails is not retried within the pass; the surviving
//     record is rediscovered on the next one.
//
// The two paths race freely on the same key. That is safe because deletes in
// the underlying engine are idempotent: removing an already-absent key is a
// no-op success.
//
// Operations that target the Expire Index store directly bypass all of the
// above, so the index can be inspected and repaired with the same API.
//
// # Lifecycle
//
// Instances are constructed explicitly with New and shut down with Close;
// Registry adds a name-keyed directory of instances with the same explicit
// lifecycle. There is no package-level default instance.
package kv
