// Package bolt implements the db.Database interface on top of bbolt, a
// single-file, B+tree based embedded database. Every named store maps to one
// bucket, and the transaction semantics of db.Database come directly from
// bbolt: Run with db.ReadWrite executes the body inside an Update call that
// commits when the body returns nil and rolls back otherwise, Run with
// db.Read executes inside a View call.
//
// Implementation Details:
//
//   - Buckets are created lazily by the first read-write transaction that
//     targets a store. A read transaction against a store that was never
//     written observes an empty store rather than an error.
//
//   - Values returned by Tx.Get are copied out of the mmap'd page before the
//     transaction ends, so they are safe to retain.
//
//   - bbolt serializes read-write transactions globally and allows them to
//     run concurrently with read transactions, which satisfies the
//     db.Database requirement that transactions on the same store are
//     serialized.
//
// Suitable for durable data that must survive process restarts. For
// ephemeral data or tests, the mem engine provides the same interface
// without touching the filesystem.
package bolt
