// Package mem implements the db.Database interface entirely in memory.
// It exists for tests and for ephemeral data that does not need to survive
// process restarts.
//
// Implementation Details:
//
//   - The store directory is an xsync.MapOf so stores can be created
//     concurrently on first use without a global lock.
//
//   - Each store carries its own RWMutex. Read transactions take the shared
//     lock, read-write transactions the exclusive lock, so transactions
//     against the same store are serialized as required by db.Database while
//     different stores proceed independently.
//
//   - Read-write transactions stage their writes in a private write set.
//     When the body returns nil the set is applied to committed state in one
//     step; when it returns an error the set is discarded, giving real
//     rollback semantics. Reads inside a transaction observe its own staged
//     writes first.
package mem
