// Package testing provides a shared conformance test suite for db.Database
// implementations. Every engine runs the same suite from its own
// *_interface_test.go file:
//
//	func Test(t *testing.T) {
//		dbtesting.RunDatabaseTests(t, "MemDB", func() db.Database {
//			return mem.NewMemDB()
//		})
//	}
//
// The suite covers the contract the key-value layer depends on: commit and
// rollback semantics, idempotent deletes, store isolation, empty reads of
// never-written stores, lazy key iteration and concurrent access. Tests for
// unsupported features are skipped based on SupportsFeature.
package testing
