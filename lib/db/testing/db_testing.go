package testing

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/colorful-bubbles/idb-keyval/lib/db"
)

// Factory is a function that creates a new instance of a Database implementation
type Factory func() db.Database

// RunDatabaseTests runs a conformance test suite for a db.Database implementation.
func RunDatabaseTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory())
		})

		t.Run("Keys", func(t *testing.T) {
			testKeys(t, factory())
		})

		t.Run("ReadOnlyTx", func(t *testing.T) {
			testReadOnlyTx(t, factory())
		})

		t.Run("Rollback", func(t *testing.T) {
			testRollback(t, factory())
		})

		t.Run("StoreIsolation", func(t *testing.T) {
			testStoreIsolation(t, factory())
		})

		t.Run("MissingStoreRead", func(t *testing.T) {
			testMissingStoreRead(t, factory())
		})

		t.Run("ConcurrentAccess", func(t *testing.T) {
			testConcurrentAccess(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.Database, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// put writes a single key-value pair in its own transaction and fails the
// test on error
func put(t testing.TB, database db.Database, store, key string, value []byte) {
	t.Helper()
	err := database.Run(store, db.ReadWrite, func(tx db.Tx) error {
		return tx.Put(key, value)
	})
	if err != nil {
		t.Fatalf("Put %s/%s failed: %v", store, key, err)
	}
}

// get reads a single key in its own transaction
func get(t testing.TB, database db.Database, store, key string) ([]byte, bool) {
	t.Helper()
	var (
		value  []byte
		loaded bool
	)
	err := database.Run(store, db.Read, func(tx db.Tx) error {
		value, loaded = tx.Get(key)
		return nil
	})
	if err != nil {
		t.Fatalf("Get %s/%s failed: %v", store, key, err)
	}
	return value, loaded
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, database db.Database) {
	defer database.Close()

	requireFeature(t, database, db.FeaturePut)
	requireFeature(t, database, db.FeatureGet)

	testStore := "test-store"
	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	put(t, database, testStore, testKey, testValue1)

	result, exists := get(t, database, testStore, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Put", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	put(t, database, testStore, testKey, testValue2)

	result, exists = get(t, database, testStore, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Put", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists = get(t, database, testStore, "nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return loaded=false")
	}

	// the returned value must be a copy, mutating it must not leak into the store
	retrieved, _ := get(t, database, testStore, testKey)
	retrieved[0] = 'X'
	result, _ = get(t, database, testStore, testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Stored value was mutated through a returned slice")
	}
}

func testDelete(t *testing.T, database db.Database) {
	defer database.Close()

	requireFeature(t, database, db.FeaturePut)
	requireFeature(t, database, db.FeatureDelete)

	testStore := "test-store"
	testKey := "test-key"

	put(t, database, testStore, testKey, []byte("test-value"))

	err := database.Run(testStore, db.ReadWrite, func(tx db.Tx) error {
		return tx.Delete(testKey)
	})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, exists := get(t, database, testStore, testKey); exists {
		t.Errorf("Expected key %s to be gone after Delete", testKey)
	}

	// deleting an absent key must be a no-op success
	err = database.Run(testStore, db.ReadWrite, func(tx db.Tx) error {
		return tx.Delete(testKey)
	})
	if err != nil {
		t.Errorf("Deleting an absent key must not fail, got: %v", err)
	}
}

func testClear(t *testing.T, database db.Database) {
	defer database.Close()

	requireFeature(t, database, db.FeaturePut)
	requireFeature(t, database, db.FeatureClear)

	testStore := "test-store"
	for i := 0; i < 10; i++ {
		put(t, database, testStore, fmt.Sprintf("key-%d", i), []byte("value"))
	}

	err := database.Run(testStore, db.ReadWrite, func(tx db.Tx) error {
		return tx.Clear()
	})
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, exists := get(t, database, testStore, fmt.Sprintf("key-%d", i)); exists {
			t.Errorf("Expected key-%d to be gone after Clear", i)
		}
	}
}

func testKeys(t *testing.T, database db.Database) {
	defer database.Close()

	requireFeature(t, database, db.FeaturePut)
	requireFeature(t, database, db.FeatureIterate)

	testStore := "test-store"
	want := []string{"a", "b", "c", "d"}
	for _, k := range want {
		put(t, database, testStore, k, []byte("value"))
	}

	var got []string
	err := database.Run(testStore, db.Read, func(tx db.Tx) error {
		return tx.Keys(func(key string) bool {
			got = append(got, key)
			return true
		})
	})
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}

	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("Expected %d keys, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected key %s at position %d, got %s", want[i], i, got[i])
		}
	}

	// early termination
	count := 0
	err = database.Run(testStore, db.Read, func(tx db.Tx) error {
		return tx.Keys(func(string) bool {
			count++
			return count < 2
		})
	})
	if err != nil {
		t.Fatalf("Keys with early stop failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected iteration to stop after 2 keys, visited %d", count)
	}
}

func testReadOnlyTx(t *testing.T, database db.Database) {
	defer database.Close()

	requireFeature(t, database, db.FeaturePut)

	testStore := "test-store"
	put(t, database, testStore, "existing", []byte("value"))

	err := database.Run(testStore, db.Read, func(tx db.Tx) error {
		return tx.Put("key", []byte("value"))
	})
	if !errors.Is(err, db.ErrReadOnlyTx) {
		t.Errorf("Expected ErrReadOnlyTx from Put in read tx, got: %v", err)
	}

	err = database.Run(testStore, db.Read, func(tx db.Tx) error {
		return tx.Delete("existing")
	})
	if !errors.Is(err, db.ErrReadOnlyTx) {
		t.Errorf("Expected ErrReadOnlyTx from Delete in read tx, got: %v", err)
	}

	err = database.Run(testStore, db.Read, func(tx db.Tx) error {
		return tx.Clear()
	})
	if !errors.Is(err, db.ErrReadOnlyTx) {
		t.Errorf("Expected ErrReadOnlyTx from Clear in read tx, got: %v", err)
	}
}

func testRollback(t *testing.T, database db.Database) {
	defer database.Close()

	requireFeature(t, database, db.FeaturePut)

	testStore := "test-store"
	put(t, database, testStore, "stable", []byte("before"))

	boom := errors.New("boom")
	err := database.Run(testStore, db.ReadWrite, func(tx db.Tx) error {
		if err := tx.Put("stable", []byte("after")); err != nil {
			return err
		}
		if err := tx.Put("new-key", []byte("value")); err != nil {
			return err
		}
		return boom
	})
	if err == nil {
		t.Fatal("Expected the transaction to abort")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Expected the body error to be preserved, got: %v", err)
	}
	var txErr *db.TxError
	if !errors.As(err, &txErr) {
		t.Errorf("Expected a *db.TxError, got: %T", err)
	}

	if value, _ := get(t, database, testStore, "stable"); !bytes.Equal(value, []byte("before")) {
		t.Errorf("Expected rollback to restore %q, got %q", "before", value)
	}
	if _, exists := get(t, database, testStore, "new-key"); exists {
		t.Error("Expected rolled-back write to be absent")
	}
}

func testStoreIsolation(t *testing.T, database db.Database) {
	defer database.Close()

	requireFeature(t, database, db.FeaturePut)

	put(t, database, "store-a", "shared-key", []byte("value-a"))
	put(t, database, "store-b", "shared-key", []byte("value-b"))

	if value, _ := get(t, database, "store-a", "shared-key"); !bytes.Equal(value, []byte("value-a")) {
		t.Errorf("Expected store-a to hold value-a, got %s", value)
	}
	if value, _ := get(t, database, "store-b", "shared-key"); !bytes.Equal(value, []byte("value-b")) {
		t.Errorf("Expected store-b to hold value-b, got %s", value)
	}

	err := database.Run("store-a", db.ReadWrite, func(tx db.Tx) error {
		return tx.Delete("shared-key")
	})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, exists := get(t, database, "store-b", "shared-key"); !exists {
		t.Error("Deleting in store-a must not affect store-b")
	}
}

func testMissingStoreRead(t *testing.T, database db.Database) {
	defer database.Close()

	requireFeature(t, database, db.FeatureGet)

	// a store that was never written must read as empty, not as an error
	err := database.Run("never-written", db.Read, func(tx db.Tx) error {
		if _, exists := tx.Get("any-key"); exists {
			t.Error("Expected missing store to read as empty")
		}
		return tx.Keys(func(string) bool {
			t.Error("Expected no keys in a missing store")
			return false
		})
	})
	if err != nil {
		t.Errorf("Read on a missing store must not fail, got: %v", err)
	}
}

func testConcurrentAccess(t *testing.T, database db.Database) {
	defer database.Close()

	requireFeature(t, database, db.FeaturePut)

	const (
		workers = 8
		keys    = 50
	)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(worker int) {
			defer wg.Done()
			store := fmt.Sprintf("store-%d", worker%2)
			for i := 0; i < keys; i++ {
				key := fmt.Sprintf("w%d-k%d", worker, i)
				_ = database.Run(store, db.ReadWrite, func(tx db.Tx) error {
					return tx.Put(key, []byte(key))
				})
				_ = database.Run(store, db.Read, func(tx db.Tx) error {
					tx.Get(key)
					return nil
				})
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		store := fmt.Sprintf("store-%d", w%2)
		key := fmt.Sprintf("w%d-k%d", w, keys-1)
		if value, exists := get(t, database, store, key); !exists || !bytes.Equal(value, []byte(key)) {
			t.Errorf("Expected %s/%s to survive concurrent writes", store, key)
		}
	}
}
