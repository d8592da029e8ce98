package kv

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/colorful-bubbles/idb-keyval/lib/db"
	"github.com/colorful-bubbles/idb-keyval/lib/db/engines/mem"
	"github.com/colorful-bubbles/idb-keyval/lib/record"
)

// --------------------------------------------------------------------------
// Test helpers
// --------------------------------------------------------------------------

// fakeClock lets tests step time manually instead of sleeping
type fakeClock struct {
	now atomic.Int64
}

func newFakeClock(start int64) *fakeClock {
	c := &fakeClock{}
	c.now.Store(start)
	return c
}

func (c *fakeClock) Now() int64 {
	return c.now.Load()
}

func (c *fakeClock) Advance(seconds int64) {
	c.now.Add(seconds)
}

// newTestKV creates a key-value instance on the mem engine with a fake
// clock. The sweep interval is long enough that the sweeper never fires on
// its own during a test; eager-path tests call sweepOnce directly or use
// newSweepingKV.
func newTestKV(t *testing.T) (IKeyVal, *fakeClock) {
	t.Helper()
	clock := newFakeClock(1_000_000)
	instance := New(mem.NewMemDB(), &Options{
		SweepInterval: time.Hour,
		Clock:         clock.Now,
	})
	t.Cleanup(func() { _ = instance.Close() })
	return instance, clock
}

// newSweepingKV creates an instance whose sweeper runs on a short real-time
// interval, for tests of the background path itself.
func newSweepingKV(t *testing.T, interval time.Duration) (IKeyVal, *fakeClock) {
	t.Helper()
	clock := newFakeClock(1_000_000)
	instance := New(mem.NewMemDB(), &Options{
		SweepInterval: interval,
		Clock:         clock.Now,
	})
	t.Cleanup(func() { _ = instance.Close() })
	return instance, clock
}

// hasRecord checks the Expire Index directly for a record of store/key
func hasRecord(t *testing.T, instance IKeyVal, store, key string) bool {
	t.Helper()
	loaded, err := instance.Has(ExpireIndex, record.CompositeKey(store, key))
	if err != nil {
		t.Fatalf("Has on expire index failed: %v", err)
	}
	return loaded
}

// hasValue checks a store directly for a key, bypassing the expiry path
func hasValue(t *testing.T, instance IKeyVal, store, key string) bool {
	t.Helper()
	loaded, err := instance.Has(store, key)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	return loaded
}

// --------------------------------------------------------------------------
// Expiration properties
// --------------------------------------------------------------------------

// A key set without TTL is returned forever and never tracked in the index.
func TestNoTTLPassthrough(t *testing.T) {
	instance, clock := newTestKV(t)

	if err := instance.Set(DefaultStore, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if hasRecord(t, instance, DefaultStore, "k") {
		t.Error("Expected no expire record for a TTL-less set")
	}

	// no amount of elapsed time may remove it
	clock.Advance(1_000_000)

	value, loaded, err := instance.Get(DefaultStore, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded || !bytes.Equal(value, []byte("v")) {
		t.Errorf("Expected value to survive, got %q (loaded=%t)", value, loaded)
	}
}

// An expired key reads as absent and the read removes both the entry and
// its index record.
func TestLazyExpiry(t *testing.T) {
	instance, clock := newTestKV(t)

	if err := instance.Set(DefaultStore, "k", []byte("v"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clock.Advance(2)

	value, loaded, err := instance.Get(DefaultStore, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded {
		t.Errorf("Expected expired key to read as absent, got %q", value)
	}

	if hasValue(t, instance, DefaultStore, "k") {
		t.Error("Expected the value to be deleted by the expired read")
	}
	if hasRecord(t, instance, DefaultStore, "k") {
		t.Error("Expected the index record to be deleted by the expired read")
	}
}

// The sweep removes expired entries without any read touching them.
func TestEagerExpiry(t *testing.T) {
	instance, clock := newTestKV(t)

	if err := instance.Set(DefaultStore, "k", []byte("v"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := instance.Set(DefaultStore, "keep", []byte("v"), 100); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clock.Advance(2)
	instance.(*keyValImpl).sweepOnce()

	if hasValue(t, instance, DefaultStore, "k") {
		t.Error("Expected the sweep to delete the expired value")
	}
	if hasRecord(t, instance, DefaultStore, "k") {
		t.Error("Expected the sweep to delete the expired record")
	}

	// the live entry survives the same pass
	if !hasValue(t, instance, DefaultStore, "keep") {
		t.Error("Expected the live value to survive the sweep")
	}
	if !hasRecord(t, instance, DefaultStore, "keep") {
		t.Error("Expected the live record to survive the sweep")
	}
}

// The background sweeper removes expired entries on its own timer.
func TestBackgroundSweep(t *testing.T) {
	instance, clock := newSweepingKV(t, 10*time.Millisecond)

	if err := instance.Set(DefaultStore, "k", []byte("v"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clock.Advance(2)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !hasValue(t, instance, DefaultStore, "k") && !hasRecord(t, instance, DefaultStore, "k") {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Expected the background sweep to remove the expired entry")
}

// A read before the deadline is transparent and leaves the record untouched.
func TestNonExpiredRead(t *testing.T) {
	instance, clock := newTestKV(t)

	start := clock.Now()
	if err := instance.Set(DefaultStore, "k", []byte("v"), 100); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, loaded, err := instance.Get(DefaultStore, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded || !bytes.Equal(value, []byte("v")) {
		t.Errorf("Expected %q, got %q (loaded=%t)", "v", value, loaded)
	}

	// the record still exists with the original deadline
	raw, loaded, err := instance.Get(ExpireIndex, record.CompositeKey(DefaultStore, "k"))
	if err != nil || !loaded {
		t.Fatalf("Expected the record to still exist (err=%v)", err)
	}
	var rec record.ExpireRecord
	if err := DefaultOptions().Serializer.Deserialize(raw, &rec); err != nil {
		t.Fatalf("Failed to decode record: %v", err)
	}
	if rec.ValidUntil != start+100 {
		t.Errorf("Expected validUntil %d, got %d", start+100, rec.ValidUntil)
	}
	if rec.Store != DefaultStore || rec.Key != "k" {
		t.Errorf("Record refers to %s/%s, expected %s/k", rec.Store, rec.Key, DefaultStore)
	}
}

// Deleting twice, and racing the lazy path against the sweep on the same
// expired key, must never error and must leave the key absent.
func TestIdempotentDelete(t *testing.T) {
	instance, clock := newTestKV(t)

	if err := instance.Set(DefaultStore, "k", []byte("v"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := instance.Del(DefaultStore, "k"); err != nil {
		t.Errorf("First Del failed: %v", err)
	}
	if err := instance.Del(DefaultStore, "k"); err != nil {
		t.Errorf("Second Del failed: %v", err)
	}

	// race the two expiration paths on one expired key
	if err := instance.Set(DefaultStore, "r", []byte("v"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	clock.Advance(2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, _, err := instance.Get(DefaultStore, "r"); err != nil {
			t.Errorf("Lazy path errored while racing the sweep: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		instance.(*keyValImpl).sweepOnce()
	}()
	wg.Wait()

	if hasValue(t, instance, DefaultStore, "r") || hasRecord(t, instance, DefaultStore, "r") {
		t.Error("Expected the racing paths to leave the key absent in both stores")
	}
}

// validUntil == now is still valid, one second later it is stale.
func TestTieBreak(t *testing.T) {
	instance, clock := newTestKV(t)

	if err := instance.Set(DefaultStore, "k", []byte("v"), 5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// exactly at the deadline
	clock.Advance(5)
	_, loaded, err := instance.Get(DefaultStore, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded {
		t.Error("Expected a key at its exact deadline to still be valid")
	}

	// one second past it
	clock.Advance(1)
	_, loaded, err = instance.Get(DefaultStore, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded {
		t.Error("Expected a key one second past its deadline to be gone")
	}
}

// Operations against the Expire Index itself never recurse into the expiry
// machinery.
func TestIndexIsolation(t *testing.T) {
	instance, _ := newTestKV(t)

	// this is not a decodable record, a recursive expiry check would treat
	// it as malformed and delete it
	if err := instance.Set(ExpireIndex, "opaque", []byte("not a record"), 0); err != nil {
		t.Fatalf("Set on the index failed: %v", err)
	}

	value, loaded, err := instance.Get(ExpireIndex, "opaque")
	if err != nil {
		t.Fatalf("Get on the index failed: %v", err)
	}
	if !loaded || !bytes.Equal(value, []byte("not a record")) {
		t.Errorf("Expected the raw index value back, got %q (loaded=%t)", value, loaded)
	}

	// no composite-keyed bookkeeping entry may appear for index writes
	if hasRecord(t, instance, ExpireIndex, "opaque") {
		t.Error("Expected no bookkeeping record for a write to the index itself")
	}
}

// The README scenario: set with 1s TTL, read back immediately, read again
// after expiry.
func TestScenario(t *testing.T) {
	instance, clock := newTestKV(t)

	if err := instance.Set(DefaultStore, "a", []byte("hello"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, loaded, err := instance.Get(DefaultStore, "a")
	if err != nil || !loaded || !bytes.Equal(value, []byte("hello")) {
		t.Fatalf("Expected hello immediately after set, got %q (loaded=%t, err=%v)", value, loaded, err)
	}

	clock.Advance(2)

	_, loaded, err = instance.Get(DefaultStore, "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded {
		t.Error("Expected the key to be absent after its TTL elapsed")
	}
}

// --------------------------------------------------------------------------
// Edge cases
// --------------------------------------------------------------------------

// A record that cannot be decoded counts as expired and is purged on read.
func TestMalformedRecordOnRead(t *testing.T) {
	instance, _ := newTestKV(t)

	if err := instance.Set(DefaultStore, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// plant garbage in the index where the record for k would live
	if err := instance.Set(ExpireIndex, record.CompositeKey(DefaultStore, "k"), []byte("garbage"), 0); err != nil {
		t.Fatalf("Set on the index failed: %v", err)
	}

	_, loaded, err := instance.Get(DefaultStore, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded {
		t.Error("Expected a key with a malformed record to read as absent")
	}
	if hasRecord(t, instance, DefaultStore, "k") {
		t.Error("Expected the malformed record to be purged")
	}
}

// A record whose deadline is missing counts as expired (legacy shape).
func TestMissingDeadlineRecord(t *testing.T) {
	instance, _ := newTestKV(t)

	if err := instance.Set(DefaultStore, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	encoded, err := DefaultOptions().Serializer.Serialize(record.ExpireRecord{
		Timestamp: 999_999,
		Store:     DefaultStore,
		Key:       "k",
	})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if err := instance.Set(ExpireIndex, record.CompositeKey(DefaultStore, "k"), encoded, 0); err != nil {
		t.Fatalf("Set on the index failed: %v", err)
	}

	_, loaded, err := instance.Get(DefaultStore, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded {
		t.Error("Expected a record without a deadline to count as expired")
	}
}

// Re-setting a key without TTL must drop the old record, otherwise the
// stale deadline would later delete the rewritten value.
func TestSetWithoutTTLDropsRecord(t *testing.T) {
	instance, clock := newTestKV(t)

	if err := instance.Set(DefaultStore, "k", []byte("old"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := instance.Set(DefaultStore, "k", []byte("new"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if hasRecord(t, instance, DefaultStore, "k") {
		t.Error("Expected the TTL-less rewrite to drop the old record")
	}

	clock.Advance(10)
	instance.(*keyValImpl).sweepOnce()

	value, loaded, err := instance.Get(DefaultStore, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded || !bytes.Equal(value, []byte("new")) {
		t.Errorf("Expected the rewritten value to survive, got %q (loaded=%t)", value, loaded)
	}
}

// A new set with a new TTL overwrites the old record (last write wins).
func TestTTLRewriteExtends(t *testing.T) {
	instance, clock := newTestKV(t)

	if err := instance.Set(DefaultStore, "k", []byte("v1"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := instance.Set(DefaultStore, "k", []byte("v2"), 100); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clock.Advance(2)

	value, loaded, err := instance.Get(DefaultStore, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded || !bytes.Equal(value, []byte("v2")) {
		t.Errorf("Expected the extended entry to survive, got %q (loaded=%t)", value, loaded)
	}
}

// Clearing a store purges its index records but leaves other stores' alone.
func TestClearPurgesRecords(t *testing.T) {
	instance, _ := newTestKV(t)

	if err := instance.Set("store-a", "k", []byte("v"), 100); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := instance.Set("store-b", "k", []byte("v"), 100); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := instance.Clear("store-a"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if hasRecord(t, instance, "store-a", "k") {
		t.Error("Expected store-a records to be purged by Clear")
	}
	if !hasRecord(t, instance, "store-b", "k") {
		t.Error("Expected store-b records to survive a Clear of store-a")
	}
	if !hasValue(t, instance, "store-b", "k") {
		t.Error("Expected store-b values to survive a Clear of store-a")
	}
}

// Keys lists what is physically present, without applying the expiry check.
func TestKeys(t *testing.T) {
	instance, _ := newTestKV(t)

	if err := instance.Set(DefaultStore, "a", []byte("1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := instance.Set(DefaultStore, "b", []byte("2"), 100); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	keys, err := instance.Keys(DefaultStore)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Expected 2 keys, got %d (%v)", len(keys), keys)
	}
}

// Close is idempotent and stops the sweeper.
func TestClose(t *testing.T) {
	clock := newFakeClock(1_000_000)
	instance := New(mem.NewMemDB(), &Options{
		SweepInterval: 10 * time.Millisecond,
		Clock:         clock.Now,
	})

	// start the sweeper
	if err := instance.Set(DefaultStore, "k", []byte("v"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := instance.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := instance.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	factory := func() (db.Database, error) { return mem.NewMemDB(), nil }

	first, err := registry.Open("testdb", factory, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	second, err := registry.Open("testdb", factory, nil)
	if err != nil {
		t.Fatalf("Second Open failed: %v", err)
	}
	if first != second {
		t.Error("Expected Open to return the same instance for the same name")
	}

	if _, ok := registry.Get("testdb"); !ok {
		t.Error("Expected Get to find the open instance")
	}
	if _, ok := registry.Get("unknown"); ok {
		t.Error("Expected Get to miss an unknown name")
	}

	if err := registry.Close("testdb"); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, ok := registry.Get("testdb"); ok {
		t.Error("Expected the instance to be gone after Close")
	}
	if err := registry.Close("testdb"); err != nil {
		t.Errorf("Closing an unknown name must be a no-op, got: %v", err)
	}

	// reopening after close creates a fresh instance
	third, err := registry.Open("testdb", factory, nil)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if third == first {
		t.Error("Expected a fresh instance after Close")
	}
	if err := registry.CloseAll(); err != nil {
		t.Errorf("CloseAll failed: %v", err)
	}
}
