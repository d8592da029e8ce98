package mem

import (
	"sync"

	"github.com/colorful-bubbles/idb-keyval/lib/db"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Setup
// --------------------------------------------------------------------------

// NewMemDB creates a new in-memory database. Data is not persisted between
// process restarts.
//
// Thread-safety: the returned database is safe for concurrent use. Each
// store carries its own RWMutex; read transactions share it, read-write
// transactions hold it exclusively for the duration of the unit of work.
func NewMemDB() db.Database {
	return &memImpl{
		stores: xsync.NewMapOf[string, *memStore](),
	}
}

// memImpl implements db.Database with one memStore per named store
type memImpl struct {
	stores *xsync.MapOf[string, *memStore]
}

// memStore is a single named store. The mutex serializes transactions, the
// map holds committed state only.
type memStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// store returns the named store, creating it on first use
func (m *memImpl) store(name string) *memStore {
	s, _ := m.stores.LoadOrCompute(name, func() *memStore {
		return &memStore{data: make(map[string][]byte)}
	})
	return s
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db package)
// --------------------------------------------------------------------------

func (m *memImpl) Run(store string, mode db.Mode, body func(tx db.Tx) error) error {
	s := m.store(store)

	if mode == db.ReadWrite {
		s.mu.Lock()
		defer s.mu.Unlock()

		tx := &memTx{store: s, writable: true, staged: make(map[string][]byte)}
		if err := body(tx); err != nil {
			// rollback: staged writes are simply discarded
			return db.Abort(err)
		}
		tx.commit()
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return db.Abort(body(&memTx{store: s}))
}

func (m *memImpl) GetInfo() db.DatabaseInfo {
	var (
		sizeBytes int
		keys      int
	)
	m.stores.Range(func(_ string, s *memStore) bool {
		s.mu.RLock()
		for k, v := range s.data {
			sizeBytes += len(k) + len(v)
			keys++
		}
		s.mu.RUnlock()
		return true
	})

	meta := &struct {
		StoreCount int `json:"store_count"`
		KeyCount   int `json:"key_count"`
	}{
		StoreCount: m.stores.Size(),
		KeyCount:   keys,
	}

	return db.DatabaseInfo{
		SizeBytes: sizeBytes,
		DbType:    db.ImplMem,
		SupportedFeatures: []db.Feature{
			db.FeatureGet, db.FeaturePut, db.FeatureDelete,
			db.FeatureClear, db.FeatureIterate,
		},
		Metadata: meta,
	}
}

func (m *memImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureGet |
		db.FeaturePut |
		db.FeatureDelete |
		db.FeatureClear |
		db.FeatureIterate
	return supported&feature == feature
}

func (m *memImpl) Close() error {
	m.stores.Clear()
	return nil
}

// --------------------------------------------------------------------------
// Transaction Implementation
// --------------------------------------------------------------------------

// memTx implements db.Tx with a staged write set. Reads observe staged
// writes first, then committed state. A nil staged value marks a deletion.
// The cleared flag hides all committed state written before Clear.
type memTx struct {
	store    *memStore
	writable bool
	staged   map[string][]byte
	cleared  bool
}

func (t *memTx) Get(key string) ([]byte, bool) {
	if t.writable {
		if val, ok := t.staged[key]; ok {
			if val == nil {
				return nil, false
			}
			return append([]byte(nil), val...), true
		}
		if t.cleared {
			return nil, false
		}
	}

	val, ok := t.store.data[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), val...), true
}

func (t *memTx) Put(key string, value []byte) error {
	if !t.writable {
		return db.ErrReadOnlyTx
	}
	// copy to prevent aliasing with caller memory
	t.staged[key] = append([]byte(nil), value...)
	return nil
}

func (t *memTx) Delete(key string) error {
	if !t.writable {
		return db.ErrReadOnlyTx
	}
	t.staged[key] = nil
	return nil
}

func (t *memTx) Clear() error {
	if !t.writable {
		return db.ErrReadOnlyTx
	}
	t.cleared = true
	t.staged = make(map[string][]byte)
	return nil
}

func (t *memTx) Keys(fn func(key string) bool) error {
	seen := make(map[string]struct{}, len(t.staged))

	if t.writable {
		for k, v := range t.staged {
			seen[k] = struct{}{}
			if v == nil {
				continue
			}
			if !fn(k) {
				return nil
			}
		}
		if t.cleared {
			return nil
		}
	}

	for k := range t.store.data {
		if _, ok := seen[k]; ok {
			continue
		}
		if !fn(k) {
			return nil
		}
	}
	return nil
}

// commit applies the staged write set to committed state. Callers hold the
// store's write lock.
func (t *memTx) commit() {
	if t.cleared {
		t.store.data = make(map[string][]byte)
	}
	for k, v := range t.staged {
		if v == nil {
			delete(t.store.data, k)
			continue
		}
		t.store.data[k] = v
	}
}
