package bolt

import (
	"errors"
	"time"

	"github.com/colorful-bubbles/idb-keyval/lib/db"
	bbolt "go.etcd.io/bbolt"
)

// --------------------------------------------------------------------------
// Options and Setup
// --------------------------------------------------------------------------

// DBOptions configures the bolt engine during initialization
type DBOptions struct {
	Path    string        // Path to the database file
	Timeout time.Duration // How long to wait for the file lock (0 = wait forever)
	NoSync  bool          // Skip fsync after each commit (faster, unsafe on crash)
}

// DefaultOptions returns the default bolt engine options for the given file path
func DefaultOptions(path string) *DBOptions {
	return &DBOptions{
		Path:    path,
		Timeout: time.Second,
	}
}

// NewBoltDB opens (or creates) a bolt database file and returns it as a
// db.Database. Each named store is backed by a bucket; buckets are created
// on first read-write use.
//
// Thread-safety: the returned database is safe for concurrent use. bbolt
// serializes read-write transactions globally and allows concurrent readers.
func NewBoltDB(opts *DBOptions) (db.Database, error) {
	if opts == nil {
		return nil, errors.New("bolt: nil options, use DefaultOptions(path)")
	}

	bdb, err := bbolt.Open(opts.Path, 0o600, &bbolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, err
	}
	bdb.NoSync = opts.NoSync

	return &boltImpl{db: bdb, path: opts.Path}, nil
}

// boltImpl implements db.Database on top of a bbolt file database
type boltImpl struct {
	db   *bbolt.DB
	path string
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db package)
// --------------------------------------------------------------------------

func (b *boltImpl) Run(store string, mode db.Mode, body func(tx db.Tx) error) error {
	if mode == db.ReadWrite {
		return db.Abort(b.db.Update(func(btx *bbolt.Tx) error {
			bucket, err := btx.CreateBucketIfNotExists([]byte(store))
			if err != nil {
				return err
			}
			return body(&boltTx{bucket: bucket, writable: true})
		}))
	}

	return db.Abort(b.db.View(func(btx *bbolt.Tx) error {
		// a missing bucket is observed as an empty store
		return body(&boltTx{bucket: btx.Bucket([]byte(store))})
	}))
}

func (b *boltImpl) GetInfo() db.DatabaseInfo {
	var (
		sizeBytes int
		stores    int
	)
	_ = b.db.View(func(btx *bbolt.Tx) error {
		sizeBytes = int(btx.Size())
		return btx.ForEach(func(_ []byte, _ *bbolt.Bucket) error {
			stores++
			return nil
		})
	})

	meta := &struct {
		Path       string `json:"path"`
		StoreCount int    `json:"store_count"`
	}{
		Path:       b.path,
		StoreCount: stores,
	}

	return db.DatabaseInfo{
		SizeBytes: sizeBytes,
		DbType:    db.ImplBolt,
		SupportedFeatures: []db.Feature{
			db.FeatureGet, db.FeaturePut, db.FeatureDelete,
			db.FeatureClear, db.FeatureIterate, db.FeaturePersistence,
		},
		Metadata: meta,
	}
}

func (b *boltImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureGet |
		db.FeaturePut |
		db.FeatureDelete |
		db.FeatureClear |
		db.FeatureIterate |
		db.FeaturePersistence
	return supported&feature == feature
}

func (b *boltImpl) Close() error {
	return b.db.Close()
}

// --------------------------------------------------------------------------
// Transaction Implementation
// --------------------------------------------------------------------------

// boltTx implements db.Tx against a single bucket. The bucket may be nil for
// a read transaction on a store that was never written.
type boltTx struct {
	bucket   *bbolt.Bucket
	writable bool
}

func (t *boltTx) Get(key string) ([]byte, bool) {
	if t.bucket == nil {
		return nil, false
	}
	val := t.bucket.Get([]byte(key))
	if val == nil {
		return nil, false
	}

	// bbolt memory is only valid for the lifetime of the transaction
	out := make([]byte, len(val))
	copy(out, val)
	return out, true
}

func (t *boltTx) Put(key string, value []byte) error {
	if !t.writable {
		return db.ErrReadOnlyTx
	}
	return t.bucket.Put([]byte(key), value)
}

func (t *boltTx) Delete(key string) error {
	if !t.writable {
		return db.ErrReadOnlyTx
	}
	// bbolt treats deleting a missing key as a no-op
	return t.bucket.Delete([]byte(key))
}

func (t *boltTx) Clear() error {
	if !t.writable {
		return db.ErrReadOnlyTx
	}
	cursor := t.bucket.Cursor()
	for k, _ := cursor.First(); k != nil; k, _ = cursor.First() {
		if err := t.bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (t *boltTx) Keys(fn func(key string) bool) error {
	if t.bucket == nil {
		return nil
	}
	cursor := t.bucket.Cursor()
	for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
		if !fn(string(k)) {
			return nil
		}
	}
	return nil
}
