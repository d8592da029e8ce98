package kv

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/colorful-bubbles/idb-keyval/lib/db"
	"github.com/colorful-bubbles/idb-keyval/lib/logger"
	"github.com/colorful-bubbles/idb-keyval/lib/record"
	"github.com/colorful-bubbles/idb-keyval/lib/serializer"
)

var kvLogger = logger.GetLogger("kv")

// keyValImpl implements IKeyVal over a db.Database. All expiration
// bookkeeping for the database lives in the single ExpireIndex store; the
// value write and the index write of one Set are two independent
// transactions, so the two cleanup paths (lazy check on Get, periodic
// sweep) must tolerate racing each other on the same key. They do, because
// every delete in the underlying engine is idempotent.
type keyValImpl struct {
	database db.Database
	ser      serializer.ISerializer
	clock    func() int64

	// sweeper state
	sweepInterval time.Duration
	sweepRunning  atomic.Bool
	stopCh        chan struct{}
	wg            sync.WaitGroup
	closed        atomic.Bool
}

// New creates a new key-value instance on top of the given database.
// The background sweep is started lazily by the first Set that carries a
// TTL and runs until Close is called.
//
// Thread-safety: the returned instance is safe for concurrent use; the
// underlying database serializes transactions per store.
func New(database db.Database, opts *Options) IKeyVal {
	defaults := DefaultOptions()
	if opts == nil {
		opts = defaults
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaults.SweepInterval
	}
	if opts.Serializer == nil {
		opts.Serializer = defaults.Serializer
	}
	if opts.Clock == nil {
		opts.Clock = defaults.Clock
	}

	return &keyValImpl{
		database:      database,
		ser:           opts.Serializer,
		clock:         opts.Clock,
		sweepInterval: opts.SweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see kv/interface.go)
// --------------------------------------------------------------------------

func (s *keyValImpl) Get(store, key string) ([]byte, bool, error) {
	if err := s.requireFeature(db.FeatureGet); err != nil {
		return nil, false, err
	}

	// reads of the Expire Index itself never consult the index again
	if store == ExpireIndex {
		return s.readValue(store, key)
	}

	compositeKey := record.CompositeKey(store, key)
	rec, tracked, err := s.readRecord(compositeKey)
	if err != nil {
		return nil, false, err
	}

	// not tracked for expiration, plain read
	if !tracked {
		return s.readValue(store, key)
	}

	if rec.Expired(s.clock()) {
		// Expired read: purge the entry and its record, then report absent.
		// Both deletes complete before returning so a re-read cannot observe
		// the stale value. Delete failures only delay cleanup, they never
		// surface to the reader.
		s.purge(store, key, compositeKey, "read")
		metricExpiredReads.Inc()
		return nil, false, nil
	}

	return s.readValue(store, key)
}

func (s *keyValImpl) Set(store, key string, value []byte, ttlSeconds uint64) error {
	if err := s.requireFeature(db.FeaturePut); err != nil {
		return err
	}

	// value write, first of the two independent transactions
	err := s.database.Run(store, db.ReadWrite, func(tx db.Tx) error {
		return tx.Put(key, value)
	})
	if err != nil {
		return wrapTxError("set "+store+"/"+key, err)
	}

	// writes into the Expire Index itself carry no bookkeeping
	if store == ExpireIndex {
		return nil
	}

	compositeKey := record.CompositeKey(store, key)

	if ttlSeconds == 0 {
		// drop a stale record from an earlier TTL write, otherwise it would
		// later expire a value that is no longer meant to expire
		err = s.database.Run(ExpireIndex, db.ReadWrite, func(tx db.Tx) error {
			return tx.Delete(compositeKey)
		})
		return wrapTxError("unset expire record "+compositeKey, err)
	}

	now := s.clock()
	encoded, serErr := s.ser.Serialize(record.ExpireRecord{
		Timestamp:  now,
		ValidUntil: now + int64(ttlSeconds),
		Store:      store,
		Key:        key,
	})
	if serErr != nil {
		return NewError(RetCInternalError, "encode expire record: "+serErr.Error())
	}

	// index write, second transaction; last write wins at the composite key
	err = s.database.Run(ExpireIndex, db.ReadWrite, func(tx db.Tx) error {
		return tx.Put(compositeKey, encoded)
	})
	if err != nil {
		return wrapTxError("set expire record "+compositeKey, err)
	}

	s.startSweeper()
	return nil
}

func (s *keyValImpl) Del(store, key string) error {
	if err := s.requireFeature(db.FeatureDelete); err != nil {
		return err
	}

	err := s.database.Run(store, db.ReadWrite, func(tx db.Tx) error {
		return tx.Delete(key)
	})
	if err != nil {
		return wrapTxError("del "+store+"/"+key, err)
	}

	if store == ExpireIndex {
		return nil
	}

	err = s.database.Run(ExpireIndex, db.ReadWrite, func(tx db.Tx) error {
		return tx.Delete(record.CompositeKey(store, key))
	})
	return wrapTxError("del expire record "+store+"/"+key, err)
}

func (s *keyValImpl) Clear(store string) error {
	if err := s.requireFeature(db.FeatureClear); err != nil {
		return err
	}

	err := s.database.Run(store, db.ReadWrite, func(tx db.Tx) error {
		return tx.Clear()
	})
	if err != nil {
		return wrapTxError("clear "+store, err)
	}

	if store == ExpireIndex {
		return nil
	}

	// purge the records referring to the cleared store. Matching happens on
	// the decoded Store field, not on the composite key prefix: the key
	// scheme is ambiguous for store names containing underscores.
	err = s.database.Run(ExpireIndex, db.ReadWrite, func(tx db.Tx) error {
		var stale []string
		if err := tx.Keys(func(compositeKey string) bool {
			raw, ok := tx.Get(compositeKey)
			if !ok {
				return true
			}
			var rec record.ExpireRecord
			if err := s.ser.Deserialize(raw, &rec); err != nil {
				return true
			}
			if rec.Store == store {
				stale = append(stale, compositeKey)
			}
			return true
		}); err != nil {
			return err
		}
		for _, compositeKey := range stale {
			if err := tx.Delete(compositeKey); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapTxError("clear expire records for "+store, err)
}

func (s *keyValImpl) Keys(store string) ([]string, error) {
	if err := s.requireFeature(db.FeatureIterate); err != nil {
		return nil, err
	}

	var keys []string
	err := s.database.Run(store, db.Read, func(tx db.Tx) error {
		return tx.Keys(func(key string) bool {
			keys = append(keys, key)
			return true
		})
	})
	if err != nil {
		return nil, wrapTxError("keys "+store, err)
	}
	return keys, nil
}

func (s *keyValImpl) Has(store, key string) (bool, error) {
	if err := s.requireFeature(db.FeatureGet); err != nil {
		return false, err
	}

	var loaded bool
	err := s.database.Run(store, db.Read, func(tx db.Tx) error {
		_, loaded = tx.Get(key)
		return nil
	})
	if err != nil {
		return false, wrapTxError("has "+store+"/"+key, err)
	}
	return loaded, nil
}

func (s *keyValImpl) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.stopSweeper()
	return s.database.Close()
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

// requireFeature checks whether the underlying database supports the feature
func (s *keyValImpl) requireFeature(feature db.Feature) error {
	if !s.database.SupportsFeature(feature) {
		return NewError(RetCUnsupportedOperation, feature.String()+" operation is not supported")
	}
	return nil
}

// readValue reads a key directly from the given store with no expiry check
func (s *keyValImpl) readValue(store, key string) ([]byte, bool, error) {
	var (
		value  []byte
		loaded bool
	)
	err := s.database.Run(store, db.Read, func(tx db.Tx) error {
		value, loaded = tx.Get(key)
		return nil
	})
	if err != nil {
		return nil, false, wrapTxError("get "+store+"/"+key, err)
	}
	return value, loaded, nil
}

// readRecord loads and decodes the ExpireRecord at the given composite key.
// A missing record returns tracked=false. An undecodable record returns
// tracked=true with a zero record, which the caller's expiry check treats
// as malformed and therefore already expired.
func (s *keyValImpl) readRecord(compositeKey string) (record.ExpireRecord, bool, error) {
	var (
		raw     []byte
		tracked bool
	)
	err := s.database.Run(ExpireIndex, db.Read, func(tx db.Tx) error {
		raw, tracked = tx.Get(compositeKey)
		return nil
	})
	if err != nil {
		return record.ExpireRecord{}, false, wrapTxError("read expire record "+compositeKey, err)
	}
	if !tracked {
		return record.ExpireRecord{}, false, nil
	}

	var rec record.ExpireRecord
	if err := s.ser.Deserialize(raw, &rec); err != nil {
		kvLogger.Warningf("malformed expire record at %q, treating as expired: %v", compositeKey, err)
		return record.ExpireRecord{}, true, nil
	}
	return rec, true, nil
}

// purge removes an expired entry from its store and its record (filed under
// compositeKey) from the Expire Index. Both deletions are issued together
// and both are awaited; failures are logged and left for a later sweep pass
// to retry (the record is rediscovered as long as it exists). Deletes of
// already-absent keys succeed, so racing the sweeper is harmless.
func (s *keyValImpl) purge(store, key, compositeKey, path string) {
	if err := s.database.Run(store, db.ReadWrite, func(tx db.Tx) error {
		return tx.Delete(key)
	}); err != nil {
		metricSweepErrors.Inc()
		kvLogger.Errorf("%s-path purge of %s/%s failed to delete value: %v", path, store, key, err)
	}

	if err := s.database.Run(ExpireIndex, db.ReadWrite, func(tx db.Tx) error {
		return tx.Delete(compositeKey)
	}); err != nil {
		metricSweepErrors.Inc()
		kvLogger.Errorf("%s-path purge of %s/%s failed to delete record: %v", path, store, key, err)
	}
}
