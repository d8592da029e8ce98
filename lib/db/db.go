package db

import "errors"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplBolt Implementation = "bolt"
	ImplMem  Implementation = "mem"
)

// Mode selects the transaction mode for a unit of work.
type Mode uint8

const (
	// Read opens a read-only transaction. Write primitives fail with ErrReadOnlyTx.
	Read Mode = iota
	// ReadWrite opens a read-write transaction that commits when the body
	// returns nil and rolls back when it returns an error.
	ReadWrite
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case ReadWrite:
		return "readwrite"
	default:
		return "unknown"
	}
}

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureGet         Feature = 1 << iota // Support for Get operations
	FeaturePut                             // Support for Put operations
	FeatureDelete                          // Support for Delete operations
	FeatureClear                           // Support for Clear operations
	FeatureIterate                         // Support for key iteration
	FeaturePersistence                     // Data survives process restarts
)

func (f Feature) String() string {
	switch f {
	case FeatureGet:
		return "Get"
	case FeaturePut:
		return "Put"
	case FeatureDelete:
		return "Delete"
	case FeatureClear:
		return "Clear"
	case FeatureIterate:
		return "Iterate"
	case FeaturePersistence:
		return "Persistence"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Transaction Interface
// --------------------------------------------------------------------------

// Tx is the set of primitive operations available inside one transaction.
// A Tx is only valid for the duration of the Run call that produced it and
// must not escape the body function.
type Tx interface {
	// Get returns the value for a key. The boolean return value indicates
	// whether a value for the key was found. The returned slice is a copy
	// and safe to retain after the transaction ends.
	Get(key string) (value []byte, loaded bool)

	// Put inserts or updates a key-value pair. Fails with ErrReadOnlyTx on
	// a read transaction.
	Put(key string, value []byte) error

	// Delete removes a key-value pair. Deleting an absent key is a no-op
	// success, never an error. Fails with ErrReadOnlyTx on a read transaction.
	Delete(key string) error

	// Clear removes every entry in the store. Fails with ErrReadOnlyTx on
	// a read transaction.
	Clear() error

	// Keys iterates over every key currently present in the store. The
	// iteration is lazy, finite and non-restartable; returning false from
	// fn stops it early.
	Keys(fn func(key string) bool) error
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// Database is a connection to one named database holding any number of named
// stores. It executes units of work against a single store under a
// transaction: Run returns nil when the transaction committed and an error
// when it aborted. Named stores are created on first read-write use; a read
// transaction against a missing store observes an empty store.
//
// Implementations must serialize transactions that target the same store, so
// callers need no additional mutual exclusion per store.
type Database interface {
	// Run executes body against the named store inside one transaction of
	// the given mode. A nil return from body commits the transaction, a
	// non-nil return rolls it back and is returned wrapped in *TxError.
	Run(store string, mode Mode, body func(tx Tx) error) error

	// GetInfo returns metadata about the database.
	// It is not guaranteed that all fields are filled in or that the
	// information is up-to-date!
	GetInfo() DatabaseInfo

	// SupportsFeature checks if this implementation supports a specific feature
	SupportsFeature(feature Feature) bool

	// Close releases the underlying resources. The database must not be
	// used afterwards.
	Close() error
}

// Factory is a function type that creates a new Database. It is used to
// abstract the creation of the database from its consumers.
type Factory func() (Database, error)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// ErrReadOnlyTx is returned by write primitives invoked on a read transaction.
var ErrReadOnlyTx = &TxError{Msg: "write operation on read-only transaction"}

// TxError reports a transaction that aborted instead of committing.
// If Cause is non-nil the abort originated from the transaction body or the
// underlying engine, otherwise Msg describes the condition.
type TxError struct {
	Msg   string
	Cause error
}

func (e *TxError) Error() string {
	if e.Cause != nil {
		return "transaction aborted: " + e.Cause.Error()
	}
	return "transaction aborted: " + e.Msg
}

func (e *TxError) Unwrap() error {
	return e.Cause
}

// Abort wraps a body error into a *TxError. A nil error stays nil and an
// error that already is a *TxError is passed through unchanged.
func Abort(err error) error {
	if err == nil {
		return nil
	}
	var txErr *TxError
	if errors.As(err, &txErr) {
		return err
	}
	return &TxError{Cause: err}
}
