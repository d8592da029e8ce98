package kv

import (
	"errors"
	"fmt"
	"time"

	"github.com/colorful-bubbles/idb-keyval/lib/db"
	"github.com/colorful-bubbles/idb-keyval/lib/serializer"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// DefaultStore is the store name call sites use when they have no
	// reason to segment their keys.
	DefaultStore = "keyval"

	// ExpireIndex is the name of the per-database store holding the
	// expiration bookkeeping records. Operations that target it directly
	// bypass the expiry machinery.
	ExpireIndex = "expire"

	// DefaultSweepInterval is the period of the background sweep.
	DefaultSweepInterval = 60 * time.Second
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IKeyVal is the interface for interacting with a key-value database with
// TTL support. All write operations return an error (nil on success), while
// read operations return the requested data along with an error (nil on
// success).
//
// A value written with a TTL is tracked in the database's Expire Index and
// removed after its deadline by whichever runs first: the expiry check on
// the next Get, or the periodic background sweep. Removal is eventually
// consistent; from the caller's perspective an expired key simply reads as
// absent.
type IKeyVal interface {
	// Get returns the value for a key in the given store. The boolean
	// return value indicates whether a live value was found. An expired
	// entry reads as absent with a nil error and is purged from both the
	// store and the Expire Index as a side effect.
	Get(store, key string) (value []byte, loaded bool, err error)

	// Set inserts or updates a key-value pair. A ttlSeconds of zero means
	// no expiration; a positive value files an expiration record so the
	// entry reads as absent once the deadline has passed. The value write
	// and the index write are two independent transactions.
	Set(store, key string, value []byte, ttlSeconds uint64) error

	// Del deletes a key-value pair and its expiration record, if any.
	// Deleting an absent key is a no-op success.
	Del(store, key string) error

	// Clear removes every entry in the store and every expiration record
	// referring to it.
	Clear(store string) error

	// Keys returns the keys currently present in the store. Entries that
	// are past their deadline but not yet swept are still listed; only Get
	// applies the expiry check.
	Keys(store string) ([]string, error)

	// Has reports whether a key is currently present in the store. Unlike
	// Get it performs no expiry check and never mutates state.
	Has(store, key string) (loaded bool, err error)

	// Close stops the background sweep and closes the underlying database.
	Close() error
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a key-value instance during construction. The zero
// value selects the defaults documented on each field.
type Options struct {
	// SweepInterval is the period of the background sweep
	// (0 = DefaultSweepInterval).
	SweepInterval time.Duration

	// Serializer is the codec for Expire Index records
	// (nil = JSON, the canonical schema).
	Serializer serializer.ISerializer

	// Clock returns the current time in seconds since epoch
	// (nil = time.Now().Unix). Injected by tests to step time manually.
	Clock func() int64
}

// DefaultOptions returns the default key-value options
func DefaultOptions() *Options {
	return &Options{
		SweepInterval: DefaultSweepInterval,
		Serializer:    serializer.NewJSONSerializer(),
		Clock:         func() int64 { return time.Now().Unix() },
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCUnsupportedOperation:
		errorCode = "UnsupportedOperation"
	case RetCInvalidOperation:
		errorCode = "InvalidOperation"
	case RetCTransactionAborted:
		errorCode = "TransactionAborted"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("KeyValError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// wrapTxError converts a failed unit of work into an *Error, keeping nil as nil.
func wrapTxError(op string, err error) error {
	if err == nil {
		return nil
	}
	var txErr *db.TxError
	if errors.As(err, &txErr) {
		return NewError(RetCTransactionAborted, fmt.Sprintf("%s: %v", op, err))
	}
	return NewError(RetCInternalError, fmt.Sprintf("%s: %v", op, err))
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                       // 1: Operation failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCTransactionAborted                  // 4: The underlying transaction aborted.
)
