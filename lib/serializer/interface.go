package serializer

import "github.com/colorful-bubbles/idb-keyval/lib/record"

// ISerializer is the interface for all Expire Index record codecs.
// The codec chosen at construction time defines the on-disk schema of the
// index; mixing codecs within one database is not supported.
type ISerializer interface {
	// Serialize encodes an ExpireRecord into a byte array
	// It returns the encoded byte array and an error if any
	Serialize(rec record.ExpireRecord) ([]byte, error)
	// Deserialize decodes a byte array into an ExpireRecord
	// It takes a byte array and a pointer to an ExpireRecord as parameters
	// It returns an error if any
	Deserialize(b []byte, rec *record.ExpireRecord) error
}
