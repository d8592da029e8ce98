package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/colorful-bubbles/idb-keyval/lib/record"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() ISerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements ISerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasTimestamp  byte = 1 << 0
	hasValidUntil byte = 1 << 1
	hasStore      byte = 1 << 2
	hasKey        byte = 1 << 3
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (s binarySerializerImpl) Serialize(rec record.ExpireRecord) ([]byte, error) {
	// Calculate total size needed
	totalSize := s.sizeBytes(rec)
	result := make([]byte, totalSize)

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 1 // Start after flags

	// Handle Timestamp
	if rec.Timestamp != 0 {
		flags |= hasTimestamp
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(rec.Timestamp))
		pos += 8
	}

	// Handle ValidUntil
	if rec.ValidUntil != 0 {
		flags |= hasValidUntil
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(rec.ValidUntil))
		pos += 8
	}

	// Handle Store
	if rec.Store != "" {
		flags |= hasStore
		storeBytes := []byte(rec.Store)
		storeLen := len(storeBytes)

		// Write store length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(storeLen))
		pos += 4

		// Write store data
		copy(result[pos:pos+storeLen], storeBytes)
		pos += storeLen
	}

	// Handle Key
	if rec.Key != "" {
		flags |= hasKey
		keyBytes := []byte(rec.Key)
		keyLen := len(keyBytes)

		// Write key length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(keyLen))
		pos += 4

		// Write key data
		copy(result[pos:pos+keyLen], keyBytes)
		pos += keyLen
	}

	// Set flags byte after knowing which fields are present
	result[0] = flags

	return result, nil
}

func (s binarySerializerImpl) Deserialize(data []byte, rec *record.ExpireRecord) error {
	// Check minimum size (flags byte)
	if len(data) < 1 {
		return fmt.Errorf("data too short for record header")
	}

	// Read flags
	flags := data[0]

	// Initialize read position
	pos := 1

	// Read Timestamp if present
	if flags&hasTimestamp != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for Timestamp")
		}

		rec.Timestamp = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8
	} else {
		rec.Timestamp = 0
	}

	// Read ValidUntil if present
	if flags&hasValidUntil != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for ValidUntil")
		}

		rec.ValidUntil = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8
	} else {
		rec.ValidUntil = 0
	}

	// Read Store if present
	if flags&hasStore != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for store length")
		}

		// Read store length
		storeLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(storeLen) > len(data) {
			return fmt.Errorf("data too short for store data")
		}

		// Read store data
		rec.Store = string(data[pos : pos+int(storeLen)])
		pos += int(storeLen)
	} else {
		rec.Store = ""
	}

	// Read Key if present
	if flags&hasKey != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for key length")
		}

		// Read key length
		keyLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(keyLen) > len(data) {
			return fmt.Errorf("data too short for key data")
		}

		// Read key data
		rec.Key = string(data[pos : pos+int(keyLen)])
		pos += int(keyLen)
	} else {
		rec.Key = ""
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (s binarySerializerImpl) sizeBytes(rec record.ExpireRecord) int {
	// 1 byte for flags
	size := 1

	// Add sizes for fields that require length encoding
	if rec.Timestamp != 0 {
		size += 8 // int64
	}
	if rec.ValidUntil != 0 {
		size += 8 // int64
	}
	if rec.Store != "" {
		size += 4 + len(rec.Store) // 4 bytes for length + store string
	}
	if rec.Key != "" {
		size += 4 + len(rec.Key) // 4 bytes for length + key string
	}

	return size
}
