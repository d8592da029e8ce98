package record

// --------------------------------------------------------------------------
// Expire Record
// --------------------------------------------------------------------------

// ExpireRecord is the bookkeeping entry stored in the Expire Index for every
// key written with a TTL. The index is shared by all stores of one database;
// Store and Key locate the primary entry the record refers to.
type ExpireRecord struct {
	// Timestamp is the write time in seconds since epoch.
	Timestamp int64 `json:"timestamp"`
	// ValidUntil is the deadline in seconds since epoch after which the
	// entry is stale. A zero value marks a malformed record and is treated
	// as already expired.
	ValidUntil int64 `json:"validUntil"`
	// Store is the name of the primary store holding the entry.
	Store string `json:"store"`
	// Key is the application key of the entry within its primary store.
	Key string `json:"key"`
}

// Expired reports whether the record is stale at the given time.
//
// The deadline itself is not stale: ValidUntil == now is still valid,
// only ValidUntil < now expires. A missing (zero) ValidUntil is always
// expired so malformed records are cleaned up instead of leaking.
func (r ExpireRecord) Expired(now int64) bool {
	if r.ValidUntil == 0 {
		return true
	}
	return r.ValidUntil < now
}

// --------------------------------------------------------------------------
// Composite Keys
// --------------------------------------------------------------------------

// CompositeKey builds the Expire Index key for an entry: the primary store
// name and the application key joined by an underscore. The scheme is
// ambiguous for store names containing underscores, which is why consumers
// must disambiguate via the record's Store field rather than by key prefix.
func CompositeKey(store, key string) string {
	return store + "_" + key
}
