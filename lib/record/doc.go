// Package record defines the data model of the Expire Index: the
// ExpireRecord written alongside every TTL-bearing set, and the composite
// key scheme (storeName + "_" + key) under which records are filed. The
// expiry rule lives here as well so the lazy read path and the periodic
// sweep cannot drift apart.
package record
