// Package serializer provides the codecs for Expire Index records. The codec
// selected when a key-value instance is constructed defines the on-disk
// schema of its index; exactly one schema is in effect per database and
// codecs are never mixed silently.
//
// Three implementations are available:
//
//   - JSON (default): human readable, schema-tolerant, the canonical format.
//   - GOB: Go's native binary encoding.
//   - Binary: a compact custom format using a flags byte to mark which
//     fields are present, followed by fixed-width integers and
//     length-prefixed strings.
//
// A record that fails to decode is not an error at the call sites that
// matter: the expiration coordinator treats undecodable records as malformed
// and therefore already expired, so they are purged rather than leaked.
package serializer
