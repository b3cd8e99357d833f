// Package fingerprint computes the stable content hash that names an
// environment description's on-disk cache slot. It is a pure function of
// the description: recursively sort mapping keys, render scalars in a
// stable textual form, then hash with SHA-256. Nothing here may read
// ambient state (paths, environment variables, the clock).
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// Description is the (kind, config) pair a Fingerprint is derived from. It
// is immutable from the core's point of view; config is opaque and
// backend-specific.
type Description struct {
	Kind   string
	Config map[string]any
}

// Fingerprint is the 32-byte SHA-256 digest of a canonicalized Description,
// hex-encoded for use as a path segment.
type Fingerprint [sha256.Size]byte

// String returns the hex-encoded digest, suitable as a directory name.
func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// Of computes the Fingerprint of a Description.
func Of(d Description) Fingerprint {
	var buf []byte
	buf = append(buf, d.Kind...)
	buf = append(buf, 0)
	buf = appendCanonical(buf, d.Config)
	return sha256.Sum256(buf)
}

// OfRemote folds a remote host address into the inner description's
// fingerprint so that the same inner description dispatched to two
// different hosts resolves to two distinct cache slots. The host and the
// inner description are canonicalized as a nested structure — not
// concatenated as a bare string — so that characters shared between a host
// string and the inner config's JSON rendering can never make two distinct
// (host, description) pairs collide (see SPEC_FULL.md §13 REDESIGN FLAGS).
func OfRemote(host string, inner Description) Fingerprint {
	var buf []byte
	buf = appendCanonical(buf, map[string]any{
		"host": host,
		"kind": inner.Kind,
		"config": inner.Config,
	})
	return sha256.Sum256(buf)
}

// appendCanonical renders value in a stable textual form, sorting map keys
// recursively, and appends it to buf.
func appendCanonical(buf []byte, value any) []byte {
	switch v := value.(type) {
	case nil:
		return append(buf, "null"...)
	case bool:
		if v {
			return append(buf, "true"...)
		}
		return append(buf, "false"...)
	case string:
		return append(buf, strconv.Quote(v)...)
	case int:
		return append(buf, strconv.Itoa(v)...)
	case int64:
		return append(buf, strconv.FormatInt(v, 10)...)
	case float64:
		return append(buf, strconv.FormatFloat(v, 'g', -1, 64)...)
	case []string:
		buf = append(buf, '[')
		for i, item := range v {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendCanonical(buf, item)
		}
		return append(buf, ']')
	case []any:
		buf = append(buf, '[')
		for i, item := range v {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendCanonical(buf, item)
		}
		return append(buf, ']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, strconv.Quote(k)...)
			buf = append(buf, ':')
			buf = appendCanonical(buf, v[k])
		}
		return append(buf, '}')
	default:
		// Last resort: a stable-enough textual form for scalar types we
		// did not special-case above (e.g. distinct sized int/uint
		// variants). It never panics: a channel or func renders as its
		// address, so a description holding one has no stable fingerprint
		// across processes.
		return append(buf, fmt.Sprintf("%v", v)...)
	}
}
