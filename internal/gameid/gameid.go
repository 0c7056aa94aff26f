// Package gameid generates time-ordered game identifiers: a UUIDv7
// encoded as 26 characters of Crockford base32, so lexical order
// follows creation order and the IDs stay URL-safe.
package gameid

import (
	"github.com/google/uuid"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// New returns a fresh game ID.
func New() string {
	id := uuid.Must(uuid.NewV7())
	return encode(id)
}

// encode packs 128 bits into 26 base32 digits, most significant first.
// The two leading pad bits are zero, so the first digit is at most 7.
func encode(b [16]byte) string {
	var dst [26]byte
	var acc uint64
	var bits int
	j := 25
	for i := 15; i >= 0; i-- {
		acc |= uint64(b[i]) << bits
		bits += 8
		for bits >= 5 {
			dst[j] = alphabet[acc&31]
			acc >>= 5
			bits -= 5
			j--
		}
	}
	for j >= 0 {
		dst[j] = alphabet[acc&31]
		acc >>= 5
		j--
	}
	return string(dst[:])
}
