// Package idgen generates short, URL-safe, collision-resistant entity ids.
//
// Every id is a 13-character Crockford base32 encoding of a UUIDv7's
// time-ordered high bits, so ids sort roughly by creation order the same
// way the primary store's `*:all` sorted sets do, without depending on a
// central counter.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

const crockford = "0123456789abcdefghjkmnpqrstvwxyz"

// New returns a fresh 13-character id prefixed with kind, e.g. "spec_4qj2…".
func New(kind string) string {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return kind + "_" + encode(u[:8])
}

func encode(b []byte) string {
	var sb strings.Builder
	var buf uint64
	bits := 0
	for _, by := range b {
		buf = buf<<8 | uint64(by)
		bits += 8
		for bits >= 5 {
			bits -= 5
			sb.WriteByte(crockford[(buf>>uint(bits))&0x1f])
		}
	}
	if bits > 0 {
		sb.WriteByte(crockford[(buf<<uint(5-bits))&0x1f])
	}
	return sb.String()
}
