// Package matchid generates match identifiers: UUIDv7 values written as 26
// lowercase Crockford base32 characters, so that ids sort by creation time
// and are safe in URLs, file names and Redis keys.
package matchid

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	alphabet = "0123456789abcdefghjkmnpqrstvwxyz"
	// Length of an encoded id.
	Length = 26
)

// New returns a fresh id. It panics only if the system random source fails.
func New() string {
	return Encode(uuid.Must(uuid.NewV7()))
}

// Encode writes u as a 130-bit big-endian number (two zero bits on top) in
// base32.
func Encode(u uuid.UUID) string {
	hi := binary.BigEndian.Uint64(u[:8])
	lo := binary.BigEndian.Uint64(u[8:])
	var out [Length]byte
	for i := Length - 1; i >= 0; i-- {
		out[i] = alphabet[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}

// Parse decodes an id back into its UUID.
func Parse(id string) (uuid.UUID, error) {
	if err := Validate(id); err != nil {
		return uuid.Nil, err
	}
	var hi, lo uint64
	for i := 0; i < Length; i++ {
		v := uint64(strings.IndexByte(alphabet, id[i]))
		hi = hi<<5 | lo>>59
		lo = lo<<5 | v
	}
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[:8], hi)
	binary.BigEndian.PutUint64(u[8:], lo)
	return u, nil
}

// Validate checks the length and alphabet of id.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("match id must be %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("match id must start with 0-7, got %q", id[0])
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return fmt.Errorf("invalid character %q at position %d", id[i], i)
		}
	}
	return nil
}

// Time returns the creation time embedded in id, to the millisecond.
func Time(id string) (time.Time, error) {
	u, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	if u.Version() != 7 {
		return time.Time{}, fmt.Errorf("match id is a version %d uuid", u.Version())
	}
	var ms [8]byte
	copy(ms[2:], u[:6])
	return time.UnixMilli(int64(binary.BigEndian.Uint64(ms[:]))), nil
}
