// Package ids generates external identifiers for catalog items and tickets.
//
// Identifiers combine a millisecond timestamp with a small random component,
// rendered in base 36. Uniqueness is best-effort, not cryptographic; the
// database's unique indexes are the final arbiter.
package ids

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// New generates an identifier with the given prefix, e.g. "t" for tickets.
func New(prefix string) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	rnd := strconv.FormatInt(int64(rand.IntN(9000)+1000), 36)
	return prefix + ts + rnd
}

// FromName derives an item identifier from its name: the first four letters
// (A-Z only, uppercased, padded with 'X') followed by four random digits.
func FromName(name string) string {
	var letters []rune
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
			if len(letters) == 4 {
				break
			}
		}
	}
	for len(letters) < 4 {
		letters = append(letters, 'X')
	}
	return string(letters) + strconv.Itoa(rand.IntN(9000)+1000)
}

// Disambiguate appends a timestamp suffix to an identifier that collided
// with an existing record. There is no second-level retry; a repeat
// collision surfaces as a unique-constraint error from storage.
func Disambiguate(id string) string {
	return id + "-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// DefaultCode derives an item code from its identifier when none was given.
func DefaultCode(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[:4] + "-" + id[4:]
}
