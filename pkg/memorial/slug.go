package memorial

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"unicode"
)

// slugSuffixBytes controls the length of the random disambiguating suffix
// (2 bytes = 4 hex characters).
const slugSuffixBytes = 2

// NewSlug derives a unique, URL-safe identifier from a display name.
//
// The name is lowercased, runs of non-alphanumeric characters collapse to a
// single hyphen, and a short random suffix is appended so two memorials for
// the same name never collide. Uniqueness is ultimately guaranteed by the
// profiles_slug index; on the (rare) collision the caller regenerates.
func NewSlug(displayName string) string {
	base := slugify(displayName)
	if base == "" {
		base = "memorial"
	}
	return base + "-" + randomSuffix()
}

func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

func randomSuffix() string {
	buf := make([]byte, slugSuffixBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a fixed suffix and let the slug index disambiguate.
		return "0000"
	}
	return hex.EncodeToString(buf)
}
