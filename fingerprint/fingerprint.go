// Package fingerprint derives the content hash that ties a signature to one
// immutable version of a macro's content.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Separator joins the hashed fields. Changing it (or the field order)
// orphans every signature stored so far.
const Separator = ":"

// Length is the length of the hex encoded fingerprint
const Length = sha256.Size * 2

var validPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Fingerprint is the lowercase hex encoded sha256 digest of pageID, title and
// content
type Fingerprint string

// Compute returns the Fingerprint for the passed page id, title and content
func Compute(pageID, title, content string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(pageID))
	h.Write([]byte(Separator))
	h.Write([]byte(title))
	h.Write([]byte(Separator))
	h.Write([]byte(content))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// IsValid reports whether s is a well-formed fingerprint, i.e. exactly 64 hex
// characters. Upper case input is accepted.
func IsValid(s string) bool {
	return validPattern.MatchString(s)
}

// Parse validates s and returns it as a normalized (lowercase) Fingerprint
func Parse(s string) (Fingerprint, bool) {
	if !IsValid(s) {
		return "", false
	}
	return Fingerprint(strings.ToLower(s)), true
}

// String implements the fmt.Stringer interface
func (f Fingerprint) String() string {
	return string(f)
}

// Equal compares two fingerprints case-insensitively
func (f Fingerprint) Equal(other Fingerprint) bool {
	return strings.EqualFold(string(f), string(other))
}
