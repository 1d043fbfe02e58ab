// Package domain contains the core entities of the music box: NFC tags,
// association sessions, and the playlist summaries exchanged with the catalog.
package domain

import (
	"strings"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/errors"
)

// MinTagIdentifierLength is the shortest UID the hardware can report (4 hex chars).
const MinTagIdentifierLength = 4

// TagIdentifier is the normalized unique identifier of a physical NFC tag:
// a lower-case hexadecimal string of at least four characters.
// Its value semantics make it usable directly as a map key.
type TagIdentifier string

// NewTagIdentifier validates and normalizes a raw UID string.
// The input is lower-cased; it must be at least four characters of pure
// hex. Whitespace is not cleaned here: only the hardware path strips the
// separators readers insert.
func NewTagIdentifier(raw string) (TagIdentifier, error) {
	normalized := strings.ToLower(raw)
	if normalized == "" {
		return "", errors.Validation("tag identifier is empty")
	}
	if len(normalized) < MinTagIdentifierLength {
		return "", errors.Validationf("tag identifier %q is shorter than %d characters", raw, MinTagIdentifierLength)
	}
	for _, c := range normalized {
		if !isHexDigit(c) {
			return "", errors.Validationf("tag identifier %q contains non-hex character %q", raw, c)
		}
	}
	return TagIdentifier(normalized), nil
}

// TagIdentifierFromHardware builds an identifier from a raw hardware UID dump,
// stripping the separators readers commonly insert (spaces, colons, hyphens)
// before validating.
func TagIdentifierFromHardware(raw string) (TagIdentifier, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '-', '\t':
			return -1
		}
		return r
	}, raw)
	return NewTagIdentifier(cleaned)
}

// String returns the normalized identifier.
func (t TagIdentifier) String() string {
	return string(t)
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}
