package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/errors"
)

func TestNewTagIdentifier_Valid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want TagIdentifier
	}{
		{"lowercase hex", "04a1b2c3", "04a1b2c3"},
		{"uppercase normalized", "04A1B2C3", "04a1b2c3"},
		{"mixed case", "DeadBeef", "deadbeef"},
		{"minimum length", "ab01", "ab01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewTagIdentifier(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestNewTagIdentifier_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"too short", "ab1"},
		{"non-hex letter", "04a1g2c3"},
		{"punctuation", "04a1-b2c3"},
		{"surrounding whitespace", " 04a1b2c3 "},
		{"interior space", "04a1 b2c3"},
		{"unicode", "04a1b2cé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTagIdentifier(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
		})
	}
}

func TestNewTagIdentifier_RoundTrip(t *testing.T) {
	// create(s) must equal create(lower(s)) for any valid input.
	inputs := []string{"04A1B2C3", "DEADBEEF", "AbCd1234"}
	for _, s := range inputs {
		upper, err := NewTagIdentifier(s)
		require.NoError(t, err)
		lower, err := NewTagIdentifier(strings.ToLower(s))
		require.NoError(t, err)
		assert.Equal(t, lower, upper)
	}
}

func TestTagIdentifierFromHardware(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want TagIdentifier
	}{
		{"colon separated", "04:A1:B2:C3", "04a1b2c3"},
		{"space separated", "04 A1 B2 C3", "04a1b2c3"},
		{"hyphen separated", "04-a1-b2-c3", "04a1b2c3"},
		{"already clean", "04a1b2c3", "04a1b2c3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := TagIdentifierFromHardware(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestTagIdentifierFromHardware_InvalidAfterCleanup(t *testing.T) {
	_, err := TagIdentifierFromHardware(": : -")
	assert.Error(t, err)

	_, err = TagIdentifierFromHardware("zz:zz")
	assert.Error(t, err)
}

func TestTagIdentifier_MapKey(t *testing.T) {
	a, _ := NewTagIdentifier("04A1B2C3")
	b, _ := NewTagIdentifier("04a1b2c3")

	seen := map[TagIdentifier]int{}
	seen[a]++
	seen[b]++
	assert.Len(t, seen, 1)
	assert.Equal(t, 2, seen[a])
}
