package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNfcTag(t *testing.T) {
	id, err := NewTagIdentifier("04a1b2c3")
	require.NoError(t, err)

	tag := NewNfcTag(id)

	require.NotNil(t, tag)
	assert.Equal(t, id, tag.Identifier)
	assert.Empty(t, tag.AssociatedPlaylistID)
	assert.Nil(t, tag.LastDetectedAt)
	assert.Equal(t, 0, tag.DetectionCount)
	assert.False(t, tag.CreatedAt.IsZero())
	assert.False(t, tag.IsAssociated())
}

func TestNfcTag_MarkDetected(t *testing.T) {
	id, _ := NewTagIdentifier("04a1b2c3")
	tag := NewNfcTag(id)

	for i := 1; i <= 5; i++ {
		tag.MarkDetected()
		assert.Equal(t, i, tag.DetectionCount)
		require.NotNil(t, tag.LastDetectedAt)
	}
}

func TestNfcTag_AssociateWithPlaylist(t *testing.T) {
	id, _ := NewTagIdentifier("04a1b2c3")
	tag := NewNfcTag(id)

	require.NoError(t, tag.AssociateWithPlaylist("pl-1"))
	assert.Equal(t, "pl-1", tag.AssociatedPlaylistID)
	assert.True(t, tag.IsAssociated())

	// Re-association overwrites the previous binding.
	require.NoError(t, tag.AssociateWithPlaylist("pl-2"))
	assert.Equal(t, "pl-2", tag.AssociatedPlaylistID)
}

func TestNfcTag_AssociateWithPlaylist_EmptyID(t *testing.T) {
	id, _ := NewTagIdentifier("04a1b2c3")
	tag := NewNfcTag(id)

	err := tag.AssociateWithPlaylist("")
	require.Error(t, err)
	assert.False(t, tag.IsAssociated())
}

func TestNfcTag_Dissociate(t *testing.T) {
	id, _ := NewTagIdentifier("04a1b2c3")
	tag := NewNfcTag(id)
	require.NoError(t, tag.AssociateWithPlaylist("pl-1"))

	tag.Dissociate()

	assert.Empty(t, tag.AssociatedPlaylistID)
	assert.False(t, tag.IsAssociated())
}
