package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/store"
)

func setupBadgerStore(t *testing.T) store.AssociationStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "tag-store-test-*")
	require.NoError(t, err)

	s, err := store.New(filepath.Join(tmpDir, "tags"), nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	})

	return s
}

// Both implementations must satisfy the same contract, so every test runs
// against each of them.
func forEachStore(t *testing.T, fn func(t *testing.T, s store.AssociationStore)) {
	t.Helper()

	t.Run("badger", func(t *testing.T) {
		fn(t, setupBadgerStore(t))
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, store.NewMemoryStore())
	})
}

func mustIdentifier(t *testing.T, raw string) domain.TagIdentifier {
	t.Helper()
	id, err := domain.NewTagIdentifier(raw)
	require.NoError(t, err)
	return id
}

func TestStore_SaveAndFind(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.AssociationStore) {
		ctx := context.Background()
		tag := domain.NewNfcTag(mustIdentifier(t, "04a1b2c3"))
		tag.MarkDetected()

		require.NoError(t, s.SaveTag(ctx, tag))

		found, err := s.FindByIdentifier(ctx, tag.Identifier)
		require.NoError(t, err)
		require.Equal(t, tag.Identifier, found.Identifier)
		require.Equal(t, 1, found.DetectionCount)
		require.NotNil(t, found.LastDetectedAt)
	})
}

func TestStore_FindByIdentifier_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.AssociationStore) {
		_, err := s.FindByIdentifier(context.Background(), mustIdentifier(t, "deadbeef"))
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_SaveTag_UpdatesExisting(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.AssociationStore) {
		ctx := context.Background()
		tag := domain.NewNfcTag(mustIdentifier(t, "04a1b2c3"))
		require.NoError(t, s.SaveTag(ctx, tag))

		tag.MarkDetected()
		tag.MarkDetected()
		require.NoError(t, s.SaveTag(ctx, tag))

		found, err := s.FindByIdentifier(ctx, tag.Identifier)
		require.NoError(t, err)
		require.Equal(t, 2, found.DetectionCount)

		all, err := s.ListTags(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
	})
}

func TestStore_FindByPlaylistID(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.AssociationStore) {
		ctx := context.Background()

		tag := domain.NewNfcTag(mustIdentifier(t, "04a1b2c3"))
		require.NoError(t, tag.AssociateWithPlaylist("pl-1"))
		require.NoError(t, s.SaveTag(ctx, tag))

		other := domain.NewNfcTag(mustIdentifier(t, "05ffee11"))
		require.NoError(t, s.SaveTag(ctx, other))

		found, err := s.FindByPlaylistID(ctx, "pl-1")
		require.NoError(t, err)
		require.Equal(t, tag.Identifier, found.Identifier)

		_, err = s.FindByPlaylistID(ctx, "pl-missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_FindByPlaylistID_FollowsReassociation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.AssociationStore) {
		ctx := context.Background()

		tag := domain.NewNfcTag(mustIdentifier(t, "04a1b2c3"))
		require.NoError(t, tag.AssociateWithPlaylist("pl-1"))
		require.NoError(t, s.SaveTag(ctx, tag))

		// Re-associate the same tag to a different playlist.
		require.NoError(t, tag.AssociateWithPlaylist("pl-2"))
		require.NoError(t, s.SaveTag(ctx, tag))

		found, err := s.FindByPlaylistID(ctx, "pl-2")
		require.NoError(t, err)
		require.Equal(t, tag.Identifier, found.Identifier)

		// The old binding must not resolve anymore.
		_, err = s.FindByPlaylistID(ctx, "pl-1")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_FindByPlaylistID_ClearedByDissociate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.AssociationStore) {
		ctx := context.Background()

		tag := domain.NewNfcTag(mustIdentifier(t, "04a1b2c3"))
		require.NoError(t, tag.AssociateWithPlaylist("pl-1"))
		require.NoError(t, s.SaveTag(ctx, tag))

		tag.Dissociate()
		require.NoError(t, s.SaveTag(ctx, tag))

		_, err := s.FindByPlaylistID(ctx, "pl-1")
		require.ErrorIs(t, err, store.ErrNotFound)

		// The tag record itself survives with its history intact.
		found, err := s.FindByIdentifier(ctx, tag.Identifier)
		require.NoError(t, err)
		require.False(t, found.IsAssociated())
	})
}

func TestStore_DeleteTag(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.AssociationStore) {
		ctx := context.Background()

		tag := domain.NewNfcTag(mustIdentifier(t, "04a1b2c3"))
		require.NoError(t, tag.AssociateWithPlaylist("pl-1"))
		require.NoError(t, s.SaveTag(ctx, tag))

		existed, err := s.DeleteTag(ctx, tag.Identifier)
		require.NoError(t, err)
		require.True(t, existed)

		_, err = s.FindByIdentifier(ctx, tag.Identifier)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.FindByPlaylistID(ctx, "pl-1")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_DeleteTag_Missing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.AssociationStore) {
		existed, err := s.DeleteTag(context.Background(), mustIdentifier(t, "deadbeef"))
		require.NoError(t, err)
		require.False(t, existed)
	})
}

func TestStore_ListTags(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.AssociationStore) {
		ctx := context.Background()

		all, err := s.ListTags(ctx)
		require.NoError(t, err)
		require.Empty(t, all)

		for _, raw := range []string{"04a1b2c3", "05ffee11", "cafebabe"} {
			require.NoError(t, s.SaveTag(ctx, domain.NewNfcTag(mustIdentifier(t, raw))))
		}

		all, err = s.ListTags(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)

		seen := make(map[domain.TagIdentifier]bool)
		for _, tag := range all {
			seen[tag.Identifier] = true
		}
		require.Len(t, seen, 3)
	})
}

func TestMemoryStore_CopiesOnRead(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	tag := domain.NewNfcTag(mustIdentifier(t, "04a1b2c3"))
	require.NoError(t, s.SaveTag(ctx, tag))

	found, err := s.FindByIdentifier(ctx, tag.Identifier)
	require.NoError(t, err)
	found.DetectionCount = 99

	again, err := s.FindByIdentifier(ctx, tag.Identifier)
	require.NoError(t, err)
	require.Zero(t, again.DetectionCount)
}
