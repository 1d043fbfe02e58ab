package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteCatalog is the production Catalog backed by a SQLite file.
type SQLiteCatalog struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Catalog = (*SQLiteCatalog)(nil)

// Open creates a SQLite catalog at the given path. It configures WAL mode,
// sets pragmas, and applies the schema.
func Open(path string, logger *slog.Logger) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("Playlist catalog opened", "path", path)
	}

	return &SQLiteCatalog{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// playlistColumns is the ordered list of columns selected in playlist
// queries. Must match the scan order in scanPlaylist.
const playlistColumns = `p.id, p.title, p.nfc_tag_id, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM tracks t WHERE t.playlist_id = p.id)`

func scanPlaylist(scanner interface{ Scan(dest ...any) error }) (*domain.Playlist, error) {
	var p domain.Playlist

	var (
		nfcTagID  sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&p.ID,
		&p.Title,
		&nfcTagID,
		&createdAt,
		&updatedAt,
		&p.TrackCount,
	)
	if err != nil {
		return nil, err
	}

	p.NfcTagID = nfcTagID.String
	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// CreatePlaylist inserts a new playlist.
// Returns ErrAlreadyExists on a duplicate id.
func (c *SQLiteCatalog) CreatePlaylist(ctx context.Context, p *domain.Playlist) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO playlists (id, title, nfc_tag_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID,
		p.Title,
		nullable(p.NfcTagID),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetPlaylist retrieves a playlist by id.
// Returns ErrNotFound if it does not exist.
func (c *SQLiteCatalog) GetPlaylist(ctx context.Context, playlistID string) (*domain.Playlist, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists p WHERE p.id = ?`, playlistID)

	p, err := scanPlaylist(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPlaylists returns all playlists ordered by title.
func (c *SQLiteCatalog) ListPlaylists(ctx context.Context) ([]*domain.Playlist, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists p ORDER BY p.title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []*domain.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// UpdatePlaylist updates a playlist's title and tag binding.
// Returns ErrNotFound if it does not exist.
func (c *SQLiteCatalog) UpdatePlaylist(ctx context.Context, p *domain.Playlist) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE playlists SET title = ?, nfc_tag_id = ?, updated_at = ?
		WHERE id = ?`,
		p.Title,
		nullable(p.NfcTagID),
		formatTime(time.Now()),
		p.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePlaylist removes a playlist and, via cascade, its tracks.
func (c *SQLiteCatalog) DeletePlaylist(ctx context.Context, playlistID string) (bool, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM playlists WHERE id = ?`, playlistID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddTrack appends a track to a playlist.
func (c *SQLiteCatalog) AddTrack(ctx context.Context, track *domain.Track) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO tracks (id, playlist_id, position, title, filename, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		track.ID,
		track.PlaylistID,
		track.Position,
		track.Title,
		track.Filename,
		track.DurationMs,
		formatTime(track.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return ErrNotFound
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// ListTracks returns a playlist's tracks in play order.
func (c *SQLiteCatalog) ListTracks(ctx context.Context, playlistID string) ([]*domain.Track, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, playlist_id, position, title, filename, duration_ms, created_at
		FROM tracks WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []*domain.Track
	for rows.Next() {
		var (
			t         domain.Track
			createdAt string
		)
		err := rows.Scan(&t.ID, &t.PlaylistID, &t.Position, &t.Title, &t.Filename, &t.DurationMs, &createdAt)
		if err != nil {
			return nil, err
		}
		t.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, &t)
	}
	return tracks, rows.Err()
}

// UpdateAssociation binds a playlist to a tag. The previous holder of the
// tag, if any, loses its binding in the same transaction so the UNIQUE
// constraint on nfc_tag_id is never violated.
func (c *SQLiteCatalog) UpdateAssociation(ctx context.Context, playlistID string, tagID domain.TagIdentifier) (bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := formatTime(time.Now())

	_, err = tx.ExecContext(ctx, `
		UPDATE playlists SET nfc_tag_id = NULL, updated_at = ?
		WHERE nfc_tag_id = ? AND id != ?`,
		now, tagID.String(), playlistID)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE playlists SET nfc_tag_id = ?, updated_at = ?
		WHERE id = ?`,
		tagID.String(), now, playlistID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Unknown playlist; nothing to commit.
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	if c.logger != nil {
		c.logger.Info("Catalog association updated", "playlist_id", playlistID, "tag_id", tagID.String())
	}
	return true, nil
}

// RemoveAssociation clears the binding of a tag.
func (c *SQLiteCatalog) RemoveAssociation(ctx context.Context, tagID domain.TagIdentifier) (bool, error) {
	res, err := c.db.ExecContext(ctx, `
		UPDATE playlists SET nfc_tag_id = NULL, updated_at = ?
		WHERE nfc_tag_id = ?`,
		formatTime(time.Now()), tagID.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindByTag resolves a tag to the playlist it starts.
func (c *SQLiteCatalog) FindByTag(ctx context.Context, tagID domain.TagIdentifier) (*domain.PlaylistSummary, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, title, nfc_tag_id FROM playlists WHERE nfc_tag_id = ?`,
		tagID.String())

	var (
		summary  domain.PlaylistSummary
		nfcTagID sql.NullString
	)
	err := row.Scan(&summary.ID, &summary.Title, &nfcTagID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	summary.NfcTagID = nfcTagID.String
	return &summary, nil
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses an RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
