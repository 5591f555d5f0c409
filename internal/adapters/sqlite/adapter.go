// Package sqlite provides a SQLite-backed implementation of the catalog repository port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/core/ports"
)

// featureColumns are the audio feature columns in domain.FeatureNames order.
var featureColumns = domain.FeatureNames

// Adapter implements the catalog repository port for SQLite
type Adapter struct {
	db *sql.DB
}

var _ ports.CatalogRepository = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// One connection: ":memory:" databases are per connection, and sqlite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}

	// Auto-migrate on startup
	if err := adapter.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// ListTracks returns every analyzed track in insertion order. Tracks saved
// without features are skipped.
func (a *Adapter) ListTracks(ctx context.Context) ([]domain.Track, error) {
	query := fmt.Sprintf(`
		SELECT id, title, artist, artists, album, preview_url, %s
		FROM tracks
		WHERE energy IS NOT NULL
		ORDER BY rowid ASC
	`, strings.Join(featureColumns, ", "))

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []domain.Track
	for rows.Next() {
		var (
			track      domain.Track
			artists    sql.NullString
			album      sql.NullString
			previewURL sql.NullString
		)
		features := make(domain.Vector, len(featureColumns))
		dest := []any{&track.ID, &track.Title, &track.Artist, &artists, &album, &previewURL}
		for i := range features {
			dest = append(dest, &features[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}

		if artists.Valid && artists.String != "" {
			if err := json.Unmarshal([]byte(artists.String), &track.Artists); err != nil {
				return nil, fmt.Errorf("failed to decode artists of %s: %w", track.ID, err)
			}
		}
		if album.Valid {
			track.Album = album.String
		}
		if previewURL.Valid {
			track.PreviewURL = previewURL.String
		}
		track.Features = features
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracks: %w", err)
	}

	return tracks, nil
}

// SaveTracks upserts tracks in one transaction. Re-saving a track keeps its
// original position in the catalog order.
func (a *Adapter) SaveTracks(ctx context.Context, tracks []domain.Track) error {
	// 1. Start Transaction
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // auto-rollback if we error before commit

	// 2. Prepare the upsert once
	updates := make([]string, 0, len(featureColumns)+5)
	for _, col := range append([]string{"title", "artist", "artists", "album", "preview_url"}, featureColumns...) {
		updates = append(updates, fmt.Sprintf("%s=excluded.%s", col, col))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", 6+len(featureColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO tracks (id, title, artist, artists, album, preview_url, %s)
		VALUES (%s)
		ON CONFLICT(id) DO UPDATE SET %s;
	`, strings.Join(featureColumns, ", "), placeholders, strings.Join(updates, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare track upsert: %w", err)
	}
	defer stmt.Close()

	// 3. Upsert Tracks
	for _, t := range tracks {
		if t.ID == "" {
			return fmt.Errorf("failed to save track %q: empty id", t.Title)
		}
		if len(t.Features) != 0 && len(t.Features) != len(featureColumns) {
			return fmt.Errorf("failed to save track %s: %d features, want %d", t.ID, len(t.Features), len(featureColumns))
		}

		artists, err := json.Marshal(t.Artists)
		if err != nil {
			return fmt.Errorf("failed to encode artists of %s: %w", t.ID, err)
		}
		args := []any{t.ID, t.Title, t.Artist, string(artists), t.Album, t.PreviewURL}
		for i := range featureColumns {
			if len(t.Features) == 0 {
				args = append(args, nil)
				continue
			}
			args = append(args, t.Features[i])
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to save track %s: %w", t.ID, err)
		}
	}

	// 4. Commit Transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}

	return nil
}

// CountTracks returns how many analyzed tracks are stored.
func (a *Adapter) CountTracks(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracks WHERE energy IS NOT NULL").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}

// HasTrack reports whether a track with id is stored, analyzed or not.
func (a *Adapter) HasTrack(ctx context.Context, id string) (bool, error) {
	var one int
	err := a.db.QueryRowContext(ctx, "SELECT 1 FROM tracks WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up track %s: %w", id, err)
	}
	return true, nil
}

func (a *Adapter) migrate() error {
	columns := make([]string, len(featureColumns))
	for i, col := range featureColumns {
		columns[i] = col + " REAL"
	}
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		artists TEXT,
		album TEXT,
		preview_url TEXT,
		%s,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`, strings.Join(columns, ",\n\t\t"))
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// Databases created before a column existed get it added in place.
	for _, col := range append([]string{"artists TEXT", "preview_url TEXT"}, columns...) {
		if _, err := a.db.Exec("ALTER TABLE tracks ADD COLUMN " + col); err != nil {
			if !isDuplicateColumnError(err) {
				return err
			}
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
