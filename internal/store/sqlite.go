package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/joanne1229/DressToWeather/internal/domain"
)

// SQLiteRepo implements Persister using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

var _ Persister = (*SQLiteRepo)(nil)

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// SavePreference inserts or replaces the preference row for p.UserID.
func (r *SQLiteRepo) SavePreference(ctx context.Context, p domain.UserPreference) error {
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preferences (
			user_id, user_name, location, preferred_time, channel_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			user_name      = excluded.user_name,
			location       = excluded.location,
			preferred_time = excluded.preferred_time,
			channel_id     = excluded.channel_id,
			updated_at     = excluded.updated_at`,
		p.UserID, p.UserName, p.Location, p.PreferredTime.String(),
		toNullInt64(p.ChannelID), updated.UTC().Unix(),
	)
	return err
}

// DeletePreference removes the row for userID; a missing row is not an error.
func (r *SQLiteRepo) DeletePreference(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM preferences WHERE user_id = ?`, userID)
	return err
}

// LoadPreferences returns every stored preference ordered by user id.
// Rows whose time no longer parses are skipped.
func (r *SQLiteRepo) LoadPreferences(ctx context.Context) ([]domain.UserPreference, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, user_name, location, preferred_time, channel_id, updated_at
		FROM preferences
		ORDER BY user_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.UserPreference
	for rows.Next() {
		var (
			userID    int64
			userName  string
			location  string
			clock     string
			channelNS sql.NullInt64
			updatedAt int64
		)
		if err := rows.Scan(&userID, &userName, &location, &clock, &channelNS, &updatedAt); err != nil {
			return nil, err
		}
		at, err := domain.ParseTimeOfDay(clock)
		if err != nil {
			continue
		}
		res = append(res, domain.UserPreference{
			UserID:        userID,
			UserName:      userName,
			Location:      location,
			PreferredTime: at,
			ChannelID:     fromNullInt64(channelNS),
			UpdatedAt:     time.Unix(updatedAt, 0).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
