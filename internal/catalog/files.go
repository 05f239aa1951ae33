package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FindFile returns the File with the given id, or ErrNotFound.
func (g *Gateway) FindFile(ctx context.Context, id int64) (*File, error) {
	row := g.db.QueryRowContext(ctx,
		`SELECT id, name, content_hash, episode_id, access_count, created_at
		 FROM files WHERE id = ?`, id)
	return scanFile(row)
}

// FindFileByEpisodeAndName returns the File named name under episodeID, or
// ErrNotFound.
func (g *Gateway) FindFileByEpisodeAndName(ctx context.Context, episodeID int64, name string) (*File, error) {
	row := g.db.QueryRowContext(ctx,
		`SELECT id, name, content_hash, episode_id, access_count, created_at
		 FROM files WHERE episode_id = ? AND name = ?`, episodeID, name)
	return scanFile(row)
}

// ListFilesByEpisode returns every File under episodeID, ordered by id.
func (g *Gateway) ListFilesByEpisode(ctx context.Context, episodeID int64) ([]*File, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, name, content_hash, episode_id, access_count, created_at
		 FROM files WHERE episode_id = ? ORDER BY id`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list files: %w", err)
	}
	defer rows.Close()

	var out []*File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.Name, &f.ContentHash, &f.EpisodeID, &f.AccessCount, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan file: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// InsertFile creates a new File under episodeID with an empty content hash,
// or returns ErrAlreadyExists if the name is taken within that episode.
func (g *Gateway) InsertFile(ctx context.Context, episodeID int64, name string) (*File, error) {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	row := g.db.QueryRowContext(ctx,
		`INSERT INTO files (episode_id, name, content_hash) VALUES (?, ?, '')
		 RETURNING id, name, content_hash, episode_id, access_count, created_at`,
		episodeID, name)
	f, err := scanFile(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("catalog: insert file: %w", err)
	}
	return f, nil
}

// UpdateContentHash sets a File's content_hash once its first blob has been
// written. This is the empty -> hashed transition; the gateway does not
// enforce that it only happens once (see internal/fs, which only calls this
// from the offset-0-create write path).
func (g *Gateway) UpdateContentHash(ctx context.Context, id int64, hash string) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	res, err := g.db.ExecContext(ctx,
		`UPDATE files SET content_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("catalog: update content hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: update content hash: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementAccessCount bumps a File's access_count by one. It is used by the
// read path; the count is kept in the catalog across mounts and is not
// reported in any attribute reply.
func (g *Gateway) IncrementAccessCount(ctx context.Context, id int64) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	_, err := g.db.ExecContext(ctx,
		`UPDATE files SET access_count = access_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: increment access count: %w", err)
	}
	return nil
}

func scanFile(row *sql.Row) (*File, error) {
	var f File
	if err := row.Scan(&f.ID, &f.Name, &f.ContentHash, &f.EpisodeID, &f.AccessCount, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}
