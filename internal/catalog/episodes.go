package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FindEpisode returns the Episode with the given id, or ErrNotFound.
func (g *Gateway) FindEpisode(ctx context.Context, id int64) (*Episode, error) {
	row := g.db.QueryRowContext(ctx,
		`SELECT id, name, comic_id, created_at FROM episodes WHERE id = ?`, id)
	return scanEpisode(row)
}

// FindEpisodeByComicAndName returns the Episode named name under comicID, or
// ErrNotFound.
func (g *Gateway) FindEpisodeByComicAndName(ctx context.Context, comicID int64, name string) (*Episode, error) {
	row := g.db.QueryRowContext(ctx,
		`SELECT id, name, comic_id, created_at FROM episodes WHERE comic_id = ? AND name = ?`,
		comicID, name)
	return scanEpisode(row)
}

// ListEpisodesByComic returns every Episode under comicID, ordered by id.
func (g *Gateway) ListEpisodesByComic(ctx context.Context, comicID int64) ([]*Episode, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, name, comic_id, created_at FROM episodes WHERE comic_id = ? ORDER BY id`,
		comicID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list episodes: %w", err)
	}
	defer rows.Close()

	var out []*Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.ID, &e.Name, &e.ComicID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan episode: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// InsertEpisode creates a new Episode under comicID, or returns
// ErrAlreadyExists if the name is taken within that comic.
func (g *Gateway) InsertEpisode(ctx context.Context, comicID int64, name string) (*Episode, error) {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	row := g.db.QueryRowContext(ctx,
		`INSERT INTO episodes (comic_id, name) VALUES (?, ?)
		 RETURNING id, name, comic_id, created_at`,
		comicID, name)
	e, err := scanEpisode(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("catalog: insert episode: %w", err)
	}
	return e, nil
}

func scanEpisode(row *sql.Row) (*Episode, error) {
	var e Episode
	if err := row.Scan(&e.ID, &e.Name, &e.ComicID, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}
