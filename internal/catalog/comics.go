package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FindComic returns the Comic with the given id, or ErrNotFound.
func (g *Gateway) FindComic(ctx context.Context, id int64) (*Comic, error) {
	row := g.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM comics WHERE id = ?`, id)
	return scanComic(row)
}

// FindComicByName returns the Comic with the given name, or ErrNotFound.
func (g *Gateway) FindComicByName(ctx context.Context, name string) (*Comic, error) {
	row := g.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM comics WHERE name = ?`, name)
	return scanComic(row)
}

// ListComics returns every Comic, ordered by id.
func (g *Gateway) ListComics(ctx context.Context) ([]*Comic, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM comics ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list comics: %w", err)
	}
	defer rows.Close()

	var out []*Comic
	for rows.Next() {
		var c Comic
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan comic: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// InsertComic creates a new Comic, or returns ErrAlreadyExists if the name is
// taken.
func (g *Gateway) InsertComic(ctx context.Context, name string) (*Comic, error) {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	row := g.db.QueryRowContext(ctx,
		`INSERT INTO comics (name) VALUES (?) RETURNING id, name, created_at`, name)
	c, err := scanComic(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("catalog: insert comic: %w", err)
	}
	return c, nil
}

func scanComic(row *sql.Row) (*Comic, error) {
	var c Comic
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
