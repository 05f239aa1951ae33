package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FindTag returns the Tag with the given id, or ErrNotFound.
func (g *Gateway) FindTag(ctx context.Context, id int64) (*Tag, error) {
	row := g.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE id = ?`, id)
	return scanTag(row)
}

// FindTagByName returns the Tag with the given name, or ErrNotFound.
func (g *Gateway) FindTagByName(ctx context.Context, name string) (*Tag, error) {
	row := g.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE name = ?`, name)
	return scanTag(row)
}

// ListTags returns every Tag, ordered by id.
func (g *Gateway) ListTags(ctx context.Context) ([]*Tag, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM tags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list tags: %w", err)
	}
	defer rows.Close()

	var out []*Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan tag: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// InsertTag creates a new Tag, or returns ErrAlreadyExists if the name is
// taken.
func (g *Gateway) InsertTag(ctx context.Context, name string) (*Tag, error) {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	row := g.db.QueryRowContext(ctx,
		`INSERT INTO tags (name) VALUES (?) RETURNING id, name, created_at`, name)
	t, err := scanTag(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("catalog: insert tag: %w", err)
	}
	return t, nil
}

func scanTag(row *sql.Row) (*Tag, error) {
	var t Tag
	if err := row.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
