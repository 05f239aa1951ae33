package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FindTaggable returns the Taggable with the given id, or ErrNotFound.
func (g *Gateway) FindTaggable(ctx context.Context, id int64) (*Taggable, error) {
	row := g.db.QueryRowContext(ctx,
		`SELECT id, tag_id, target_kind, target_id, created_at FROM taggables WHERE id = ?`, id)
	return scanTaggable(row)
}

// ListTaggablesByTag returns every Taggable bound to tagID, ordered by id.
func (g *Gateway) ListTaggablesByTag(ctx context.Context, tagID int64) ([]*Taggable, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, tag_id, target_kind, target_id, created_at
		 FROM taggables WHERE tag_id = ? ORDER BY id`, tagID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list taggables: %w", err)
	}
	defer rows.Close()

	var out []*Taggable
	for rows.Next() {
		var tg Taggable
		var kind string
		if err := rows.Scan(&tg.ID, &tg.TagID, &kind, &tg.TargetID, &tg.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan taggable: %w", err)
		}
		tg.TargetKind = TargetKind(kind)
		out = append(out, &tg)
	}
	return out, rows.Err()
}

// InsertTaggable binds tagID to the given target. Unlike the other entity
// tables, taggables has no uniqueness constraint (the same entity may be
// tagged more than once under different tags, and the reference
// implementation never deduplicates within one tag either), so this never
// returns ErrAlreadyExists.
func (g *Gateway) InsertTaggable(ctx context.Context, tagID int64, targetKind TargetKind, targetID int64) (*Taggable, error) {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	row := g.db.QueryRowContext(ctx,
		`INSERT INTO taggables (tag_id, target_kind, target_id) VALUES (?, ?, ?)
		 RETURNING id, tag_id, target_kind, target_id, created_at`,
		tagID, string(targetKind), targetID)
	return scanTaggable(row)
}

func scanTaggable(row *sql.Row) (*Taggable, error) {
	var tg Taggable
	var kind string
	if err := row.Scan(&tg.ID, &tg.TagID, &kind, &tg.TargetID, &tg.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	tg.TargetKind = TargetKind(kind)
	return &tg, nil
}
