package repository

import (
	"database/sql"
	"errors"

	"github.com/talentloop/talentsync/internal/sync/filter"
)

// CursorRepository persists the incremental-sync watermark per
// origin/target/resource triple. The engine never persists cursors itself;
// run executors load before a pull and save the committed cursor after.
type CursorRepository interface {
	Load(originID, targetID, resource string) (filter.Cursor, bool, error)
	Save(originID, targetID, resource string, cursor filter.Cursor) error
}

type cursorRepository struct {
	db *sql.DB
}

func NewCursorRepository(db *sql.DB) CursorRepository {
	return &cursorRepository{db: db}
}

func (r *cursorRepository) Load(originID, targetID, resource string) (filter.Cursor, bool, error) {
	var cursor filter.Cursor
	err := r.db.QueryRow(`
		SELECT cursor_mode, cursor_start, cursor_end, sort_by
		FROM sync.cursors
		WHERE origin_id = $1 AND target_id = $2 AND resource = $3`,
		originID, targetID, resource,
	).Scan(&cursor.Mode, &cursor.Start, &cursor.End, &cursor.SortBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filter.Cursor{}, false, nil
		}
		return filter.Cursor{}, false, err
	}
	return cursor, true, nil
}

func (r *cursorRepository) Save(originID, targetID, resource string, cursor filter.Cursor) error {
	_, err := r.db.Exec(`
		INSERT INTO sync.cursors (origin_id, target_id, resource, cursor_mode, cursor_start, cursor_end, sort_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (origin_id, target_id, resource)
		DO UPDATE SET cursor_mode = $4, cursor_start = $5, cursor_end = $6, sort_by = $7, updated_at = NOW()`,
		originID, targetID, resource, cursor.Mode, cursor.Start, cursor.End, cursor.SortBy,
	)
	return err
}
