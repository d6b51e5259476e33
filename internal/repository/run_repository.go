package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/talentloop/talentsync/internal/models"
)

type RunRepository interface {
	Create(run *models.SyncRun) (*models.SyncRun, error)
	Get(id string) (*models.SyncRun, error)
	List(limit int) ([]*models.SyncRun, error)
	// ClaimPending atomically claims the oldest pending run for execution.
	// Returns nil when nothing is pending.
	ClaimPending(ctx context.Context) (*models.SyncRun, error)
	MarkRunning(id string) error
	Complete(run *models.SyncRun) error
	Stats(since time.Time) (models.SyncRunStat, error)
}

type runRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) RunRepository {
	return &runRepository{db: db}
}

const runColumns = `
	id, schedule_id, kind, resource, origin_id, target_id, status, dry_run,
	where_conditions, having_conditions, cursor_start, cursor_mode, sort_by,
	formatter_id, batch_size, push_mode, events, records,
	batches, total_fetched, total_written, total_events,
	skipped_having, skipped_missing, item_errors, error_message, cursor_end,
	created_at, updated_at, started_at, completed_at`

func (r *runRepository) Create(run *models.SyncRun) (*models.SyncRun, error) {
	if run.Status == "" {
		run.Status = models.SyncRunStatusPending
	}
	err := r.db.QueryRow(`
		INSERT INTO sync.sync_runs
			(schedule_id, kind, resource, origin_id, target_id, status, dry_run,
			 where_conditions, having_conditions, cursor_start, cursor_mode, sort_by,
			 formatter_id, batch_size, push_mode, events, records)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`,
		run.ScheduleID, run.Kind, run.Resource, run.OriginID, run.TargetID, run.Status, run.DryRun,
		nullableJSON(run.Where), nullableJSON(run.Having), run.CursorStart, run.CursorMode, run.SortBy,
		run.FormatterID, run.BatchSize, run.PushMode, nullableJSON(run.Events), nullableJSON(run.Records),
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *runRepository) Get(id string) (*models.SyncRun, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM sync.sync_runs WHERE id = $1`, id)
	return scanRun(row)
}

func (r *runRepository) List(limit int) ([]*models.SyncRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT `+runColumns+`
		FROM sync.sync_runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *runRepository) ClaimPending(ctx context.Context) (*models.SyncRun, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `
		SELECT id
		FROM sync.sync_runs
		WHERE status = 'pending'
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1`).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE sync.sync_runs
		SET status = 'running', started_at = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING `+runColumns, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

func (r *runRepository) MarkRunning(id string) error {
	_, err := r.db.Exec(`
		UPDATE sync.sync_runs
		SET status = 'running', started_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

func (r *runRepository) Complete(run *models.SyncRun) error {
	_, err := r.db.Exec(`
		UPDATE sync.sync_runs
		SET status = $2, batches = $3, total_fetched = $4, total_written = $5,
		    total_events = $6, skipped_having = $7, skipped_missing = $8,
		    item_errors = $9, error_message = $10, cursor_end = $11,
		    completed_at = NOW(), updated_at = NOW()
		WHERE id = $1`,
		run.ID, run.Status, run.Batches, run.TotalFetched, run.TotalWritten,
		run.TotalEvents, run.SkippedHaving, run.SkippedMissing,
		nullableJSON(run.ItemErrors), run.ErrorMessage, run.CursorEnd,
	)
	return err
}

func (r *runRepository) Stats(since time.Time) (models.SyncRunStat, error) {
	var stat models.SyncRunStat

	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'succeeded'),
		       COUNT(*) FILTER (WHERE status = 'failed'),
		       COUNT(*) FILTER (WHERE status = 'running'),
		       COALESCE(SUM(total_written), 0)
		FROM sync.sync_runs
		WHERE created_at >= $1`, since,
	).Scan(&stat.Total, &stat.Succeeded, &stat.Failed, &stat.Running, &stat.TotalWritten)
	if err != nil {
		return stat, err
	}
	if stat.Total > 0 {
		stat.SuccessRate = float64(stat.Succeeded) / float64(stat.Total)
	}

	rows, err := r.db.Query(`
		SELECT date_trunc('day', created_at) AS day,
		       COUNT(*) FILTER (WHERE status = 'succeeded'),
		       COUNT(*) FILTER (WHERE status = 'failed'),
		       COUNT(*) FILTER (WHERE status = 'running'),
		       COUNT(*) FILTER (WHERE status = 'pending')
		FROM sync.sync_runs
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day`, since)
	if err != nil {
		return stat, err
	}
	defer rows.Close()

	for rows.Next() {
		var day models.SyncRunStatDay
		if err := rows.Scan(&day.Day, &day.Succeeded, &day.Failed, &day.Running, &day.Pending); err != nil {
			return stat, err
		}
		stat.PerDay = append(stat.PerDay, day)
	}
	return stat, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*models.SyncRun, error) {
	run := &models.SyncRun{}
	var (
		scheduleID   sql.NullString
		where        []byte
		havingRaw    []byte
		formatterID  sql.NullString
		eventsRaw    []byte
		recordsRaw   []byte
		itemErrors   []byte
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)
	err := scanner.Scan(
		&run.ID, &scheduleID, &run.Kind, &run.Resource, &run.OriginID, &run.TargetID,
		&run.Status, &run.DryRun,
		&where, &havingRaw, &run.CursorStart, &run.CursorMode, &run.SortBy,
		&formatterID, &run.BatchSize, &run.PushMode, &eventsRaw, &recordsRaw,
		&run.Batches, &run.TotalFetched, &run.TotalWritten, &run.TotalEvents,
		&run.SkippedHaving, &run.SkippedMissing, &itemErrors, &errorMessage, &run.CursorEnd,
		&run.CreatedAt, &run.UpdatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Where = where
	run.Having = havingRaw
	run.Events = eventsRaw
	run.Records = recordsRaw
	run.ItemErrors = itemErrors
	if scheduleID.Valid {
		run.ScheduleID = &scheduleID.String
	}
	if formatterID.Valid {
		run.FormatterID = &formatterID.String
	}
	if errorMessage.Valid {
		run.ErrorMessage = &errorMessage.String
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
