package repository

import (
	"database/sql"
	"time"

	"github.com/talentloop/talentsync/internal/models"
)

type ScheduleRepository interface {
	List() ([]*models.SyncSchedule, error)
	Get(id string) (*models.SyncSchedule, error)
	Create(s *models.SyncSchedule) (*models.SyncSchedule, error)
	Update(s *models.SyncSchedule) (*models.SyncSchedule, error)
	Delete(id string) error
	// ClaimDue advances next_run_at for enabled schedules whose time has
	// come and returns them, so exactly one poller materializes each tick.
	ClaimDue(now time.Time) ([]*models.SyncSchedule, error)
}

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `
	id, name, resource, origin_id, target_id, where_conditions, having_conditions,
	cursor_mode, sort_by, formatter_id, batch_size, interval_seconds, enabled,
	next_run_at, created_at, updated_at`

func (r *scheduleRepository) List() ([]*models.SyncSchedule, error) {
	rows, err := r.db.Query(`SELECT ` + scheduleColumns + ` FROM sync.sync_schedules ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func (r *scheduleRepository) Get(id string) (*models.SyncSchedule, error) {
	row := r.db.QueryRow(`SELECT `+scheduleColumns+` FROM sync.sync_schedules WHERE id = $1`, id)
	return scanSchedule(row)
}

func (r *scheduleRepository) Create(s *models.SyncSchedule) (*models.SyncSchedule, error) {
	err := r.db.QueryRow(`
		INSERT INTO sync.sync_schedules
			(name, resource, origin_id, target_id, where_conditions, having_conditions,
			 cursor_mode, sort_by, formatter_id, batch_size, interval_seconds, enabled, next_run_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`,
		s.Name, s.Resource, s.OriginID, s.TargetID, nullableJSON(s.Where), nullableJSON(s.Having),
		s.CursorMode, s.SortBy, s.FormatterID, s.BatchSize, int64(s.Interval/time.Second), s.Enabled, s.NextRunAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *scheduleRepository) Update(s *models.SyncSchedule) (*models.SyncSchedule, error) {
	_, err := r.db.Exec(`
		UPDATE sync.sync_schedules
		SET name = $2, resource = $3, origin_id = $4, target_id = $5,
		    where_conditions = $6, having_conditions = $7, cursor_mode = $8, sort_by = $9,
		    formatter_id = $10, batch_size = $11, interval_seconds = $12, enabled = $13,
		    next_run_at = $14, updated_at = NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Resource, s.OriginID, s.TargetID,
		nullableJSON(s.Where), nullableJSON(s.Having), s.CursorMode, s.SortBy,
		s.FormatterID, s.BatchSize, int64(s.Interval/time.Second), s.Enabled, s.NextRunAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *scheduleRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM sync.sync_schedules WHERE id = $1", id)
	return err
}

func (r *scheduleRepository) ClaimDue(now time.Time) ([]*models.SyncSchedule, error) {
	rows, err := r.db.Query(`
		UPDATE sync.sync_schedules
		SET next_run_at = $1 + (interval_seconds * interval '1 second'), updated_at = NOW()
		WHERE enabled AND next_run_at <= $1
		RETURNING `+scheduleColumns, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func collectSchedules(rows *sql.Rows) ([]*models.SyncSchedule, error) {
	var schedules []*models.SyncSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schedules, nil
}

func scanSchedule(scanner interface{ Scan(dest ...any) error }) (*models.SyncSchedule, error) {
	s := &models.SyncSchedule{}
	var (
		where           []byte
		having          []byte
		formatterID     sql.NullString
		intervalSeconds int64
	)
	err := scanner.Scan(
		&s.ID, &s.Name, &s.Resource, &s.OriginID, &s.TargetID, &where, &having,
		&s.CursorMode, &s.SortBy, &formatterID, &s.BatchSize, &intervalSeconds, &s.Enabled,
		&s.NextRunAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Where = where
	s.Having = having
	s.Interval = time.Duration(intervalSeconds) * time.Second
	if formatterID.Valid {
		s.FormatterID = &formatterID.String
	}
	return s, nil
}
