package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/talentloop/talentsync/internal/sync/binder"
	"github.com/talentloop/talentsync/internal/sync/engine"
	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
	"github.com/talentloop/talentsync/internal/sync/unified"
)

// Connector reads and writes unified-shaped documents in a Postgres
// warehouse. Records live as JSONB docs with the key and both watermarks
// extracted to indexed columns, so cursor pagination and the common
// predicates stay on real columns while everything else goes through the
// doc.
type Connector struct {
	name string
	db   *sql.DB
}

// New wraps an already opened database handle.
func New(name string, db *sql.DB) *Connector {
	return &Connector{name: name, db: db}
}

// Open connects to the warehouse and verifies the connection.
func Open(name, dsn string) (*Connector, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open warehouse database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping warehouse database")
	}
	return New(name, db), nil
}

// EnsureSchema creates the warehouse tables when they do not exist yet.
// Idempotent; called once at connector construction.
func (c *Connector) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS talent`,
		`CREATE TABLE IF NOT EXISTS talent.jobs (
			key        TEXT PRIMARY KEY,
			doc        JSONB NOT NULL,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS talent.profiles (
			key        TEXT PRIMARY KEY,
			doc        JSONB NOT NULL,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS jobs_updated_at_idx ON talent.jobs (updated_at, key)`,
		`CREATE INDEX IF NOT EXISTS profiles_updated_at_idx ON talent.profiles (updated_at, key)`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "ensure warehouse schema")
		}
	}
	return nil
}

func (c *Connector) Close() error { return c.db.Close() }

func (c *Connector) Name() string { return c.name }

func (c *Connector) RecordType(resource filter.Resource) *schema.RecordType {
	return recordType(resource)
}

func (c *Connector) ReadBatch(ctx context.Context, resource filter.Resource, prefilters []filter.Condition, cursor filter.Cursor, batchSize int) ([]filter.Record, filter.Cursor, error) {
	cursor = cursor.WithDefaults()
	rt := recordType(resource)

	cursorField, _, ok := rt.CursorField(cursor.Mode)
	if !ok {
		return nil, cursor, fmt.Errorf("resource %q has no field serving cursor mode %q", resource, cursor.Mode)
	}
	dir := "ASC"
	if cursor.SortBy == filter.SortDesc {
		dir = "DESC"
	}

	// A composite bound carries the key tiebreak of the last served row
	// and is applied here as a strict row comparison; the binder only
	// sees plain watermarks.
	bindCursor := cursor
	startWatermark, startKey, composite := splitKeyset(cursor.Start)
	if composite {
		bindCursor.Start = ""
	}
	params, err := binder.Bind(rt, prefilters, &bindCursor, "")
	if err != nil {
		return nil, cursor, err
	}

	where, args, err := buildWhere(params)
	if err != nil {
		return nil, cursor, err
	}
	for _, pred := range containsPredicates(rt, prefilters, &args) {
		where = append(where, pred)
	}
	if composite {
		where = append(where, keysetPredicate(columnExpr(cursorField.Name), dir, startWatermark, startKey, &args))
	}

	var sb strings.Builder
	sb.WriteString("SELECT doc FROM " + tableName(resource))
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, batchSize)
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s, key %s LIMIT $%d",
		columnExpr(cursorField.Name), dir, dir, len(args)))

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, cursor, errors.Wrapf(err, "query %s", tableName(resource))
	}
	defer rows.Close()

	var records []filter.Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, cursor, errors.Wrap(err, "scan warehouse row")
		}
		var rec filter.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, cursor, errors.Wrap(err, "decode warehouse doc")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, cursor, errors.Wrap(err, "iterate warehouse rows")
	}

	next := cursor
	if len(records) > 0 {
		last := records[len(records)-1]
		if v, ok := last.Lookup(cursorField.Name); ok && v != nil {
			key, _ := last["key"].(string)
			next.End = encodeKeyset(fmt.Sprint(v), key)
		}
	}
	return records, next, nil
}

func (c *Connector) WriteBatch(ctx context.Context, resource filter.Resource, records []filter.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin warehouse write")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+tableName(resource)+` (key, doc, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, '')::timestamptz, NULLIF($4, '')::timestamptz)
		ON CONFLICT (key) DO UPDATE
		SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return errors.Wrap(err, "prepare warehouse upsert")
	}
	defer stmt.Close()

	for _, rec := range records {
		key, err := c.ResourceID(resource, rec)
		if err != nil {
			return err
		}
		doc, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, "encode warehouse doc")
		}
		if _, err := stmt.ExecContext(ctx, key, doc, stringAt(rec, "created_at"), stringAt(rec, "updated_at")); err != nil {
			return errors.Wrapf(err, "upsert %s %q", resource, key)
		}
	}
	return errors.Wrap(tx.Commit(), "commit warehouse write")
}

func (c *Connector) ResourceID(resource filter.Resource, rec filter.Record) (string, error) {
	key, _ := rec["key"].(string)
	if key == "" {
		return "", fmt.Errorf("%s record has no key", resource)
	}
	return key, nil
}

// notifyPayload is the shape emitted by Postgres triggers or an outbox
// relay watching the warehouse tables.
type notifyPayload struct {
	Table      string `json:"table"`
	Op         string `json:"op"`
	Key        string `json:"key"`
	OccurredAt string `json:"occurred_at"`
}

func (c *Connector) ParseEvent(resource filter.Resource, raw []byte) (*engine.Event, error) {
	var p notifyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "decode warehouse event")
	}
	if p.Table != string(resource)+"s" || p.Key == "" {
		return nil, nil
	}
	return &engine.Event{
		EventID:    p.Op + ":" + p.Key + ":" + p.OccurredAt,
		ResourceID: p.Key,
		Type:       p.Op,
	}, nil
}

func (c *Connector) FetchByEvents(ctx context.Context, resource filter.Resource, events []engine.Event) ([]filter.Record, error) {
	if len(events) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.ResourceID != "" {
			keys = append(keys, ev.ResourceID)
		}
	}
	rows, err := c.db.QueryContext(ctx,
		"SELECT doc FROM "+tableName(resource)+" WHERE key = ANY($1) ORDER BY key",
		pq.Array(keys))
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s by keys", resource)
	}
	defer rows.Close()

	var records []filter.Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "scan warehouse row")
		}
		var rec filter.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, errors.Wrap(err, "decode warehouse doc")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// The warehouse stores records in the unified shape already, so both
// conversions are a construct against the target type.

func (c *Connector) ToUnified(resource filter.Resource, rec filter.Record) (filter.Record, error) {
	return unified.ByResource(resource).Construct(rec)
}

func (c *Connector) FromUnified(resource filter.Resource, rec filter.Record) (filter.Record, error) {
	return recordType(resource).Construct(rec)
}

func stringAt(rec filter.Record, field string) string {
	if v, ok := rec[field].(string); ok {
		return v
	}
	return ""
}
