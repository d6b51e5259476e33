package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/talentloop/talentsync/internal/sync/formatter"
)

// FormatterRepository persists mapping-based formatter specs. The in-memory
// formatter.Registry is the hot path; this repository is the durable copy
// loaded at startup and written through on changes.
type FormatterRepository interface {
	Create(spec formatter.Spec) error
	List() ([]formatter.Spec, error)
	Delete(id string) error
}

type formatterRepository struct {
	db *sql.DB
}

func NewFormatterRepository(db *sql.DB) FormatterRepository {
	return &formatterRepository{db: db}
}

func (r *formatterRepository) Create(spec formatter.Spec) error {
	mapping, err := json.Marshal(spec.Mapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT INTO sync.formatter_specs (id, resource, origin, target, mapping, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		spec.ID, spec.Resource, spec.Origin, spec.Target, mapping, spec.CreatedAt,
	)
	return err
}

func (r *formatterRepository) List() ([]formatter.Spec, error) {
	rows, err := r.db.Query(`
		SELECT id, resource, origin, target, mapping, created_at
		FROM sync.formatter_specs
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specs []formatter.Spec
	for rows.Next() {
		var spec formatter.Spec
		var mapping []byte
		if err := rows.Scan(&spec.ID, &spec.Resource, &spec.Origin, &spec.Target, &mapping, &spec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(mapping, &spec.Mapping); err != nil {
			return nil, fmt.Errorf("unmarshal mapping for spec %s: %w", spec.ID, err)
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

func (r *formatterRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM sync.formatter_specs WHERE id = $1", id)
	return err
}
