package repository

import (
	"database/sql"

	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/utils"
)

type EndpointRepository interface {
	List() ([]*models.ConnectorEndpoint, error)
	Get(id string) (*models.ConnectorEndpoint, error)
	// GetWithSecrets returns the endpoint with DSN and Secret decrypted,
	// for connector construction only. Never serialize the result.
	GetWithSecrets(id string) (*models.ConnectorEndpoint, error)
	Create(ep *models.ConnectorEndpoint) (*models.ConnectorEndpoint, error)
	Update(ep *models.ConnectorEndpoint) (*models.ConnectorEndpoint, error)
	UpdateStatus(id, status string) error
	Delete(id string) error
}

type endpointRepository struct {
	db      *sql.DB
	secrets *utils.SecretBox
}

func NewEndpointRepository(db *sql.DB, secrets *utils.SecretBox) EndpointRepository {
	return &endpointRepository{db: db, secrets: secrets}
}

func (r *endpointRepository) List() ([]*models.ConnectorEndpoint, error) {
	rows, err := r.db.Query(`
		SELECT id, name, kind, base_url, status, created_at, updated_at
		FROM sync.connector_endpoints
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []*models.ConnectorEndpoint
	for rows.Next() {
		ep := &models.ConnectorEndpoint{}
		if err := rows.Scan(&ep.ID, &ep.Name, &ep.Kind, &ep.BaseURL, &ep.Status, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return endpoints, nil
}

func (r *endpointRepository) Get(id string) (*models.ConnectorEndpoint, error) {
	ep := &models.ConnectorEndpoint{}
	err := r.db.QueryRow(`
		SELECT id, name, kind, base_url, status, created_at, updated_at
		FROM sync.connector_endpoints
		WHERE id = $1`, id).Scan(
		&ep.ID, &ep.Name, &ep.Kind, &ep.BaseURL, &ep.Status, &ep.CreatedAt, &ep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ep, nil
}

func (r *endpointRepository) GetWithSecrets(id string) (*models.ConnectorEndpoint, error) {
	ep := &models.ConnectorEndpoint{}
	var dsnEnc, secretEnc []byte
	err := r.db.QueryRow(`
		SELECT id, name, kind, base_url, dsn_encrypted, secret_encrypted, status, created_at, updated_at
		FROM sync.connector_endpoints
		WHERE id = $1`, id).Scan(
		&ep.ID, &ep.Name, &ep.Kind, &ep.BaseURL, &dsnEnc, &secretEnc, &ep.Status, &ep.CreatedAt, &ep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(dsnEnc) > 0 {
		if ep.DSN, err = r.secrets.Open(dsnEnc); err != nil {
			return nil, err
		}
	}
	if len(secretEnc) > 0 {
		if ep.Secret, err = r.secrets.Open(secretEnc); err != nil {
			return nil, err
		}
	}
	return ep, nil
}

func (r *endpointRepository) Create(ep *models.ConnectorEndpoint) (*models.ConnectorEndpoint, error) {
	dsnEnc, secretEnc, err := r.encryptEndpointSecrets(ep)
	if err != nil {
		return nil, err
	}
	err = r.db.QueryRow(`
		INSERT INTO sync.connector_endpoints (name, kind, base_url, dsn_encrypted, secret_encrypted, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		ep.Name, ep.Kind, ep.BaseURL, dsnEnc, secretEnc, ep.Status,
	).Scan(&ep.ID, &ep.CreatedAt, &ep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ep.DSN, ep.Secret = "", ""
	return ep, nil
}

func (r *endpointRepository) Update(ep *models.ConnectorEndpoint) (*models.ConnectorEndpoint, error) {
	dsnEnc, secretEnc, err := r.encryptEndpointSecrets(ep)
	if err != nil {
		return nil, err
	}
	_, err = r.db.Exec(`
		UPDATE sync.connector_endpoints
		SET name = $1, kind = $2, base_url = $3,
		    dsn_encrypted = COALESCE($4, dsn_encrypted),
		    secret_encrypted = COALESCE($5, secret_encrypted),
		    status = $6, updated_at = NOW()
		WHERE id = $7`,
		ep.Name, ep.Kind, ep.BaseURL, dsnEnc, secretEnc, ep.Status, ep.ID,
	)
	if err != nil {
		return nil, err
	}
	ep.DSN, ep.Secret = "", ""
	return ep, nil
}

func (r *endpointRepository) UpdateStatus(id, status string) error {
	_, err := r.db.Exec(`
		UPDATE sync.connector_endpoints
		SET status = $1, updated_at = NOW()
		WHERE id = $2`, status, id)
	return err
}

func (r *endpointRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM sync.connector_endpoints WHERE id = $1", id)
	return err
}

// encryptEndpointSecrets returns nil for fields the caller did not supply,
// so updates can keep the stored ciphertext.
func (r *endpointRepository) encryptEndpointSecrets(ep *models.ConnectorEndpoint) (dsn, secret []byte, err error) {
	if ep.DSN != "" {
		if dsn, err = r.secrets.Seal(ep.DSN); err != nil {
			return nil, nil, err
		}
	}
	if ep.Secret != "" {
		if secret, err = r.secrets.Seal(ep.Secret); err != nil {
			return nil, nil, err
		}
	}
	return dsn, secret, nil
}
