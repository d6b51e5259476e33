package models

import "time"

// ConnectorKind names the adapter implementation behind an endpoint.
const (
	ConnectorKindHrflow    = "hrflow"
	ConnectorKindWarehouse = "warehouse"
)

// ConnectorEndpoint is a stored, addressable connector instance: the kind
// of adapter plus the settings it needs to reach the backing system. The
// secret is encrypted at rest and never serialized back to clients.
type ConnectorEndpoint struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Kind      string    `json:"kind" db:"kind"`
	BaseURL   string    `json:"base_url,omitempty" db:"base_url"` // HTTP adapters
	DSN       string    `json:"dsn,omitempty" db:"-"`             // SQL adapters, plaintext input only
	Secret    string    `json:"secret,omitempty" db:"-"`          // API key, plaintext input only
	Status    string    `json:"status" db:"status"`               // enum: valid, invalid, untested
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func IsValidConnectorKind(kind string) bool {
	return kind == ConnectorKindHrflow || kind == ConnectorKindWarehouse
}
