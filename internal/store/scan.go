package store

import (
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/navgraph/internal/models"
)

// scanParcel decodes one (id, data, updated_at) row. A document that does not
// decode is reported as a *models.DataError so callers can skip it.
func scanParcel(row pgx.Row) (*models.Parcel, error) {
	var (
		id        string
		data      []byte
		updatedAt time.Time
	)

	if err := row.Scan(&id, &data, &updatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context.
	}

	var p models.Parcel
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &models.DataError{ParcelID: id, Reason: "undecodable document: " + err.Error()}
	}

	// The row key is authoritative.
	p.ID = id
	p.UpdatedAt = &updatedAt

	return &p, nil
}
