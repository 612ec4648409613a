package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"autoparts-orders/internal/models"
)

// LinkStore persists the reconciliation ledger. It shares the modern
// store's connection pool: the link record must survive exactly as long
// as the system of record does.
type LinkStore struct {
	db *sqlx.DB
}

// NewLinkStore creates a link store over an existing connection.
func NewLinkStore(db *sqlx.DB) *LinkStore {
	return &LinkStore{db: db}
}

// CreateLink opens a ledger entry with both writes pending.
func (s *LinkStore) CreateLink(ctx context.Context, unifiedID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO store_links (unified_id, modern_write_status, legacy_write_status)
		 VALUES ($1, $2, $3)`,
		unifiedID, models.WriteStatusPending, models.WriteStatusPending)
	if err != nil {
		return fmt.Errorf("failed to create link record: %w", err)
	}
	return nil
}

// GetLink retrieves the ledger entry for a unified id.
func (s *LinkStore) GetLink(ctx context.Context, unifiedID string) (*models.StoreLinkRecord, error) {
	var link models.StoreLinkRecord
	err := s.db.GetContext(ctx, &link,
		"SELECT * FROM store_links WHERE unified_id = $1", unifiedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// SetModernResult records the outcome of the modern write.
func (s *LinkStore) SetModernResult(ctx context.Context, unifiedID string, modernID int64, status models.WriteStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE store_links
		 SET modern_store_id = $1, modern_write_status = $2, updated_at = NOW()
		 WHERE unified_id = $3`,
		modernID, status, unifiedID)
	return err
}

// SetLegacyResult records the outcome of the legacy write. A zero
// legacyID leaves the stored id untouched so a failed status update does
// not erase the id recorded at creation.
func (s *LinkStore) SetLegacyResult(ctx context.Context, unifiedID string, legacyID int64, status models.WriteStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE store_links
		 SET legacy_store_id = CASE WHEN $1 = 0 THEN legacy_store_id ELSE $1 END,
		     legacy_write_status = $2, updated_at = NOW()
		 WHERE unified_id = $3`,
		legacyID, status, unifiedID)
	return err
}

// ClaimLegacyRetry atomically flips legacy_write_status from failed to
// pending. Returns false when the record is not in the failed state,
// which keeps concurrent retries for the same id from double-submitting.
func (s *LinkStore) ClaimLegacyRetry(ctx context.Context, unifiedID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE store_links
		 SET legacy_write_status = $1, updated_at = NOW()
		 WHERE unified_id = $2 AND legacy_write_status = $3`,
		models.WriteStatusPending, unifiedID, models.WriteStatusFailed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
