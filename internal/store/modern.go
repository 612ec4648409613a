package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"autoparts-orders/internal/models"
)

// ModernStore is the adapter over the modern relational order store.
// It is the system of record.
type ModernStore struct {
	db *sqlx.DB
}

// NewModernStore connects to the modern database.
func NewModernStore(databaseURL string) (*ModernStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to modern store: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping modern store: %w", err)
	}

	return &ModernStore{db: db}, nil
}

// Close closes the database connection
func (s *ModernStore) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *ModernStore) GetDB() *sqlx.DB {
	return s.db
}

// CreateOrder inserts the order header and its lines in one transaction
// and returns the generated modern store id.
func (s *ModernStore) CreateOrder(ctx context.Context, rec *models.ModernOrderRecord, lines []models.ModernOrderLine) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (unified_id, customer_id, status, total_ht, total_ttc, total_tax, shipping_fee, idempotency_key, payload_fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	if err := tx.QueryRowxContext(ctx, query,
		rec.UnifiedID, rec.CustomerID, rec.NativeStatus,
		rec.TotalHT, rec.TotalTTC, rec.TotalTax, rec.ShippingFee,
		rec.IdempotencyKey, rec.PayloadFingerprint,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		// Two in-flight creates with the same key both pass the
		// pre-insert lookup; the loser surfaces here.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "idempotency_key") {
			return 0, models.ErrDuplicateIdempotencyKey
		}
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range lines {
		lines[i].OrderID = rec.ID
		if err := tx.QueryRowxContext(ctx,
			`INSERT INTO order_lines (order_id, product_ref, quantity, unit_price_ht, tax_class)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			lines[i].OrderID, lines[i].ProductRef, lines[i].Quantity,
			lines[i].UnitPriceHT, lines[i].TaxClass,
		).Scan(&lines[i].ID); err != nil {
			return 0, fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// GetByID retrieves an order by modern store id.
func (s *ModernStore) GetByID(ctx context.Context, id int64) (*models.ModernOrderRecord, error) {
	var rec models.ModernOrderRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByUnifiedID retrieves an order by unified id.
func (s *ModernStore) GetByUnifiedID(ctx context.Context, unifiedID string) (*models.ModernOrderRecord, error) {
	var rec models.ModernOrderRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM orders WHERE unified_id = $1", unifiedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByIdempotencyKey retrieves an order by idempotency key, nil when no
// order used the key yet.
func (s *ModernStore) GetByIdempotencyKey(ctx context.Context, key string) (*models.ModernOrderRecord, error) {
	var rec models.ModernOrderRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetLines retrieves all lines for an order.
func (s *ModernStore) GetLines(ctx context.Context, orderID int64) ([]models.ModernOrderLine, error) {
	var lines []models.ModernOrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// UpdateStatus updates the native status of an order.
func (s *ModernStore) UpdateStatus(ctx context.Context, id int64, nativeStatus string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		nativeStatus, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}
