package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"autoparts-orders/internal/models"
)

// LegacyStore is the adapter over the legacy flat order store. It speaks
// the legacy schema (ordrhead, packed line data, two-digit status codes);
// nothing outside this package assumes those field names.
type LegacyStore struct {
	db *sqlx.DB
}

// NewLegacyStore connects to the legacy database.
func NewLegacyStore(databaseURL string) (*LegacyStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to legacy store: %w", err)
	}

	// The legacy side tolerates far less concurrency than the modern one.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping legacy store: %w", err)
	}

	return &LegacyStore{db: db}, nil
}

// Close closes the database connection
func (s *LegacyStore) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *LegacyStore) GetDB() *sqlx.DB {
	return s.db
}

// Create inserts a flat order row and returns the legacy order number.
func (s *LegacyStore) Create(ctx context.Context, row *models.LegacyOrderRow) (int64, error) {
	query := `
		INSERT INTO ordrhead (xref_unified, xref_modern, custno, statcd, amt_ht, amt_ttc, amt_tax, shipfee, linect, linedata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ordno, crtdt`

	if err := s.db.QueryRowxContext(ctx, query,
		row.XrefUnified, row.XrefModern, row.CustNo, row.StatCd,
		row.AmtHT, row.AmtTTC, row.AmtTax, row.ShipFee,
		row.LineCt, row.LineData,
	).Scan(&row.OrdNo, &row.CrtDt); err != nil {
		return 0, fmt.Errorf("failed to insert legacy order: %w", err)
	}
	return row.OrdNo, nil
}

// GetByID retrieves a legacy row by order number.
func (s *LegacyStore) GetByID(ctx context.Context, ordNo int64) (*models.LegacyOrderRow, error) {
	var row models.LegacyOrderRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM ordrhead WHERE ordno = $1", ordNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByUnifiedRef retrieves a legacy row by the unified cross-reference.
func (s *LegacyStore) GetByUnifiedRef(ctx context.Context, unifiedID string) (*models.LegacyOrderRow, error) {
	var row models.LegacyOrderRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM ordrhead WHERE xref_unified = $1", unifiedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateStatus sets the native status code on a legacy row.
func (s *LegacyStore) UpdateStatus(ctx context.Context, ordNo int64, statCd string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE ordrhead SET statcd = $1 WHERE ordno = $2",
		statCd, ordNo)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

// MapToLegacyRow builds the flat legacy row from a unified order. This is
// the single place that knows both schemas: amounts become fixed-point
// strings, lines get packed, and the unified/modern ids land in the xref
// columns so the row stays traceable.
func MapToLegacyRow(order *models.UnifiedOrder, modernID int64, statCd string) *models.LegacyOrderRow {
	row := &models.LegacyOrderRow{
		XrefUnified: order.UnifiedID,
		XrefModern:  modernID,
		CustNo:      order.CustomerID,
		StatCd:      statCd,
		LineCt:      len(order.Lines),
		LineData:    PackLineData(order.Lines),
	}
	if s := order.TaxSummary; s != nil {
		row.AmtHT = s.TotalHT.StringFixed(2)
		row.AmtTTC = s.TotalTTC.StringFixed(2)
		row.AmtTax = s.TotalTax.StringFixed(2)
		row.ShipFee = s.ShippingHT.StringFixed(2)
	}
	return row
}

// PackLineData serializes order lines into the legacy "ref*qty*price"
// pipe-separated format.
func PackLineData(lines []models.OrderLineInput) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = fmt.Sprintf("%s*%d*%s", line.ProductRef, line.Quantity, line.UnitPriceHT.StringFixed(2))
	}
	return strings.Join(parts, "|")
}
