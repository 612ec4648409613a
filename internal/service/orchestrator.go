package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"autoparts-orders/internal/models"
	"autoparts-orders/internal/shipping"
	"autoparts-orders/internal/status"
	"autoparts-orders/internal/store"
	"autoparts-orders/internal/tax"
	"autoparts-orders/internal/util"
)

// ModernStore is the capability surface required from the modern
// (authoritative) order store.
type ModernStore interface {
	CreateOrder(ctx context.Context, rec *models.ModernOrderRecord, lines []models.ModernOrderLine) (int64, error)
	GetByUnifiedID(ctx context.Context, unifiedID string) (*models.ModernOrderRecord, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.ModernOrderRecord, error)
	GetLines(ctx context.Context, orderID int64) ([]models.ModernOrderLine, error)
	UpdateStatus(ctx context.Context, id int64, nativeStatus string) error
}

// LegacyStore is the capability surface required from the legacy store.
type LegacyStore interface {
	Create(ctx context.Context, row *models.LegacyOrderRow) (int64, error)
	UpdateStatus(ctx context.Context, ordNo int64, statCd string) error
}

// LinkStore persists the reconciliation ledger.
type LinkStore interface {
	CreateLink(ctx context.Context, unifiedID string) error
	GetLink(ctx context.Context, unifiedID string) (*models.StoreLinkRecord, error)
	SetModernResult(ctx context.Context, unifiedID string, modernID int64, status models.WriteStatus) error
	SetLegacyResult(ctx context.Context, unifiedID string, legacyID int64, status models.WriteStatus) error
	ClaimLegacyRetry(ctx context.Context, unifiedID string) (bool, error)
}

// OrderCache is the optional bounded-TTL read cache. The fingerprint
// methods are a fast path only; the orders table stays authoritative.
type OrderCache interface {
	CacheOrder(ctx context.Context, order *models.UnifiedOrder) error
	GetOrder(ctx context.Context, unifiedID string) (*models.UnifiedOrder, bool, error)
	InvalidateOrder(ctx context.Context, unifiedID string) error
	SetIdempotencyFingerprint(ctx context.Context, key, fingerprint string) error
	GetIdempotencyFingerprint(ctx context.Context, key string) (string, bool, error)
}

// EventPublisher publishes order lifecycle events.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishLegacySyncFailed(ctx context.Context, event *models.LegacySyncFailedEvent) error
	PublishLegacySyncRecovered(ctx context.Context, event *models.LegacySyncRecoveredEvent) error
}

// OrderSyncOrchestrator creates orders across the two stores and keeps
// them reconciled. Policy: fail fast on the modern store, best effort on
// the legacy one, every partial failure lands in the link ledger where
// RetryLegacySync can repair it.
type OrderSyncOrchestrator struct {
	modern     ModernStore
	legacy     LegacyStore
	links      LinkStore
	cache      OrderCache // nil when the service started degraded
	publisher  EventPublisher
	shipping   *shipping.Engine
	tax        *tax.Engine
	translator *status.Translator
	logger     *zap.Logger

	storeTimeout          time.Duration
	freeShippingThreshold decimal.Decimal
}

// Options carries the business knobs for the orchestrator.
type Options struct {
	StoreTimeout          time.Duration
	FreeShippingThreshold decimal.Decimal
}

// NewOrderSyncOrchestrator wires the orchestrator. cache may be nil.
func NewOrderSyncOrchestrator(
	modern ModernStore,
	legacy LegacyStore,
	links LinkStore,
	cache OrderCache,
	publisher EventPublisher,
	shippingEngine *shipping.Engine,
	taxEngine *tax.Engine,
	translator *status.Translator,
	opts Options,
) *OrderSyncOrchestrator {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	return &OrderSyncOrchestrator{
		modern:                modern,
		legacy:                legacy,
		links:                 links,
		cache:                 cache,
		publisher:             publisher,
		shipping:              shippingEngine,
		tax:                   taxEngine,
		translator:            translator,
		logger:                util.GetLogger(),
		storeTimeout:          opts.StoreTimeout,
		freeShippingThreshold: opts.FreeShippingThreshold,
	}
}

// CreateOrderRequest is the validated order submission.
type CreateOrderRequest struct {
	CustomerID     int64                   `json:"customer_id" binding:"required"`
	Lines          []models.OrderLineInput `json:"lines" binding:"required,min=1"`
	Destination    models.Destination      `json:"destination"`
	WeightKg       float64                 `json:"weight_kg"`
	DiscountHT     decimal.Decimal         `json:"discount_ht"`
	ServiceLevel   models.ServiceLevel     `json:"service_level,omitempty"`
	IdempotencyKey string                  `json:"idempotency_key,omitempty"`
}

// CreateOrderResponse is the order plus the write-status pair, so callers
// can detect a degraded (partially synced) creation.
type CreateOrderResponse struct {
	Order             *models.UnifiedOrder `json:"order"`
	ModernWriteStatus models.WriteStatus   `json:"modern_write_status"`
	LegacyWriteStatus models.WriteStatus   `json:"legacy_write_status"`
	Degraded          bool                 `json:"degraded"`
}

// UpdateStatusResult reports the applied transition and whether the
// legacy store took it as well.
type UpdateStatusResult struct {
	UnifiedID    string             `json:"unified_id"`
	From         models.OrderStatus `json:"from"`
	To           models.OrderStatus `json:"to"`
	LegacySynced bool               `json:"legacy_synced"`
}

// storeCtx bounds a single store call.
func (o *OrderSyncOrchestrator) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.storeTimeout)
}

// ledgerCtx is detached from the caller: bookkeeping must complete even
// when the request context is already cancelled.
func (o *OrderSyncOrchestrator) ledgerCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), o.storeTimeout)
}

// CreateOrder runs the full create flow: pure computations first, then
// the dual write. The modern store is the system of record; a legacy
// failure degrades the result instead of failing it.
func (o *OrderSyncOrchestrator) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderSyncOrchestrator.CreateOrder")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}
	fingerprint := fingerprintRequest(req)

	if resp, err := o.findExisting(ctx, req.IdempotencyKey, fingerprint); resp != nil || err != nil {
		return resp, err
	}

	// Both computations are pure, so any failure here surfaces before a
	// single store write is attempted.
	quote, err := o.shipping.Quote(ctx, shipping.QuoteRequest{
		WeightKg:              req.WeightKg,
		Destination:           req.Destination,
		OrderAmountHT:         sumLinesHT(req.Lines),
		FreeShippingThreshold: o.freeShippingThreshold,
		ServiceLevel:          req.ServiceLevel,
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_shipping").Inc()
		return nil, err
	}

	summary, err := o.tax.ComputeOrder(req.Lines, quote.FinalFee, req.DiscountHT)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_tax_input").Inc()
		return nil, err
	}

	unifiedID, err := newUnifiedID()
	if err != nil {
		return nil, err
	}

	order := &models.UnifiedOrder{
		UnifiedID:     unifiedID,
		CustomerID:    req.CustomerID,
		Lines:         req.Lines,
		TaxSummary:    summary,
		ShippingQuote: quote,
		Status:        models.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := o.openLink(ctx, unifiedID); err != nil {
		util.OrdersFailedTotal.WithLabelValues("link_ledger").Inc()
		return nil, err
	}

	modernID, err := o.writeModern(ctx, order, req.IdempotencyKey, fingerprint)
	if errors.Is(err, models.ErrDuplicateIdempotencyKey) {
		o.logger.Info("Lost duplicate-create race, serving existing order",
			zap.String("idempotency_key", req.IdempotencyKey))
		resp, lerr := o.findExisting(ctx, req.IdempotencyKey, fingerprint)
		if lerr != nil {
			return nil, lerr
		}
		if resp == nil {
			return nil, &models.StoreUnavailableError{Store: "modern", Err: err}
		}
		return resp, nil
	}
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("modern_store").Inc()
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()

	legacyStatus := o.writeLegacy(ctx, order, modernID)
	degraded := legacyStatus != models.WriteStatusOK

	o.cachePut(ctx, order)
	if o.cache != nil {
		if err := o.cache.SetIdempotencyFingerprint(ctx, req.IdempotencyKey, fingerprint); err != nil {
			o.logger.Warn("Failed to cache idempotency fingerprint", zap.Error(err))
		}
	}

	event := &models.OrderCreatedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOrderCreated),
		UnifiedID:     unifiedID,
		CustomerID:    order.CustomerID,
		ModernStoreID: modernID,
		TotalTTC:      summary.TotalTTC.StringFixed(2),
		Degraded:      degraded,
	}
	if err := o.publisher.PublishOrderCreated(ctx, event); err != nil {
		o.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return &CreateOrderResponse{
		Order:             order,
		ModernWriteStatus: models.WriteStatusOK,
		LegacyWriteStatus: legacyStatus,
		Degraded:          degraded,
	}, nil
}

// findExisting handles the duplicate-create race: a reused idempotency
// key with an equivalent payload returns the original order, a different
// payload is a conflict.
func (o *OrderSyncOrchestrator) findExisting(ctx context.Context, key, fingerprint string) (*CreateOrderResponse, error) {
	// Cached fingerprint catches a mismatched reuse without a DB read. A
	// cache miss or a matching value still goes to the database.
	if o.cache != nil {
		if cached, found, err := o.cache.GetIdempotencyFingerprint(ctx, key); err == nil && found && cached != fingerprint {
			return nil, &models.IdempotencyConflictError{Key: key}
		}
	}

	sctx, cancel := o.storeCtx(ctx)
	defer cancel()

	existing, err := o.modern.GetByIdempotencyKey(sctx, key)
	if err != nil {
		return nil, &models.StoreUnavailableError{Store: "modern", Err: err}
	}
	if existing == nil {
		return nil, nil
	}

	if existing.PayloadFingerprint != fingerprint {
		return nil, &models.IdempotencyConflictError{Key: key}
	}

	o.logger.Info("Duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.String("unified_id", existing.UnifiedID))

	order, err := o.loadUnified(ctx, existing)
	if err != nil {
		return nil, err
	}

	link, err := o.links.GetLink(ctx, existing.UnifiedID)
	if err != nil {
		return nil, err
	}

	return &CreateOrderResponse{
		Order:             order,
		ModernWriteStatus: link.ModernWriteStatus,
		LegacyWriteStatus: link.LegacyWriteStatus,
		Degraded:          link.LegacyWriteStatus != models.WriteStatusOK,
	}, nil
}

func (o *OrderSyncOrchestrator) openLink(ctx context.Context, unifiedID string) error {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()

	if err := o.links.CreateLink(sctx, unifiedID); err != nil {
		return &models.StoreUnavailableError{Store: "modern", Err: err}
	}
	return nil
}

func (o *OrderSyncOrchestrator) writeModern(ctx context.Context, order *models.UnifiedOrder, key, fingerprint string) (int64, error) {
	nativeStatus, err := o.translator.ToModern(order.Status)
	if err != nil {
		return 0, err
	}

	rec := &models.ModernOrderRecord{
		UnifiedID:          order.UnifiedID,
		CustomerID:         order.CustomerID,
		NativeStatus:       nativeStatus,
		TotalHT:            order.TaxSummary.TotalHT,
		TotalTTC:           order.TaxSummary.TotalTTC,
		TotalTax:           order.TaxSummary.TotalTax,
		ShippingFee:        order.ShippingQuote.FinalFee,
		IdempotencyKey:     key,
		PayloadFingerprint: fingerprint,
	}
	lines := make([]models.ModernOrderLine, len(order.Lines))
	for i, line := range order.Lines {
		lines[i] = models.ModernOrderLine{
			ProductRef:  line.ProductRef,
			Quantity:    line.Quantity,
			UnitPriceHT: line.UnitPriceHT,
			TaxClass:    line.TaxClass,
		}
	}

	sctx, cancel := o.storeCtx(ctx)
	defer cancel()

	start := time.Now()
	modernID, err := o.modern.CreateOrder(sctx, rec, lines)
	util.StoreWriteLatency.WithLabelValues("modern").Observe(time.Since(start).Seconds())

	lctx, lcancel := o.ledgerCtx()
	defer lcancel()

	if errors.Is(err, models.ErrDuplicateIdempotencyKey) {
		// Lost a concurrent duplicate-create race. Mark this attempt's
		// ledger row dead on both sides; the caller serves the winner.
		if lerr := o.links.SetModernResult(lctx, order.UnifiedID, 0, models.WriteStatusFailed); lerr != nil {
			o.logger.Error("Failed to record modern write failure", zap.Error(lerr))
		}
		if lerr := o.links.SetLegacyResult(lctx, order.UnifiedID, 0, models.WriteStatusFailed); lerr != nil {
			o.logger.Error("Failed to record legacy write failure", zap.Error(lerr))
		}
		return 0, err
	}
	if err != nil {
		o.logger.Error("Modern store write failed",
			zap.String("unified_id", order.UnifiedID),
			zap.Error(err))
		if lerr := o.links.SetModernResult(lctx, order.UnifiedID, 0, models.WriteStatusFailed); lerr != nil {
			o.logger.Error("Failed to record modern write failure", zap.Error(lerr))
		}
		return 0, &models.StoreUnavailableError{Store: "modern", Err: err}
	}

	if lerr := o.links.SetModernResult(lctx, order.UnifiedID, modernID, models.WriteStatusOK); lerr != nil {
		o.logger.Error("Failed to record modern write success", zap.Error(lerr))
	}
	return modernID, nil
}

// writeLegacy attempts the secondary write. It never fails the create:
// the returned status lands in the response and, on failure, the ledger
// plus a LegacySyncFailed event put the order on the reconciliation path.
// Caller cancellation reaches the legacy attempt through ctx, so it
// suppresses this write without ever undoing the modern one.
// errLegacyUnavailable marks writes skipped because the service booted
// without a legacy store connection.
var errLegacyUnavailable = errors.New("legacy store not connected")

func (o *OrderSyncOrchestrator) writeLegacy(ctx context.Context, order *models.UnifiedOrder, modernID int64) models.WriteStatus {
	if o.legacy == nil {
		return o.markLegacyFailed(order.UnifiedID, "create", errLegacyUnavailable)
	}

	statCd, err := o.translator.ToLegacy(order.Status)
	if err != nil {
		o.logger.Error("Legacy status translation failed", zap.Error(err))
		return o.markLegacyFailed(order.UnifiedID, "create", err)
	}

	row := store.MapToLegacyRow(order, modernID, statCd)

	sctx, cancel := o.storeCtx(ctx)
	defer cancel()

	start := time.Now()
	legacyID, err := o.legacy.Create(sctx, row)
	util.StoreWriteLatency.WithLabelValues("legacy").Observe(time.Since(start).Seconds())

	if err != nil {
		o.logger.Warn("Legacy store write failed, order degraded",
			zap.String("unified_id", order.UnifiedID),
			zap.Error(err))
		return o.markLegacyFailed(order.UnifiedID, "create", err)
	}

	lctx, lcancel := o.ledgerCtx()
	defer lcancel()
	if lerr := o.links.SetLegacyResult(lctx, order.UnifiedID, legacyID, models.WriteStatusOK); lerr != nil {
		o.logger.Error("Failed to record legacy write success", zap.Error(lerr))
	}
	return models.WriteStatusOK
}

func (o *OrderSyncOrchestrator) markLegacyFailed(unifiedID, operation string, cause error) models.WriteStatus {
	lctx, cancel := o.ledgerCtx()
	defer cancel()

	if err := o.links.SetLegacyResult(lctx, unifiedID, 0, models.WriteStatusFailed); err != nil {
		o.logger.Error("Failed to record legacy write failure", zap.Error(err))
	}
	util.OrdersDegradedTotal.Inc()

	event := &models.LegacySyncFailedEvent{
		BaseEvent: newBaseEvent(models.EventTypeLegacySyncFailed),
		UnifiedID: unifiedID,
		Operation: operation,
		Reason:    cause.Error(),
	}
	if err := o.publisher.PublishLegacySyncFailed(lctx, event); err != nil {
		o.logger.Error("Failed to publish LegacySyncFailed event", zap.Error(err))
	}
	return models.WriteStatusFailed
}

// UpdateStatus validates the transition against the modern store's
// current status, applies it there first and then mirrors it to the
// legacy store. The modern value is authoritative either way.
func (o *OrderSyncOrchestrator) UpdateStatus(ctx context.Context, unifiedID string, target models.OrderStatus) (*UpdateStatusResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderSyncOrchestrator.UpdateStatus")
	defer span.End()

	sctx, cancel := o.storeCtx(ctx)
	rec, err := o.modern.GetByUnifiedID(sctx, unifiedID)
	cancel()
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return nil, err
		}
		return nil, &models.StoreUnavailableError{Store: "modern", Err: err}
	}

	current, err := o.translator.FromModern(rec.NativeStatus)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateTransition(current, target); err != nil {
		util.InvalidTransitionsTotal.Inc()
		return nil, err
	}

	nativeStatus, err := o.translator.ToModern(target)
	if err != nil {
		return nil, err
	}

	sctx, cancel = o.storeCtx(ctx)
	err = o.modern.UpdateStatus(sctx, rec.ID, nativeStatus)
	cancel()
	if err != nil {
		return nil, &models.StoreUnavailableError{Store: "modern", Err: err}
	}

	util.StatusTransitionsTotal.WithLabelValues(string(target)).Inc()
	o.cacheDrop(ctx, unifiedID)

	legacySynced := o.mirrorStatusToLegacy(ctx, unifiedID, target)

	event := &models.OrderStatusChangedEvent{
		BaseEvent:    newBaseEvent(models.EventTypeOrderStatusChanged),
		UnifiedID:    unifiedID,
		From:         current,
		To:           target,
		LegacySynced: legacySynced,
	}
	if err := o.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		o.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	o.logger.Info("Order status updated",
		zap.String("unified_id", unifiedID),
		zap.String("from", string(current)),
		zap.String("to", string(target)),
		zap.Bool("legacy_synced", legacySynced))

	return &UpdateStatusResult{
		UnifiedID:    unifiedID,
		From:         current,
		To:           target,
		LegacySynced: legacySynced,
	}, nil
}

func (o *OrderSyncOrchestrator) mirrorStatusToLegacy(ctx context.Context, unifiedID string, target models.OrderStatus) bool {
	link, err := o.links.GetLink(ctx, unifiedID)
	if err != nil {
		o.logger.Error("Failed to read link record", zap.Error(err))
		return false
	}
	if link.LegacyStoreID == 0 {
		// Legacy row was never created; creation-time reconciliation will
		// carry the current status when it lands.
		return false
	}
	if o.legacy == nil {
		o.markLegacyFailed(unifiedID, "update_status", errLegacyUnavailable)
		return false
	}

	statCd, err := o.translator.ToLegacy(target)
	if err != nil {
		o.logger.Error("Legacy status translation failed", zap.Error(err))
		o.markLegacyFailed(unifiedID, "update_status", err)
		return false
	}

	sctx, cancel := o.storeCtx(ctx)
	defer cancel()

	start := time.Now()
	err = o.legacy.UpdateStatus(sctx, link.LegacyStoreID, statCd)
	util.StoreWriteLatency.WithLabelValues("legacy").Observe(time.Since(start).Seconds())

	if err != nil {
		o.logger.Warn("Legacy status update failed",
			zap.String("unified_id", unifiedID),
			zap.Error(err))
		o.markLegacyFailed(unifiedID, "update_status", err)
		return false
	}

	if link.LegacyWriteStatus != models.WriteStatusOK {
		lctx, lcancel := o.ledgerCtx()
		defer lcancel()
		if lerr := o.links.SetLegacyResult(lctx, unifiedID, link.LegacyStoreID, models.WriteStatusOK); lerr != nil {
			o.logger.Error("Failed to record legacy recovery", zap.Error(lerr))
		}
	}
	return true
}

// RetryLegacySync repairs a failed legacy write. Idempotent: already-ok
// links are a no-op, and the ledger claim keeps concurrent retries for
// the same id from double-submitting.
func (o *OrderSyncOrchestrator) RetryLegacySync(ctx context.Context, unifiedID string) (models.WriteStatus, error) {
	ctx, span := util.StartSpan(ctx, "OrderSyncOrchestrator.RetryLegacySync")
	defer span.End()

	link, err := o.links.GetLink(ctx, unifiedID)
	if err != nil {
		return "", err
	}
	if link.LegacyWriteStatus == models.WriteStatusOK {
		return models.WriteStatusOK, nil
	}
	if link.ModernWriteStatus != models.WriteStatusOK {
		return models.WriteStatusFailed, fmt.Errorf("order %s has no modern record to sync from", unifiedID)
	}

	if o.legacy == nil {
		return models.WriteStatusFailed, &models.StoreUnavailableError{Store: "legacy", Err: errLegacyUnavailable}
	}

	claimed, err := o.links.ClaimLegacyRetry(ctx, unifiedID)
	if err != nil {
		return "", err
	}
	if !claimed {
		// Someone else claimed the retry (or it just recovered); report
		// the ledger's current view.
		current, err := o.links.GetLink(ctx, unifiedID)
		if err != nil {
			return "", err
		}
		return current.LegacyWriteStatus, nil
	}

	sctx, cancel := o.storeCtx(ctx)
	rec, err := o.modern.GetByUnifiedID(sctx, unifiedID)
	cancel()
	if err != nil {
		o.markLegacyFailed(unifiedID, "retry", err)
		return models.WriteStatusFailed, &models.StoreUnavailableError{Store: "modern", Err: err}
	}

	order, err := o.loadUnified(ctx, rec)
	if err != nil {
		o.markLegacyFailed(unifiedID, "retry", err)
		return models.WriteStatusFailed, err
	}

	statCd, err := o.translator.ToLegacy(order.Status)
	if err != nil {
		o.markLegacyFailed(unifiedID, "retry", err)
		return models.WriteStatusFailed, err
	}

	sctx, cancel = o.storeCtx(ctx)
	defer cancel()

	legacyID := link.LegacyStoreID
	if legacyID == 0 {
		legacyID, err = o.legacy.Create(sctx, store.MapToLegacyRow(order, rec.ID, statCd))
	} else {
		err = o.legacy.UpdateStatus(sctx, legacyID, statCd)
	}

	if err != nil {
		util.LegacySyncRetriesTotal.WithLabelValues("failed").Inc()
		o.markLegacyFailed(unifiedID, "retry", err)
		return models.WriteStatusFailed, &models.StoreUnavailableError{Store: "legacy", Err: err}
	}

	lctx, lcancel := o.ledgerCtx()
	defer lcancel()
	if lerr := o.links.SetLegacyResult(lctx, unifiedID, legacyID, models.WriteStatusOK); lerr != nil {
		o.logger.Error("Failed to record legacy recovery", zap.Error(lerr))
	}

	util.LegacySyncRetriesTotal.WithLabelValues("ok").Inc()
	o.logger.Info("Legacy sync recovered",
		zap.String("unified_id", unifiedID),
		zap.Int64("legacy_store_id", legacyID))

	event := &models.LegacySyncRecoveredEvent{
		BaseEvent:     newBaseEvent(models.EventTypeLegacySyncRecovered),
		UnifiedID:     unifiedID,
		LegacyStoreID: legacyID,
	}
	if err := o.publisher.PublishLegacySyncRecovered(ctx, event); err != nil {
		o.logger.Error("Failed to publish LegacySyncRecovered event", zap.Error(err))
	}

	return models.WriteStatusOK, nil
}

// GetOrder serves the unified view, cache first, modern store as truth.
func (o *OrderSyncOrchestrator) GetOrder(ctx context.Context, unifiedID string) (*CreateOrderResponse, error) {
	if o.cache != nil {
		if order, found, err := o.cache.GetOrder(ctx, unifiedID); err == nil && found {
			link, lerr := o.links.GetLink(ctx, unifiedID)
			if lerr == nil {
				return &CreateOrderResponse{
					Order:             order,
					ModernWriteStatus: link.ModernWriteStatus,
					LegacyWriteStatus: link.LegacyWriteStatus,
					Degraded:          link.LegacyWriteStatus != models.WriteStatusOK,
				}, nil
			}
		}
	}

	sctx, cancel := o.storeCtx(ctx)
	rec, err := o.modern.GetByUnifiedID(sctx, unifiedID)
	cancel()
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return nil, err
		}
		return nil, &models.StoreUnavailableError{Store: "modern", Err: err}
	}

	order, err := o.loadUnified(ctx, rec)
	if err != nil {
		return nil, err
	}
	o.cachePut(ctx, order)

	link, err := o.links.GetLink(ctx, unifiedID)
	if err != nil {
		return nil, err
	}

	return &CreateOrderResponse{
		Order:             order,
		ModernWriteStatus: link.ModernWriteStatus,
		LegacyWriteStatus: link.LegacyWriteStatus,
		Degraded:          link.LegacyWriteStatus != models.WriteStatusOK,
	}, nil
}

// GetTaxSummary is the stateless pre-checkout pricing entry point.
func (o *OrderSyncOrchestrator) GetTaxSummary(lines []models.OrderLineInput, shippingHT, discountHT decimal.Decimal) (*models.OrderTaxSummary, error) {
	summary, err := o.tax.ComputeOrder(lines, shippingHT, discountHT)
	if err != nil {
		return nil, err
	}
	util.TaxSummariesTotal.Inc()
	return summary, nil
}

// QuoteShipping prices shipping with the configured threshold.
func (o *OrderSyncOrchestrator) QuoteShipping(ctx context.Context, weightKg float64, dest models.Destination, orderAmountHT decimal.Decimal, level models.ServiceLevel) (*models.ShippingQuote, error) {
	quote, err := o.shipping.Quote(ctx, shipping.QuoteRequest{
		WeightKg:              weightKg,
		Destination:           dest,
		OrderAmountHT:         orderAmountHT,
		FreeShippingThreshold: o.freeShippingThreshold,
		ServiceLevel:          level,
	})
	if err != nil {
		return nil, err
	}
	util.ShippingQuotesTotal.WithLabelValues(quote.ZoneID).Inc()
	return quote, nil
}

// loadUnified rehydrates the unified representation from the modern
// record. Only order-level totals are persisted, so the rebuilt summary
// carries the grand totals and shipping fee, not the per-line breakdown.
func (o *OrderSyncOrchestrator) loadUnified(ctx context.Context, rec *models.ModernOrderRecord) (*models.UnifiedOrder, error) {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()

	storedLines, err := o.modern.GetLines(sctx, rec.ID)
	if err != nil {
		return nil, &models.StoreUnavailableError{Store: "modern", Err: err}
	}

	lines := make([]models.OrderLineInput, len(storedLines))
	for i, l := range storedLines {
		lines[i] = models.OrderLineInput{
			ProductRef:  l.ProductRef,
			Quantity:    l.Quantity,
			UnitPriceHT: l.UnitPriceHT,
			TaxClass:    l.TaxClass,
		}
	}

	unified, err := o.translator.FromModern(rec.NativeStatus)
	if err != nil {
		return nil, err
	}

	return &models.UnifiedOrder{
		UnifiedID:  rec.UnifiedID,
		CustomerID: rec.CustomerID,
		Lines:      lines,
		TaxSummary: &models.OrderTaxSummary{
			TotalHT:    rec.TotalHT,
			TotalTTC:   rec.TotalTTC,
			TotalTax:   rec.TotalTax,
			ShippingHT: rec.ShippingFee,
		},
		Status:    unified,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (o *OrderSyncOrchestrator) cachePut(ctx context.Context, order *models.UnifiedOrder) {
	if o.cache == nil {
		return
	}
	if err := o.cache.CacheOrder(ctx, order); err != nil {
		o.logger.Warn("Failed to cache order", zap.Error(err))
	}
}

func (o *OrderSyncOrchestrator) cacheDrop(ctx context.Context, unifiedID string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.InvalidateOrder(ctx, unifiedID); err != nil {
		o.logger.Warn("Failed to invalidate cached order", zap.Error(err))
	}
}

// newUnifiedID generates a time-ordered random identifier so concurrent
// requests never need to coordinate.
func newUnifiedID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate unified id: %w", err)
	}
	return id.String(), nil
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func sumLinesHT(lines []models.OrderLineInput) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Quantity > 0 {
			total = total.Add(line.UnitPriceHT.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
	}
	return total
}

// fingerprintRequest hashes the order-defining fields so a reused
// idempotency key can be checked for payload equivalence.
func fingerprintRequest(req *CreateOrderRequest) string {
	payload, _ := json.Marshal(struct {
		CustomerID   int64                   `json:"customer_id"`
		Lines        []models.OrderLineInput `json:"lines"`
		Destination  models.Destination      `json:"destination"`
		WeightKg     float64                 `json:"weight_kg"`
		DiscountHT   decimal.Decimal         `json:"discount_ht"`
		ServiceLevel models.ServiceLevel     `json:"service_level"`
	}{
		CustomerID:   req.CustomerID,
		Lines:        req.Lines,
		Destination:  req.Destination,
		WeightKg:     req.WeightKg,
		DiscountHT:   req.DiscountHT,
		ServiceLevel: req.ServiceLevel,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
