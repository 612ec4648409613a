package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"autoparts-orders/internal/broker"
	"autoparts-orders/internal/models"
	"autoparts-orders/internal/service"
	"autoparts-orders/internal/util"
)

// ReconciliationWorker consumes LegacySyncFailed events and replays the
// missing legacy writes. Retry errors leave the message uncommitted so
// Kafka redelivers it; a short delay before returning keeps a dead
// legacy store from being hammered in a tight loop.
type ReconciliationWorker struct {
	consumer     *broker.Consumer
	orchestrator *service.OrderSyncOrchestrator
	logger       *zap.Logger
	retryDelay   time.Duration
}

// NewReconciliationWorker creates a reconciliation worker.
func NewReconciliationWorker(consumer *broker.Consumer, orchestrator *service.OrderSyncOrchestrator) *ReconciliationWorker {
	return &ReconciliationWorker{
		consumer:     consumer,
		orchestrator: orchestrator,
		logger:       util.GetLogger(),
		retryDelay:   5 * time.Second,
	}
}

// Start blocks consuming events until the context is cancelled.
func (w *ReconciliationWorker) Start(ctx context.Context) error {
	handler := broker.NewEventHandler()
	handler.OnLegacySyncFailed(w.handleLegacySyncFailed)

	w.logger.Info("Reconciliation worker started")
	return w.consumer.StartConsuming(ctx, handler.HandleMessage)
}

func (w *ReconciliationWorker) handleLegacySyncFailed(ctx context.Context, event *models.LegacySyncFailedEvent) error {
	w.logger.Info("Reconciling failed legacy sync",
		zap.String("unified_id", event.UnifiedID),
		zap.String("operation", event.Operation),
		zap.String("reason", event.Reason))

	status, err := w.orchestrator.RetryLegacySync(ctx, event.UnifiedID)
	if errors.Is(err, models.ErrOrderNotFound) {
		// No ledger entry for this id. Nothing to repair, drop the message.
		w.logger.Warn("No link record for failed sync event",
			zap.String("unified_id", event.UnifiedID))
		return nil
	}
	if err != nil {
		w.logger.Warn("Legacy sync retry failed, will redeliver",
			zap.String("unified_id", event.UnifiedID),
			zap.Error(err))
		select {
		case <-time.After(w.retryDelay):
		case <-ctx.Done():
		}
		return err
	}

	w.logger.Info("Legacy sync reconciled",
		zap.String("unified_id", event.UnifiedID),
		zap.String("legacy_write_status", string(status)))
	return nil
}
