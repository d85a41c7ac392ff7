package service

import (
	"context"
	"time"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type RequestStatusChangedEvent struct {
	RequestID uuid.UUID            `json:"request_id"`
	TenantID  uuid.UUID            `json:"tenant_id"`
	From      models.RequestStatus `json:"from"`
	To        models.RequestStatus `json:"to"`
	ByUID     uuid.UUID            `json:"by_uid"`
	At        time.Time            `json:"at"`
}

type StockLowEvent struct {
	TenantID       uuid.UUID       `json:"tenant_id"`
	SupplierID     uuid.UUID       `json:"supplier_id"`
	SupplierItemID uuid.UUID       `json:"supplier_item_id"`
	Available      decimal.Decimal `json:"available"`
	MinStock       decimal.Decimal `json:"min_stock"`
	At             time.Time       `json:"at"`
}

type EventBus interface {
	PublishRequestStatusChanged(ctx context.Context, e RequestStatusChangedEvent) error
	PublishStockLow(ctx context.Context, e StockLowEvent) error
}

// LogEventBus пишет события в лог; боевой брокер подключается вместо него.
type LogEventBus struct {
	log *zap.Logger
}

func NewLogEventBus(log *zap.Logger) *LogEventBus {
	return &LogEventBus{log: log}
}

func (b *LogEventBus) PublishRequestStatusChanged(ctx context.Context, e RequestStatusChangedEvent) error {
	b.log.Info("request status changed",
		zap.String("request_id", e.RequestID.String()),
		zap.String("from", string(e.From)),
		zap.String("to", string(e.To)),
	)
	return nil
}

func (b *LogEventBus) PublishStockLow(ctx context.Context, e StockLowEvent) error {
	b.log.Warn("stock low",
		zap.String("supplier_id", e.SupplierID.String()),
		zap.String("supplier_item_id", e.SupplierItemID.String()),
		zap.String("available", e.Available.String()),
		zap.String("min_stock", e.MinStock.String()),
	)
	return nil
}
