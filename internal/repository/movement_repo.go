package repository

import (
	"context"
	"errors"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementListFilter struct {
	TenantID       uuid.UUID
	SupplierID     *uuid.UUID
	SupplierItemID *uuid.UUID
	RequestID      *uuid.UUID
	Limit          int
	Offset         int
}

// MovementRepo — журнал только на добавление: Update/Delete отсутствуют намеренно.
type MovementRepo interface {
	Create(ctx context.Context, m *models.Movement) error
	GetByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*models.Movement, error)
	List(ctx context.Context, f MovementListFilter) ([]models.Movement, int64, error)
}

type movementRepo struct{ db *gorm.DB }

func NewMovementRepo(db *gorm.DB) MovementRepo { return &movementRepo{db: db} }

func (r *movementRepo) Create(ctx context.Context, m *models.Movement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *movementRepo) GetByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*models.Movement, error) {
	var m models.Movement
	err := r.db.WithContext(ctx).
		First(&m, "tenant_id = ? AND idempotency_key = ?", tenantID, key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *movementRepo) List(ctx context.Context, f MovementListFilter) ([]models.Movement, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Movement{}).Where("tenant_id = ?", f.TenantID)

	if f.SupplierID != nil {
		q = q.Where("supplier_id = ?", *f.SupplierID)
	}
	if f.SupplierItemID != nil {
		q = q.Where("supplier_item_id = ?", *f.SupplierItemID)
	}
	if f.RequestID != nil {
		q = q.Where("request_id = ?", *f.RequestID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []models.Movement
	err := q.Order("created_at ASC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}
