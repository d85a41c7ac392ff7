package repository

import (
	"context"
	"errors"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BalanceListFilter struct {
	TenantID     uuid.UUID
	SupplierID   *uuid.UUID
	LowStockOnly bool
	Limit        int
	Offset       int
}

type BalanceRepo interface {
	Get(ctx context.Context, tenantID, supplierID, supplierItemID uuid.UUID) (*models.Balance, error)
	// GetForUpdate читает строку остатка под блокировкой FOR UPDATE.
	// Использовать только внутри WithTx — единственный писатель остатков это координатор.
	GetForUpdate(ctx context.Context, tenantID, supplierID, supplierItemID uuid.UUID) (*models.Balance, error)
	Create(ctx context.Context, b *models.Balance) error
	Save(ctx context.Context, b *models.Balance) error
	List(ctx context.Context, f BalanceListFilter) ([]models.Balance, int64, error)
}

type balanceRepo struct{ db *gorm.DB }

func NewBalanceRepo(db *gorm.DB) BalanceRepo { return &balanceRepo{db: db} }

func (r *balanceRepo) Get(ctx context.Context, tenantID, supplierID, supplierItemID uuid.UUID) (*models.Balance, error) {
	var b models.Balance
	err := r.db.WithContext(ctx).
		First(&b, "tenant_id = ? AND supplier_id = ? AND supplier_item_id = ?", tenantID, supplierID, supplierItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *balanceRepo) GetForUpdate(ctx context.Context, tenantID, supplierID, supplierItemID uuid.UUID) (*models.Balance, error) {
	var b models.Balance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, "tenant_id = ? AND supplier_id = ? AND supplier_item_id = ?", tenantID, supplierID, supplierItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *balanceRepo) Create(ctx context.Context, b *models.Balance) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *balanceRepo) Save(ctx context.Context, b *models.Balance) error {
	return r.db.WithContext(ctx).Model(&models.Balance{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{
			"on_hand":   b.OnHand,
			"reserved":  b.Reserved,
			"available": b.Available,
			"min_stock": b.MinStock,
			"low_stock": b.LowStock,
		}).Error
}

func (r *balanceRepo) List(ctx context.Context, f BalanceListFilter) ([]models.Balance, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Balance{}).Where("tenant_id = ?", f.TenantID)

	if f.SupplierID != nil {
		q = q.Where("supplier_id = ?", *f.SupplierID)
	}
	if f.LowStockOnly {
		q = q.Where("low_stock = true")
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

	var list []models.Balance
	err := q.Order("supplier_id, supplier_item_id").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}
