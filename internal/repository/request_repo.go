package repository

import (
	"context"
	"errors"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestListFilter struct {
	TenantID     uuid.UUID
	RequesterUID *uuid.UUID
	SupplierID   *uuid.UUID
	Status       *models.RequestStatus
	Limit        int
	Offset       int
}

type RequestRepo interface {
	Create(ctx context.Context, req *models.Request) error
	// GetByID всегда в разрезе арендатора — кросс-арендаторских запросов нет.
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Request, error)
	GetByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Request, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RequestStatus) error
	AppendStatusChange(ctx context.Context, ch *models.RequestStatusChange) error
	List(ctx context.Context, f RequestListFilter) ([]models.Request, int64, error)
}

type requestRepo struct{ db *gorm.DB }

func NewRequestRepo(db *gorm.DB) RequestRepo { return &requestRepo{db: db} }

func (r *requestRepo) Create(ctx context.Context, req *models.Request) error {
	// Lines и первая запись истории создаются ассоциациями в одной вставке
	return r.db.WithContext(ctx).Create(req).Error
}

func preloadAll(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_index ASC") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("at ASC") })
}

func (r *requestRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Request, error) {
	var req models.Request
	err := preloadAll(r.db.WithContext(ctx)).
		First(&req, "id = ? AND tenant_id = ?", id, tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepo) GetByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Request, error) {
	// FOR UPDATE на саму заявку: два конкурентных перехода сериализуются здесь.
	// clause.Locking с Preload не сочетается, поэтому лочим отдельным запросом.
	var req models.Request
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM requests WHERE id = ? AND tenant_id = ? FOR UPDATE`, id, tenantID).
		Scan(&req).Error
	if err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, nil
	}

	if err := r.db.WithContext(ctx).
		Where("request_id = ?", id).Order("line_index ASC").
		Find(&req.Lines).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", id).Order("at ASC").
		Find(&req.StatusHistory).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RequestStatus) error {
	return r.db.WithContext(ctx).Model(&models.Request{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *requestRepo) AppendStatusChange(ctx context.Context, ch *models.RequestStatusChange) error {
	return r.db.WithContext(ctx).Create(ch).Error
}

func (r *requestRepo) List(ctx context.Context, f RequestListFilter) ([]models.Request, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Request{}).Where("requests.tenant_id = ?", f.TenantID)

	if f.RequesterUID != nil {
		q = q.Where("requester_uid = ?", *f.RequesterUID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.SupplierID != nil {
		// поставщик видит заявки, в которых есть его позиции
		q = q.Where("EXISTS (SELECT 1 FROM request_lines rl WHERE rl.request_id = requests.id AND rl.supplier_id = ?)", *f.SupplierID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []models.Request
	err := preloadAll(q).Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}
