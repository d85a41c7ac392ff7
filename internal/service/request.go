package service

import (
	"context"
	"time"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateRequestLine — вход позиции: либо ссылка на каталог, либо сырая пара
// (supplier, supplier_item). Ровно один вариант; проверяется при создании,
// после чего позиция приводится к единой канонической форме RequestLine.
type CreateRequestLine struct {
	CatalogItemID  *uuid.UUID
	SupplierID     *uuid.UUID
	SupplierItemID *uuid.UUID
	Qty            decimal.Decimal
}

type CreateRequestInput struct {
	Lines      []CreateRequestLine
	Notes      string
	ScheduleAt *time.Time
	Status     *models.RequestStatus
}

type RequestListInput struct {
	Status *models.RequestStatus
	Limit  int
	Offset int
}

type RequestService interface {
	CreateRequest(ctx context.Context, in CreateRequestInput) (*models.Request, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	ListRequests(ctx context.Context, in RequestListInput) ([]models.Request, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus models.RequestStatus) (*models.Request, error)
}
