package http

import (
	"time"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BaseError — универсальный корневой формат ошибки.
// Code — машинно-ориентированный код (snake_case), Message — краткое описание.
type BaseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewValidationError(msg string) BaseError {
	return BaseError{Code: "validation_error", Message: msg}
}
func NewUnauthorizedError(msg string) BaseError {
	return BaseError{Code: "unauthorized", Message: msg}
}
func NewForbiddenError(msg string) BaseError {
	return BaseError{Code: "forbidden", Message: msg}
}
func NewNotFoundError(msg string) BaseError {
	return BaseError{Code: "not_found", Message: msg}
}
func NewConflictError(msg string) BaseError {
	return BaseError{Code: "conflict", Message: msg}
}
func NewInternalError(details string) BaseError {
	return BaseError{Code: "internal_error", Message: "internal server error", Details: details}
}

type BalanceResponse struct {
	ID             uuid.UUID        `json:"id"`
	SupplierID     uuid.UUID        `json:"supplierId"`
	SupplierItemID uuid.UUID        `json:"supplierItemId"`
	OnHand         decimal.Decimal  `json:"onHand"`
	Reserved       decimal.Decimal  `json:"reserved"`
	Available      decimal.Decimal  `json:"available"`
	MinStock       *decimal.Decimal `json:"minStock"`
	LowStock       bool             `json:"lowStock"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

func ToBalanceResponse(b *models.Balance) BalanceResponse {
	return BalanceResponse{
		ID:             b.ID,
		SupplierID:     b.SupplierID,
		SupplierItemID: b.SupplierItemID,
		OnHand:         b.OnHand,
		Reserved:       b.Reserved,
		Available:      b.Available,
		MinStock:       b.MinStock,
		LowStock:       b.LowStock,
		UpdatedAt:      b.UpdatedAt,
	}
}

type BalanceListResponse struct {
	Items []BalanceResponse `json:"items"`
	Total int64             `json:"total"`
}

type MoveRequest struct {
	SupplierID     uuid.UUID       `json:"supplierId" binding:"required"`
	SupplierItemID uuid.UUID       `json:"supplierItemId" binding:"required"`
	Qty            decimal.Decimal `json:"qty" binding:"required"`
	Type           string          `json:"type" binding:"required"`
	RequestID      *uuid.UUID      `json:"requestId"`
	Note           string          `json:"note"`
	IdempotencyKey *string         `json:"idempotencyKey"`
}

type MoveResponse struct {
	Balance    BalanceResponse `json:"balance"`
	MovementID uuid.UUID       `json:"movementId"`
	Replayed   bool            `json:"replayed,omitempty"`
}

type MinStockRequest struct {
	SupplierID     uuid.UUID        `json:"supplierId" binding:"required"`
	SupplierItemID uuid.UUID        `json:"supplierItemId" binding:"required"`
	MinStock       *decimal.Decimal `json:"minStock"`
}

type MovementResponse struct {
	ID             uuid.UUID       `json:"id"`
	SupplierID     uuid.UUID       `json:"supplierId"`
	SupplierItemID uuid.UUID       `json:"supplierItemId"`
	Qty            decimal.Decimal `json:"qty"`
	Type           string          `json:"type"`
	RequestID      *uuid.UUID      `json:"requestId,omitempty"`
	Note           string          `json:"note,omitempty"`
	OnHandBefore   decimal.Decimal `json:"onHandBefore"`
	ReservedBefore decimal.Decimal `json:"reservedBefore"`
	OnHandAfter    decimal.Decimal `json:"onHandAfter"`
	ReservedAfter  decimal.Decimal `json:"reservedAfter"`
	CreatedBy      uuid.UUID       `json:"createdBy"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func ToMovementResponse(m *models.Movement) MovementResponse {
	return MovementResponse{
		ID:             m.ID,
		SupplierID:     m.SupplierID,
		SupplierItemID: m.SupplierItemID,
		Qty:            m.Qty,
		Type:           string(m.Type),
		RequestID:      m.RequestID,
		Note:           m.Note,
		OnHandBefore:   m.OnHandBefore,
		ReservedBefore: m.ReservedBefore,
		OnHandAfter:    m.OnHandAfter,
		ReservedAfter:  m.ReservedAfter,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
	}
}

type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Total int64              `json:"total"`
}

type CreateRequestLineDTO struct {
	CatalogItemID  *uuid.UUID      `json:"catalogItemId"`
	SupplierID     *uuid.UUID      `json:"supplierId"`
	SupplierItemID *uuid.UUID      `json:"supplierItemId"`
	Qty            decimal.Decimal `json:"qty" binding:"required"`
}

type CreateRequestDTO struct {
	Lines      []CreateRequestLineDTO `json:"lines" binding:"required"`
	Notes      string                 `json:"notes"`
	ScheduleAt *time.Time             `json:"scheduleAt"`
	Status     *string                `json:"status"`
}

type UpdateStatusDTO struct {
	Status string `json:"status" binding:"required"`
}

type RequestLineResponse struct {
	SupplierID     uuid.UUID       `json:"supplierId"`
	SupplierItemID uuid.UUID       `json:"supplierItemId"`
	Qty            decimal.Decimal `json:"qty"`
	NameSnapshot   string          `json:"nameSnapshot"`
	UnitSnapshot   string          `json:"unitSnapshot"`
	PriceSnapshot  decimal.Decimal `json:"priceSnapshot"`
}

type StatusChangeResponse struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	ByUID  uuid.UUID `json:"byUid"`
}

type RequestResponse struct {
	ID            uuid.UUID              `json:"id"`
	RequesterUID  uuid.UUID              `json:"requesterUid"`
	Status        string                 `json:"status"`
	Notes         string                 `json:"notes,omitempty"`
	ScheduleAt    *time.Time             `json:"scheduleAt,omitempty"`
	Lines         []RequestLineResponse  `json:"lines"`
	StatusHistory []StatusChangeResponse `json:"statusHistory"`
	CreatedAt     time.Time              `json:"createdAt"`
}

func ToRequestResponse(r *models.Request) RequestResponse {
	lines := make([]RequestLineResponse, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, RequestLineResponse{
			SupplierID:     l.SupplierID,
			SupplierItemID: l.SupplierItemID,
			Qty:            l.Qty,
			NameSnapshot:   l.NameSnapshot,
			UnitSnapshot:   l.UnitSnapshot,
			PriceSnapshot:  l.PriceSnapshot,
		})
	}
	history := make([]StatusChangeResponse, 0, len(r.StatusHistory))
	for _, h := range r.StatusHistory {
		history = append(history, StatusChangeResponse{
			Status: string(h.Status),
			At:     h.At,
			ByUID:  h.ByUID,
		})
	}
	return RequestResponse{
		ID:            r.ID,
		RequesterUID:  r.RequesterUID,
		Status:        string(r.Status),
		Notes:         r.Notes,
		ScheduleAt:    r.ScheduleAt,
		Lines:         lines,
		StatusHistory: history,
		CreatedAt:     r.CreatedAt,
	}
}

type RequestListResponse struct {
	Items []RequestResponse `json:"items"`
	Total int64             `json:"total"`
}
