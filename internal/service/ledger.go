package service

import (
	"context"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementInput struct {
	SupplierID     uuid.UUID
	SupplierItemID uuid.UUID
	Qty            decimal.Decimal
	Type           models.MovementType
	RequestID      *uuid.UUID
	Note           string
	// Опциональный ключ идемпотентности: повтор с тем же ключом не применится второй раз.
	IdempotencyKey *string
}

type MovementResult struct {
	Balance  *models.Balance
	Movement *models.Movement
	// Replayed: движение с таким ключом уже существовало, баланс не менялся.
	Replayed bool
	// LowStockTriggered: этим движением флаг низкого остатка перешёл в true.
	LowStockTriggered bool
}

type BalanceListInput struct {
	SupplierID   *uuid.UUID
	LowStockOnly bool
	Limit        int
	Offset       int
}

type MovementListInput struct {
	SupplierID     *uuid.UUID
	SupplierItemID *uuid.UUID
	RequestID      *uuid.UUID
	Limit          int
	Offset         int
}

type LedgerService interface {
	ApplyMovement(ctx context.Context, in MovementInput) (*MovementResult, error)
	SetMinStock(ctx context.Context, supplierID, supplierItemID uuid.UUID, minStock *decimal.Decimal) (*models.Balance, error)
	ListBalances(ctx context.Context, in BalanceListInput) ([]models.Balance, int64, error)
	ListMovements(ctx context.Context, in MovementListInput) ([]models.Movement, int64, error)
}
