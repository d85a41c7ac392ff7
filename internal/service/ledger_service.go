package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-service/internal/cache"
	"stock-service/internal/models"
	"stock-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ledgerService struct {
	repo   *repository.Repository
	cache  *cache.BalanceCache // опционален, nil — без кэша
	events EventBus
	now    func() time.Time
}

func NewLedgerService(repo *repository.Repository, balanceCache *cache.BalanceCache, events EventBus) LedgerService {
	return &ledgerService{
		repo:   repo,
		cache:  balanceCache,
		events: events,
		now:    time.Now,
	}
}

func requireAuth(ctx context.Context) (uuid.UUID, uuid.UUID, Role, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, "", ErrUnauthorized
	}
	tenantID, ok := TenantIDFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, "", ErrUnauthorized
	}
	role, ok := RoleFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, "", ErrUnauthorized
	}
	return uid, tenantID, role, nil
}

func validateMovement(in MovementInput) error {
	if !in.Type.Valid() {
		return ErrInvalidMovementType
	}
	if in.Type == models.MovementAdjust {
		// единственный тип со знаковым количеством (корректировки вниз)
		if in.Qty.IsZero() {
			return ErrInvalidQuantity
		}
		return nil
	}
	if in.Qty.Sign() <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// applyMovement — координатор: единственный писатель balances и movements.
// Вызывается строго внутри транзакции tx; читает строку остатка под FOR UPDATE
// (лениво создавая её), применяет преобразование и дописывает движение
// со снапшотами до/после. Либо фиксируются обе записи, либо ни одной.
func applyMovement(ctx context.Context, tx *repository.Repository, tenantID, actor uuid.UUID, in MovementInput, now time.Time) (*MovementResult, error) {
	if err := validateMovement(in); err != nil {
		return nil, err
	}

	if in.IdempotencyKey != nil && *in.IdempotencyKey != "" {
		existing, err := tx.Movements.GetByIdempotencyKey(ctx, tenantID, *in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			bal, err := tx.Balances.Get(ctx, tenantID, in.SupplierID, in.SupplierItemID)
			if err != nil {
				return nil, err
			}
			return &MovementResult{Balance: bal, Movement: existing, Replayed: true}, nil
		}
	}

	bal, err := tx.Balances.GetForUpdate(ctx, tenantID, in.SupplierID, in.SupplierItemID)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		// ленивое материализование нулевого остатка в этой же транзакции
		bal = &models.Balance{
			TenantID:       tenantID,
			SupplierID:     in.SupplierID,
			SupplierItemID: in.SupplierItemID,
			OnHand:         decimal.Zero,
			Reserved:       decimal.Zero,
			Available:      decimal.Zero,
		}
		if err := tx.Balances.Create(ctx, bal); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrConflict
			}
			return nil, err
		}
	}

	lowBefore := bal.LowStock
	onHandBefore := bal.OnHand
	reservedBefore := bal.Reserved

	bal.Apply(in.Type, in.Qty)

	if err := tx.Balances.Save(ctx, bal); err != nil {
		return nil, err
	}

	m := &models.Movement{
		TenantID:       tenantID,
		SupplierID:     in.SupplierID,
		SupplierItemID: in.SupplierItemID,
		Qty:            in.Qty,
		Type:           in.Type,
		RequestID:      in.RequestID,
		Note:           in.Note,
		IdempotencyKey: in.IdempotencyKey,
		OnHandBefore:   onHandBefore,
		ReservedBefore: reservedBefore,
		OnHandAfter:    bal.OnHand,
		ReservedAfter:  bal.Reserved,
		CreatedBy:      actor,
		CreatedAt:      now,
	}
	if err := tx.Movements.Create(ctx, m); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}

	return &MovementResult{
		Balance:           bal,
		Movement:          m,
		LowStockTriggered: bal.LowStock && !lowBefore,
	}, nil
}

func (s *ledgerService) ApplyMovement(ctx context.Context, in MovementInput) (*MovementResult, error) {
	uid, tenantID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	switch role {
	case RoleSupplier:
		// поставщик двигает только свой склад; supplier_id из клиента игнорируется
		in.SupplierID = uid
	case RoleClient:
		return nil, ErrForbidden
	}

	var res *MovementResult
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		res, err = applyMovement(ctx, tx, tenantID, uid, in, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if !res.Replayed {
		s.afterCommit(ctx, tenantID, res)
	}
	return res, nil
}

// afterCommit — побочные эффекты вне транзакции: сброс кэша, события.
func (s *ledgerService) afterCommit(ctx context.Context, tenantID uuid.UUID, res *MovementResult) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, tenantID)
	}
	if s.events != nil && res.LowStockTriggered && res.Balance.MinStock != nil {
		_ = s.events.PublishStockLow(ctx, StockLowEvent{
			TenantID:       tenantID,
			SupplierID:     res.Balance.SupplierID,
			SupplierItemID: res.Balance.SupplierItemID,
			Available:      res.Balance.Available,
			MinStock:       *res.Balance.MinStock,
			At:             s.now(),
		})
	}
}

func (s *ledgerService) SetMinStock(ctx context.Context, supplierID, supplierItemID uuid.UUID, minStock *decimal.Decimal) (*models.Balance, error) {
	uid, tenantID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	switch role {
	case RoleSupplier:
		supplierID = uid
	case RoleClient:
		return nil, ErrForbidden
	}

	var bal *models.Balance
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		bal, err = tx.Balances.GetForUpdate(ctx, tenantID, supplierID, supplierItemID)
		if err != nil {
			return err
		}
		if bal == nil {
			return ErrBalanceNotFound
		}
		bal.MinStock = minStock
		bal.Recompute()
		return tx.Balances.Save(ctx, bal)
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, tenantID)
	}
	return bal, nil
}

func (s *ledgerService) ListBalances(ctx context.Context, in BalanceListInput) ([]models.Balance, int64, error) {
	uid, tenantID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}
	if role == RoleSupplier {
		in.SupplierID = &uid
	}

	filterKey := fmt.Sprintf("%v:%v:%d:%d", in.SupplierID, in.LowStockOnly, in.Limit, in.Offset)
	if s.cache != nil {
		if items, total, ok := s.cache.GetBalances(ctx, tenantID, filterKey); ok {
			return items, total, nil
		}
	}

	items, total, err := s.repo.Balances.List(ctx, repository.BalanceListFilter{
		TenantID:     tenantID,
		SupplierID:   in.SupplierID,
		LowStockOnly: in.LowStockOnly,
		Limit:        in.Limit,
		Offset:       in.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	if s.cache != nil {
		s.cache.SetBalances(ctx, tenantID, filterKey, items, total)
	}
	return items, total, nil
}

func (s *ledgerService) ListMovements(ctx context.Context, in MovementListInput) ([]models.Movement, int64, error) {
	uid, tenantID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}
	if role == RoleSupplier {
		in.SupplierID = &uid
	}

	return s.repo.Movements.List(ctx, repository.MovementListFilter{
		TenantID:       tenantID,
		SupplierID:     in.SupplierID,
		SupplierItemID: in.SupplierItemID,
		RequestID:      in.RequestID,
		Limit:          in.Limit,
		Offset:         in.Offset,
	})
}
