package service

import (
	"context"
	"fmt"
	"time"

	"stock-service/internal/cache"
	"stock-service/internal/models"
	"stock-service/internal/repository"

	"github.com/google/uuid"
)

type requestService struct {
	repo    *repository.Repository
	catalog CatalogProvider
	cache   *cache.BalanceCache
	events  EventBus
	now     func() time.Time
}

func NewRequestService(repo *repository.Repository, catalog CatalogProvider, balanceCache *cache.BalanceCache, events EventBus) RequestService {
	return &requestService{
		repo:    repo,
		catalog: catalog,
		cache:   balanceCache,
		events:  events,
		now:     time.Now,
	}
}

// resolveLine приводит входную позицию к канонической форме со снапшотами
// имени/единицы/цены — правки каталога задним числом заявку не меняют.
func (s *requestService) resolveLine(ctx context.Context, tenantID uuid.UUID, role Role, uid uuid.UUID, in CreateRequestLine, idx int) (*models.RequestLine, error) {
	if in.Qty.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}

	byCatalog := in.CatalogItemID != nil
	byPair := in.SupplierID != nil || in.SupplierItemID != nil
	if byCatalog == byPair {
		return nil, ErrAmbiguousLineRef
	}

	var item *CatalogItem
	var err error

	if byCatalog {
		item, err = s.catalog.GetCatalogItem(ctx, tenantID, *in.CatalogItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, ErrCatalogItemNotFound
		}
		if !item.Published && !role.Privileged() {
			return nil, ErrForbidden
		}
	} else {
		if in.SupplierID == nil || in.SupplierItemID == nil {
			return nil, ErrAmbiguousLineRef
		}
		supplierID := *in.SupplierID
		if role == RoleSupplier {
			// поставщик заказывает только по своему складу
			supplierID = uid
		}
		item, err = s.catalog.GetSupplierItem(ctx, tenantID, supplierID, *in.SupplierItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, ErrCatalogItemNotFound
		}
	}

	return &models.RequestLine{
		LineIndex:      idx,
		SupplierID:     item.SupplierID,
		SupplierItemID: item.SupplierItemID,
		Qty:            in.Qty,
		NameSnapshot:   item.Name,
		UnitSnapshot:   item.Unit,
		PriceSnapshot:  item.Price,
	}, nil
}

func (s *requestService) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.Request, error) {
	uid, tenantID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if len(in.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	status := models.RequestStatusPending
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	now := s.now()
	lines := make([]models.RequestLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		resolved, err := s.resolveLine(ctx, tenantID, role, uid, l, i)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *resolved)
	}

	req := &models.Request{
		TenantID:     tenantID,
		RequesterUID: uid,
		Status:       status,
		Notes:        in.Notes,
		ScheduleAt:   in.ScheduleAt,
		CreatedAt:    now,
		UpdatedAt:    now,
		Lines:        lines,
		StatusHistory: []models.RequestStatusChange{
			{Status: status, ByUID: uid, At: now},
		},
	}

	// создание заявки эффектов по журналу не даёт
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		return tx.Requests.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Requests.GetByID(ctx, tenantID, req.ID)
}

func (s *requestService) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	uid, tenantID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	req, err := s.repo.Requests.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	if !role.Privileged() && !canSeeRequest(req, role, uid) {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// canSeeRequest: клиент видит свои заявки, поставщик — заявки со своими позициями.
func canSeeRequest(req *models.Request, role Role, uid uuid.UUID) bool {
	if req.RequesterUID == uid {
		return true
	}
	if role == RoleSupplier {
		for _, l := range req.Lines {
			if l.SupplierID == uid {
				return true
			}
		}
	}
	return false
}

func (s *requestService) ListRequests(ctx context.Context, in RequestListInput) ([]models.Request, int64, error) {
	uid, tenantID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}

	f := repository.RequestListFilter{
		TenantID: tenantID,
		Status:   in.Status,
		Limit:    in.Limit,
		Offset:   in.Offset,
	}
	switch role {
	case RoleClient:
		f.RequesterUID = &uid
	case RoleSupplier:
		f.SupplierID = &uid
	}

	return s.repo.Requests.List(ctx, f)
}

func (s *requestService) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus models.RequestStatus) (*models.Request, error) {
	uid, tenantID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	var (
		prev    models.RequestStatus
		results []*MovementResult
	)

	// Весь переход — движения по всем позициям, статус и запись истории —
	// одна транзакция: либо применяется целиком, либо не применяется вовсе.
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		req, err := tx.Requests.GetByIDForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if req == nil {
			return ErrRequestNotFound
		}
		if !role.Privileged() && !canSeeRequest(req, role, uid) {
			return ErrRequestNotFound
		}

		prev = req.Status
		if !CanTransition(prev, newStatus) {
			return ErrInvalidTransition
		}

		now := s.now()

		if effect, ok := LedgerEffect(prev, newStatus); ok {
			for _, line := range req.Lines {
				key := fmt.Sprintf("%s:%d:%s", req.ID, line.LineIndex, newStatus)
				res, err := applyMovement(ctx, tx, tenantID, uid, MovementInput{
					SupplierID:     line.SupplierID,
					SupplierItemID: line.SupplierItemID,
					Qty:            line.Qty,
					Type:           effect,
					RequestID:      &req.ID,
					IdempotencyKey: &key,
				}, now)
				if err != nil {
					return err
				}
				results = append(results, res)
			}
		}

		if err := tx.Requests.UpdateStatus(ctx, req.ID, newStatus); err != nil {
			return err
		}
		return tx.Requests.AppendStatusChange(ctx, &models.RequestStatusChange{
			RequestID: req.ID,
			Status:    newStatus,
			ByUID:     uid,
			At:        now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, tenantID, id, prev, newStatus, uid, results)

	return s.repo.Requests.GetByID(ctx, tenantID, id)
}

func (s *requestService) afterTransition(ctx context.Context, tenantID, requestID uuid.UUID, prev, next models.RequestStatus, uid uuid.UUID, results []*MovementResult) {
	if s.cache != nil && len(results) > 0 {
		s.cache.Invalidate(ctx, tenantID)
	}
	if s.events == nil {
		return
	}
	_ = s.events.PublishRequestStatusChanged(ctx, RequestStatusChangedEvent{
		RequestID: requestID,
		TenantID:  tenantID,
		From:      prev,
		To:        next,
		ByUID:     uid,
		At:        s.now(),
	})
	for _, res := range results {
		if res.LowStockTriggered && res.Balance.MinStock != nil {
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
}
