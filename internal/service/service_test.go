package service_test

import (
	"context"
	"errors"
	"testing"

	"stock-service/internal/migrate"
	"stock-service/internal/models"
	"stock-service/internal/repository"
	"stock-service/internal/service"
	"stock-service/pkg/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// fakeCatalog — каталог-коллаборатор в памяти вместо HTTP-клиента.
type fakeCatalog struct {
	items map[uuid.UUID]*service.CatalogItem // по catalogItemID
}

func (f *fakeCatalog) GetCatalogItem(_ context.Context, _ uuid.UUID, id uuid.UUID) (*service.CatalogItem, error) {
	return f.items[id], nil
}

func (f *fakeCatalog) GetSupplierItem(_ context.Context, _ uuid.UUID, supplierID, supplierItemID uuid.UUID) (*service.CatalogItem, error) {
	for _, it := range f.items {
		if it.SupplierID == supplierID && it.SupplierItemID == supplierItemID {
			return it, nil
		}
	}
	return nil, nil
}

type testEnv struct {
	repo    *repository.Repository
	catalog *fakeCatalog
	ledger  service.LedgerService
	request service.RequestService

	tenantID uuid.UUID
	manager  uuid.UUID
	client   uuid.UUID
	supplier uuid.UUID

	catalogItemID  uuid.UUID
	supplierItemID uuid.UUID
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestPostgres(t)
	if err := migrate.MigrateStockDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{
		repo:           repository.New(db),
		tenantID:       uuid.New(),
		manager:        uuid.New(),
		client:         uuid.New(),
		supplier:       uuid.New(),
		catalogItemID:  uuid.New(),
		supplierItemID: uuid.New(),
	}
	env.catalog = &fakeCatalog{items: map[uuid.UUID]*service.CatalogItem{
		env.catalogItemID: {
			SupplierID:     env.supplier,
			SupplierItemID: env.supplierItemID,
			Name:           "Аммиачная селитра",
			Unit:           "кг",
			Price:          dec(45),
			Published:      true,
		},
	}}
	env.ledger = service.NewLedgerService(env.repo, nil, nil)
	env.request = service.NewRequestService(env.repo, env.catalog, nil, nil)
	return env
}

func (e *testEnv) ctx(uid uuid.UUID, role service.Role) context.Context {
	ctx := service.WithUserID(context.Background(), uid)
	ctx = service.WithTenantID(ctx, e.tenantID)
	return service.WithRole(ctx, role)
}

func (e *testEnv) mustBalance(t *testing.T, onHand, reserved int64) *models.Balance {
	t.Helper()
	b, err := e.repo.Balances.Get(context.Background(), e.tenantID, e.supplier, e.supplierItemID)
	if err != nil {
		t.Fatalf("Get balance: %v", err)
	}
	if b == nil {
		t.Fatal("expected balance to exist")
	}
	if !b.OnHand.Equal(dec(onHand)) || !b.Reserved.Equal(dec(reserved)) {
		t.Fatalf("expected onHand=%d reserved=%d, got onHand=%s reserved=%s", onHand, reserved, b.OnHand, b.Reserved)
	}
	if !b.Available.Equal(b.OnHand.Sub(b.Reserved)) {
		t.Fatalf("available invariant broken: %+v", b)
	}
	return b
}

func TestLedgerService_ApplyMovement(t *testing.T) {
	env := setupEnv(t)
	ctx := env.ctx(env.manager, service.RoleManager)

	// первое движение лениво создаёт нулевой остаток
	res, err := env.ledger.ApplyMovement(ctx, service.MovementInput{
		SupplierID:     env.supplier,
		SupplierItemID: env.supplierItemID,
		Qty:            dec(100),
		Type:           models.MovementIn,
		Note:           "приёмка",
	})
	if err != nil {
		t.Fatalf("ApplyMovement IN: %v", err)
	}
	if !res.Balance.OnHand.Equal(dec(100)) || !res.Balance.Available.Equal(dec(100)) {
		t.Fatalf("expected onHand=100 available=100, got %+v", res.Balance)
	}
	if res.Movement == nil || !res.Movement.OnHandBefore.Equal(dec(0)) || !res.Movement.OnHandAfter.Equal(dec(100)) {
		t.Fatalf("expected before/after snapshots 0→100, got %+v", res.Movement)
	}

	// OUT больше остатка — зажим в ноль, не ошибка
	res, err = env.ledger.ApplyMovement(ctx, service.MovementInput{
		SupplierID:     env.supplier,
		SupplierItemID: env.supplierItemID,
		Qty:            dec(150),
		Type:           models.MovementOut,
	})
	if err != nil {
		t.Fatalf("ApplyMovement OUT: %v", err)
	}
	env.mustBalance(t, 0, 0)

	// невалидные входы
	if _, err := env.ledger.ApplyMovement(ctx, service.MovementInput{
		SupplierID: env.supplier, SupplierItemID: env.supplierItemID,
		Qty: dec(-5), Type: models.MovementIn,
	}); !errors.Is(err, service.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := env.ledger.ApplyMovement(ctx, service.MovementInput{
		SupplierID: env.supplier, SupplierItemID: env.supplierItemID,
		Qty: dec(5), Type: "TRANSFER",
	}); !errors.Is(err, service.ErrInvalidMovementType) {
		t.Fatalf("expected ErrInvalidMovementType, got %v", err)
	}
}

func TestLedgerService_ApplyMovement_Idempotency(t *testing.T) {
	env := setupEnv(t)
	ctx := env.ctx(env.manager, service.RoleManager)

	key := "manual:batch-42"
	in := service.MovementInput{
		SupplierID:     env.supplier,
		SupplierItemID: env.supplierItemID,
		Qty:            dec(50),
		Type:           models.MovementIn,
		IdempotencyKey: &key,
	}

	first, err := env.ledger.ApplyMovement(ctx, in)
	if err != nil {
		t.Fatalf("first ApplyMovement: %v", err)
	}
	if first.Replayed {
		t.Fatal("first call must not be a replay")
	}

	// повтор с тем же ключом не двигает остаток и возвращает исходное движение
	second, err := env.ledger.ApplyMovement(ctx, in)
	if err != nil {
		t.Fatalf("second ApplyMovement: %v", err)
	}
	if !second.Replayed {
		t.Fatal("expected replay on duplicate key")
	}
	if second.Movement.ID != first.Movement.ID {
		t.Fatalf("expected same movement, got %s vs %s", second.Movement.ID, first.Movement.ID)
	}
	env.mustBalance(t, 50, 0)

	_, total, err := env.ledger.ListMovements(ctx, service.MovementListInput{})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 movement, got %d", total)
	}
}

func TestLedgerService_Roles(t *testing.T) {
	env := setupEnv(t)

	// клиент ручные движения не выполняет
	if _, err := env.ledger.ApplyMovement(env.ctx(env.client, service.RoleClient), service.MovementInput{
		SupplierID: env.supplier, SupplierItemID: env.supplierItemID,
		Qty: dec(10), Type: models.MovementIn,
	}); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for client, got %v", err)
	}

	// поставщик двигает только свой склад: чужой supplier_id игнорируется
	otherSupplier := uuid.New()
	res, err := env.ledger.ApplyMovement(env.ctx(env.supplier, service.RoleSupplier), service.MovementInput{
		SupplierID:     otherSupplier,
		SupplierItemID: env.supplierItemID,
		Qty:            dec(10),
		Type:           models.MovementIn,
	})
	if err != nil {
		t.Fatalf("supplier ApplyMovement: %v", err)
	}
	if res.Balance.SupplierID != env.supplier {
		t.Fatalf("expected movement on own supplier, got %s", res.Balance.SupplierID)
	}

	// и в списках видит только своё
	items, _, err := env.ledger.ListBalances(env.ctx(env.supplier, service.RoleSupplier), service.BalanceListInput{SupplierID: &otherSupplier})
	if err != nil {
		t.Fatalf("ListBalances: %v", err)
	}
	for _, b := range items {
		if b.SupplierID != env.supplier {
			t.Fatalf("supplier sees foreign balance: %+v", b)
		}
	}

	// без identity в контексте — ErrUnauthorized
	if _, err := env.ledger.ApplyMovement(context.Background(), service.MovementInput{
		SupplierID: env.supplier, SupplierItemID: env.supplierItemID,
		Qty: dec(1), Type: models.MovementIn,
	}); !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLedgerService_SetMinStock(t *testing.T) {
	env := setupEnv(t)
	ctx := env.ctx(env.manager, service.RoleManager)

	// на несуществующем остатке — not found
	min := dec(20)
	if _, err := env.ledger.SetMinStock(ctx, env.supplier, env.supplierItemID, &min); !errors.Is(err, service.ErrBalanceNotFound) {
		t.Fatalf("expected ErrBalanceNotFound, got %v", err)
	}

	if _, err := env.ledger.ApplyMovement(ctx, service.MovementInput{
		SupplierID: env.supplier, SupplierItemID: env.supplierItemID,
		Qty: dec(15), Type: models.MovementIn,
	}); err != nil {
		t.Fatalf("ApplyMovement: %v", err)
	}

	// порог выше текущего остатка сразу поднимает флаг
	bal, err := env.ledger.SetMinStock(ctx, env.supplier, env.supplierItemID, &min)
	if err != nil {
		t.Fatalf("SetMinStock: %v", err)
	}
	if !bal.LowStock {
		t.Fatalf("expected lowStock=true at available=15 min=20, got %+v", bal)
	}

	// пополнение выше порога снимает флаг следующим движением
	res, err := env.ledger.ApplyMovement(ctx, service.MovementInput{
		SupplierID: env.supplier, SupplierItemID: env.supplierItemID,
		Qty: dec(10), Type: models.MovementIn,
	})
	if err != nil {
		t.Fatalf("ApplyMovement top-up: %v", err)
	}
	if res.Balance.LowStock {
		t.Fatalf("expected lowStock=false at available=25 min=20, got %+v", res.Balance)
	}

	// сброс порога
	bal, err = env.ledger.SetMinStock(ctx, env.supplier, env.supplierItemID, nil)
	if err != nil {
		t.Fatalf("SetMinStock nil: %v", err)
	}
	if bal.MinStock != nil || bal.LowStock {
		t.Fatalf("expected cleared minStock, got %+v", bal)
	}
}

func TestRequestService_CreateRequest(t *testing.T) {
	env := setupEnv(t)
	ctx := env.ctx(env.client, service.RoleClient)

	// пустая заявка
	if _, err := env.request.CreateRequest(ctx, service.CreateRequestInput{}); !errors.Is(err, service.ErrEmptyLines) {
		t.Fatalf("expected ErrEmptyLines, got %v", err)
	}

	// позиция без ссылки и позиция с обеими ссылками сразу — обе невалидны
	if _, err := env.request.CreateRequest(ctx, service.CreateRequestInput{
		Lines: []service.CreateRequestLine{{Qty: dec(1)}},
	}); !errors.Is(err, service.ErrAmbiguousLineRef) {
		t.Fatalf("expected ErrAmbiguousLineRef for empty ref, got %v", err)
	}
	if _, err := env.request.CreateRequest(ctx, service.CreateRequestInput{
		Lines: []service.CreateRequestLine{{
			CatalogItemID: &env.catalogItemID,
			SupplierID:    &env.supplier, SupplierItemID: &env.supplierItemID,
			Qty: dec(1),
		}},
	}); !errors.Is(err, service.ErrAmbiguousLineRef) {
		t.Fatalf("expected ErrAmbiguousLineRef for double ref, got %v", err)
	}

	// по каталожной ссылке снапшоты берутся из каталога
	req, err := env.request.CreateRequest(ctx, service.CreateRequestInput{
		Lines: []service.CreateRequestLine{
			{CatalogItemID: &env.catalogItemID, Qty: dec(30)},
		},
		Notes: "до пятницы",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.Status != models.RequestStatusPending {
		t.Fatalf("expected PENDING, got %s", req.Status)
	}
	if len(req.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(req.Lines))
	}
	line := req.Lines[0]
	if line.SupplierID != env.supplier || line.SupplierItemID != env.supplierItemID {
		t.Fatalf("expected line resolved to supplier pair, got %+v", line)
	}
	if line.NameSnapshot != "Аммиачная селитра" || line.UnitSnapshot != "кг" || !line.PriceSnapshot.Equal(dec(45)) {
		t.Fatalf("expected catalog snapshots, got %+v", line)
	}
	if len(req.StatusHistory) != 1 || req.StatusHistory[0].Status != models.RequestStatusPending {
		t.Fatalf("expected initial history entry, got %+v", req.StatusHistory)
	}

	// создание заявки движений не порождает
	_, total, _ := env.ledger.ListMovements(env.ctx(env.manager, service.RoleManager), service.MovementListInput{})
	if total != 0 {
		t.Fatalf("expected no movements after create, got %d", total)
	}

	// неизвестная каталожная ссылка
	missing := uuid.New()
	if _, err := env.request.CreateRequest(ctx, service.CreateRequestInput{
		Lines: []service.CreateRequestLine{{CatalogItemID: &missing, Qty: dec(1)}},
	}); !errors.Is(err, service.ErrCatalogItemNotFound) {
		t.Fatalf("expected ErrCatalogItemNotFound, got %v", err)
	}
}

func TestRequestService_CreateRequest_UnpublishedCatalogItem(t *testing.T) {
	env := setupEnv(t)
	hiddenID := uuid.New()
	env.catalog.items[hiddenID] = &service.CatalogItem{
		SupplierID:     env.supplier,
		SupplierItemID: uuid.New(),
		Name:           "Черновик",
		Unit:           "шт",
		Published:      false,
	}

	in := service.CreateRequestInput{
		Lines: []service.CreateRequestLine{{CatalogItemID: &hiddenID, Qty: dec(1)}},
	}

	// клиенту неопубликованная позиция недоступна
	if _, err := env.request.CreateRequest(env.ctx(env.client, service.RoleClient), in); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for client, got %v", err)
	}

	// менеджеру — доступна
	if _, err := env.request.CreateRequest(env.ctx(env.manager, service.RoleManager), in); err != nil {
		t.Fatalf("CreateRequest as manager: %v", err)
	}
}

func TestRequestService_Lifecycle_ApproveDeliver(t *testing.T) {
	env := setupEnv(t)
	managerCtx := env.ctx(env.manager, service.RoleManager)
	clientCtx := env.ctx(env.client, service.RoleClient)

	// приёмка 100 на склад
	if _, err := env.ledger.ApplyMovement(managerCtx, service.MovementInput{
		SupplierID: env.supplier, SupplierItemID: env.supplierItemID,
		Qty: dec(100), Type: models.MovementIn,
	}); err != nil {
		t.Fatalf("ApplyMovement IN: %v", err)
	}

	req, err := env.request.CreateRequest(clientCtx, service.CreateRequestInput{
		Lines: []service.CreateRequestLine{{CatalogItemID: &env.catalogItemID, Qty: dec(30)}},
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	// APPROVED резервирует по каждой позиции
	req, err = env.request.UpdateStatus(managerCtx, req.ID, models.RequestStatusApproved)
	if err != nil {
		t.Fatalf("UpdateStatus APPROVED: %v", err)
	}
	if req.Status != models.RequestStatusApproved {
		t.Fatalf("expected APPROVED, got %s", req.Status)
	}
	env.mustBalance(t, 100, 30)
	if len(req.StatusHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(req.StatusHistory))
	}

	// повторный APPROVED — история растёт, резерв не дублируется
	req, err = env.request.UpdateStatus(managerCtx, req.ID, models.RequestStatusApproved)
	if err != nil {
		t.Fatalf("UpdateStatus APPROVED repeat: %v", err)
	}
	env.mustBalance(t, 100, 30)
	if len(req.StatusHistory) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(req.StatusHistory))
	}

	// IN_PROGRESS — чистый маркер
	req, err = env.request.UpdateStatus(managerCtx, req.ID, models.RequestStatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus IN_PROGRESS: %v", err)
	}
	env.mustBalance(t, 100, 30)

	// DELIVERED списывает остаток и резерв
	req, err = env.request.UpdateStatus(managerCtx, req.ID, models.RequestStatusDelivered)
	if err != nil {
		t.Fatalf("UpdateStatus DELIVERED: %v", err)
	}
	env.mustBalance(t, 70, 0)
	last := req.StatusHistory[len(req.StatusHistory)-1]
	if last.Status != models.RequestStatusDelivered {
		t.Fatalf("expected last history entry DELIVERED, got %+v", last)
	}

	// назад из DELIVERED нельзя
	if _, err := env.request.UpdateStatus(managerCtx, req.ID, models.RequestStatusInProgress); !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// и отменить доставленное нельзя
	if _, err := env.request.UpdateStatus(managerCtx, req.ID, models.RequestStatusCanceled); !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for cancel after deliver, got %v", err)
	}

	// движения перехода ссылаются на заявку
	movements, total, err := env.ledger.ListMovements(managerCtx, service.MovementListInput{RequestID: &req.ID})
	if err != nil {
		t.Fatalf("ListMovements by request: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected RESERVE+OUT movements, got %d", total)
	}
	if movements[0].Type != models.MovementReserve || movements[1].Type != models.MovementOut {
		t.Fatalf("expected RESERVE then OUT, got %s, %s", movements[0].Type, movements[1].Type)
	}
}

func TestRequestService_Lifecycle_Cancel(t *testing.T) {
	env := setupEnv(t)
	managerCtx := env.ctx(env.manager, service.RoleManager)

	if _, err := env.ledger.ApplyMovement(managerCtx, service.MovementInput{
		SupplierID: env.supplier, SupplierItemID: env.supplierItemID,
		Qty: dec(100), Type: models.MovementIn,
	}); err != nil {
		t.Fatalf("ApplyMovement IN: %v", err)
	}

	req, err := env.request.CreateRequest(managerCtx, service.CreateRequestInput{
		Lines: []service.CreateRequestLine{{CatalogItemID: &env.catalogItemID, Qty: dec(30)}},
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	if _, err := env.request.UpdateStatus(managerCtx, req.ID, models.RequestStatusApproved); err != nil {
		t.Fatalf("UpdateStatus APPROVED: %v", err)
	}
	env.mustBalance(t, 100, 30)

	// отмена возвращает резерв, остаток не трогает
	req, err = env.request.UpdateStatus(managerCtx, req.ID, models.RequestStatusCanceled)
	if err != nil {
		t.Fatalf("UpdateStatus CANCELED: %v", err)
	}
	if req.Status != models.RequestStatusCanceled {
		t.Fatalf("expected CANCELED, got %s", req.Status)
	}
	env.mustBalance(t, 100, 0)

	// из CANCELED выхода нет
	if _, err := env.request.UpdateStatus(managerCtx, req.ID, models.RequestStatusApproved); !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRequestService_Visibility(t *testing.T) {
	env := setupEnv(t)
	clientCtx := env.ctx(env.client, service.RoleClient)

	req, err := env.request.CreateRequest(clientCtx, service.CreateRequestInput{
		Lines: []service.CreateRequestLine{{CatalogItemID: &env.catalogItemID, Qty: dec(5)}},
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	// автор видит свою заявку
	if _, err := env.request.GetRequest(clientCtx, req.ID); err != nil {
		t.Fatalf("GetRequest as author: %v", err)
	}

	// чужой клиент — нет (и не отличает от несуществующей)
	otherClient := env.ctx(uuid.New(), service.RoleClient)
	if _, err := env.request.GetRequest(otherClient, req.ID); !errors.Is(err, service.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound for foreign client, got %v", err)
	}

	// поставщик позиций заявки — видит
	supplierCtx := env.ctx(env.supplier, service.RoleSupplier)
	if _, err := env.request.GetRequest(supplierCtx, req.ID); err != nil {
		t.Fatalf("GetRequest as supplier: %v", err)
	}

	// менеджер — видит всё
	if _, err := env.request.GetRequest(env.ctx(env.manager, service.RoleManager), req.ID); err != nil {
		t.Fatalf("GetRequest as manager: %v", err)
	}

	// списки: чужому клиенту пусто, автору — одна
	_, total, err := env.request.ListRequests(otherClient, service.RequestListInput{})
	if err != nil {
		t.Fatalf("ListRequests foreign: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected 0 requests for foreign client, got %d", total)
	}
	_, total, err = env.request.ListRequests(clientCtx, service.RequestListInput{})
	if err != nil {
		t.Fatalf("ListRequests author: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 request for author, got %d", total)
	}
}

func TestRequestService_TransitionIdempotencyAcrossRetry(t *testing.T) {
	env := setupEnv(t)
	managerCtx := env.ctx(env.manager, service.RoleManager)

	if _, err := env.ledger.ApplyMovement(managerCtx, service.MovementInput{
		SupplierID: env.supplier, SupplierItemID: env.supplierItemID,
		Qty: dec(100), Type: models.MovementIn,
	}); err != nil {
		t.Fatalf("ApplyMovement IN: %v", err)
	}

	req, err := env.request.CreateRequest(managerCtx, service.CreateRequestInput{
		Lines: []service.CreateRequestLine{{CatalogItemID: &env.catalogItemID, Qty: dec(30)}},
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	if _, err := env.request.UpdateStatus(managerCtx, req.ID, models.RequestStatusApproved); err != nil {
		t.Fatalf("UpdateStatus APPROVED: %v", err)
	}

	// движение перехода несёт детерминированный ключ идемпотентности:
	// прямой повтор того же движения координатором остаётся no-op
	movements, _, err := env.ledger.ListMovements(managerCtx, service.MovementListInput{RequestID: &req.ID})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	if len(movements) != 1 || movements[0].IdempotencyKey == nil {
		t.Fatalf("expected 1 keyed movement, got %+v", movements)
	}

	res, err := env.ledger.ApplyMovement(managerCtx, service.MovementInput{
		SupplierID:     env.supplier,
		SupplierItemID: env.supplierItemID,
		Qty:            dec(30),
		Type:           models.MovementReserve,
		RequestID:      &req.ID,
		IdempotencyKey: movements[0].IdempotencyKey,
	})
	if err != nil {
		t.Fatalf("replay ApplyMovement: %v", err)
	}
	if !res.Replayed {
		t.Fatal("expected replay on transition idempotency key")
	}
	env.mustBalance(t, 100, 30)
}
