package http

import (
	"net/http"

	"stock-service/internal/models"
	"stock-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BalanceHandler struct {
	svc service.LedgerService
	log *zap.Logger
}

func NewBalanceHandler(svc service.LedgerService, log *zap.Logger) *BalanceHandler {
	return &BalanceHandler{svc: svc, log: log}
}

// List godoc
// @Summary Остатки склада
// @Description Список остатков арендатора, опционально по поставщику / только с низким остатком
// @Tags stock
// @Produce json
// @Param supplierId query string false "Фильтр по поставщику"
// @Param lowStock query bool false "Только низкий остаток"
// @Success 200 {object} BalanceListResponse
// @Router /stock-balances [get]
func (h *BalanceHandler) List(c *gin.Context) {
	var in service.BalanceListInput

	if v := c.Query("supplierId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewValidationError("invalid supplierId"))
			return
		}
		in.SupplierID = &id
	}
	in.LowStockOnly = c.Query("lowStock") == "true"
	in.Limit = intQuery(c, "limit")
	in.Offset = intQuery(c, "offset")

	items, total, err := h.svc.ListBalances(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := BalanceListResponse{Items: make([]BalanceResponse, 0, len(items)), Total: total}
	for i := range items {
		out.Items = append(out.Items, ToBalanceResponse(&items[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Move godoc
// @Summary Ручное движение по складу
// @Description Применяет одно движение (IN/OUT/RESERVE/RELEASE/ADJUST) атомарно
// @Tags stock
// @Accept json
// @Produce json
// @Param move body MoveRequest true "Движение"
// @Success 200 {object} MoveResponse
// @Router /stock-balances/move [post]
func (h *BalanceHandler) Move(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid move request", zap.Error(err))
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request body"))
		return
	}

	res, err := h.svc.ApplyMovement(c.Request.Context(), service.MovementInput{
		SupplierID:     req.SupplierID,
		SupplierItemID: req.SupplierItemID,
		Qty:            req.Qty,
		Type:           models.MovementType(req.Type),
		RequestID:      req.RequestID,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, MoveResponse{
		Balance:    ToBalanceResponse(res.Balance),
		MovementID: res.Movement.ID,
		Replayed:   res.Replayed,
	})
}

// SetMinStock godoc
// @Summary Порог низкого остатка
// @Tags stock
// @Accept json
// @Produce json
// @Param minStock body MinStockRequest true "Порог (null — сброс)"
// @Success 200 {object} BalanceResponse
// @Router /stock-balances/min-stock [patch]
func (h *BalanceHandler) SetMinStock(c *gin.Context) {
	var req MinStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request body"))
		return
	}

	bal, err := h.svc.SetMinStock(c.Request.Context(), req.SupplierID, req.SupplierItemID, req.MinStock)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ToBalanceResponse(bal))
}

// Movements godoc
// @Summary Журнал движений
// @Description Хронологический список движений с фильтрами
// @Tags stock
// @Produce json
// @Param supplierId query string false "Поставщик"
// @Param supplierItemId query string false "Позиция поставщика"
// @Param requestId query string false "Заявка"
// @Success 200 {object} MovementListResponse
// @Router /stock-movements [get]
func (h *BalanceHandler) Movements(c *gin.Context) {
	var in service.MovementListInput

	for param, dst := range map[string]**uuid.UUID{
		"supplierId":     &in.SupplierID,
		"supplierItemId": &in.SupplierItemID,
		"requestId":      &in.RequestID,
	} {
		if v := c.Query(param); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, NewValidationError("invalid "+param))
				return
			}
			*dst = &id
		}
	}
	in.Limit = intQuery(c, "limit")
	in.Offset = intQuery(c, "offset")

	items, total, err := h.svc.ListMovements(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := MovementListResponse{Items: make([]MovementResponse, 0, len(items)), Total: total}
	for i := range items {
		out.Items = append(out.Items, ToMovementResponse(&items[i]))
	}
	c.JSON(http.StatusOK, out)
}
