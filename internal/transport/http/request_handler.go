package http

import (
	"net/http"

	"stock-service/internal/models"
	"stock-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RequestHandler struct {
	svc service.RequestService
	log *zap.Logger
}

func NewRequestHandler(svc service.RequestService, log *zap.Logger) *RequestHandler {
	return &RequestHandler{svc: svc, log: log}
}

// Create godoc
// @Summary Создать заявку
// @Description Позиция ссылается либо на каталог, либо на пару поставщик/позиция
// @Tags requests
// @Accept json
// @Produce json
// @Param request body CreateRequestDTO true "Заявка"
// @Success 201 {object} RequestResponse
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var req CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid create request", zap.Error(err))
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request body"))
		return
	}

	in := service.CreateRequestInput{
		Notes:      req.Notes,
		ScheduleAt: req.ScheduleAt,
	}
	if req.Status != nil {
		st := models.RequestStatus(*req.Status)
		in.Status = &st
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, service.CreateRequestLine{
			CatalogItemID:  l.CatalogItemID,
			SupplierID:     l.SupplierID,
			SupplierItemID: l.SupplierItemID,
			Qty:            l.Qty,
		})
	}

	created, err := h.svc.CreateRequest(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, ToRequestResponse(created))
}

// Get godoc
// @Summary Получить заявку
// @Tags requests
// @Produce json
// @Param id path string true "ID заявки"
// @Success 200 {object} RequestResponse
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request id"))
		return
	}

	req, err := h.svc.GetRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ToRequestResponse(req))
}

// List godoc
// @Summary Список заявок
// @Tags requests
// @Produce json
// @Param status query string false "Фильтр по статусу"
// @Success 200 {object} RequestListResponse
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	var in service.RequestListInput
	if v := c.Query("status"); v != "" {
		st := models.RequestStatus(v)
		if !st.Valid() {
			c.JSON(http.StatusBadRequest, NewValidationError("invalid status"))
			return
		}
		in.Status = &st
	}
	in.Limit = intQuery(c, "limit")
	in.Offset = intQuery(c, "offset")

	items, total, err := h.svc.ListRequests(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := RequestListResponse{Items: make([]RequestResponse, 0, len(items)), Total: total}
	for i := range items {
		out.Items = append(out.Items, ToRequestResponse(&items[i]))
	}
	c.JSON(http.StatusOK, out)
}

// UpdateStatus godoc
// @Summary Перевести заявку в новый статус
// @Description Движения по всем позициям, статус и история — одна транзакция
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "ID заявки"
// @Param status body UpdateStatusDTO true "Целевой статус"
// @Success 200 {object} RequestResponse
// @Router /requests/{id}/status [patch]
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request id"))
		return
	}

	var body UpdateStatusDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request body"))
		return
	}

	req, err := h.svc.UpdateStatus(c.Request.Context(), id, models.RequestStatus(body.Status))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ToRequestResponse(req))
}
