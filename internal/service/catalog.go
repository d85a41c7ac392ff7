package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogItem — снапшот позиции каталога на момент обращения.
// Метаданные позиции (имя, единица, цена) принадлежат каталогу, не нам.
type CatalogItem struct {
	SupplierID     uuid.UUID
	SupplierItemID uuid.UUID
	Name           string
	Unit           string
	Price          decimal.Decimal
	Published      bool
}

// CatalogProvider — внешний коллаборатор (каталог-сервис).
// Возвращает nil, nil если позиция не найдена в арендаторе.
type CatalogProvider interface {
	GetCatalogItem(ctx context.Context, tenantID, catalogItemID uuid.UUID) (*CatalogItem, error)
	GetSupplierItem(ctx context.Context, tenantID, supplierID, supplierItemID uuid.UUID) (*CatalogItem, error)
}

// HTTPCatalogClient ходит в каталог-сервис по REST.
type HTTPCatalogClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPCatalogClient(baseURL string, client *http.Client) *HTTPCatalogClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPCatalogClient{baseURL: baseURL, client: client}
}

type catalogItemDTO struct {
	SupplierID     uuid.UUID       `json:"supplierId"`
	SupplierItemID uuid.UUID       `json:"supplierItemId"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	Price          decimal.Decimal `json:"price"`
	Published      bool            `json:"published"`
}

func (c *HTTPCatalogClient) GetCatalogItem(ctx context.Context, tenantID, catalogItemID uuid.UUID) (*CatalogItem, error) {
	u := fmt.Sprintf("%s/catalog-items/%s?tenantId=%s", c.baseURL, catalogItemID, tenantID)
	return c.fetch(ctx, u)
}

func (c *HTTPCatalogClient) GetSupplierItem(ctx context.Context, tenantID, supplierID, supplierItemID uuid.UUID) (*CatalogItem, error) {
	q := url.Values{}
	q.Set("tenantId", tenantID.String())
	q.Set("supplierId", supplierID.String())
	q.Set("supplierItemId", supplierItemID.String())
	return c.fetch(ctx, c.baseURL+"/supplier-items?"+q.Encode())
}

func (c *HTTPCatalogClient) fetch(ctx context.Context, u string) (*CatalogItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var dto catalogItemDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("catalog response decode: %w", err)
	}
	return &CatalogItem{
		SupplierID:     dto.SupplierID,
		SupplierItemID: dto.SupplierItemID,
		Name:           dto.Name,
		Unit:           dto.Unit,
		Price:          dto.Price,
		Published:      dto.Published,
	}, nil
}
