package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementIn      MovementType = "IN"
	MovementOut     MovementType = "OUT"
	MovementReserve MovementType = "RESERVE"
	MovementRelease MovementType = "RELEASE"
	MovementAdjust  MovementType = "ADJUST"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementReserve, MovementRelease, MovementAdjust:
		return true
	}
	return false
}

// Статус заявки — строковый тип (как OrderStatus в заказах)
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusApproved   RequestStatus = "APPROVED"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusDelivered  RequestStatus = "DELIVERED"
	RequestStatusCanceled   RequestStatus = "CANCELED"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusInProgress,
		RequestStatusDelivered, RequestStatusCanceled:
		return true
	}
	return false
}

// Terminal: из DELIVERED и CANCELED переходов нет.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusDelivered || s == RequestStatusCanceled
}

// Balance — остаток по ключу (tenant, supplier, supplier_item).
// Создаётся лениво первым движением, никогда не удаляется.
type Balance struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_balances_tenant_supplier_item"`
	SupplierID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_balances_tenant_supplier_item"`
	SupplierItemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_balances_tenant_supplier_item"`

	OnHand   decimal.Decimal `gorm:"type:numeric(18,3);not null;default:0"`
	Reserved decimal.Decimal `gorm:"type:numeric(18,3);not null;default:0"`
	// Available всегда пересчитывается как OnHand - Reserved; может быть отрицательным.
	Available decimal.Decimal  `gorm:"type:numeric(18,3);not null;default:0"`
	MinStock  *decimal.Decimal `gorm:"type:numeric(18,3)"`
	LowStock  bool             `gorm:"not null;default:false"`

	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Balance) TableName() string { return "balances" }

// Movement — неизменяемая запись журнала. Только создание, никаких Update/Delete.
type Movement struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;index"`
	SupplierID     uuid.UUID `gorm:"type:uuid;not null;index"`
	SupplierItemID uuid.UUID `gorm:"type:uuid;not null;index"`

	Qty  decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	Type MovementType    `gorm:"type:text;not null;index"`

	// Обратная ссылка на заявку; заявка свои движения не перечисляет.
	RequestID      *uuid.UUID `gorm:"type:uuid;index"`
	Note           string     `gorm:"type:text"`
	IdempotencyKey *string    `gorm:"type:text"`

	OnHandBefore   decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	ReservedBefore decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	OnHandAfter    decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	ReservedAfter  decimal.Decimal `gorm:"type:numeric(18,3);not null"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"not null;default:now();index"`
}

func (Movement) TableName() string { return "movements" }

type Request struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	RequesterUID uuid.UUID     `gorm:"type:uuid;not null;index"`
	Status       RequestStatus `gorm:"type:text;not null;default:'PENDING';index"`
	Notes        string        `gorm:"type:text"`
	ScheduleAt   *time.Time

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Lines         []RequestLine         `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	StatusHistory []RequestStatusChange `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
}

func (Request) TableName() string { return "requests" }

// RequestLine принадлежит заявке, самостоятельной идентичности не имеет.
// Снапшоты фиксируются при создании: правки каталога задним числом заявку не меняют.
type RequestLine struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_request_lines_request_index"`
	LineIndex int       `gorm:"not null;uniqueIndex:ux_request_lines_request_index"`

	SupplierID     uuid.UUID `gorm:"type:uuid;not null;index"`
	SupplierItemID uuid.UUID `gorm:"type:uuid;not null"`

	Qty           decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	NameSnapshot  string          `gorm:"type:text;not null"`
	UnitSnapshot  string          `gorm:"type:text;not null"`
	PriceSnapshot decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (RequestLine) TableName() string { return "request_lines" }

// RequestStatusChange — append-only история статусов.
type RequestStatusChange struct {
	ID        uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID uuid.UUID     `gorm:"type:uuid;not null;index"`
	Status    RequestStatus `gorm:"type:text;not null"`
	ByUID     uuid.UUID     `gorm:"type:uuid;not null"`
	At        time.Time     `gorm:"not null;default:now();index"`
}

func (RequestStatusChange) TableName() string { return "request_status_changes" }
