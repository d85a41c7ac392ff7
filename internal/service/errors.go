package service

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrBalanceNotFound     = errors.New("balance not found")
	ErrRequestNotFound     = errors.New("request not found")
	ErrCatalogItemNotFound = errors.New("catalog item not found")

	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidMovementType = errors.New("unknown movement type")
	ErrInvalidStatus       = errors.New("unknown request status")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrEmptyLines          = errors.New("request lines empty")
	ErrAmbiguousLineRef    = errors.New("line must reference either a catalog item or a supplier item, not both")

	ErrConflict = errors.New("concurrent modification conflict")
)
