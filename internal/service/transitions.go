package service

import "stock-service/internal/models"

// Порядок стадий жизненного цикла. CANCELED вне цепочки.
var statusRank = map[models.RequestStatus]int{
	models.RequestStatusPending:    0,
	models.RequestStatusApproved:   1,
	models.RequestStatusInProgress: 2,
	models.RequestStatusDelivered:  3,
}

// CanTransition: вперёд по цепочке (пропуски допустимы), повтор того же статуса
// допустим как no-op ретрай, CANCELED — из любого нетерминального. Назад нельзя.
func CanTransition(from, to models.RequestStatus) bool {
	if from == to {
		return true
	}
	if to == models.RequestStatusCanceled {
		return !from.Terminal()
	}
	if from == models.RequestStatusCanceled {
		return false
	}
	return statusRank[to] > statusRank[from]
}

// LedgerEffect возвращает тип движения для перехода и false, если перехода
// без эффекта. Эффект определяется целевым статусом и страхуется предыдущим:
// повторная подача того же целевого статуса движений не порождает.
func LedgerEffect(prev, target models.RequestStatus) (models.MovementType, bool) {
	switch target {
	case models.RequestStatusApproved:
		switch prev {
		case models.RequestStatusApproved, models.RequestStatusInProgress, models.RequestStatusDelivered:
			return "", false
		}
		return models.MovementReserve, true
	case models.RequestStatusDelivered:
		if prev == models.RequestStatusDelivered {
			return "", false
		}
		return models.MovementOut, true
	case models.RequestStatusCanceled:
		if prev == models.RequestStatusCanceled {
			return "", false
		}
		return models.MovementRelease, true
	}
	// PENDING, IN_PROGRESS — чистые маркеры статуса
	return "", false
}
