package repository

import "gorm.io/gorm"

type Repository struct {
	DB        *gorm.DB
	Balances  BalanceRepo
	Movements MovementRepo
	Requests  RequestRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:        db,
		Balances:  NewBalanceRepo(db),
		Movements: NewMovementRepo(db),
		Requests:  NewRequestRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// Глобальная транзакция на весь набор репо
func (r *Repository) WithTx(fn func(tx *Repository) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
