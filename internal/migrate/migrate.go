package migrate

import (
	"context"

	"stock-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint'ы
	CreateIndexes          bool // индексы и UNIQUE
	CreateFKsViaSQL        bool // FK через Exec после AutoMigrate
	CreateUpdatedAtTrigger bool // триггеры updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

func MigrateStockDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы склада/заявок")

	if opt.CreateExtensions {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("pgcrypto error", zap.Error(err))
			return err
		}
	}

	log.Info("Создание таблиц: balances, movements, requests, request_lines, request_status_changes")
	if err := db.AutoMigrate(
		&models.Balance{},
		&models.Movement{},
		&models.Request{},
		&models.RequestLine{},
		&models.RequestStatusChange{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}

	if opt.CreateUpdatedAtTrigger {
		log.Info("Создание триггеров updated_at")
		if err := db.Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_balances_updated ON balances;
CREATE TRIGGER trg_balances_updated BEFORE UPDATE ON balances
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_requests_updated ON requests;
CREATE TRIGGER trg_requests_updated BEFORE UPDATE ON requests
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("triggers error", zap.Error(err))
			return err
		}
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")

		// Остаток и резерв — неотрицательные; available может быть любым
		if err := db.Exec(`
ALTER TABLE balances
	DROP CONSTRAINT IF EXISTS chk_balances_non_negative,
	ADD CONSTRAINT chk_balances_non_negative
	CHECK (on_hand >= 0 AND reserved >= 0);
`).Error; err != nil {
			log.Error("chk balances", zap.Error(err))
			return err
		}

		// Количество в движении: строго > 0 кроме ADJUST (знаковые корректировки), и != 0 всегда
		if err := db.Exec(`
ALTER TABLE movements
	DROP CONSTRAINT IF EXISTS chk_movements_qty,
	ADD CONSTRAINT chk_movements_qty
	CHECK ((type = 'ADJUST' AND qty <> 0) OR qty > 0);
`).Error; err != nil {
			log.Error("chk movements.qty", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE movements
	DROP CONSTRAINT IF EXISTS chk_movements_type_allowed,
	ADD CONSTRAINT chk_movements_type_allowed
	CHECK (type IN ('IN','OUT','RESERVE','RELEASE','ADJUST'));
`).Error; err != nil {
			log.Error("chk movements.type", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE requests
	DROP CONSTRAINT IF EXISTS chk_requests_status_allowed,
	ADD CONSTRAINT chk_requests_status_allowed
	CHECK (status IN ('PENDING','APPROVED','IN_PROGRESS','DELIVERED','CANCELED'));
`).Error; err != nil {
			log.Error("chk requests.status", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE request_lines
	DROP CONSTRAINT IF EXISTS chk_request_lines_qty_gt_zero,
	ADD CONSTRAINT chk_request_lines_qty_gt_zero
	CHECK (qty > 0);
`).Error; err != nil {
			log.Error("chk request_lines.qty", zap.Error(err))
			return err
		}

		log.Info("CHECK-и созданы")
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов и уникальностей")

		// Идемпотентность движений: уникальный ключ в разрезе арендатора (частичный — ключ опционален)
		if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_movements_tenant_idempotency
ON movements (tenant_id, idempotency_key)
WHERE idempotency_key IS NOT NULL;
`).Error; err != nil {
			log.Error("ux movements idempotency", zap.Error(err))
			return err
		}

		// Хронология журнала по позиции
		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_movements_tenant_item_created
ON movements (tenant_id, supplier_id, supplier_item_id, created_at);
`).Error; err != nil {
			log.Error("ix movements item_created", zap.Error(err))
			return err
		}

		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_requests_tenant_created
ON requests (tenant_id, created_at DESC);
`).Error; err != nil {
			log.Error("ix requests tenant_created", zap.Error(err))
			return err
		}

		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_status_changes_request_at
ON request_status_changes (request_id, at);
`).Error; err != nil {
			log.Error("ix status_changes request_at", zap.Error(err))
			return err
		}

		log.Info("Индексы созданы")
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")

		if err := db.Exec(`
ALTER TABLE request_lines
  DROP CONSTRAINT IF EXISTS fk_request_lines_request,
  ADD CONSTRAINT fk_request_lines_request
    FOREIGN KEY (request_id) REFERENCES requests(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("fk request_lines.request_id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE request_status_changes
  DROP CONSTRAINT IF EXISTS fk_status_changes_request,
  ADD CONSTRAINT fk_status_changes_request
    FOREIGN KEY (request_id) REFERENCES requests(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("fk request_status_changes.request_id", zap.Error(err))
			return err
		}

		// movements.request_id — обратная ссылка, не владение: заявку с движениями не удаляем
		if err := db.Exec(`
ALTER TABLE movements
  DROP CONSTRAINT IF EXISTS fk_movements_request,
  ADD CONSTRAINT fk_movements_request
    FOREIGN KEY (request_id) REFERENCES requests(id) ON DELETE RESTRICT;
`).Error; err != nil {
			log.Error("fk movements.request_id", zap.Error(err))
			return err
		}

		log.Info("Внешние ключи созданы")
	}

	log.Info("Миграция базы склада/заявок успешно завершена")
	return nil
}
