package migrate

import (
	"context"
	"menu-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChangeFeedChannel is the postgres NOTIFY channel fed by the orders trigger.
const ChangeFeedChannel = "order_changes"

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint для целостности
	CreateIndexes          bool // индексы
	CreateFKsViaSQL        bool // FK через SQL (поверх GORM-constraint)
	CreateUpdatedAtTrigger bool // триггер обновления updated_at
	CreateChangeFeed       bool // триггер pg_notify для realtime
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
		CreateChangeFeed:       true,
	}
}

// PortableOptions only runs AutoMigrate; used for sqlite test databases.
func PortableOptions() MigrateOptions {
	return MigrateOptions{}
}

type step struct {
	name string
	sql  string
}

func MigrateMenuDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы данных заказов")
	db = db.WithContext(ctx)

	if opt.CreateExtensions {
		log.Info("Создание расширений PostgreSQL")
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("Не удалось включить расширение pgcrypto", zap.Error(err))
			return err
		}
	}

	log.Info("Создание таблиц")
	if err := db.AutoMigrate(
		&models.Product{}, &models.ProductOption{},
		&models.Coupon{},
		&models.Order{}, &models.OrderItem{}, &models.OrderItemOption{},
		&models.OrderStatusLog{},
	); err != nil {
		log.Error("Не удалось создать таблицы", zap.Error(err))
		return err
	}
	log.Info("Таблицы успешно созданы")

	if opt.CreateUpdatedAtTrigger {
		if err := run(db, log, updatedAtSteps); err != nil {
			return err
		}
	}
	if opt.CreateChecks {
		if err := run(db, log, checkSteps); err != nil {
			return err
		}
	}
	if opt.CreateIndexes {
		if err := run(db, log, indexSteps); err != nil {
			return err
		}
	}
	if opt.CreateFKsViaSQL {
		if err := run(db, log, fkSteps); err != nil {
			return err
		}
	}
	if opt.CreateChangeFeed {
		if err := run(db, log, changeFeedSteps); err != nil {
			return err
		}
	}

	log.Info("Миграция базы данных заказов успешно завершена")
	return nil
}

func run(db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		log.Info("Выполнение шага миграции", zap.String("step", s.name))
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error("Шаг миграции завершился ошибкой", zap.String("step", s.name), zap.Error(err))
			return err
		}
	}
	return nil
}

// updated_at is only touched by writes that do not set it themselves, status
// transitions pass their own timestamp.
var updatedAtSteps = []step{
	{"trigger updated_at", `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN
  IF NEW.updated_at IS NOT DISTINCT FROM OLD.updated_at THEN
    NEW.updated_at = now();
  END IF;
  RETURN NEW;
END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated
BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_coupons_updated ON coupons;
CREATE TRIGGER trg_coupons_updated
BEFORE UPDATE ON coupons
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`},
}

var checkSteps = []step{
	{"check orders.status", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_status_allowed;
ALTER TABLE orders ADD CONSTRAINT chk_orders_status_allowed
  CHECK (status IN ('received','preparing','ready'));
`},
	{"check orders.order_type", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_type_contact;
ALTER TABLE orders ADD CONSTRAINT chk_orders_type_contact
  CHECK (
    (order_type = 'pickup'  AND customer_name IS NOT NULL AND customer_phone IS NOT NULL AND table_number IS NULL) OR
    (order_type = 'dine_in' AND table_number IS NOT NULL AND customer_name IS NULL AND customer_phone IS NULL)
  );
`},
	{"check orders totals", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_totals;
ALTER TABLE orders ADD CONSTRAINT chk_orders_totals
  CHECK (subtotal_cents >= 0 AND discount_cents >= 0
         AND total_cents = GREATEST(0, subtotal_cents - discount_cents));
`},
	{"check order_items", `
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_quantity_gt_zero;
ALTER TABLE order_items ADD CONSTRAINT chk_order_items_quantity_gt_zero CHECK (quantity > 0);
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_prices_non_negative;
ALTER TABLE order_items ADD CONSTRAINT chk_order_items_prices_non_negative
  CHECK (product_price_cents >= 0 AND total_price_cents >= 0);
`},
	{"check coupons", `
ALTER TABLE coupons DROP CONSTRAINT IF EXISTS chk_coupons_discount;
ALTER TABLE coupons ADD CONSTRAINT chk_coupons_discount
  CHECK (
    (discount_type = 'percentage' AND discount_value BETWEEN 1 AND 100) OR
    (discount_type = 'fixed' AND discount_value > 0)
  );
ALTER TABLE coupons DROP CONSTRAINT IF EXISTS chk_coupons_status;
ALTER TABLE coupons ADD CONSTRAINT chk_coupons_status CHECK (status IN ('active','inactive'));
`},
}

var indexSteps = []step{
	{"index orders status/created", `
CREATE INDEX IF NOT EXISTS ix_orders_status_created ON orders (status, created_at DESC);
`},
	{"index orders phone/created", `
CREATE INDEX IF NOT EXISTS ix_orders_phone_created ON orders (customer_phone, created_at DESC)
WHERE customer_phone IS NOT NULL;
`},
	{"index status logs", `
CREATE INDEX IF NOT EXISTS ix_order_status_logs_order_changed ON order_status_logs (order_id, changed_at);
`},
}

var fkSteps = []step{
	{"fk order_items -> orders", `
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_order,
  ADD CONSTRAINT fk_order_items_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;
`},
	{"fk order_item_options -> order_items", `
ALTER TABLE order_item_options
  DROP CONSTRAINT IF EXISTS fk_order_item_options_item,
  ADD CONSTRAINT fk_order_item_options_item
    FOREIGN KEY (order_item_id) REFERENCES order_items(id) ON DELETE CASCADE;
`},
	{"fk order_status_logs -> orders", `
ALTER TABLE order_status_logs
  DROP CONSTRAINT IF EXISTS fk_order_status_logs_order,
  ADD CONSTRAINT fk_order_status_logs_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;
`},
}

var changeFeedSteps = []step{
	{"trigger change feed", `
CREATE OR REPLACE FUNCTION notify_order_change() RETURNS trigger AS $$
DECLARE
  payload json;
BEGIN
  IF TG_OP = 'INSERT' THEN
    payload = json_build_object('op', TG_OP, 'table', TG_TABLE_NAME, 'old', NULL, 'new', row_to_json(NEW));
  ELSE
    payload = json_build_object('op', TG_OP, 'table', TG_TABLE_NAME, 'old', row_to_json(OLD), 'new', row_to_json(NEW));
  END IF;
  PERFORM pg_notify('` + ChangeFeedChannel + `', payload::text);
  RETURN NEW;
END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_orders_notify ON orders;
CREATE TRIGGER trg_orders_notify
AFTER INSERT OR UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION notify_order_change();
`},
}
