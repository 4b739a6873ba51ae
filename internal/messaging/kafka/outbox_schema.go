package kafka

import "gorm.io/gorm"

const outboxDDL = `
CREATE TABLE IF NOT EXISTS outbox_events (
	id             VARCHAR(36) PRIMARY KEY,
	request_id     VARCHAR(64),
	aggregate_type VARCHAR(50) NOT NULL,
	aggregate_id   VARCHAR(64) NOT NULL,
	event_type     VARCHAR(100) NOT NULL,
	topic          VARCHAR(200) NOT NULL,
	payload        BYTEA NOT NULL,
	status         VARCHAR(20) NOT NULL DEFAULT 'pending',
	retry_count    INT NOT NULL DEFAULT 0,
	error_message  TEXT,
	next_retry_at  TIMESTAMPTZ,
	processed_at   TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const outboxIndexDDL = `
CREATE INDEX IF NOT EXISTS idx_outbox_events_status_created ON outbox_events (status, created_at)`

func MigrateOutbox(db *gorm.DB) error {
	if err := db.Exec(outboxDDL).Error; err != nil {
		return err
	}
	return db.Exec(outboxIndexDDL).Error
}
