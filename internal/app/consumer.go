package app

import (
	"context"
	"fmt"

	"hris-timekeeper/internal/events"
	"hris-timekeeper/internal/messaging/kafka/consumer"
	"hris-timekeeper/internal/shared/config"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const leaveResetGroupID = "hris-timekeeper-leave-reset"

// RunConsumer applies leave reset requests from Kafka until ctx is
// cancelled.
func RunConsumer(ctx context.Context, cfg config.Config) error {
	logger := zap.L().Named("app.consumer")

	if cfg.KafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	gormDB, sqlDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := Migrate(gormDB); err != nil {
		return err
	}

	rdb := openOptionalRedis(cfg, connectRetries, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	ledgerService := newLedgerService(cfg, sqlDB, gormDB, rdb, logger)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.KafkaBroker},
		Topic:          events.LeaveResetRequestedTopic,
		GroupID:        leaveResetGroupID,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	err = consumer.ConsumeLeaveResetRequested(ctx, reader, ledgerService, logger)
	logger.Info("consumer shutting down")
	return err
}
