package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/doinghun/merlabot-public/internal/config"
	"github.com/doinghun/merlabot-public/internal/db"
	"github.com/doinghun/merlabot-public/internal/kafka"
	"github.com/doinghun/merlabot-public/internal/repository"
	"github.com/doinghun/merlabot-public/internal/worker"
	"github.com/spf13/cobra"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Drain delivery events from Kafka into ClickHouse",
	RunE:  runAnalytics,
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !cfg.Kafka.Enabled() {
		return fmt.Errorf("kafka.brokers not configured")
	}
	if cfg.ClickHouse.DSN == "" {
		return fmt.Errorf("clickhouse.dsn not configured")
	}

	chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
		DSN:             cfg.ClickHouse.DSN,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
		PingTimeout:     cfg.ClickHouse.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer func() { _ = chDB.Close() }()

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topic,
		GroupID:        cfg.Kafka.GroupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: cfg.Kafka.CommitInterval,
	})
	defer consumer.Close()

	sink := worker.NewAnalyticsSink(consumer, repository.NewDeliveriesRepository(chDB))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf(">> analytics sink started topic=%s group=%s batchSize=%d batchWait=%s",
		cfg.Kafka.Topic, cfg.Kafka.GroupID, sink.BatchSize, sink.BatchWait)

	return sink.Run(ctx)
}
