package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doinghun/merlabot-public/internal/bot"
	"github.com/doinghun/merlabot-public/internal/config"
	"github.com/doinghun/merlabot-public/internal/db"
	"github.com/doinghun/merlabot-public/internal/events"
	httpSrv "github.com/doinghun/merlabot-public/internal/http"
	"github.com/doinghun/merlabot-public/internal/kafka"
	"github.com/doinghun/merlabot-public/internal/logger"
	"github.com/doinghun/merlabot-public/internal/messenger"
	"github.com/doinghun/merlabot-public/internal/nlu"
	"github.com/doinghun/merlabot-public/internal/profile"
	"github.com/doinghun/merlabot-public/internal/repository"
	"github.com/doinghun/merlabot-public/internal/restaurant"
	"github.com/doinghun/merlabot-public/internal/schedule"
	"github.com/doinghun/merlabot-public/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger.Init(cfg.Log.Level)

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		// optional: redis restaurant cache
		var redisClient *redis.Client
		if cfg.Redis.Addr != "" {
			redisClient, err = db.NewRedisClient(db.RedisOpts{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				DialTimeout: cfg.Redis.DialTimeout,
			})
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = redisClient.Close() }()
		}

		// optional: clickhouse-backed reports
		var deliveriesRepo repository.DeliveriesRepository
		if cfg.ClickHouse.DSN != "" {
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
			deliveriesRepo = repository.NewDeliveriesRepository(chDB)
		}

		// optional: delivery event stream
		var emitter *events.Emitter
		if cfg.Kafka.Enabled() {
			producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.WriteTimeout)
			emitter = events.NewEmitter(producer)
			defer func() { _ = emitter.Close() }()
		}

		sendClient := messenger.NewClient(cfg.Messenger.APIBaseURL, cfg.Messenger.PageToken, cfg.Messenger.Timeout)
		profileClient := profile.NewClient(cfg.Messenger.APIBaseURL, cfg.Messenger.PageToken, cfg.Messenger.Timeout)
		detector := nlu.NewClient(cfg.NLU.BaseURL, cfg.NLU.ProjectID, cfg.NLU.LanguageCode, cfg.NLU.Token, cfg.NLU.Timeout)
		restaurants := restaurant.NewRepository(mysqlDB, redisClient, cfg.Redis.CacheTTL)

		b := bot.New(bot.Options{
			Registry:      session.NewRegistry(profileClient),
			Detector:      detector,
			Sender:        sendClient,
			Restaurants:   restaurants,
			Scheduler:     schedule.Wall{},
			Emitter:       emitter,
			Quantum:       cfg.Pacing.Quantum,
			ServerURL:     cfg.Messenger.ServerURL,
			LookupTimeout: cfg.Restaurant.LookupTimeout,
		})

		server := httpSrv.NewServer(cfg, b, deliveriesRepo)

		errCh := make(chan error, 1)
		go func() {
			log.Printf("starting http on %s", cfg.HTTP.Addr)
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Printf("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
