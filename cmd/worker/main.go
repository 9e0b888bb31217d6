package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfgPkg "github.com/coffeeshop/account-service/app/config"
	"github.com/coffeeshop/account-service/app/logger"
	"github.com/coffeeshop/account-service/app/mailer"
	"github.com/coffeeshop/account-service/app/services"
	"github.com/coffeeshop/account-service/app/store"
	"github.com/coffeeshop/account-service/app/sweeper"
)

// The worker binary runs the two background jobs: the mailer consumer that
// delivers confirmation emails off the queue, and the sweeper that removes
// stale unverified accounts.
func main() {
	logger.Init()
	cfgPkg.Load()

	dbUser := cfgPkg.GetString("POSTGRES_USER", "postgres")
	dbPassword := cfgPkg.GetString("POSTGRES_PASSWORD", "postgres")
	dbHost := cfgPkg.GetString("POSTGRES_HOST", "postgres")
	dbPort := cfgPkg.GetString("POSTGRES_PORT", "5432")
	dbName := cfgPkg.GetString("POSTGRES_DB", "accounts")
	dbSSLMode := cfgPkg.GetString("POSTGRES_SSLMODE", "disable")

	dbAddr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)

	db, err := cfgPkg.NewDB(
		dbAddr,
		cfgPkg.GetInt("DB_MAX_OPEN_CONNS", 10),
		cfgPkg.GetInt("DB_MAX_IDLE_CONNS", 10),
		cfgPkg.GetString("DB_MAX_IDLE_TIME", "15m"),
	)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	logger.Logger.Info().Str("host", dbHost).Str("database", dbName).Msg("postgres connection pool established")

	rabbitConn, rabbitCh, err := cfgPkg.NewRabbitMQConnection()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rabbitConn.Close()
	defer rabbitCh.Close()

	logger.Logger.Info().Msg("RabbitMQ connection established")

	st := store.NewStorage(db)
	userService := services.NewUserService(st, nil, nil)

	smtpSender, err := mailer.NewMailer()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to build mailer")
	}
	consumer := mailer.NewConsumer(rabbitCh, smtpSender)

	sweepInterval := cfgPkg.GetDuration("SWEEP_INTERVAL", time.Hour)
	retention := cfgPkg.GetDuration("UNVERIFIED_RETENTION", services.UnverifiedRetention)
	userSweeper := sweeper.New(userService, sweepInterval, retention, logger.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go userSweeper.Run(ctx)

	consumerErrors := make(chan error, 1)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			consumerErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-consumerErrors:
		logger.Logger.Error().Err(err).Msg("mailer consumer failed")
	case sig := <-quit:
		logger.Logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down worker")
	}

	cancel()
	time.Sleep(time.Second)
	logger.Logger.Info().Msg("worker stopped")
}
