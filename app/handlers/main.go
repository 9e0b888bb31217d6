package main

import (
	"fmt"
	"os"
	"time"

	cfgPkg "github.com/coffeeshop/account-service/app/config"
	"github.com/coffeeshop/account-service/app/logger"
	"github.com/coffeeshop/account-service/app/services"
	"github.com/coffeeshop/account-service/app/store"
)

func main() {
	logger.Init()
	cfgPkg.Load()

	if err := validateRequiredEnv(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("required environment variables missing")
	}

	dbUser := cfgPkg.GetString("POSTGRES_USER", "postgres")
	dbPassword := cfgPkg.GetString("POSTGRES_PASSWORD", "postgres")
	dbHost := cfgPkg.GetString("POSTGRES_HOST", "postgres")
	dbPort := cfgPkg.GetString("POSTGRES_PORT", "5432")
	dbName := cfgPkg.GetString("POSTGRES_DB", "accounts")
	dbSSLMode := cfgPkg.GetString("POSTGRES_SSLMODE", "disable")

	dbAddr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)

	cfg := config{
		addr: cfgPkg.GetString("ADDR", ":8080"),
		db: dbConfig{
			addr:         dbAddr,
			maxOpenConns: cfgPkg.GetInt("DB_MAX_OPEN_CONNS", 30),
			maxIdleConns: cfgPkg.GetInt("DB_MAX_IDLE_CONNS", 30),
			maxIdleTime:  cfgPkg.GetString("DB_MAX_IDLE_TIME", "15m"),
		},
	}

	logger.Logger.Info().
		Str("host", dbHost).
		Str("port", dbPort).
		Str("database", dbName).
		Msg("connecting to postgres")

	db, err := cfgPkg.NewDB(
		cfg.db.addr,
		cfg.db.maxOpenConns,
		cfg.db.maxIdleConns,
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	logger.Logger.Info().
		Str("host", dbHost).
		Str("database", dbName).
		Msg("postgres connection pool established")

	st := store.NewStorage(db)

	redisClient, err := cfgPkg.NewRedisClient()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	logger.Logger.Info().Msg("redis connection established")

	rabbitConn, rabbitCh, err := cfgPkg.NewRabbitMQConnection()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rabbitConn.Close()
	defer rabbitCh.Close()

	logger.Logger.Info().Msg("RabbitMQ connection established")

	publisher := services.NewRabbitMQPublisher(rabbitCh)

	tokenService := services.NewTokenService(
		cfgPkg.GetString("JWT_ACCESS_SECRET", ""),
		cfgPkg.GetString("JWT_REFRESH_SECRET", ""),
		cfgPkg.GetDuration("JWT_ACCESS_TTL", 1800*time.Second),
		cfgPkg.GetDuration("JWT_REFRESH_TTL", 604800*time.Second),
	)
	confirmationService := services.NewConfirmationService(st, publisher, cfgPkg.GetBool("DEBUG", false))
	userService := services.NewUserService(st, confirmationService, tokenService)

	app := &application{
		config:       cfg,
		store:        st,
		userService:  userService,
		tokenService: tokenService,
		redisClient:  redisClient,
		db:           db,
		rabbitConn:   rabbitConn,
		rabbitCh:     rabbitCh,
	}
	mux := app.mount()

	if err := app.runWithGracefulShutdown(mux, db, redisClient, rabbitConn, rabbitCh); err != nil {
		logger.Logger.Fatal().Err(err).Msg("server error")
	}
}

func validateRequiredEnv() error {
	if os.Getenv("JWT_ACCESS_SECRET") == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if os.Getenv("JWT_REFRESH_SECRET") == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}
	return nil
}
