package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/coffeeshop/account-service/app/dto"
	"github.com/coffeeshop/account-service/app/errors"
	"github.com/coffeeshop/account-service/app/logger"
	"github.com/coffeeshop/account-service/app/metrics"
	accountmw "github.com/coffeeshop/account-service/app/middleware"
	"github.com/coffeeshop/account-service/app/models"
	"github.com/coffeeshop/account-service/app/services"
	"github.com/coffeeshop/account-service/app/store"
)

type application struct {
	config       config
	store        store.Storage
	userService  *services.UserService
	tokenService *services.TokenService
	redisClient  *redis.Client
	db           interface {
		PingContext(ctx context.Context) error
		Close() error
	}
	rabbitConn interface {
		IsClosed() bool
		Close() error
	}
	rabbitCh interface {
		IsClosed() bool
		Close() error
	}
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
}

type config struct {
	addr string
	db   dbConfig
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accountmw.RequestIDTracing())
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(accountmw.Metrics())
	r.Use(accountmw.SecurityHeaders())
	r.Use(accountmw.CORS())
	r.Use(accountmw.BodyLimitFromEnv())
	r.Use(middleware.Timeout(60 * time.Second))

	signupLimit := accountmw.RouteLimit{Name: "signup", Capacity: 10, Window: 5 * time.Minute}
	loginLimit := accountmw.RouteLimit{Name: "login", Capacity: 5, Window: time.Minute}
	refreshLimit := accountmw.RouteLimit{Name: "refresh", Capacity: 30, Window: 5 * time.Minute}
	verifyLimit := accountmw.RouteLimit{Name: "verify", Capacity: 10, Window: time.Minute}
	resendLimit := accountmw.RouteLimit{Name: "resend", Capacity: 5, Window: time.Minute}
	usersLimit := accountmw.RouteLimit{Name: "users", Capacity: 120, Window: time.Minute}
	healthCheckLimit := accountmw.RouteLimit{Name: "healthCheck", Capacity: 20, Window: time.Minute}

	r.With(accountmw.RateLimit(app.redisClient, healthCheckLimit, accountmw.PrincipalIP())).Get("/health", app.healthCheckHandler)
	r.Get("/metrics", metrics.MetricsHandler().ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.With(accountmw.RateLimit(app.redisClient, signupLimit, accountmw.PrincipalIP())).Post("/signup", app.signupHandler)
		r.With(accountmw.RateLimit(app.redisClient, loginLimit, accountmw.PrincipalIP())).Post("/login", app.loginHandler)
		r.With(accountmw.RateLimit(app.redisClient, refreshLimit, accountmw.PrincipalIP())).Post("/refresh", app.refreshHandler)
		r.With(accountmw.RateLimit(app.redisClient, verifyLimit, accountmw.PrincipalIP())).Post("/verify", app.verifyHandler)
		r.With(accountmw.RateLimit(app.redisClient, resendLimit, accountmw.PrincipalIP())).Post("/resend", app.resendHandler)
	})

	r.Route("/users", func(r chi.Router) {
		r.Group(func(pr chi.Router) {
			pr.Use(accountmw.RequireAuth(app.tokenService, app.store))
			pr.Use(accountmw.RateLimit(app.redisClient, usersLimit, accountmw.PrincipalUserOrIP()))
			pr.Get("/me", app.meHandler)
			pr.Patch("/", app.updateMeHandler)
			pr.Patch("/me", app.updateMeHandler)
		})
		r.Group(func(ar chi.Router) {
			ar.Use(accountmw.RequireAuth(app.tokenService, app.store, models.RoleAdmin))
			ar.Use(accountmw.RateLimit(app.redisClient, usersLimit, accountmw.PrincipalUserOrIP()))
			ar.Get("/", app.listUsersHandler)
			ar.Get("/{id}", app.getUserHandler)
			ar.Delete("/{id}", app.deleteUserHandler)
		})
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	srv := http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}
	logger.Logger.Info().Str("addr", app.config.addr).Msg("Starting server")
	return srv.ListenAndServe()
}

// runWithGracefulShutdown starts the server with graceful shutdown support.
// SIGTERM and SIGINT allow in-flight requests to complete before connections
// are closed.
func (app *application) runWithGracefulShutdown(
	mux http.Handler,
	db interface{ Close() error },
	redisClient interface{ Close() error },
	rabbitConn interface{ Close() error },
	rabbitCh interface{ Close() error },
) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Logger.Info().Str("addr", app.config.addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Logger.Info().Str("signal", sig.String()).Msg("Received signal, starting graceful shutdown")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	logger.Logger.Info().Msg("Server gracefully stopped")

	if err := db.Close(); err != nil {
		logger.Logger.Error().Err(err).Msg("Error closing database")
	}
	if err := redisClient.Close(); err != nil {
		logger.Logger.Error().Err(err).Msg("Error closing Redis")
	}
	if err := rabbitCh.Close(); err != nil {
		logger.Logger.Error().Err(err).Msg("Error closing RabbitMQ channel")
	}
	if err := rabbitConn.Close(); err != nil {
		logger.Logger.Error().Err(err).Msg("Error closing RabbitMQ connection")
	}

	logger.Logger.Info().Msg("Graceful shutdown completed")
	return nil
}

// signupHandler registers a new account and kicks off email confirmation.
func (app *application) signupHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, errors.NewValidation("invalid request body"))
		return
	}

	req.Email = sanitizeEmail(req.Email, 255)
	req.Password = sanitizeInput(req.Password, 128, true)
	req.PasswordConfirm = sanitizeInput(req.PasswordConfirm, 128, true)

	if err := validateRequest(&req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	user, appErr := app.userService.Register(r.Context(), req)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	metrics.RecordRegistration()
	writeJSON(w, http.StatusCreated, dto.NewUserResponse(user))
}

// loginHandler authenticates credentials and returns a token pair.
func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, errors.NewValidation("invalid request body"))
		return
	}

	req.Email = sanitizeEmail(req.Email, 255)
	req.Password = sanitizeInput(req.Password, 128, true)

	if err := validateRequest(&req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	resp, appErr := app.userService.Authenticate(r.Context(), req.Email, req.Password)
	if appErr != nil {
		metrics.RecordLoginFailed()
		writeErrorResponse(w, appErr)
		return
	}

	metrics.RecordLogin()
	writeJSON(w, http.StatusOK, resp)
}

// refreshHandler exchanges a refresh token for a new access token. The
// refresh token is not rotated.
func (app *application) refreshHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, errors.NewValidation("invalid request body"))
		return
	}

	if err := validateRequest(&req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	resp, appErr := app.userService.Refresh(r.Context(), req.RefreshToken)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	metrics.RecordTokenRefresh()
	writeJSON(w, http.StatusOK, resp)
}

// verifyHandler confirms an email with a submitted code. Rate-limit errors
// pass through; anything else about the code collapses into one message so
// the endpoint does not reveal which part was wrong.
func (app *application) verifyHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, errors.NewValidation("invalid request body"))
		return
	}

	req.Email = sanitizeEmail(req.Email, 255)

	if err := validateRequest(&req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	if appErr := app.userService.Confirm(r.Context(), req.Email, req.Code); appErr != nil {
		if appErr.Code == errors.ErrCodeInternal {
			log := accountmw.GetLoggerFromContext(r.Context())
			log.Error().Err(appErr).Str("email", req.Email).Msg("confirmation failed internally")
			appErr = errors.NewValidation("invalid confirmation code or email")
		}
		writeErrorResponse(w, appErr)
		return
	}

	metrics.RecordEmailConfirmation()
	writeJSON(w, http.StatusOK, dto.DetailResponse{Detail: "email confirmed successfully"})
}

// resendHandler re-issues a confirmation code. The payload is echoed back on
// success, including when the account is absent or already verified, so the
// response does not reveal account state.
func (app *application) resendHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, errors.NewValidation("invalid request body"))
		return
	}

	req.Email = sanitizeEmail(req.Email, 255)

	if err := validateRequest(&req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	if appErr := app.userService.Resend(r.Context(), req.Email); appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	metrics.RecordCodeResend()
	writeJSON(w, http.StatusOK, req)
}

// writeErrorResponse writes an error response in a consistent format
func writeErrorResponse(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)

	errResp := dto.ErrorResponse{
		Error: appErr.Message,
		Code:  string(appErr.Code),
	}
	json.NewEncoder(w).Encode(errResp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
