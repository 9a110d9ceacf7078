package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/oshworks/osh-api/internal/config"
	"github.com/oshworks/osh-api/internal/email"
	"github.com/oshworks/osh-api/internal/handler"
	accountHandler "github.com/oshworks/osh-api/internal/handler/account"
	appointmentHandler "github.com/oshworks/osh-api/internal/handler/appointment"
	authHandler "github.com/oshworks/osh-api/internal/handler/auth"
	employeeHandler "github.com/oshworks/osh-api/internal/handler/employee"
	notificationHandler "github.com/oshworks/osh-api/internal/handler/notification"
	userHandler "github.com/oshworks/osh-api/internal/handler/user"
	"github.com/oshworks/osh-api/internal/identity"
	"github.com/oshworks/osh-api/internal/middleware"
	"github.com/oshworks/osh-api/internal/repository/postgres"
	"github.com/oshworks/osh-api/internal/router"
	accountService "github.com/oshworks/osh-api/internal/service/account"
	appointmentService "github.com/oshworks/osh-api/internal/service/appointment"
	authService "github.com/oshworks/osh-api/internal/service/auth"
	employeeService "github.com/oshworks/osh-api/internal/service/employee"
	notificationService "github.com/oshworks/osh-api/internal/service/notification"
	userService "github.com/oshworks/osh-api/internal/service/user"
	"github.com/oshworks/osh-api/internal/sms"
	"github.com/oshworks/osh-api/pkg/auth"
	"github.com/oshworks/osh-api/pkg/logger"
	"github.com/oshworks/osh-api/pkg/messaging/redis"
	"github.com/oshworks/osh-api/pkg/ratelimit"
	"github.com/oshworks/osh-api/pkg/security"
	"github.com/oshworks/osh-api/pkg/validator"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog())
	if err != nil {
		log.Fatal(err, "failed to connect to Redis")
	}

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)
	employeeRepo := postgres.NewEmployeeRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	tokenRepo := postgres.NewTokenRepository(db)

	// Outbound channels. Channel toggles come from the notifications
	// section so an environment can mute a channel without clearing
	// its credentials.
	cfg.SMTP.Enabled = cfg.SMTP.Enabled && cfg.Notifications.EmailEnabled
	cfg.SMS.Enabled = cfg.SMS.Enabled && cfg.Notifications.SMSEnabled
	emailSvc := email.NewSMTPService(cfg.SMTP, log)
	smsSvc := sms.NewGatewayService(cfg.SMS, log)
	idp := identity.NewClient(cfg.Identity)

	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:             cfg.JWT.Secret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		ExpiryHours:        cfg.JWT.ExpiryHours,
		RefreshExpiryHours: cfg.JWT.RefreshExpiryHours,
	})
	accountLimiter := ratelimit.NewKeyLimiter(cfg.RateLimit.AccountInterval)
	hasher := security.NewBcryptHasher(0)

	// Services
	notificationSvc := notificationService.NewService(notificationRepo, broker, log)
	fanout := notificationService.NewFanout(notificationSvc, emailSvc, smsSvc, log)
	accountSvc := accountService.NewService(tokenRepo, userRepo, idp, emailSvc, accountLimiter, log)
	userSvc := userService.NewService(userRepo, roleRepo, hasher, accountSvc, log)
	employeeSvc := employeeService.NewService(employeeRepo, userRepo)
	appointmentSvc := appointmentService.NewService(appointmentRepo, employeeRepo, userRepo, fanout, log)
	authSvc := authService.NewService(userRepo, idp, jwtSvc)

	if err := validator.RegisterCustomValidators(); err != nil {
		log.Fatal(err, "failed to register request validators")
	}

	// Handlers
	h := handler.NewHandler(db)
	authH := authHandler.NewHandler(authSvc)
	accountH := accountHandler.NewHandler(accountSvc)
	userH := userHandler.NewHandler(userSvc)
	employeeH := employeeHandler.NewHandler(employeeSvc)
	appointmentH := appointmentHandler.NewHandler(appointmentSvc)
	notificationH := notificationHandler.NewHandler(notificationSvc)

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Security.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Security.AllowedOrigins
	}
	if len(cfg.Security.AllowedMethods) > 0 {
		corsCfg.AllowMethods = cfg.Security.AllowedMethods
	}
	if len(cfg.Security.AllowedHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.Security.AllowedHeaders
	}

	routerCfg := router.Config{
		CORSConfig:    corsCfg,
		MetricsPrefix: "osh_api",
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerCfg.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(
		authMiddleware,
		authH,
		accountH,
		userH,
		employeeH,
		appointmentH,
		notificationH,
		h,
		log,
		routerCfg,
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
