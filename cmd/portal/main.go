package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"

	"github.com/egepakten/cognito-student-registry/internal/app"
	"github.com/egepakten/cognito-student-registry/internal/auth"
	"github.com/egepakten/cognito-student-registry/internal/dashboard"
	"github.com/egepakten/cognito-student-registry/internal/federation"
	"github.com/egepakten/cognito-student-registry/internal/platform/cache"
	"github.com/egepakten/cognito-student-registry/internal/rbac"
	"github.com/egepakten/cognito-student-registry/internal/records"
	"github.com/egepakten/cognito-student-registry/internal/session"
	"github.com/egepakten/cognito-student-registry/internal/shared"
	"github.com/egepakten/cognito-student-registry/internal/storage"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Error("load aws config", slog.Any("error", err))
		os.Exit(1)
	}

	sessions := session.NewStore(redisClient, cfg.SessionTTL)
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	guard := rbac.NewGuard(logger, "/")

	hosted := auth.HostedUI{
		Domain:            cfg.HostedUIDomain,
		ClientID:          cfg.UserPoolClientID,
		Scopes:            cfg.OAuthScopes,
		RedirectSignInURI: cfg.RedirectSignIn,
		SignOutURI:        cfg.RedirectSignOut,
	}
	gateway := auth.NewGateway(cognitoidentityprovider.NewFromConfig(awsCfg), cfg.UserPoolClientID)
	exchanger := auth.NewExchanger(&http.Client{Timeout: 10 * time.Second}, hosted.TokenEndpoint(), cfg.UserPoolClientID, cfg.RedirectSignIn)
	authHandler := auth.NewHandler(logger, gateway, exchanger, sessions, csrfManager, hosted, cfg.IsProduction())

	bridge := federation.NewBridge(cognitoidentity.NewFromConfig(awsCfg), cfg.AWSRegion, cfg.UserPoolID, cfg.IdentityPoolID)

	recordsRepo := records.NewRepository(cfg.RecordsTable, records.NewClientFactory(cfg.AWSRegion))
	recordsService := records.NewService(bridge, recordsRepo)
	recordsHandler := records.NewHandler(logger, recordsService)

	uploader := storage.NewUploader(cfg.HomeworkBucket, storage.NewClientFactory(cfg.AWSRegion))
	storageService := storage.NewService(bridge, uploader)
	storageHandler := storage.NewHandler(logger, storageService)

	dashboardService := dashboard.NewService(recordsService)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Sessions:         sessions,
		CSRFManager:      csrfManager,
		Guard:            guard,
		AuthHandler:      authHandler,
		RecordsHandler:   recordsHandler,
		StorageHandler:   storageHandler,
		DashboardHandler: dashboardHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
