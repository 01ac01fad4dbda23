package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"qanta-backend-go/internal/ai"
	"qanta-backend-go/internal/api"
	"qanta-backend-go/internal/cache"
	"qanta-backend-go/internal/callable"
	"qanta-backend-go/internal/config"
	"qanta-backend-go/internal/core"
	"qanta-backend-go/internal/crypto"
	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/middleware"
	"qanta-backend-go/internal/notify"
	"qanta-backend-go/internal/prompt"
	"qanta-backend-go/internal/ratelimit"
	"qanta-backend-go/internal/reply"
	"qanta-backend-go/pkg/mailer"
)

func main() {
	// --- 1. Logger and configuration ---
	zapLogger, err := newLogger(strings.EqualFold(os.Getenv("GIN_MODE"), "release"))
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded successfully.")

	// --- 2. Firebase Admin SDK (Firestore, Auth, Messaging) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	if err := db.InitFirebase(initCtx, appConfig, zapLogger); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase Admin SDK", zap.Error(err))
	}
	defer db.CloseFirestore()

	firestoreClient := db.GetFirestoreClient()
	firebaseAuthClient := db.GetFirebaseAuthClient()
	messagingClient := db.GetMessagingClient()

	// --- 3. Cache and throttle, Redis when configured ---
	var appCache cache.Cache = cache.NewMemoryCache()
	var limiter ratelimit.Limiter = ratelimit.NewLocalLimiter(ratelimit.PerMinute(appConfig.RateLimitPerMinute))
	var redisClient *redis.Client
	if appConfig.RedisAddr != "" {
		redisClient, err = cache.NewRedisClient(initCtx, cache.RedisConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		})
		if err != nil {
			zapLogger.Warn("Redis unavailable, using in-process cache and rate limiter", zap.Error(err))
		} else {
			appCache = cache.NewRedisCache(redisClient, zapLogger)
			limiter = ratelimit.NewRedisLimiter(redisClient, ratelimit.PerMinute(appConfig.RateLimitPerMinute), zapLogger)
			zapLogger.Info("Redis cache and rate limiter enabled", zap.String("address", appConfig.RedisAddr))
		}
	}

	// --- 4. Repositories ---
	userRepo := db.NewFirestoreUserRepository(firestoreClient)
	usageRepo := db.NewFirestoreUsageRepository(firestoreClient)
	adminRepo := db.NewFirestoreAdminRepository(firestoreClient)
	auditRepo := db.NewFirestoreAuditRepository(firestoreClient)
	pointsRepo := db.NewFirestorePointsRepository(firestoreClient)
	referralRepo := db.NewFirestoreReferralRepository(firestoreClient)
	giftCardRepo := db.NewFirestoreGiftCardRepository(firestoreClient)
	accountRepo := db.NewFirestoreAccountRepository(firestoreClient)
	supportRepo := db.NewFirestoreSupportRepository(firestoreClient)
	transactionRepo := db.NewFirestoreTransactionRepository(firestoreClient)

	// --- 5. External clients ---
	retry := ai.DefaultRetryConfig
	retry.MaxAttempts = appConfig.GeminiMaxAttempts
	model, err := ai.NewClient(initCtx, ai.Config{
		APIKey:      appConfig.GeminiAPIKey,
		TextModel:   appConfig.GeminiTextModel,
		VisionModel: appConfig.GeminiVisionModel,
		Timeout:     appConfig.GeminiTimeout,
		Retry:       retry,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Gemini client", zap.Error(err))
	}
	defer model.Close()

	sealer, err := crypto.NewSealer(appConfig.EncryptionKey)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Invalid ENCRYPTION_KEY", zap.Error(err))
	}
	supportMailer := mailer.New(mailer.Config{
		Host:     appConfig.SMTPHost,
		Port:     appConfig.SMTPPort,
		Username: appConfig.SMTPUsername,
		Password: appConfig.SMTPPassword,
		From:     appConfig.SupportEmailFrom,
	})
	if !supportMailer.Enabled() {
		zapLogger.Info("Support mail disabled: SMTP_HOST or SUPPORT_EMAIL_FROM not set")
	}
	pushSender := notify.NewFCM(messagingClient)
	directory := core.NewFirebaseDirectory(firebaseAuthClient)
	catalog := prompt.MustLoad()

	// --- 6. Services ---
	auditService := core.NewAuditService(auditRepo)
	adminService := core.NewAdminService(adminRepo, userRepo, directory, appCache, auditService,
		core.ParseUIDList(appConfig.BootstrapAdminUIDs), zapLogger)
	quotaService := core.NewQuotaService(userRepo, usageRepo, adminRepo, appCache, core.QuotaConfig{
		BypassUIDs:    core.ParseUIDList(appConfig.QuotaBypassUIDs),
		DefaultOffset: appConfig.DefaultTimezone,
	}, zapLogger)
	chatService := core.NewChatService(quotaService, catalog, model, reply.NewParser(zapLogger), appConfig.DefaultTimezone, zapLogger)
	taskService := core.NewTaskService(quotaService, catalog, model, appConfig.DefaultTimezone, zapLogger)
	referralService := core.NewReferralService(userRepo, referralRepo, adminService, auditService, zapLogger)
	userService := core.NewUserService(userRepo, referralService, adminService,
		core.UserConfig{OpenTestMode: appConfig.AllowTestMode}, zapLogger)
	pointsService := core.NewPointsService(userRepo, pointsRepo, adminService, auditService, zapLogger)
	giftCardService := core.NewGiftCardService(userRepo, giftCardRepo, directory, adminService, pushSender, sealer, auditService, zapLogger)
	cardService := core.NewCardService(userRepo, accountRepo, zapLogger)
	supportService := core.NewSupportService(supportRepo, userRepo, directory, adminService, giftCardService,
		supportMailer, pushSender, auditService, core.SupportConfig{NotifyEmail: appConfig.SupportEmailTo}, zapLogger)
	transactionService := core.NewTransactionService(transactionRepo, quotaService, appConfig.DefaultTimezone, zapLogger)
	zapLogger.Info("Core services initialized successfully.")

	// --- 7. Gin engine and routes ---
	if appConfig.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if err := callable.RegisterValidators(); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to register request validators", zap.Error(err))
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig.ClientURL))
	if appConfig.ClientURL == "" {
		zapLogger.Info("CORS disabled: CLIENT_URL is not configured")
	}

	api.SetupRoutes(router, api.Dependencies{
		Verifier:     firebaseAuthClient,
		Limiter:      limiter,
		Cache:        appCache,
		Quota:        quotaService,
		Chat:         chatService,
		Tasks:        taskService,
		Users:        userService,
		Admins:       adminService,
		Points:       pointsService,
		Referrals:    referralService,
		GiftCards:    giftCardService,
		Cards:        cardService,
		Support:      supportService,
		Transactions: transactionService,
	}, zapLogger)

	// --- 8. HTTP server with graceful shutdown ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Model calls with attachments can take most of GEMINI_TIMEOUT.
		WriteTimeout: appConfig.GeminiTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}

	zapLogger.Info("Server exiting gracefully.")
}

// newLogger returns a JSON production logger with ISO8601 timestamps in release
// mode and a colored development logger otherwise.
func newLogger(release bool) (*zap.Logger, error) {
	if release {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}
