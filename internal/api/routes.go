package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qanta-backend-go/internal/cache"
	"qanta-backend-go/internal/core"
	"qanta-backend-go/internal/middleware"
	"qanta-backend-go/internal/ratelimit"
)

// Dependencies are the services and infrastructure the routes are built from.
type Dependencies struct {
	Verifier middleware.TokenVerifier
	Limiter  ratelimit.Limiter
	Cache    cache.Cache

	Quota        core.QuotaService
	Chat         core.ChatService
	Tasks        core.TaskService
	Users        core.UserService
	Admins       core.AdminService
	Points       core.PointsService
	Referrals    core.ReferralService
	GiftCards    core.GiftCardService
	Cards        core.CardService
	Support      core.SupportService
	Transactions core.TransactionService
}

// SetupRoutes registers every callable as POST /api/v1/<functionName> plus the
// health check. Global middleware (logging, recovery, CORS) is expected to be
// applied to router by the caller.
func SetupRoutes(router *gin.Engine, deps Dependencies, logger *zap.Logger) {
	authMW := middleware.NewAuthMiddleware(deps.Verifier, logger)
	throttle := middleware.Throttle(deps.Limiter, logger)

	aiHandler := NewAIHandler(deps.Chat, deps.Tasks, deps.Quota)
	userHandler := NewUserHandler(deps.Users, deps.Admins, deps.Points, deps.Referrals)
	giftCardHandler := NewGiftCardHandler(deps.GiftCards)
	accountHandler := NewAccountHandler(deps.Cards, deps.Transactions)
	supportHandler := NewSupportHandler(deps.Support)

	apiV1 := router.Group("/api/v1", authMW.VerifyToken(), middleware.EnsureProfile(deps.Users, deps.Cache, logger))
	{
		// Model-backed calls are throttled per uid on top of the quota ledger.
		apiV1.POST("/chatWithAI", throttle, handle(aiHandler.ChatWithAI))
		apiV1.POST("/categorizeExpense", throttle, handle(aiHandler.CategorizeExpense))
		apiV1.POST("/parseQuickAddText", throttle, handle(aiHandler.ParseQuickAddText))
		apiV1.POST("/getAIFinancialSummary", throttle, handle(aiHandler.GetAIFinancialSummary))

		apiV1.POST("/checkDailyLimit", handle(aiHandler.CheckDailyLimit))
		apiV1.POST("/addAIBonus", handle(aiHandler.AddAIBonus))
		apiV1.POST("/getUsageStatus", handle(aiHandler.GetUsageStatus))

		apiV1.POST("/ensureUserProfile", handle(userHandler.EnsureUserProfile))
		apiV1.POST("/setTestMode", handle(userHandler.SetTestMode))
		apiV1.POST("/addAdmin", handle(userHandler.AddAdmin))
		apiV1.POST("/getUserInfo", handle(userHandler.GetUserInfo))
		apiV1.POST("/adminAddPoints", handle(userHandler.AdminAddPoints))
		apiV1.POST("/processReferralCode", handle(userHandler.ProcessReferralCode))
		apiV1.POST("/generateReferralCodesForAllUsers", handle(userHandler.GenerateReferralCodesForAllUsers))

		apiV1.POST("/checkAndConvertToGiftCard", handle(giftCardHandler.CheckAndConvertToGiftCard))
		apiV1.POST("/createGiftCardRequestFromPoints", handle(giftCardHandler.CreateGiftCardRequestFromPoints))
		apiV1.POST("/notifyGiftCardSent", handle(giftCardHandler.NotifyGiftCardSent))
		apiV1.POST("/redeemGiftCard", handle(giftCardHandler.RedeemGiftCard))

		apiV1.POST("/createCard", handle(accountHandler.CreateCard))
		apiV1.POST("/bulkDeleteTransactions", throttle, handle(accountHandler.BulkDeleteTransactions))

		apiV1.POST("/submitSupportRequest", handle(supportHandler.SubmitSupportRequest))
		apiV1.POST("/addSupportMessage", handle(supportHandler.AddSupportMessage))
		apiV1.POST("/updateSupportStatus", handle(supportHandler.UpdateSupportStatus))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "UP"})
	})

	logger.Info("API routes configured under /api/v1 and /health")
}
