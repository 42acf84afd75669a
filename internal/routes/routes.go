package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/collabhub-golang/internal/handlers"
	"github.com/01moynul/collabhub-golang/internal/middleware"
	"github.com/01moynul/collabhub-golang/internal/models"
)

// SetupRouter wires every route of the API.
func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if h.Log != nil {
		router.Use(middleware.RequestLogger(h.Log))
	}

	origin, uploadDir := "http://localhost:5173", "./uploads"
	if h.Config != nil {
		origin, uploadDir = h.Config.FrontendOrigin, h.Config.UploadDir
	}
	router.Use(middleware.CORSMiddleware(origin))
	router.Static("/uploads", uploadDir)

	requireAuth := middleware.AuthMiddleware(h.Tokens, h.DB)
	brandOnly := middleware.RequireRoles(models.RoleBrand)
	influencerOnly := middleware.RequireRoles(models.RoleInfluencer)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/auth/register/brand", h.RegisterBrand)
		v1.POST("/auth/register/influencer", h.RegisterInfluencer)
		v1.POST("/auth/verify-email", h.VerifyEmail)
		v1.POST("/auth/resend-code", h.ResendCode)
		v1.POST("/auth/login", h.Login)

		// --- OAuth callback (Public, identified by state) ---
		v1.GET("/oauth/:platform/callback", h.OAuthCallback)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(requireAuth)
		{
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/read-all", h.MarkAllNotificationsAsRead)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)

			auth.POST("/upload", h.UploadFile)

			// MOUs visible to any party; ownership is checked per MOU.
			auth.GET("/mous/:id", h.GetMOU)
			auth.PATCH("/mous/:id/decision", h.DecideMOU)
			auth.POST("/mous/:id/document", h.UploadMOUDocument)

			// Discovery
			discovery := auth.Group("/influencers")
			discovery.Use(middleware.RequireRoles(models.RoleBrand, models.RoleAdmin))
			{
				discovery.GET("", h.SearchInfluencers)
				discovery.GET("/:id", h.GetInfluencer)
			}
		}

		// --- Brand Routes ---
		brand := v1.Group("/brand")
		brand.Use(requireAuth, brandOnly)
		{
			brand.GET("/profile", h.GetBrandProfile)
			brand.PUT("/profile", h.UpdateBrandProfile)

			brand.POST("/campaigns", h.CreateCampaign)
			brand.GET("/campaigns", h.GetMyCampaigns)
			brand.GET("/campaigns/:id", h.GetMyCampaign)
			brand.PUT("/campaigns/:id", h.UpdateCampaign)
			brand.PATCH("/campaigns/:id/status", h.UpdateCampaignStatus)
			brand.GET("/campaigns/:id/metrics", h.GetCampaignMetrics)

			brand.POST("/campaigns/:id/invitations", h.InviteInfluencer)
			brand.GET("/campaigns/:id/invitations", h.GetCampaignInvitations)
			brand.DELETE("/invitations/:id", h.WithdrawInvitation)

			brand.POST("/mous", h.CreateMOU)
			brand.GET("/mous", h.GetBrandMOUs)
		}

		// --- Influencer Routes ---
		influencer := v1.Group("/influencer")
		influencer.Use(requireAuth, influencerOnly)
		{
			influencer.GET("/profile", h.GetInfluencerProfile)
			influencer.PUT("/profile", h.UpdateInfluencerProfile)

			influencer.GET("/platforms", h.GetMyPlatforms)
			influencer.GET("/connect/:platform", h.ConnectPlatform)
			influencer.POST("/platforms/:platform/refresh", h.RefreshPlatform)
			influencer.DELETE("/platforms/:platform", h.DisconnectPlatform)

			influencer.GET("/rate-cards", h.GetMyRateCards)
			influencer.POST("/rate-cards", h.CreateRateCard)
			influencer.PUT("/rate-cards/:id", h.UpdateRateCard)
			influencer.DELETE("/rate-cards/:id", h.DeleteRateCard)

			influencer.GET("/invitations", h.GetMyInvitations)
			influencer.PATCH("/invitations/:id", h.RespondToInvitation)

			influencer.GET("/mous", h.GetInfluencerMOUs)
		}

		// --- Admin Routes ---
		admin := v1.Group("/admin")
		admin.Use(requireAuth, adminOnly)
		{
			admin.GET("/dashboard-stats", h.GetAdminStats)

			admin.GET("/users", h.GetUsers)
			admin.PATCH("/users/:id/status", h.UpdateUserStatus)

			admin.GET("/campaigns", h.GetAdminCampaigns)
			admin.PATCH("/campaigns/:id/status", h.AdminUpdateCampaignStatus)

			admin.GET("/mous", h.GetAdminMOUs)

			admin.POST("/jobs/:name", h.RunJob)
			admin.POST("/ai/chat", h.ChatAI)
		}
	}

	return router
}
