// Package api wires handlers and middleware into the gin engine.
package api

import (
	"log/slog"

	"civicdesk/backend/internal/api/handler"
	"civicdesk/backend/internal/api/middleware"
	"civicdesk/backend/internal/metrics"
	"civicdesk/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	CORSOrigins []string
	LoginPerMin int
	Logger      *slog.Logger
}

// NewRouter builds the HTTP surface. Role checks live here; services repeat
// the ones that guard domain state.
func NewRouter(h *handler.Handler, cfg RouterConfig) *gin.Engine {
	if err := middleware.RegisterValidators(); err != nil {
		slog.Error("register validators", "error", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.Metrics(), middleware.CORS(cfg.CORSOrigins))

	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.Static("/uploads", h.UploadDir)
	r.GET("/ws/complaints", h.ServeLiveFeed)

	authn := middleware.Authenticate(h.Auth)
	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleOfficial)
	citizen := middleware.RequireRoles(models.RoleCitizen)
	limiter := middleware.NewIPRateLimiter(cfg.LoginPerMin).Middleware()

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", limiter, h.Register)
	authGroup.POST("/login", limiter, h.Login)
	authGroup.POST("/admin/login", limiter, h.AdminLogin)
	authGroup.GET("/me", authn, h.Me)
	authGroup.PATCH("/me", authn, h.UpdateMe)

	complaints := apiGroup.Group("/complaints")
	complaints.GET("", h.ListComplaints)
	complaints.GET("/my", authn, citizen, h.MyComplaints)
	complaints.GET("/assigned", authn, staff, h.AssignedComplaints)
	complaints.GET("/:id", h.GetComplaint)
	complaints.POST("", authn, citizen, h.CreateComplaint)
	complaints.PATCH("/:id/status", authn, staff, h.UpdateStatus)
	complaints.PATCH("/:id/assign", authn, admin, h.Assign)
	complaints.POST("/:id/upvote", authn, citizen, h.Upvote)
	complaints.POST("/:id/comments", authn, h.AddComment)

	statsGroup := apiGroup.Group("/stats")
	statsGroup.GET("/summary", h.StatsSummary)
	statsGroup.GET("/by-category", h.StatsByCategory)
	statsGroup.GET("/time-series", h.StatsTimeSeries)
	statsGroup.GET("/map-data", h.StatsMapData)

	categories := apiGroup.Group("/categories")
	categories.GET("", h.ListCategories)
	categories.GET("/all", authn, admin, h.ListAllCategories)
	categories.POST("", authn, admin, h.CreateCategory)
	categories.PUT("/:id", authn, admin, h.UpdateCategory)
	categories.DELETE("/:id", authn, admin, h.DeleteCategory)

	users := apiGroup.Group("/users", authn, admin)
	users.GET("", h.ListUsers)
	users.GET("/staff", h.ListStaff)
	users.PATCH("/:id/role", h.UpdateUserRole)
	users.DELETE("/:id", h.DeleteUser)

	return r
}
