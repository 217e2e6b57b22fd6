package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parks-gardens/fieldops-api/internal/middleware"
	"github.com/parks-gardens/fieldops-api/internal/models"
)

type (
	RiskAssessmentHandler = DocumentHandler[models.RiskAssessment, *models.RiskAssessment]
	SWMSHandler           = DocumentHandler[models.SWMSDocument, *models.SWMSDocument]
)

// Handlers groups every HTTP handler the API mounts
type Handlers struct {
	Auth            *AuthHandler
	Tasks           *TaskHandler
	Staff           *StaffHandler
	Machinery       *MachineryHandler
	RiskAssessments *RiskAssessmentHandler
	SWMS            *SWMSHandler
	Dashboard       *DashboardHandler
	Notifications   http.Handler
}

// RegisterRoutes mounts the API on r
func RegisterRoutes(r *gin.Engine, h Handlers, tokens middleware.TokenParser) {
	requireAuth := middleware.RequireAuth(tokens)
	supervisor := middleware.RequireSupervisor()
	admin := middleware.RequireRole(models.RoleAdmin)
	taskAccess := middleware.RequireTaskAccess()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Parks field operations API is running",
		})
	})

	if h.Notifications != nil {
		r.GET("/ws", gin.WrapH(h.Notifications))
	}

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.GET("/me", requireAuth, h.Auth.GetCurrentUser)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", h.Tasks.ListTasks)
			tasks.POST("", supervisor, h.Tasks.CreateTask)
			tasks.POST("/draft", supervisor, h.Tasks.DraftTasks)
			tasks.GET("/:id", taskAccess, h.Tasks.GetTask)
			tasks.PUT("/:id", supervisor, h.Tasks.UpdateTask)
			tasks.DELETE("/:id", supervisor, h.Tasks.DeleteTask)
			tasks.PUT("/:id/status", taskAccess, h.Tasks.UpdateStatus)
			tasks.POST("/:id/acknowledgments", taskAccess, h.Tasks.Acknowledge)
			tasks.POST("/:id/machinery", supervisor, h.Machinery.RecordUsage)
			tasks.POST("/:id/machinery/:usage_id/return", supervisor, h.Machinery.ReturnUsage)
		}
		api.GET("/my-tasks", requireAuth, h.Tasks.MyTasks)

		// Staff routes
		staff := api.Group("/staff")
		staff.Use(requireAuth)
		{
			staff.GET("", h.Staff.ListStaff)
			staff.GET("/:id", h.Staff.GetStaff)
			staff.PUT("/:id", admin, h.Staff.UpdateStaff)
			staff.DELETE("/:id", admin, h.Staff.DeleteStaff)
		}
		api.GET("/users", requireAuth, supervisor, h.Staff.ListUsers)
		api.PUT("/profile", requireAuth, h.Staff.UpdateProfile)

		// Machinery routes
		machinery := api.Group("/machinery")
		machinery.Use(requireAuth)
		{
			machinery.GET("", h.Machinery.ListMachinery)
			machinery.GET("/:id/history", h.Machinery.GetHistory)
			machinery.POST("", supervisor, h.Machinery.CreateMachinery)
			machinery.PUT("/:id", supervisor, h.Machinery.UpdateMachinery)
			machinery.DELETE("/:id", supervisor, h.Machinery.DeleteMachinery)
		}

		// Safety document routes
		docs := api.Group("/safety-documents")
		registerDocumentRoutes(docs.Group("/risk-assessments"), h.RiskAssessments, tokens, supervisor)
		registerDocumentRoutes(docs.Group("/swms"), h.SWMS, tokens, supervisor)
		api.GET("/risk-assessments", requireAuth, h.RiskAssessments.ListByTitle)
		api.GET("/swms", requireAuth, h.SWMS.ListByTitle)

		api.GET("/dashboard/stats", requireAuth, supervisor, h.Dashboard.GetStats)
	}
}

func registerDocumentRoutes[T models.SafetyDocument, P models.MutableDocument[T]](g *gin.RouterGroup, h *DocumentHandler[T, P], tokens middleware.TokenParser, supervisor gin.HandlerFunc) {
	requireAuth := middleware.RequireAuth(tokens)

	// Embedded PDF viewers can only pass the token in the URL.
	g.GET("/:id/download", middleware.RequireAuthAllowQuery(tokens), h.DownloadFile)

	g.GET("", requireAuth, h.ListDocuments)
	g.GET("/:id", requireAuth, h.GetDocument)
	g.POST("", requireAuth, supervisor, h.CreateDocument)
	g.PUT("/:id", requireAuth, supervisor, h.UpdateDocument)
	g.DELETE("/:id", requireAuth, supervisor, h.DeleteDocument)
	g.POST("/:id/upload", requireAuth, supervisor, h.UploadFile)
}
