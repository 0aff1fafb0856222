package routes

import (
	"protocol-review-api/controllers"
	"protocol-review-api/middleware"
	"protocol-review-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Protocol Review API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)

			// Live record stream
			protected.GET("/stream", controllers.StreamRecords)

			// Notifications
			protected.GET("/notifications", controllers.GetNotifications)

			// Assessment form templates
			protected.GET("/form-templates", controllers.GetFormTemplates)

			// Protocols
			protocols := protected.Group("/protocols")
			{
				// All authenticated users can list and view protocols;
				// proponents only see their own.
				protocols.GET("", controllers.GetProtocols)
				protocols.GET("/:id", controllers.GetProtocol)

				// Only proponents create protocols
				protocols.POST("", middleware.RequireRole(models.RoleProponent), controllers.CreateProtocol)

				// Only the chairperson moves protocols through the lifecycle
				protocols.POST("/:id/status", middleware.RequireRole(models.RoleChairperson), controllers.AdvanceProtocolStatus)
				protocols.POST("/:id/decision", middleware.RequireRole(models.RoleChairperson), controllers.RecordDecision)
				protocols.GET("/:id/decisions", controllers.GetDecisions)

				// Reviewer assignments
				protocols.GET("/:id/reviewers", controllers.GetReviewers)
				protocols.POST("/:id/reviewers", middleware.RequireRole(models.RoleChairperson), controllers.AssignReviewer)
				protocols.POST("/:id/reviewers/:aid/complete", middleware.RequireRole(models.RoleReviewer), controllers.CompleteAssignment)
				protocols.POST("/:id/reviewers/:aid/reassign", middleware.RequireRole(models.RoleChairperson), controllers.ReassignReviewer)
				protocols.GET("/:id/reassignments", controllers.GetReassignmentHistory)

				// Submission documents
				protocols.POST("/:id/documents", middleware.RequireRole(models.RoleProponent), controllers.UploadDocument)
				protocols.GET("/:id/documents", controllers.GetDocuments)
				protocols.POST("/:id/documents/:did/review", middleware.RequireRole(models.RoleChairperson), controllers.ReviewDocument)
				protocols.POST("/:id/requests/:rid/fulfill", middleware.RequireRole(models.RoleProponent), controllers.FulfillRequest)
				protocols.GET("/:id/documents/:did/download", controllers.DownloadDocument)
				protocols.GET("/:id/documents/:did/preview", controllers.PreviewDocument)

				// Assessment forms
				protocols.GET("/:id/assignments/:aid/forms/:type", controllers.GetForm)
				protocols.PUT("/:id/assignments/:aid/forms/:type/autosave", middleware.RequireRole(models.RoleReviewer), controllers.AutosaveForm)
				protocols.POST("/:id/assignments/:aid/forms/:type/submit", middleware.RequireRole(models.RoleReviewer), controllers.SubmitForm)
				protocols.POST("/:id/assignments/:aid/forms/:type/approve", middleware.RequireRole(models.RoleChairperson), controllers.ApproveForm)
				protocols.POST("/:id/assignments/:aid/forms/:type/return", middleware.RequireRole(models.RoleChairperson), controllers.ReturnForm)
			}
		}
	}
}
