package routes

import (
	"grant-review-api/controllers"
	"grant-review-api/middleware"
	"grant-review-api/services"

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
			public.POST("/refresh", controllers.RefreshToken)
			public.POST("/forgot-password", controllers.ForgotPassword)
			public.POST("/reset-password", controllers.ResetPassword)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Grant Review API is running",
				})
			})
		}

		// Read paths that anonymous visitors may hit. The visibility gate
		// decides what each caller sees, so these only resolve identity when
		// a token is present.
		gated := v1.Group("")
		gated.Use(middleware.OptionalAuthMiddleware())
		{
			gated.GET("/calls", controllers.GetCalls)
			gated.GET("/calls/:id", controllers.GetCall)
			gated.GET("/calls/:id/deadline-state", controllers.GetCallDeadlineState)
			gated.GET("/proposals/:id", controllers.GetProposal)
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Calls: configuration is program-officer territory
			calls := protected.Group("/calls")
			{
				calls.POST("", middleware.RequireRole(services.RoleProgramOfficer), controllers.CreateCall)
				calls.PUT("/:id", middleware.RequireRole(services.RoleProgramOfficer), controllers.UpdateCall)
				calls.POST("/:id/transition", middleware.RequireRole(services.RoleProgramOfficer), controllers.TransitionCallStatus)
				calls.POST("/:id/publish-results", middleware.RequireRole(services.RoleProgramOfficer), controllers.PublishCallResults)
			}

			// Proposals
			proposals := protected.Group("/proposals")
			{
				proposals.GET("", controllers.GetProposals)
				proposals.POST("", middleware.RequireRole(services.RolePrincipalInvestigator), controllers.CreateProposal)
				proposals.PUT("/:id", controllers.UpdateProposal)
				proposals.PUT("/:id/budget", controllers.SaveBudget)
				proposals.GET("/:id/budget/validate", controllers.ValidateProposalBudget)
				proposals.POST("/:id/submit", controllers.SubmitProposal)
				proposals.POST("/:id/withdraw", controllers.WithdrawProposal)
				proposals.POST("/:id/resubmit", controllers.ResubmitProposal)
				proposals.POST("/:id/collaborators", controllers.AddCollaborator)
				proposals.POST("/:id/collaborators/accept", controllers.AcceptCollaboration)

				// Documents
				proposals.POST("/:id/documents", controllers.UploadProposalDocument)
				proposals.GET("/:id/documents", controllers.GetProposalDocuments)
				proposals.DELETE("/:id/documents/:document_id", controllers.DeleteProposalDocument)

				// Decision-maker surfaces
				proposals.POST("/:id/start-review",
					middleware.RequireRole(services.RoleProgramOfficer), controllers.StartProposalReview)
				proposals.POST("/:id/decide",
					middleware.RequireRole(services.RoleProgramOfficer), controllers.DecideProposal)
				proposals.GET("/:id/scores",
					middleware.RequireRole(services.RoleProgramOfficer, services.RoleAreaChair), controllers.GetProposalScores)
			}

			// Budget validation against unsaved drafts
			protected.POST("/budget/validate", controllers.ValidateBudgetDraft)

			// Review assignments
			assignments := protected.Group("/assignments")
			{
				assignments.GET("/mine", controllers.GetMyAssignments)
				assignments.POST("",
					middleware.RequireRole(services.RoleProgramOfficer, services.RoleAreaChair), controllers.CreateAssignment)
				assignments.POST("/:id/accept", controllers.AcceptAssignment)
				assignments.POST("/:id/cancel",
					middleware.RequireRole(services.RoleProgramOfficer, services.RoleAreaChair), controllers.CancelAssignment)
				assignments.GET("/:id/review", controllers.GetAssignmentReview)
				assignments.PUT("/:id/review", controllers.UpdateReview)
				assignments.POST("/:id/review/submit", controllers.SubmitReview)
			}

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetMyNotifications)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}
		}
	}
}
