package routes

import (
	"hospital-bulk-api/controllers"
	"hospital-bulk-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Hospital Bulk API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Operator profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Bulk upload pipeline
			protected.POST("/hospitals/bulk", controllers.BulkCreateHospitals)

			// Batch history
			batches := protected.Group("/batches")
			{
				batches.GET("", controllers.ListBatches)
				batches.GET("/:batch_id", controllers.GetBatchDetails)
			}
		}
	}
}
