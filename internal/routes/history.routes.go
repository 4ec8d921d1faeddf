package routes

import (
	"vitalwatch/internal/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterHistoryRoutes registers the render layer's read and config endpoints
func RegisterHistoryRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/history", controllers.GetAllHistory)
		api.GET("/history/:series", controllers.GetSeries)
		api.GET("/history/:series/window", controllers.GetSeriesWindow)
		api.GET("/latest", controllers.GetLatest)
		api.GET("/status", controllers.GetStatus)
		api.GET("/config", controllers.GetConfig)
		api.PUT("/config", controllers.UpdateConfig)
	}
}
