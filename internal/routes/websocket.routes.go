package routes

import (
	"vitalwatch/internal/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes registers the live status stream
func RegisterWebSocketRoutes(r *gin.Engine) {
	r.GET("/ws", controllers.HandleWebSocket)
}
