package controllers

import (
	"net/http"

	"vitalwatch/internal/services"

	"github.com/gin-gonic/gin"
)

// GetLatest returns the newest point of every series plus the
// supplementary fields of the newest reading per family
func GetLatest(c *gin.Context) {
	engine := services.GetHistoryEngine()
	c.JSON(http.StatusOK, gin.H{
		"latest": engine.Latest(),
		"extra":  engine.LatestExtra(),
	})
}
