package controllers

import (
	"net/http"

	"vitalwatch/internal/models"
	"vitalwatch/internal/services"

	"github.com/gin-gonic/gin"
)

// configUpdate is the body of PUT /api/config; absent fields are left unchanged
type configUpdate struct {
	IntervalMs      *int64   `json:"interval_ms"`
	ViewWindowHours *float64 `json:"view_window_hours"`
}

// GetConfig returns the current polling config and the selectable values
func GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"config":       services.GetHistoryEngine().PollingConfig(),
		"intervals_ms": models.PollingIntervals,
		"view_windows": models.ViewWindows,
	})
}

// UpdateConfig changes the polling interval and/or view window.
// Both values are validated before either is applied. The interval goes
// first since restarting the scheduler is the only step that can fail.
func UpdateConfig(c *gin.Context) {
	engine := services.GetHistoryEngine()

	var body configUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if body.IntervalMs != nil {
		if err := models.ValidateInterval(*body.IntervalMs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if body.ViewWindowHours != nil {
		if err := models.ValidateViewWindow(*body.ViewWindowHours); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if body.IntervalMs != nil {
		if err := engine.SetInterval(*body.IntervalMs); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if body.ViewWindowHours != nil {
		if err := engine.SetViewWindow(*body.ViewWindowHours); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"config": engine.PollingConfig()})
}
