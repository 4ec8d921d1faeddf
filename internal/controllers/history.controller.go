package controllers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"vitalwatch/internal/models"
	"vitalwatch/internal/services"

	"github.com/gin-gonic/gin"
)

var errInvalidHours = errors.New("hours must be a positive number no larger than 24")

// windowHours reads the "hours" query param, falling back to the configured view window
func windowHours(c *gin.Context, engine *services.HistoryEngine) (float64, error) {
	raw := c.Query("hours")
	if raw == "" {
		return engine.PollingConfig().ViewWindowHours, nil
	}

	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(hours) || hours <= 0 || hours > models.RetentionWindow.Hours() {
		return 0, errInvalidHours
	}
	return hours, nil
}

// GetAllHistory returns every series filtered to a trailing window
// Query params: hours=0.5..24 (default: configured view window)
func GetAllHistory(c *gin.Context) {
	engine := services.GetHistoryEngine()

	hours, err := windowHours(c, engine)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hours": hours,
		"data":  engine.WindowedAll(hours),
	})
}

// GetSeries returns the full buffer of one series
func GetSeries(c *gin.Context) {
	engine := services.GetHistoryEngine()

	name, err := models.ParseSeries(c.Param("series"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid series"})
		return
	}

	points, err := engine.Series(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid series"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"series": name,
		"data":   points,
	})
}

// GetSeriesWindow returns one series filtered to a trailing window
// Query params: hours=0.5..24 (default: configured view window)
func GetSeriesWindow(c *gin.Context) {
	engine := services.GetHistoryEngine()

	name, err := models.ParseSeries(c.Param("series"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid series"})
		return
	}

	hours, err := windowHours(c, engine)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	points, err := engine.Windowed(name, hours)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid series"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"series": name,
		"hours":  hours,
		"data":   points,
	})
}

// GetStatus returns error, loading and restore state for the render layer
func GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, services.GetHistoryEngine().Status())
}
