package handlers

import (
	"coachlink/db"
	"coachlink/models"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListCoaches возвращает тренеров для экрана выбора
func ListCoaches(c *gin.Context) {
	var coaches []models.Coach
	err := db.GetReadOnlyDB(c.Request.Context()).
		Order("full_name ASC").
		Find(&coaches).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coaches": coaches})
}

func GetCoach(c *gin.Context) {
	coachID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coach id"})
		return
	}

	coach, err := remoteStore.QueryCoach(c.Request.Context(), coachID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if coach == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "coach not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coach": coach})
}
