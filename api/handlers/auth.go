package handlers

import (
	"coachlink/models"
	"coachlink/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

var userService = services.NewUserService()

type RegisterRequest struct {
	Nickname  string `json:"nickname" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Firstname string `json:"first_name"`
	Lastname  string `json:"last_name"`
	City      string `json:"city"`
}

type LoginRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterCoachRequest struct {
	FullName  string `json:"full_name" binding:"required"`
	Specialty string `json:"specialty"`
	Bio       string `json:"bio"`
}

func Register(c *gin.Context) {
	var registerRequest RegisterRequest
	if err := c.ShouldBindJSON(&registerRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	newUser := models.User{
		Nickname:  registerRequest.Nickname,
		FirstName: registerRequest.Firstname,
		LastName:  registerRequest.Lastname,
		City:      registerRequest.City,
	}

	userID, err := userService.Register(&newUser, registerRequest.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "user_id": userID})
}

func Login(c *gin.Context) {
	var loginRequest LoginRequest
	if err := c.ShouldBindJSON(&loginRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, userID, err := userService.Login(loginRequest.Nickname, loginRequest.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "user_id": userID, "token": token})
}

func Logout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := userService.Logout(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Сторы и подписки вышедшего пользователя больше не нужны
	requestRegistry.Release(services.ViewerClient(userID))
	if coach, err := remoteStore.QueryCoachByUserID(c.Request.Context(), userID); err == nil && coach != nil {
		requestRegistry.Release(services.ViewerCoach(coach.ID, userID))
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterCoach создает профиль тренера для текущего пользователя
func RegisterCoach(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var r RegisterCoachRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	coach, err := userService.RegisterCoach(userID, r.FullName, r.Specialty, r.Bio)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "coach": coach})
}
