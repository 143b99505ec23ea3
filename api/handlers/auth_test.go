package handlers

import (
	"bytes"
	"coachlink/db"
	"coachlink/models"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doAuthJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginLogout(t *testing.T) {
	r := setupRouter(t)

	nickname := gofakeit.Username()
	w := doAuthJSON(r, "POST", "/api/v1/auth/register", "", gin.H{
		"nickname":   nickname,
		"password":   "secret123",
		"first_name": gofakeit.FirstName(),
		"last_name":  gofakeit.LastName(),
		"city":       gofakeit.City(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doAuthJSON(r, "POST", "/api/v1/auth/login", "", gin.H{
		"nickname": nickname,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var loginResp struct {
		Token  string `json:"token"`
		UserID int64  `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.Token)

	// Токен работает на защищенных маршрутах
	w = doAuthJSON(r, "GET", "/api/v1/requests/outgoing", loginResp.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doAuthJSON(r, "POST", "/api/v1/auth/logout", loginResp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// После выхода токен недействителен
	w = doAuthJSON(r, "GET", "/api/v1/requests/outgoing", loginResp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	r := setupRouter(t)

	nickname := gofakeit.Username()
	w := doAuthJSON(r, "POST", "/api/v1/auth/register", "", gin.H{
		"nickname": nickname,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doAuthJSON(r, "POST", "/api/v1/auth/login", "", gin.H{
		"nickname": nickname,
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterCoachProfile(t *testing.T) {
	r := setupRouter(t)
	user := createTestUser(t)

	w := doJSON(r, "POST", "/api/v1/coaches/register", user.ID, gin.H{
		"full_name": "Anna Petrova",
		"specialty": "running",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var coach models.Coach
	require.NoError(t, db.ORM.First(&coach, "user_id = ?", user.ID).Error)
	assert.Equal(t, "Anna Petrova", coach.FullName)

	// Второй профиль для того же пользователя не создается
	w = doJSON(r, "POST", "/api/v1/coaches/register", user.ID, gin.H{
		"full_name": "Anna Petrova",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
