package services

import (
	"coachlink/db"
	"coachlink/models"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

// UserService - регистрация, вход и проверка токенов.
// Ядро заявок считает идентичность уже установленной; этот сервис -
// тот самый внешний коллаборатор.
type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func verifyPassword(password, stored string) error {
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return errors.New("invalid password format")
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	if hex.EncodeToString(hash) != parts[1] {
		return errors.New("invalid password")
	}
	return nil
}

func (s *UserService) Register(user *models.User, password string) (int64, error) {
	if user.Nickname == "" || password == "" {
		return 0, errors.New("nickname and password are required")
	}

	var alreadyExists int64
	err := db.ORM.Model(&models.User{}).Where("nickname = ?", user.Nickname).Count(&alreadyExists).Error
	if err != nil {
		return 0, fmt.Errorf("failed to check nickname: %w", err)
	}
	if alreadyExists > 0 {
		return 0, errors.New("user already exists")
	}

	user.Password, err = hashPassword(password)
	if err != nil {
		return 0, err
	}
	if err := db.ORM.Create(user).Error; err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return user.ID, nil
}

// RegisterCoach создает профиль тренера для существующего пользователя
func (s *UserService) RegisterCoach(userID int64, fullName, specialty, bio string) (*models.Coach, error) {
	if fullName == "" {
		return nil, errors.New("full name is required")
	}

	var existing models.Coach
	err := db.ORM.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return nil, errors.New("coach profile already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check coach profile: %w", err)
	}

	coach := models.Coach{
		UserID:    userID,
		FullName:  fullName,
		Specialty: specialty,
		Bio:       bio,
	}
	if err := db.ORM.Create(&coach).Error; err != nil {
		return nil, fmt.Errorf("failed to create coach profile: %w", err)
	}
	return &coach, nil
}

func (s *UserService) Login(nickname, password string) (string, int64, error) {
	var user models.User
	err := db.ORM.Where("nickname = ?", nickname).First(&user).Error
	if err != nil {
		return "", 0, errors.New("user not found")
	}
	if err := verifyPassword(password, user.Password); err != nil {
		return "", 0, err
	}

	// Старые токены пользователя сбрасываются
	_ = s.Logout(user.ID)

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", 0, err
	}
	token := hex.EncodeToString(tokenBytes)

	err = db.ORM.Create(&models.UserTokens{UserID: user.ID, Token: token}).Error
	if err != nil {
		return "", 0, fmt.Errorf("failed to store token: %w", err)
	}
	return token, user.ID, nil
}

func (s *UserService) Logout(userID int64) error {
	return db.ORM.Where("user_id = ?", userID).Delete(&models.UserTokens{}).Error
}

// UserIDForToken возвращает владельца bearer токена
func (s *UserService) UserIDForToken(token string) (int64, error) {
	if token == "" {
		return 0, errors.New("token is empty")
	}
	var userToken models.UserTokens
	err := db.ORM.Where("token = ?", token).First(&userToken).Error
	if err != nil {
		return 0, errors.New("token not found")
	}
	return userToken.UserID, nil
}
