package services

import (
	"coachlink/db"
	"coachlink/models"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
)

// RequestFilter ограничивает выборку заявок стороной-участником.
// Нулевое значение поля - без ограничения.
type RequestFilter struct {
	ClientUserID int64
	CoachID      int64
}

// RemoteStore - контракт удаленного хранилища заявок.
// Реализация поверх gorm ниже; тесты подставляют свою.
type RemoteStore interface {
	QueryRequests(ctx context.Context, filter RequestFilter) ([]models.CoachRequest, error)
	QueryRequestByID(ctx context.Context, id int64) (*models.CoachRequest, error)
	InsertRequest(ctx context.Context, req *models.CoachRequest) error
	// UpdateRequestConditional - compare-and-swap: обновляет только строку
	// со статусом expectedStatus, возвращает число затронутых строк.
	UpdateRequestConditional(ctx context.Context, id int64, expectedStatus, newStatus string, respondedBy int64, respondedAt time.Time) (int64, error)
	DeleteRequests(ctx context.Context, ids []int64) error
	InsertAssignment(ctx context.Context, coachID, clientUserID int64) error
	QueryProfile(ctx context.Context, userID int64) (*models.User, error)
	QueryCoach(ctx context.Context, coachID int64) (*models.Coach, error)
	QueryCoachByUserID(ctx context.Context, userID int64) (*models.Coach, error)
}

// EventPublisher уведомляет заинтересованные стороны об изменении строк заявок
type EventPublisher interface {
	PublishRequestEvent(ctx context.Context, event RequestEvent) error
}

// RequestEvent - событие изменения строки заявки. Потребители используют его
// только как сигнал перечитать список, payload к кешу не применяется.
type RequestEvent struct {
	Action       string `json:"action"` // "insert", "update", "delete"
	RequestID    int64  `json:"request_id"`
	ClientUserID int64  `json:"client_user_id"`
	CoachID      int64  `json:"coach_id"`
}

const (
	EventActionInsert = "insert"
	EventActionUpdate = "update"
	EventActionDelete = "delete"
)

type GormRemote struct {
	publisher EventPublisher
}

func NewGormRemote(publisher EventPublisher) *GormRemote {
	return &GormRemote{publisher: publisher}
}

func (r *GormRemote) QueryRequests(ctx context.Context, filter RequestFilter) ([]models.CoachRequest, error) {
	query := db.GetReadOnlyDB(ctx).Model(&models.CoachRequest{})
	if filter.ClientUserID != 0 {
		query = query.Where("client_user_id = ?", filter.ClientUserID)
	}
	if filter.CoachID != 0 {
		query = query.Where("coach_id = ?", filter.CoachID)
	}

	var requests []models.CoachRequest
	err := query.Order("requested_at DESC").Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	return requests, nil
}

func (r *GormRemote) QueryRequestByID(ctx context.Context, id int64) (*models.CoachRequest, error) {
	var req models.CoachRequest
	err := db.GetReadOnlyDB(ctx).First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query request %d: %w", id, err)
	}
	return &req, nil
}

func (r *GormRemote) InsertRequest(ctx context.Context, req *models.CoachRequest) error {
	err := db.GetWriteDB(ctx).Create(req).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePending
		}
		return fmt.Errorf("failed to insert request: %w", err)
	}
	r.publish(ctx, EventActionInsert, req.ID, req.ClientUserID, req.CoachID)
	return nil
}

func (r *GormRemote) UpdateRequestConditional(ctx context.Context, id int64, expectedStatus, newStatus string, respondedBy int64, respondedAt time.Time) (int64, error) {
	result := db.GetWriteDB(ctx).Model(&models.CoachRequest{}).
		Where("id = ? AND status = ?", id, expectedStatus).
		Updates(map[string]interface{}{
			"status":       newStatus,
			"responded_at": respondedAt,
			"responded_by": respondedBy,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update request %d: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		var req models.CoachRequest
		if err := db.GetWriteDB(ctx).First(&req, "id = ?", id).Error; err == nil {
			r.publish(ctx, EventActionUpdate, req.ID, req.ClientUserID, req.CoachID)
		}
	}
	return result.RowsAffected, nil
}

func (r *GormRemote) DeleteRequests(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	// Строки читаются заранее, публикуются после фактического удаления:
	// сорвавшийся Delete не должен рассылать delete-события
	var stale []models.CoachRequest
	if err := db.GetReadOnlyDB(ctx).Find(&stale, "id IN ?", ids).Error; err != nil {
		stale = nil
	}

	err := db.GetWriteDB(ctx).Delete(&models.CoachRequest{}, "id IN ?", ids).Error
	if err != nil {
		return fmt.Errorf("failed to delete requests: %w", err)
	}

	for _, req := range stale {
		r.publish(ctx, EventActionDelete, req.ID, req.ClientUserID, req.CoachID)
	}
	return nil
}

// InsertAssignment создает активную связку тренер-клиент. Повторный вызов
// для уже существующей активной пары - no-op, поэтому операцию можно
// безопасно повторять из очереди восстановления.
func (r *GormRemote) InsertAssignment(ctx context.Context, coachID, clientUserID int64) error {
	var existing int64
	err := db.GetWriteDB(ctx).Model(&models.CoachClientAssignment{}).
		Where("coach_id = ? AND client_user_id = ? AND active = ?", coachID, clientUserID, true).
		Count(&existing).Error
	if err != nil {
		return fmt.Errorf("failed to check existing assignment: %w", err)
	}
	if existing > 0 {
		return nil
	}

	assignment := models.CoachClientAssignment{
		CoachID:      coachID,
		ClientUserID: clientUserID,
		Active:       true,
		AssignedAt:   time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(&assignment).Error; err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

func (r *GormRemote) QueryProfile(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query profile %d: %w", userID, err)
	}
	return &user, nil
}

func (r *GormRemote) QueryCoach(ctx context.Context, coachID int64) (*models.Coach, error) {
	var coach models.Coach
	err := db.GetReadOnlyDB(ctx).First(&coach, "id = ?", coachID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query coach %d: %w", coachID, err)
	}
	return &coach, nil
}

func (r *GormRemote) QueryCoachByUserID(ctx context.Context, userID int64) (*models.Coach, error) {
	var coach models.Coach
	err := db.GetReadOnlyDB(ctx).First(&coach, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query coach by user %d: %w", userID, err)
	}
	return &coach, nil
}

func (r *GormRemote) publish(ctx context.Context, action string, requestID, clientUserID, coachID int64) {
	if r.publisher == nil {
		return
	}
	event := RequestEvent{
		Action:       action,
		RequestID:    requestID,
		ClientUserID: clientUserID,
		CoachID:      coachID,
	}
	if err := r.publisher.PublishRequestEvent(ctx, event); err != nil {
		log.Printf("Failed to publish request event %s for request %d: %v", action, requestID, err)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
