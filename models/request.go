package models

import "time"

// Request status constants
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// MaxRequestMessageLen ограничивает длину сообщения в заявке
const MaxRequestMessageLen = 500

// CoachRequest - заявка клиента на сопровождение тренером.
// Статус меняется ровно один раз: pending -> accepted или pending -> rejected.
// RespondedAt/RespondedBy заполняются только в момент этого перехода.
type CoachRequest struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientUserID int64      `gorm:"index" json:"client_user_id"`
	CoachID      int64      `gorm:"index" json:"coach_id"`
	Status       string     `gorm:"size:20;default:'pending'" json:"status"`
	Message      *string    `gorm:"size:500" json:"message,omitempty"`
	RequestedAt  time.Time  `json:"requested_at"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`
	RespondedBy  *int64     `json:"responded_by,omitempty"`

	// Отображаемые данные сторон, подтягиваются при загрузке, не хранятся
	Client ClientDisplay `gorm:"-" json:"client_profile"`
	Coach  CoachDisplay  `gorm:"-" json:"coach_profile"`
}

func (CoachRequest) TableName() string {
	return "coach_requests"
}

func (r *CoachRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

func (r *CoachRequest) IsAccepted() bool {
	return r.Status == RequestStatusAccepted
}

func (r *CoachRequest) IsRejected() bool {
	return r.Status == RequestStatusRejected
}

// ClientDisplay - данные клиента для отображения заявки.
// Available=false, если join не удался; поля тогда пустые.
type ClientDisplay struct {
	Available bool   `json:"available"`
	Nickname  string `json:"nickname,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	City      string `json:"city,omitempty"`
}

// CoachDisplay - данные тренера для отображения заявки
type CoachDisplay struct {
	Available bool   `json:"available"`
	FullName  string `json:"full_name,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}

// CoachClientAssignment - активная связка тренер-клиент, создается при принятии заявки
type CoachClientAssignment struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CoachID      int64     `gorm:"index" json:"coach_id"`
	ClientUserID int64     `gorm:"index" json:"client_user_id"`
	Active       bool      `gorm:"default:true" json:"active"`
	AssignedAt   time.Time `json:"assigned_at"`
}

func (CoachClientAssignment) TableName() string {
	return "coach_client_assignments"
}
