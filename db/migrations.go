package db

import (
	"fmt"

	"gorm.io/gorm"
)

// CreatePendingRequestIndex создает частичный уникальный индекс:
// не более одной pending заявки на пару (client_user_id, coach_id).
// Предварительная проверка в сервисе остается основной защитой,
// индекс ловит гонку двух одновременных вставок.
func CreatePendingRequestIndex(database *gorm.DB) error {
	createIndexSQL := `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_coach_requests_pending_pair
		ON coach_requests (client_user_id, coach_id)
		WHERE status = 'pending';
	`
	if err := database.Exec(createIndexSQL).Error; err != nil {
		return fmt.Errorf("failed to create index idx_coach_requests_pending_pair: %w", err)
	}
	return nil
}
