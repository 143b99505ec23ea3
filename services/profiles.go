package services

import (
	"coachlink/models"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const profileCacheTTL = 60 * time.Second

// ProfileDirectory отдает отображаемые данные сторон заявки.
// Читает сквозь redis кеш; без redis (или при его ошибках) ходит
// напрямую в хранилище.
type ProfileDirectory struct {
	remote RemoteStore
	cache  *redis.Client
}

func NewProfileDirectory(remote RemoteStore, cache *redis.Client) *ProfileDirectory {
	return &ProfileDirectory{remote: remote, cache: cache}
}

// ClientDisplay возвращает данные клиента. Отсутствующий профиль - не
// ошибка: вернется Display с Available=false.
func (d *ProfileDirectory) ClientDisplay(ctx context.Context, userID int64) (models.ClientDisplay, error) {
	key := fmt.Sprintf("profile:user:%d", userID)

	var display models.ClientDisplay
	if d.cacheGet(ctx, key, &display) {
		return display, nil
	}

	user, err := d.remote.QueryProfile(ctx, userID)
	if err != nil {
		return models.ClientDisplay{}, err
	}
	if user == nil {
		return models.ClientDisplay{}, nil
	}

	display = models.ClientDisplay{
		Available: true,
		Nickname:  user.Nickname,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		City:      user.City,
	}
	d.cacheSet(ctx, key, display)
	return display, nil
}

// CoachDisplay возвращает данные тренера
func (d *ProfileDirectory) CoachDisplay(ctx context.Context, coachID int64) (models.CoachDisplay, error) {
	key := fmt.Sprintf("profile:coach:%d", coachID)

	var display models.CoachDisplay
	if d.cacheGet(ctx, key, &display) {
		return display, nil
	}

	coach, err := d.remote.QueryCoach(ctx, coachID)
	if err != nil {
		return models.CoachDisplay{}, err
	}
	if coach == nil {
		return models.CoachDisplay{}, nil
	}

	display = models.CoachDisplay{
		Available: true,
		FullName:  coach.FullName,
		Specialty: coach.Specialty,
	}
	d.cacheSet(ctx, key, display)
	return display, nil
}

func (d *ProfileDirectory) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if d.cache == nil {
		return false
	}
	data, err := d.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Profile cache read failed for %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		log.Printf("Profile cache unmarshal failed for %s: %v", key, err)
		return false
	}
	return true
}

func (d *ProfileDirectory) cacheSet(ctx context.Context, key string, value interface{}) {
	if d.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, data, profileCacheTTL).Err(); err != nil {
		log.Printf("Profile cache write failed for %s: %v", key, err)
	}
}
