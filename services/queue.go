package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ASSIGNMENT_REPAIR_QUEUE = "assignment_repair_queue"
	QUEUE_WORKER_COUNT      = 3
)

// AssignmentRepairTask - заявка принята, но связка тренер-клиент не
// создалась. Воркеры доводят вставку до конца; InsertAssignment
// идемпотентен, повтор безопасен.
type AssignmentRepairTask struct {
	RequestID    int64 `json:"request_id"`
	CoachID      int64 `json:"coach_id"`
	ClientUserID int64 `json:"client_user_id"`
}

type QueueService struct {
	remote RemoteStore
	retry  RetryConfig
}

func NewQueueService(remote RemoteStore) *QueueService {
	return &QueueService{
		remote: remote,
		retry:  DefaultRetryConfig(),
	}
}

// StartWorkers запускает воркеры восстановления связок
func (qs *QueueService) StartWorkers(ctx context.Context) {
	for i := 0; i < QUEUE_WORKER_COUNT; i++ {
		go qs.worker(ctx, i)
	}
}

func (qs *QueueService) worker(ctx context.Context, workerID int) {
	log.Printf("Assignment repair worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Assignment repair worker %d stopping", workerID)
			return
		default:
			result, err := RedisClient.BLPop(ctx, 5*time.Second, ASSIGNMENT_REPAIR_QUEUE).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				log.Printf("Worker %d error getting task: %v", workerID, err)
				time.Sleep(time.Second)
				continue
			}

			if len(result) < 2 {
				continue
			}

			var task AssignmentRepairTask
			if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
				log.Printf("Worker %d error unmarshaling task: %v", workerID, err)
				continue
			}

			if err := qs.processTask(ctx, &task); err != nil {
				log.Printf("Worker %d failed to repair assignment for request %d: %v", workerID, task.RequestID, err)
				// Возвращаем задачу в хвост очереди на следующий круг
				qs.EnqueueAssignmentRepair(ctx, task)
			}
		}
	}
}

func (qs *QueueService) processTask(ctx context.Context, task *AssignmentRepairTask) error {
	return WithRetry(ctx, qs.retry, "repair assignment", func(ctx context.Context) error {
		return qs.remote.InsertAssignment(ctx, task.CoachID, task.ClientUserID)
	})
}

// EnqueueAssignmentRepair ставит задачу восстановления в очередь.
// Без Redis задача теряется, это фиксируется в логе - сервер при следующем
// accept той же пары все равно пере-создаст связку.
func (qs *QueueService) EnqueueAssignmentRepair(ctx context.Context, task AssignmentRepairTask) {
	if RedisClient == nil {
		log.Printf("Redis not available, dropping assignment repair task for request %d", task.RequestID)
		return
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		log.Printf("Failed to marshal assignment repair task: %v", err)
		return
	}

	if err := RedisClient.RPush(ctx, ASSIGNMENT_REPAIR_QUEUE, taskData).Err(); err != nil {
		log.Printf("Failed to enqueue assignment repair task for request %d: %v", task.RequestID, err)
		return
	}
	log.Printf("Enqueued assignment repair task for request %d (coach %d, client %d)", task.RequestID, task.CoachID, task.ClientUserID)
}

// GetStats возвращает статистику очереди восстановления
func (qs *QueueService) GetStats() map[string]interface{} {
	stats := make(map[string]interface{})

	if RedisClient != nil {
		ctx := context.Background()
		queueLength := RedisClient.LLen(ctx, ASSIGNMENT_REPAIR_QUEUE).Val()
		stats["queue_length"] = queueLength
		stats["worker_count"] = QUEUE_WORKER_COUNT
		stats["queue_name"] = ASSIGNMENT_REPAIR_QUEUE
	} else {
		stats["error"] = "Redis not available"
	}

	return stats
}
