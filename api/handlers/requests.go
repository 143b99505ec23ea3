package handlers

import (
	"coachlink/api/middleware"
	"coachlink/services"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const serviceName = "coachlink"

var (
	remoteStore     services.RemoteStore
	requestRegistry *services.StoreRegistry
)

// InitRequestHandlers собирает ядро заявок поверх текущей инфраструктуры
// (gorm обязателен, redis и rabbitmq опциональны). ctx - время жизни
// процесса: на нем живут подписки слушателей, а не на контекстах запросов.
// Возвращает очередь восстановления связок, чтобы сервер мог запустить
// ее воркеры.
func InitRequestHandlers(ctx context.Context) *services.QueueService {
	var pub services.EventPublisher
	var sub services.Subscriber
	if services.Bus != nil {
		pub = services.Bus
		sub = services.Bus
	}
	remote := services.NewGormRemote(pub)
	profiles := services.NewProfileDirectory(remote, services.RedisClient)
	repair := services.NewQueueService(remote)

	remoteStore = remote
	requestRegistry = services.NewStoreRegistry(ctx, remote, profiles, repair, sub)
	return repair
}

func currentUserID(c *gin.Context) (int64, bool) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return userID, true
}

// coachViewer возвращает идентичность тренера текущего пользователя
func coachViewer(c *gin.Context) (services.Viewer, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return services.Viewer{}, false
	}
	coach, err := remoteStore.QueryCoachByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return services.Viewer{}, false
	}
	if coach == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "coach profile required"})
		return services.Viewer{}, false
	}
	return services.ViewerCoach(coach.ID, userID), true
}

func requestErrorStatus(err error) int {
	var resolved *services.AlreadyResolvedError
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrDuplicatePending),
		errors.Is(err, services.ErrAlreadyAccepted),
		errors.Is(err, services.ErrAlreadyProcessing):
		return http.StatusConflict
	case errors.As(err, &resolved):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// SendRequest - клиент отправляет заявку тренеру
func SendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	type req struct {
		CoachID int64  `json:"coach_id"`
		Message string `json:"message"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	store := requestRegistry.StoreFor(services.ViewerClient(userID))

	start := time.Now()
	created, err := store.CreateRequest(c.Request.Context(), r.CoachID, r.Message)
	middleware.RecordRequestOperation("create", statusLabel(err), serviceName, time.Since(start), err)
	if err != nil {
		c.JSON(requestErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	store.Invalidate()
	c.JSON(http.StatusOK, gin.H{"request": created})
}

// AcceptRequest - тренер принимает заявку
func AcceptRequest(c *gin.Context) {
	resolveRequest(c, "accept")
}

// RejectRequest - тренер отклоняет заявку
func RejectRequest(c *gin.Context) {
	resolveRequest(c, "reject")
}

func resolveRequest(c *gin.Context, operation string) {
	viewer, ok := coachViewer(c)
	if !ok {
		return
	}

	type req struct {
		RequestID int64 `json:"request_id"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil || r.RequestID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	store := requestRegistry.StoreFor(viewer)

	start := time.Now()
	var err error
	if operation == "accept" {
		err = store.AcceptRequest(c.Request.Context(), r.RequestID)
	} else {
		err = store.RejectRequest(c.Request.Context(), r.RequestID)
	}
	middleware.RecordRequestOperation(operation, statusLabel(err), serviceName, time.Since(start), err)
	if err != nil {
		c.JSON(requestErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request " + operation + "ed"})
}

// IncomingRequests - заявки, видимые тренеру
func IncomingRequests(c *gin.Context) {
	viewer, ok := coachViewer(c)
	if !ok {
		return
	}
	listRequests(c, viewer)
}

// OutgoingRequests - заявки, отправленные клиентом
func OutgoingRequests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	listRequests(c, services.ViewerClient(userID))
}

func listRequests(c *gin.Context, viewer services.Viewer) {
	store := requestRegistry.StoreFor(viewer)

	start := time.Now()
	err := store.LoadForViewer(c.Request.Context())
	middleware.RecordRequestOperation("load", statusLabel(err), serviceName, time.Since(start), err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": store.Snapshot()})
}

// PendingCount - счетчик pending заявок клиента; с параметром coach_id
// дополнительно отвечает, есть ли pending заявка к этому тренеру
func PendingCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	store := requestRegistry.StoreFor(services.ViewerClient(userID))
	if err := store.LoadForViewer(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"pending_count": store.PendingCount()}
	if coachIDParam := c.Query("coach_id"); coachIDParam != "" {
		coachID, err := strconv.ParseInt(coachIDParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coach_id"})
			return
		}
		resp["has_pending"] = store.HasPendingWith(coachID)
	}
	c.JSON(http.StatusOK, resp)
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
