package services

import (
	"coachlink/models"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// CacheWindow - окно, в течение которого повторная загрузка списка
// отдает кеш. Это только экономия трафика, не защита от гонок.
const CacheWindow = 5 * time.Second

// Viewer - идентичность владельца стора: клиент или тренер.
// CoachID == 0 означает клиентскую сторону.
type Viewer struct {
	UserID  int64
	CoachID int64
}

func ViewerClient(userID int64) Viewer {
	return Viewer{UserID: userID}
}

func ViewerCoach(coachID, userID int64) Viewer {
	return Viewer{UserID: userID, CoachID: coachID}
}

func (v Viewer) IsCoach() bool {
	return v.CoachID != 0
}

func (v Viewer) filter() RequestFilter {
	if v.IsCoach() {
		return RequestFilter{CoachID: v.CoachID}
	}
	return RequestFilter{ClientUserID: v.UserID}
}

// RequestStore владеет видимым данному участнику списком заявок.
// Список - eventually-consistent проекция удаленного хранилища:
// сверяется при загрузке и по сигналам инвалидации, но никогда наоборот.
type RequestStore struct {
	remote   RemoteStore
	profiles *ProfileDirectory
	repair   *QueueService
	viewer   Viewer
	retry    RetryConfig

	mu         sync.Mutex
	requests   []models.CoachRequest
	lastLoadAt time.Time
	loading    bool
	processing map[int64]struct{}
}

func NewRequestStore(remote RemoteStore, profiles *ProfileDirectory, repair *QueueService, viewer Viewer) *RequestStore {
	return &RequestStore{
		remote:     remote,
		profiles:   profiles,
		repair:     repair,
		viewer:     viewer,
		retry:      DefaultRetryConfig(),
		processing: make(map[int64]struct{}),
	}
}

// SetRetryConfig переопределяет параметры повторов (короткие паузы в тестах)
func (s *RequestStore) SetRetryConfig(cfg RetryConfig) {
	s.retry = cfg
}

func (s *RequestStore) Viewer() Viewer {
	return s.viewer
}

// CreateRequest создает pending заявку текущего клиента к тренеру coachID.
// Старые rejected заявки пары удаляются, pending и accepted блокируют создание.
func (s *RequestStore) CreateRequest(ctx context.Context, coachID int64, message string) (*models.CoachRequest, error) {
	if s.viewer.IsCoach() {
		return nil, validationError("only clients can send coach requests")
	}
	if coachID <= 0 {
		return nil, validationError("coach id is required")
	}
	message = strings.TrimSpace(message)
	// Лимит в символах, не в байтах: кириллица не должна резать его вдвое
	if utf8.RuneCountInString(message) > models.MaxRequestMessageLen {
		return nil, validationError(fmt.Sprintf("message exceeds %d characters", models.MaxRequestMessageLen))
	}

	var existing []models.CoachRequest
	err := WithRetry(ctx, s.retry, "query existing requests", func(ctx context.Context) error {
		var qerr error
		existing, qerr = s.remote.QueryRequests(ctx, RequestFilter{ClientUserID: s.viewer.UserID, CoachID: coachID})
		return qerr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing requests: %w", err)
	}

	var rejectedIDs []int64
	for _, req := range existing {
		switch req.Status {
		case models.RequestStatusPending:
			return nil, ErrDuplicatePending
		case models.RequestStatusAccepted:
			return nil, ErrAlreadyAccepted
		case models.RequestStatusRejected:
			rejectedIDs = append(rejectedIDs, req.ID)
		}
	}

	// История отклоненных заявок не хранится: чистим перед новой попыткой.
	// Удаление идемпотентно, поэтому повторяется; неудача не фатальна.
	if len(rejectedIDs) > 0 {
		err := WithRetry(ctx, s.retry, "delete rejected requests", func(ctx context.Context) error {
			return s.remote.DeleteRequests(ctx, rejectedIDs)
		})
		if err != nil {
			log.Printf("Failed to delete rejected requests for pair (%d, %d): %v", s.viewer.UserID, coachID, err)
		}
	}

	req := &models.CoachRequest{
		ClientUserID: s.viewer.UserID,
		CoachID:      coachID,
		Status:       models.RequestStatusPending,
		RequestedAt:  time.Now(),
	}
	if message != "" {
		req.Message = &message
	}

	if err := s.remote.InsertRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// AcceptRequest принимает заявку и создает активную связку тренер-клиент
func (s *RequestStore) AcceptRequest(ctx context.Context, requestID int64) error {
	return s.resolve(ctx, requestID, models.RequestStatusAccepted)
}

// RejectRequest отклоняет заявку
func (s *RequestStore) RejectRequest(ctx context.Context, requestID int64) error {
	return s.resolve(ctx, requestID, models.RequestStatusRejected)
}

// resolve - общий путь accept/reject. Порядок:
// guard по processing set -> снапшот -> оптимистичная правка списка ->
// перечитывание статуса (ранний отказ) -> условный update (настоящая защита
// от гонки) -> для accept вставка assignment. Любая неудача откатывает
// список к снапшоту.
func (s *RequestStore) resolve(ctx context.Context, requestID int64, newStatus string) error {
	if !s.viewer.IsCoach() {
		return validationError("only coaches can resolve requests")
	}

	now := time.Now()
	respondedBy := s.viewer.UserID

	s.mu.Lock()
	if _, busy := s.processing[requestID]; busy {
		s.mu.Unlock()
		return ErrAlreadyProcessing
	}
	s.processing[requestID] = struct{}{}
	snapshot := cloneRequests(s.requests)
	for i := range s.requests {
		if s.requests[i].ID == requestID {
			s.requests[i].Status = newStatus
			s.requests[i].RespondedAt = &now
			s.requests[i].RespondedBy = &respondedBy
		}
	}
	s.mu.Unlock()

	// Запись в processing set снимается при любом исходе
	defer func() {
		s.mu.Lock()
		delete(s.processing, requestID)
		s.mu.Unlock()
	}()

	rollback := func() {
		s.mu.Lock()
		s.requests = snapshot
		s.mu.Unlock()
	}

	var current *models.CoachRequest
	err := WithRetry(ctx, s.retry, "query request status", func(ctx context.Context) error {
		var qerr error
		current, qerr = s.remote.QueryRequestByID(ctx, requestID)
		return qerr
	})
	if err != nil || current == nil {
		rollback()
		if err != nil {
			log.Printf("Failed to fetch request %d before resolve: %v", requestID, err)
		}
		return ErrNotFound
	}
	if current.Status != models.RequestStatusPending {
		rollback()
		return &AlreadyResolvedError{Status: current.Status}
	}

	// Условный update - единственный межинстансный арбитр гонки.
	// Проверка выше лишь экономит round-trip при заведомо решенной заявке.
	affected, err := s.remote.UpdateRequestConditional(ctx, requestID, models.RequestStatusPending, newStatus, respondedBy, now)
	if err != nil {
		rollback()
		return fmt.Errorf("failed to update request %d: %w", requestID, err)
	}
	if affected == 0 {
		rollback()
		if latest, qerr := s.remote.QueryRequestByID(ctx, requestID); qerr == nil && latest != nil {
			return &AlreadyResolvedError{Status: latest.Status}
		}
		return ErrNotFound
	}

	if newStatus == models.RequestStatusAccepted {
		if err := s.remote.InsertAssignment(ctx, current.CoachID, current.ClientUserID); err != nil {
			// Статус на сервере уже accepted; ставим задачу в очередь
			// восстановления и сообщаем об ошибке
			rollback()
			if s.repair != nil {
				s.repair.EnqueueAssignmentRepair(ctx, AssignmentRepairTask{
					RequestID:    requestID,
					CoachID:      current.CoachID,
					ClientUserID: current.ClientUserID,
				})
			}
			return fmt.Errorf("request accepted but assignment creation failed: %w", err)
		}
	}
	return nil
}

// LoadForViewer перечитывает список заявок текущего участника.
// Загрузка пропускается, если другая уже идет, или кеш свежее CacheWindow
// и список непуст.
func (s *RequestStore) LoadForViewer(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	if len(s.requests) > 0 && time.Since(s.lastLoadAt) < CacheWindow {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	var rows []models.CoachRequest
	err := WithRetry(ctx, s.retry, "load requests", func(ctx context.Context) error {
		var qerr error
		rows, qerr = s.remote.QueryRequests(ctx, s.viewer.filter())
		return qerr
	})
	if err != nil {
		return fmt.Errorf("failed to load requests: %w", err)
	}

	// Подтягиваем отображаемые данные по каждой строке. Неудача join
	// деградирует только эту строку, список целиком не страдает.
	for i := range rows {
		s.attachDisplays(ctx, &rows[i])
	}

	s.mu.Lock()
	s.requests = rows
	s.lastLoadAt = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *RequestStore) attachDisplays(ctx context.Context, req *models.CoachRequest) {
	if s.profiles == nil {
		return
	}
	client, err := s.profiles.ClientDisplay(ctx, req.ClientUserID)
	if err != nil {
		log.Printf("Failed to join client profile %d for request %d: %v", req.ClientUserID, req.ID, err)
	} else {
		req.Client = client
	}
	coach, err := s.profiles.CoachDisplay(ctx, req.CoachID)
	if err != nil {
		log.Printf("Failed to join coach profile %d for request %d: %v", req.CoachID, req.ID, err)
	} else {
		req.Coach = coach
	}
}

// Invalidate сбрасывает отметку последней загрузки, следующий LoadForViewer
// пойдет в хранилище независимо от окна кеша
func (s *RequestStore) Invalidate() {
	s.mu.Lock()
	s.lastLoadAt = time.Time{}
	s.mu.Unlock()
}

// Snapshot возвращает копию списка для отображения
func (s *RequestStore) Snapshot() []models.CoachRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRequests(s.requests)
}

// PendingCount - число pending заявок в кеше
func (s *RequestStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.requests {
		if s.requests[i].Status == models.RequestStatusPending {
			count++
		}
	}
	return count
}

// HasPendingWith - есть ли в кеше pending заявка к данному тренеру
func (s *RequestStore) HasPendingWith(coachID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		if s.requests[i].CoachID == coachID && s.requests[i].Status == models.RequestStatusPending {
			return true
		}
	}
	return false
}

// cloneRequests копирует список по значению: снапшоты для отката не должны
// делить память с рабочим списком
func cloneRequests(requests []models.CoachRequest) []models.CoachRequest {
	cloned := make([]models.CoachRequest, len(requests))
	copy(cloned, requests)
	for i := range cloned {
		if cloned[i].RespondedAt != nil {
			at := *cloned[i].RespondedAt
			cloned[i].RespondedAt = &at
		}
		if cloned[i].RespondedBy != nil {
			by := *cloned[i].RespondedBy
			cloned[i].RespondedBy = &by
		}
		if cloned[i].Message != nil {
			msg := *cloned[i].Message
			cloned[i].Message = &msg
		}
	}
	return cloned
}
