package services

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// WSConnManager хранит открытые websocket соединения по пользователям.
// У одного пользователя может быть несколько устройств.
type WSConnManager struct {
	mu    sync.RWMutex
	users map[int64][]*websocket.Conn
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		users: make(map[int64][]*websocket.Conn),
	}
}

func (m *WSConnManager) Add(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = append(m.users[userID], conn)
}

func (m *WSConnManager) Remove(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns := m.users[userID]
	for i, c := range conns {
		if c == conn {
			m.users[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(m.users[userID]) == 0 {
		delete(m.users, userID)
	}
}

func (m *WSConnManager) Send(userID int64, message []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.users[userID] {
		_ = conn.WriteMessage(websocket.TextMessage, message)
	}
}

var GlobalWSConnManager = NewWSConnManager()

// NotifyRequestChanged пушит событие заявки на устройства пользователя.
// Клиентам отдается только сигнал обновиться, без joined полей.
func NotifyRequestChanged(userID int64, event RequestEvent) {
	push := struct {
		Event     string `json:"event"`
		Action    string `json:"action"`
		RequestID int64  `json:"request_id"`
	}{
		Event:     "coach_request_changed",
		Action:    event.Action,
		RequestID: event.RequestID,
	}
	data, err := json.Marshal(push)
	if err != nil {
		log.Println("Failed to marshal ws push:", err)
		return
	}
	GlobalWSConnManager.Send(userID, data)
}
