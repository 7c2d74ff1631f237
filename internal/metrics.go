package internal

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

type Metrics struct {
	roomsCreated atomic.Uint64
	joins        atomic.Uint64
	chats        atomic.Uint64
	whispers     atomic.Uint64
	activeConns  atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncRoomCreated() {
	m.roomsCreated.Add(1)
}

func (m *Metrics) IncConn() {
	m.activeConns.Add(1)
}

func (m *Metrics) DecConn() {
	m.activeConns.Add(-1)
}

// CountEvent bumps the counter matching an inbound event type.
func (m *Metrics) CountEvent(eventType string) {
	switch eventType {
	case EventNewUser:
		m.joins.Add(1)
	case EventChatMessage:
		m.chats.Add(1)
	case EventWhisper:
		m.whispers.Add(1)
	}
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"rooms_created_total": m.roomsCreated.Load(),
		"joins_total":         m.joins.Load(),
		"chat_messages_total": m.chats.Load(),
		"whispers_total":      m.whispers.Load(),
		"active_connections":  m.activeConns.Load(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
