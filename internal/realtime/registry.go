package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Envelope 推给客户端的帧
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type Conn interface {
	// Enqueue 非阻塞入队，缓冲满返回 false
	Enqueue(frame []byte) bool
}

// Registry 用户 id -> 在线连接，一个用户可以有多条连接
type Registry struct {
	mu    sync.RWMutex
	conns map[uint64]map[Conn]struct{}
	log   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{conns: map[uint64]map[Conn]struct{}{}, log: logger}
}

func (r *Registry) Register(userID uint64, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = map[Conn]struct{}{}
		r.conns[userID] = set
	}
	set[c] = struct{}{}
}

func (r *Registry) Unregister(userID uint64, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.conns[userID]
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

func (r *Registry) Lookup(userID uint64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conn, 0, len(r.conns[userID]))
	for c := range r.conns[userID] {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Online(userID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// Push 推给用户的所有连接，至少一条连接收下才返回 true
func (r *Registry) Push(userID uint64, event string, payload any) bool {
	conns := r.Lookup(userID)
	if len(conns) == 0 {
		return false
	}
	frame, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		r.log.Error("encode push frame", "event", event, "err", err)
		return false
	}
	delivered := false
	for _, c := range conns {
		if c.Enqueue(frame) {
			delivered = true
		} else {
			r.log.Warn("push buffer full, frame dropped", "user_id", userID, "event", event)
		}
	}
	return delivered
}
