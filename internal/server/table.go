package server

import (
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/seqwire/internal/protocol/session"
)

// SessionTable stores live sessions by stable session id.
type SessionTable struct {
	mu    sync.RWMutex
	items map[string]*session.Conn
}

func NewSessionTable() *SessionTable {
	return &SessionTable{
		items: make(map[string]*session.Conn),
	}
}

func (t *SessionTable) Add(conn *session.Conn) {
	if conn == nil {
		return
	}
	key := strings.TrimSpace(conn.ID())
	if key == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[key] = conn
}

func (t *SessionTable) Remove(id string) {
	key := strings.TrimSpace(id)
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.items, key)
}

func (t *SessionTable) Get(id string) (*session.Conn, bool) {
	key := strings.TrimSpace(id)
	t.mu.RLock()
	defer t.mu.RUnlock()
	conn, ok := t.items[key]
	return conn, ok
}

func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *SessionTable) List() []*session.Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*session.Conn, 0, len(t.items))
	for _, conn := range t.items {
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Snapshots returns admin-plane views of every live session, ordered
// by session id.
func (t *SessionTable) Snapshots() []session.Snapshot {
	conns := t.List()
	out := make([]session.Snapshot, 0, len(conns))
	for _, conn := range conns {
		out = append(out, conn.Snapshot())
	}
	return out
}
