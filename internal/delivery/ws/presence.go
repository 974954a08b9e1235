package ws

import (
	"sync"

	"github.com/samber/lo"

	"zbchat/internal/domain"
)

// Presence tracks which usernames are online and on which connection.
// It keeps a forward and a reverse index so both the uniqueness check on
// login and the username lookup on dispatch are O(1), and the
// check-and-reserve on login is a single atomic step.
type Presence struct {
	mu     sync.RWMutex
	byConn map[string]string // connection id -> username
	byName map[string]string // username -> connection id
}

func NewPresence() *Presence {
	return &Presence{
		byConn: make(map[string]string),
		byName: make(map[string]string),
	}
}

// Login reserves the username for a connection. It returns
// domain.ErrAlreadyOnline when the name is held by another connection.
// A name the connection held before is released in the same locked step,
// so the forward and reverse indexes never disagree.
func (p *Presence) Login(connID, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if holder, ok := p.byName[username]; ok && holder != connID {
		return domain.ErrAlreadyOnline
	}
	if old, ok := p.byConn[connID]; ok && old != username {
		delete(p.byName, old)
	}
	p.byConn[connID] = username
	p.byName[username] = connID
	return nil
}

// Logout releases a connection's username and returns it. Logging out a
// connection that never authenticated returns ok=false; repeating a
// logout is a no-op.
func (p *Presence) Logout(connID string) (username string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	username, ok = p.byConn[connID]
	if !ok {
		return "", false
	}
	delete(p.byConn, connID)
	delete(p.byName, username)
	return username, true
}

// Username returns the authenticated name behind a connection.
func (p *Presence) Username(connID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	username, ok := p.byConn[connID]
	return username, ok
}

// IsOnline reports whether a username currently holds a connection.
func (p *Presence) IsOnline(username string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byName[username]
	return ok
}

// OnlineUsers snapshots the current roster.
func (p *Presence) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return lo.Keys(p.byName)
}
