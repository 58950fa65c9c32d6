// Package session keeps one isolated client per browser session.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/drborges/apollo-react-spike/internal/client"
)

// CookieName carries the signed session token.
const CookieName = "userdeck_session"

var (
	// ErrNoSession indicates the request carries no valid, live session.
	ErrNoSession = errors.New("no session")
	// ErrSessionLimit indicates the manager holds as many live sessions as it allows.
	ErrSessionLimit = errors.New("session limit reached")
)

// Factory builds the client for a new session.
type Factory func() *client.Client

type entry struct {
	client    *client.Client
	expiresAt time.Time
}

// Manager maps session ids to their clients. A session's state is discarded when it expires.
type Manager struct {
	tokens  *TokenManager
	factory Factory
	secure  bool
	limit   int
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewManager creates a manager. secure marks the cookie HTTPS-only.
// limit caps the number of live sessions, each of which may hold an upstream
// subscription; zero or less means no cap.
func NewManager(tokens *TokenManager, factory Factory, secure bool, limit int) *Manager {
	return &Manager{
		tokens:   tokens,
		factory:  factory,
		secure:   secure,
		limit:    limit,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Resolve returns the client for the request's session, starting a new session
// (and setting its cookie on w) when there is none.
func (m *Manager) Resolve(w http.ResponseWriter, r *http.Request) (*client.Client, error) {
	if c, err := m.Lookup(r); err == nil {
		return c, nil
	}

	id := uuid.NewString()
	token, expiresAt, err := m.tokens.Generate(id, m.now())
	if err != nil {
		return nil, err
	}

	if m.full() {
		m.Sweep()
	}
	m.mu.Lock()
	if m.fullLocked() {
		m.mu.Unlock()
		glog.Warningf("[s]refusing session: %d live sessions\n", m.limit)
		return nil, ErrSessionLimit
	}
	c := m.factory()
	m.sessions[id] = &entry{client: c, expiresAt: expiresAt}
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	glog.V(2).Infof("[s]new session %s\n", id)
	return c, nil
}

// Lookup returns the client of an existing session without creating one.
func (m *Manager) Lookup(r *http.Request) (*client.Client, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	id, _, err := m.tokens.Parse(cookie.Value)
	if err != nil {
		return nil, ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, ErrNoSession
	}
	return e.client, nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	var expired []*client.Client

	m.mu.Lock()
	for id, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			expired = append(expired, e.client)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	return len(expired)
}

func (m *Manager) full() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fullLocked()
}

func (m *Manager) fullLocked() bool {
	return 0 < m.limit && m.limit <= len(m.sessions)
}

// Len reports the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run sweeps every interval until ctx is done, then closes every session.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return nil
		case <-ticker.C:
			if n := m.Sweep(); 0 < n {
				glog.Infof("[s]swept %d sessions\n", n)
			}
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()
	for _, e := range sessions {
		e.client.Close()
	}
}
