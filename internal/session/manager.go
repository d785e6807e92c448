// Package session keeps in-flight imports between upload and approval.
package session

import (
	"errors"
	"sync"
	"time"

	"AdvisorDesk/internal/pipeline"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("import session not found or expired")

// Session is one uploaded sheet on its way to approval.
type Session struct {
	ID        string
	FileName  string
	Checksum  string
	Headers   []string
	RawRows   []pipeline.RawRow
	Mapping   pipeline.Mapping
	Records   []pipeline.Record
	Rows      []pipeline.EnrichedRow
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Manager is safe for concurrent use. Sessions handed out by Get are copies;
// changes are stored with Update.
type Manager struct {
	sessions map[string]*Session
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *Manager) CreateSession(fileName, checksum string, headers []string, rows []pipeline.RawRow, mapping pipeline.Mapping) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Checksum:  checksum,
		Headers:   headers,
		RawRows:   rows,
		Mapping:   mapping,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions[s.ID] = s
	return s.clone()
}

func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || m.now().After(s.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return s.clone(), nil
}

// FindByChecksum returns a live session created from identical file content.
func (m *Manager) FindByChecksum(checksum string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, s := range m.sessions {
		if s.Checksum == checksum && !now.After(s.ExpiresAt) {
			return s.clone(), true
		}
	}
	return nil, false
}

// Update replaces the stored session and extends its expiry.
func (m *Manager) Update(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[s.ID]
	if !ok || m.now().After(cur.ExpiresAt) {
		return ErrSessionNotFound
	}
	next := s.clone()
	next.CreatedAt = cur.CreatedAt
	next.ExpiresAt = m.now().Add(m.ttl)
	m.sessions[s.ID] = next
	return nil
}

func (m *Manager) DeleteSession(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
}

// CleanupExpiredSessions drops expired sessions and reports how many went.
func (m *Manager) CleanupExpiredSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (s *Session) clone() *Session {
	c := *s
	c.Headers = append([]string(nil), s.Headers...)
	c.RawRows = append([]pipeline.RawRow(nil), s.RawRows...)
	if s.Mapping != nil {
		c.Mapping = make(pipeline.Mapping, len(s.Mapping))
		for k, v := range s.Mapping {
			c.Mapping[k] = v
		}
	}
	if s.Records != nil {
		c.Records = make([]pipeline.Record, len(s.Records))
		for i, r := range s.Records {
			cp := make(pipeline.Record, len(r))
			for k, v := range r {
				cp[k] = v
			}
			c.Records[i] = cp
		}
	}
	c.Rows = append([]pipeline.EnrichedRow(nil), s.Rows...)
	return &c
}
