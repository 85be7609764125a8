package businessflow

import (
	"context"
	"sync"
	"time"

	"github.com/oliateam/leadfunnel/utils"
)

// CaptureState marks which kind of free-text input the bot expects next
// from a user. States are mutually exclusive per user.
type CaptureState string

const (
	CaptureNone         CaptureState = ""
	CaptureNoteTitle    CaptureState = "note_title"
	CaptureNoteURL      CaptureState = "note_url"
	CaptureReminderText CaptureState = "reminder_text"
)

// Session is the per-user input-capture session. Created when a capture
// begins, cleared on completion or /cancel.
type Session struct {
	State     CaptureState `json:"state"`
	NoteTitle string       `json:"note_title,omitempty"`
	GroupID   int64        `json:"group_id,omitempty"`
}

// SessionStore holds per-user capture sessions. Implementations must be
// safe for concurrent event handlers.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Put(ctx context.Context, userID int64, session *Session) error
	Clear(ctx context.Context, userID int64) error
}

// DefaultSessionTTL bounds how long an abandoned capture session lives
const DefaultSessionTTL = 30 * time.Minute

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemorySessionStore is the in-process SessionStore used when the cache
// backend is disabled. Entries are evicted lazily on access.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
	ttl     time.Duration
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
	}
}

func (s *MemorySessionStore) Get(_ context.Context, userID int64) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok {
		return nil, nil
	}
	if utils.IsExpired(entry.expiresAt) {
		delete(s.entries, userID)
		return nil, nil
	}
	session := entry.session
	return &session, nil
}

func (s *MemorySessionStore) Put(_ context.Context, userID int64, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[userID] = memoryEntry{
		session:   *session,
		expiresAt: utils.UTCNowAdd(s.ttl),
	}
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, userID)
	return nil
}
