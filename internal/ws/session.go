package ws

import (
	"sync"

	"github.com/centomomd/dictation-server/domain/repositories"
)

// Session is the per-connection transcription state. A session starts at
// most once; the stream reference stays nil until a valid start message
// arrives.
type Session struct {
	ID     string
	Config StartMessage

	mu      sync.Mutex
	stream  repositories.StreamSession
	started bool
}

// Start arms the session with its upstream stream. Returns false if the
// session was already started.
func (s *Session) Start(config StartMessage, stream repositories.StreamSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	s.Config = config
	s.stream = stream
	s.started = true
	return true
}

// Started reports whether a start message has been accepted.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// PushAudio forwards one audio chunk to the upstream stream. Chunks before
// start or after teardown are dropped.
func (s *Session) PushAudio(chunk []byte) error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil || len(chunk) == 0 {
		return nil
	}
	return stream.PushAudio(chunk)
}

// EndAudio signals end-of-audio upstream. Safe to call more than once and
// before start.
func (s *Session) EndAudio() {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream != nil {
		stream.EndAudio()
	}
}

// SessionManager tracks live sessions by ID.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

func (m *SessionManager) Register(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *SessionManager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
