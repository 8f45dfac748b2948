package stt

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
)

// MockSpeechToText is a scriptable SpeechToText for tests and local
// development. Scripted events are delivered in order once a stream starts.
type MockSpeechToText struct {
	logger *zap.Logger

	mu         sync.Mutex
	Scripted   []repositories.TranscriptEvent
	FailStart  error
	LastConfig repositories.StreamConfig
	Streams    []*MockStream
}

func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{logger: logger}
}

func (m *MockSpeechToText) Status() repositories.ServiceStatus {
	return repositories.ServiceStatus{Provider: "mock", Region: "local"}
}

func (m *MockSpeechToText) StartStream(
	ctx context.Context,
	sessionID string,
	cfg repositories.StreamConfig,
	onResult func(repositories.TranscriptEvent),
	onError func(error),
) (repositories.StreamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailStart != nil {
		return nil, m.FailStart
	}
	m.LastConfig = cfg

	stream := &MockStream{}
	m.Streams = append(m.Streams, stream)

	scripted := make([]repositories.TranscriptEvent, len(m.Scripted))
	copy(scripted, m.Scripted)
	go func() {
		for _, ev := range scripted {
			onResult(ev)
		}
	}()

	m.logger.Debug("mock stream started", zap.String("session_id", sessionID))
	return stream, nil
}

// MockStream records pushed audio for assertions.
type MockStream struct {
	mu     sync.Mutex
	chunks [][]byte
	ended  bool
}

func (s *MockStream) PushAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil
	}
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *MockStream) EndAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
}

func (s *MockStream) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *MockStream) ChunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}
