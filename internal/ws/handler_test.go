package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/adapters/stt"
	"github.com/centomomd/dictation-server/domain/repositories"
)

func newTestServer(t *testing.T, mock *stt.MockSpeechToText) *httptest.Server {
	t.Helper()
	e := echo.New()
	h := NewHandler(mock, nil, NewSessionManager(), false, zap.NewNop())
	e.GET("/ws/transcription", h.ServeWS)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/transcription"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", payload, err)
	}
	return msg
}

func startTranscription(t *testing.T, conn *websocket.Conn, fields map[string]any) {
	t.Helper()
	msg := map[string]any{"type": "start_transcription", "languageCode": "fr-CA"}
	for k, v := range fields {
		msg[k] = v
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write start: %v", err)
	}
}

func TestInvalidLanguageCodeClosesConnection(t *testing.T) {
	srv := newTestServer(t, stt.NewMockSpeechToText(zap.NewNop()))
	conn := dial(t, srv)

	established := readMessage(t, conn)
	if established["type"] != "connection_established" {
		t.Fatalf("first message = %v", established)
	}

	startTranscription(t, conn, map[string]any{"languageCode": "xx-XX"})

	errMsg := readMessage(t, conn)
	if errMsg["type"] != "transcription_error" {
		t.Fatalf("expected transcription_error, got %v", errMsg)
	}
	if errMsg["error"] != "Invalid languageCode" {
		t.Errorf("error = %v", errMsg["error"])
	}

	// No stream_ready and no further messages; the connection closes.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, payload, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected closed connection, got %s", payload)
	}
}

func TestStartAppliesModeConfig(t *testing.T) {
	mock := stt.NewMockSpeechToText(zap.NewNop())
	srv := newTestServer(t, mock)
	conn := dial(t, srv)
	readMessage(t, conn) // connection_established

	startTranscription(t, conn, map[string]any{
		"mode":       "smart_dictation",
		"sampleRate": 44100,
	})

	ready := readMessage(t, conn)
	if ready["type"] != "stream_ready" {
		t.Fatalf("expected stream_ready, got %v", ready)
	}

	if mock.LastConfig.VocabularyName != "medical_terms_fr" {
		t.Errorf("vocabulary = %q", mock.LastConfig.VocabularyName)
	}
	if mock.LastConfig.MediaSampleRateHz != 44100 {
		t.Errorf("sample rate = %d", mock.LastConfig.MediaSampleRateHz)
	}
	if !mock.LastConfig.ShowSpeakerLabels {
		t.Error("speaker labels should be on for smart dictation")
	}
}

func TestResultsAreRelayed(t *testing.T) {
	mock := stt.NewMockSpeechToText(zap.NewNop())
	start := 0.0
	end := 1.5
	confidence := 0.91
	mock.Scripted = []repositories.TranscriptEvent{
		{
			ResultID:   "utt-1",
			StartTime:  &start,
			EndTime:    &end,
			Transcript: "bonjour docteur",
			IsPartial:  true,
			Confidence: &confidence,
		},
		{
			ResultID:   "utt-1",
			StartTime:  &start,
			EndTime:    &end,
			Transcript: "Bonjour docteur.",
			IsPartial:  false,
			Confidence: &confidence,
		},
	}
	srv := newTestServer(t, mock)
	conn := dial(t, srv)
	readMessage(t, conn) // connection_established

	startTranscription(t, conn, nil)

	// Scripted results race the stream_ready message; collect results in
	// order and ignore the ready marker wherever it lands.
	var results []map[string]any
	for len(results) < 2 {
		msg := readMessage(t, conn)
		if msg["type"] == "transcription_result" {
			results = append(results, msg)
		}
	}

	partial, final := results[0], results[1]
	if partial["isFinal"] != false {
		t.Fatalf("partial = %v", partial)
	}
	if final["isFinal"] != true {
		t.Fatalf("final = %v", final)
	}
	if partial["resultId"] != final["resultId"] {
		t.Errorf("result IDs differ: %v vs %v", partial["resultId"], final["resultId"])
	}
	if final["text"] != "Bonjour docteur." {
		t.Errorf("text = %v", final["text"])
	}
}

func TestBinaryFramesBeforeStartAreDropped(t *testing.T) {
	mock := stt.NewMockSpeechToText(zap.NewNop())
	srv := newTestServer(t, mock)
	conn := dial(t, srv)
	readMessage(t, conn) // connection_established

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("write binary: %v", err)
	}

	startTranscription(t, conn, map[string]any{"languageCode": "en-US"})
	ready := readMessage(t, conn)
	if ready["type"] != "stream_ready" {
		t.Fatalf("expected stream_ready, got %v", ready)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{5, 6, 7, 8}); err != nil {
		t.Fatalf("write binary: %v", err)
	}

	// Only the post-start frame reaches the stream.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(mock.Streams) == 1 && mock.Streams[0].ChunkCount() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected exactly one forwarded chunk, streams = %d", len(mock.Streams))
}

func TestStopTranscriptionEndsAudio(t *testing.T) {
	mock := stt.NewMockSpeechToText(zap.NewNop())
	srv := newTestServer(t, mock)
	conn := dial(t, srv)
	readMessage(t, conn)

	startTranscription(t, conn, nil)
	readMessage(t, conn) // stream_ready

	if err := conn.WriteJSON(map[string]any{"type": "stop_transcription"}); err != nil {
		t.Fatalf("write stop: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(mock.Streams) == 1 && mock.Streams[0].Ended() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("stream was not ended")
}

func TestCmdMessagesAreAcknowledged(t *testing.T) {
	mock := stt.NewMockSpeechToText(zap.NewNop())
	srv := newTestServer(t, mock)
	conn := dial(t, srv)
	readMessage(t, conn)

	startTranscription(t, conn, nil)
	readMessage(t, conn) // stream_ready

	if err := conn.WriteJSON(map[string]any{"type": "cmd.save"}); err != nil {
		t.Fatalf("write cmd: %v", err)
	}
	ack := readMessage(t, conn)
	if ack["type"] != "cmd_ack" || ack["cmd"] != "cmd.save" || ack["ok"] != true {
		t.Errorf("ack = %v", ack)
	}
}

func TestCloseEndsAudio(t *testing.T) {
	mock := stt.NewMockSpeechToText(zap.NewNop())
	srv := newTestServer(t, mock)
	conn := dial(t, srv)
	readMessage(t, conn)

	startTranscription(t, conn, nil)
	readMessage(t, conn) // stream_ready

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(mock.Streams) == 1 && mock.Streams[0].Ended() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("closing the socket should end the upstream stream")
}
