package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
	"github.com/centomomd/dictation-server/internal/auth"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Large enough for PCM16 audio chunks.
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades dictation connections and runs one client per socket.
type Handler struct {
	stt         repositories.SpeechToText
	auth        *auth.Service
	sessions    *SessionManager
	requireAuth bool
	logger      *zap.Logger
}

func NewHandler(stt repositories.SpeechToText, authSvc *auth.Service, sessions *SessionManager, requireAuth bool, logger *zap.Logger) *Handler {
	return &Handler{
		stt:         stt,
		auth:        authSvc,
		sessions:    sessions,
		requireAuth: requireAuth,
		logger:      logger,
	}
}

type writeData struct {
	messageType int
	payload     []byte
}

type client struct {
	handler *Handler
	conn    *websocket.Conn
	send    chan writeData
	session *Session
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// ServeWS authenticates (when required), upgrades and runs the connection.
func (h *Handler) ServeWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return err
	}

	if h.requireAuth {
		token := c.QueryParam("ws_token")
		if _, err := h.auth.ValidateToken(token, auth.TypeWSToken); err != nil {
			h.logger.Warn("websocket auth rejected", zap.Error(err))
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid ws_token"),
				time.Now().Add(writeWait))
			conn.Close()
			return nil
		}
	}

	// The request context ends when this handler returns; the connection
	// outlives it, so the stream context is rooted separately.
	ctx, cancel := context.WithCancel(context.Background())
	cl := &client{
		handler: h,
		conn:    conn,
		send:    make(chan writeData, 256),
		session: &Session{ID: uuid.NewString()},
		logger:  h.logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	h.sessions.Register(cl.session)

	cl.sendJSON(ConnectionEstablishedMessage{
		Type: MessageTypeConnectionEstablished,
		Payload: ConnectionEstablishedPayload{
			SessionID: cl.session.ID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})

	go cl.writePump()
	go cl.readPump()

	return nil
}

func (c *client) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			if closing := c.processControlMessage(message); closing {
				return
			}
		case websocket.BinaryMessage:
			c.processAudioChunk(message)
		default:
			c.logger.Warn("unknown websocket frame type", zap.Int("type", messageType))
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(message.messageType, message.payload); err != nil {
				c.logger.Error("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processControlMessage handles one text frame. Returns true when the
// connection must close.
func (c *client) processControlMessage(message []byte) bool {
	if !c.session.Started() {
		return c.handleStart(message)
	}

	var control ControlMessage
	if err := json.Unmarshal(message, &control); err != nil {
		c.logger.Warn("unparseable control message", zap.Error(err))
		return false
	}

	switch control.Type {
	case MessageTypeStopTranscription:
		c.session.EndAudio()
	case MessageTypeCmdSave, MessageTypeCmdExport:
		// Acknowledged only; persistence and export are client-side today.
		c.sendJSON(CmdAckMessage{Type: MessageTypeCmdAck, Cmd: string(control.Type), OK: true})
	case MessageTypeStartTranscription:
		c.logger.Warn("duplicate start_transcription ignored",
			zap.String("session_id", c.session.ID))
	default:
		c.logger.Warn("unknown control message", zap.String("type", string(control.Type)))
	}
	return false
}

// handleStart validates the first message and arms the upstream stream. Any
// invalid first message is fatal to the connection.
func (c *client) handleStart(message []byte) bool {
	var start StartMessage
	if err := json.Unmarshal(message, &start); err != nil ||
		start.Type != MessageTypeStartTranscription ||
		!ValidLanguageCode(start.LanguageCode) {
		c.sendJSON(TranscriptionErrorMessage{
			Type:  MessageTypeTranscriptionError,
			Error: "Invalid languageCode",
		})
		return true
	}

	config := ResolveModeConfig(start.Mode, start.LanguageCode, start.SampleRate)

	stream, err := c.handler.stt.StartStream(c.ctx, c.session.ID, config, c.onResult, c.onError)
	if err != nil {
		c.logger.Error("failed to start transcription stream",
			zap.String("session_id", c.session.ID),
			zap.Error(err))
		c.sendJSON(TranscriptionErrorMessage{
			Type:  MessageTypeTranscriptionError,
			Error: "Failed to start transcription",
		})
		return true
	}

	c.session.Start(start, stream)
	c.sendJSON(StreamReadyMessage{Type: MessageTypeStreamReady})

	c.logger.Info("transcription session started",
		zap.String("session_id", c.session.ID),
		zap.String("language_code", start.LanguageCode),
		zap.String("mode", start.Mode),
		zap.Int("sample_rate", config.MediaSampleRateHz),
	)
	return false
}

// processAudioChunk forwards binary audio. Frames before start are dropped
// per protocol; frames after end are absorbed by the stream itself.
func (c *client) processAudioChunk(data []byte) {
	if !c.session.Started() {
		c.logger.Debug("dropping audio frame before start_transcription",
			zap.String("session_id", c.session.ID),
			zap.Int("size", len(data)))
		return
	}
	if len(data) == 0 {
		return
	}
	if err := c.session.PushAudio(data); err != nil {
		c.logger.Error("failed to push audio chunk",
			zap.String("session_id", c.session.ID),
			zap.Error(err))
	}
}

func (c *client) onResult(event repositories.TranscriptEvent) {
	c.sendJSON(TranscriptionResultMessage{
		Type:             MessageTypeTranscriptionResult,
		ResultID:         event.ResultID,
		StartTime:        event.StartTime,
		EndTime:          event.EndTime,
		Text:             event.Transcript,
		IsFinal:          !event.IsPartial,
		LanguageDetected: event.LanguageDetected,
		ConfidenceScore:  event.Confidence,
		Speaker:          event.Speaker,
	})
}

func (c *client) onError(err error) {
	c.logger.Error("upstream transcription error",
		zap.String("session_id", c.session.ID),
		zap.Error(err))
	c.sendJSON(TranscriptionErrorMessage{
		Type:  MessageTypeTranscriptionError,
		Error: err.Error(),
	})
}

func (c *client) sendJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to marshal outbound message", zap.Error(err))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- writeData{messageType: websocket.TextMessage, payload: payload}:
	default:
		c.logger.Warn("outbound buffer full, dropping message")
	}
}

func (c *client) teardown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.session.EndAudio()
		c.handler.sessions.Unregister(c.session.ID)
		c.cancel()
		// writePump drains any buffered messages, then closes the socket.
		close(c.send)
		c.logger.Info("websocket session closed", zap.String("session_id", c.session.ID))
	})
}
