package ws

// MessageType identifies a control or event message on the socket.
type MessageType string

// Client to server.
const (
	MessageTypeStartTranscription MessageType = "start_transcription"
	MessageTypeStopTranscription  MessageType = "stop_transcription"
	MessageTypeCmdSave            MessageType = "cmd.save"
	MessageTypeCmdExport          MessageType = "cmd.export"
)

// Server to client.
const (
	MessageTypeConnectionEstablished MessageType = "connection_established"
	MessageTypeStreamReady           MessageType = "stream_ready"
	MessageTypeTranscriptionResult   MessageType = "transcription_result"
	MessageTypeTranscriptionError    MessageType = "transcription_error"
	MessageTypeCmdAck                MessageType = "cmd_ack"
)

// StartMessage is the required first client message.
type StartMessage struct {
	Type         MessageType `json:"type"`
	LanguageCode string      `json:"languageCode"`
	Mode         string      `json:"mode,omitempty"`
	SampleRate   int         `json:"sampleRate,omitempty"`
}

// ControlMessage is the envelope used to route post-start text frames.
type ControlMessage struct {
	Type MessageType `json:"type"`
}

// ConnectionEstablishedPayload rides on the first server message.
type ConnectionEstablishedPayload struct {
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"`
}

type ConnectionEstablishedMessage struct {
	Type    MessageType                  `json:"type"`
	Payload ConnectionEstablishedPayload `json:"payload"`
}

type StreamReadyMessage struct {
	Type MessageType `json:"type"`
}

// TranscriptionResultMessage relays one recognition event. ResultID is
// stable across the partial revisions of an utterance and its final.
type TranscriptionResultMessage struct {
	Type             MessageType `json:"type"`
	ResultID         string      `json:"resultId"`
	StartTime        *float64    `json:"startTime"`
	EndTime          *float64    `json:"endTime"`
	Text             string      `json:"text"`
	IsFinal          bool        `json:"isFinal"`
	LanguageDetected string      `json:"language_detected,omitempty"`
	ConfidenceScore  *float64    `json:"confidence_score,omitempty"`
	Speaker          string      `json:"speaker,omitempty"`
}

type TranscriptionErrorMessage struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error"`
}

type CmdAckMessage struct {
	Type MessageType `json:"type"`
	Cmd  string      `json:"cmd"`
	OK   bool        `json:"ok"`
}
