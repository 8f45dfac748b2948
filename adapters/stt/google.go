package stt

import (
	"context"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
)

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	logger *zap.Logger
}

func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{logger: logger}
}

func (g *GoogleSpeechToText) Status() repositories.ServiceStatus {
	return repositories.ServiceStatus{Provider: "google-speech", Region: "global"}
}

func (g *GoogleSpeechToText) StartStream(
	ctx context.Context,
	sessionID string,
	cfg repositories.StreamConfig,
	onResult func(repositories.TranscriptEvent),
	onError func(error),
) (repositories.StreamSession, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:        speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz: int32(cfg.MediaSampleRateHz),
		LanguageCode:    cfg.LanguageCode,
	}
	if cfg.ShowSpeakerLabels {
		recognitionConfig.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          2,
			MaxSpeakerCount:          2,
		}
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         recognitionConfig,
				InterimResults: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	s := &googleStream{
		client:       client,
		stream:       stream,
		languageCode: cfg.LanguageCode,
		utteranceID:  uuid.New().String(),
		logger:       g.logger.With(zap.String("session_id", sessionID)),
	}
	go s.receiveResults(onResult, onError)

	return s, nil
}

type googleStream struct {
	client       *speech.Client
	stream       speechpb.Speech_StreamingRecognizeClient
	languageCode string
	utteranceID  string
	logger       *zap.Logger

	mu    sync.Mutex
	ended bool
}

func (s *googleStream) PushAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || len(chunk) == 0 {
		return nil
	}

	err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: chunk,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send audio chunk: %w", err)
	}
	return nil
}

func (s *googleStream) EndAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	if err := s.stream.CloseSend(); err != nil {
		s.logger.Warn("failed to close send stream", zap.Error(err))
	}
}

func (s *googleStream) receiveResults(onResult func(repositories.TranscriptEvent), onError func(error)) {
	defer s.client.Close()

	for {
		resp, err := s.stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			onError(fmt.Errorf("failed to receive response: %w", err))
			return
		}

		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			best := result.Alternatives[0]

			// Google results carry no stable ID; mint one per utterance
			// so a final revision shares the ID of its partials.
			ev := repositories.TranscriptEvent{
				ResultID:         s.utteranceID,
				Transcript:       best.Transcript,
				IsPartial:        !result.IsFinal,
				LanguageDetected: s.languageCode,
			}
			if end := result.ResultEndTime.AsDuration().Seconds(); end > 0 {
				ev.EndTime = &end
			}
			if best.Confidence > 0 {
				conf := float64(best.Confidence)
				ev.Confidence = &conf
			}
			if len(best.Words) > 0 && best.Words[0].SpeakerTag != 0 {
				ev.Speaker = fmt.Sprintf("spk_%d", best.Words[0].SpeakerTag)
			}

			onResult(ev)
			if result.IsFinal {
				s.utteranceID = uuid.New().String()
			}
		}
	}
}
