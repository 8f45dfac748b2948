package stt

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming/types"
	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
)

// AWSTranscribe implements SpeechToText on Amazon Transcribe streaming.
type AWSTranscribe struct {
	region string
	logger *zap.Logger
}

func NewAWSTranscribe(region string, logger *zap.Logger) *AWSTranscribe {
	return &AWSTranscribe{region: region, logger: logger}
}

func (a *AWSTranscribe) Status() repositories.ServiceStatus {
	return repositories.ServiceStatus{Provider: "aws-transcribe", Region: a.region}
}

func (a *AWSTranscribe) StartStream(
	ctx context.Context,
	sessionID string,
	cfg repositories.StreamConfig,
	onResult func(repositories.TranscriptEvent),
	onError func(error),
) (repositories.StreamSession, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(a.region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := transcribestreaming.NewFromConfig(awsCfg)

	input := &transcribestreaming.StartStreamTranscriptionInput{
		LanguageCode:         types.LanguageCode(cfg.LanguageCode),
		MediaEncoding:        types.MediaEncodingPcm,
		MediaSampleRateHertz: aws.Int32(int32(cfg.MediaSampleRateHz)),
		SessionId:            aws.String(sessionID),
		ShowSpeakerLabel:     cfg.ShowSpeakerLabels,
	}
	if cfg.PartialResultsStability != "" {
		input.EnablePartialResultsStabilization = true
		input.PartialResultsStability = types.PartialResultsStability(cfg.PartialResultsStability)
	}
	if cfg.VocabularyName != "" {
		input.VocabularyName = aws.String(cfg.VocabularyName)
	}

	out, err := client.StartStreamTranscription(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to start transcribe stream: %w", err)
	}

	s := &awsStream{
		eventStream:  out.GetStream(),
		ctx:          ctx,
		languageCode: cfg.LanguageCode,
		logger:       a.logger.With(zap.String("session_id", sessionID)),
	}
	go s.receiveResults(onResult, onError)

	return s, nil
}

type awsStream struct {
	eventStream  *transcribestreaming.StartStreamTranscriptionEventStream
	ctx          context.Context
	languageCode string
	logger       *zap.Logger

	mu    sync.Mutex
	ended bool
}

// PushAudio forwards one PCM chunk upstream. Pushing after EndAudio is a
// no-op because result callbacks may still be draining.
func (s *awsStream) PushAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || len(chunk) == 0 {
		return nil
	}

	err := s.eventStream.Send(s.ctx, &types.AudioStreamMemberAudioEvent{
		Value: types.AudioEvent{AudioChunk: chunk},
	})
	if err != nil {
		return fmt.Errorf("failed to send audio chunk: %w", err)
	}
	return nil
}

func (s *awsStream) EndAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	if err := s.eventStream.Close(); err != nil {
		s.logger.Warn("failed to close transcribe stream", zap.Error(err))
	}
}

func (s *awsStream) receiveResults(onResult func(repositories.TranscriptEvent), onError func(error)) {
	for event := range s.eventStream.Events() {
		transcriptEvent, ok := event.(*types.TranscriptResultStreamMemberTranscriptEvent)
		if !ok || transcriptEvent.Value.Transcript == nil {
			continue
		}
		for _, result := range transcriptEvent.Value.Transcript.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			onResult(s.toEvent(result))
		}
	}

	if err := s.eventStream.Err(); err != nil {
		onError(fmt.Errorf("transcribe stream error: %w", err))
	}
}

func (s *awsStream) toEvent(result types.Result) repositories.TranscriptEvent {
	best := result.Alternatives[0]

	ev := repositories.TranscriptEvent{
		ResultID:         aws.ToString(result.ResultId),
		StartTime:        aws.Float64(result.StartTime),
		EndTime:          aws.Float64(result.EndTime),
		Transcript:       aws.ToString(best.Transcript),
		IsPartial:        result.IsPartial,
		LanguageDetected: s.languageCode,
	}

	// Confidence is reported per item; average the pronounced ones.
	var sum float64
	var n int
	for _, item := range best.Items {
		if item.Type != types.ItemTypePronunciation {
			continue
		}
		if ev.Speaker == "" && item.Speaker != nil {
			ev.Speaker = aws.ToString(item.Speaker)
		}
		if item.Confidence != nil {
			sum += *item.Confidence
			n++
		}
	}
	if n > 0 {
		avg := sum / float64(n)
		ev.Confidence = &avg
	}
	return ev
}
