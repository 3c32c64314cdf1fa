// Package tts narrates lecture scripts using Google Cloud Text-to-Speech.
package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/orasync/orasync-backend/internal/platform/envutil"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

// Synthesizer turns scripts into spoken audio.
type Synthesizer interface {
	// Synthesize returns MP3 bytes for the given text.
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Close() error
}

type synthesizer struct {
	log          *logger.Logger
	client       *texttospeech.Client
	languageCode string
	voiceName    string
	speakingRate float64
}

func NewSynthesizer(log *logger.Logger) (Synthesizer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create texttospeech client: %w", err)
	}

	return &synthesizer{
		log:          log.With("service", "TTSSynthesizer"),
		client:       client,
		languageCode: envutil.String("TTS_LANGUAGE_CODE", "en-US"),
		voiceName:    envutil.String("TTS_VOICE_NAME", "en-US-Neural2-D"),
		speakingRate: float64(envutil.Int("TTS_SPEAKING_RATE_PCT", 100)) / 100,
	}, nil
}

func (s *synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("tts text required")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := s.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: s.languageCode,
			Name:         s.voiceName,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  s.speakingRate,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, fmt.Errorf("tts returned empty audio")
	}
	return resp.AudioContent, nil
}

func (s *synthesizer) Close() error {
	return s.client.Close()
}
