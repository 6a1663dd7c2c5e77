// Package speech turns uploaded voice clips into text.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/samcomdev/medichat/internal/model/speech"
)

var (
	// ErrNoAudio means the request carried no usable clip.
	ErrNoAudio = errors.New("no audio data")
	// ErrNoSpeech means the recognizer heard nothing intelligible.
	ErrNoSpeech = errors.New("no recognizable speech")
)

// Transcriber converts one audio clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error)
}

// Service prepares uploaded clips for the recognizer: WAV containers are
// unwrapped to PCM so the format parameters travel explicitly.
type Service struct {
	transcriber Transcriber
	cfg         speech.Config
}

func NewService(cfg speech.Config) *Service {
	return &Service{
		transcriber: NewVolcengineClient(cfg),
		cfg:         cfg,
	}
}

// NewServiceWithTranscriber swaps the recognizer, used by tests.
func NewServiceWithTranscriber(t Transcriber, cfg speech.Config) *Service {
	return &Service{transcriber: t, cfg: cfg}
}

// Recognize transcribes the clip and returns the text.
func (s *Service) Recognize(ctx context.Context, sessionID string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoAudio
	}

	req := &speech.ASRRequest{
		SessionID: sessionID,
		Language:  s.cfg.Language,
		Format:    "wav",
	}

	if parsed, err := parseWAV(audio); err == nil {
		req.AudioData = bytes.NewReader(parsed.PCM)
		req.SampleRate = parsed.SampleRate
		req.Bits = parsed.Bits
		req.Channels = parsed.Channels
	} else if errors.Is(err, errNotWAV) {
		// Pass unknown containers through and let the recognizer probe.
		req.AudioData = bytes.NewReader(audio)
	} else {
		return "", fmt.Errorf("parse audio: %w", err)
	}

	timeout := time.Duration(s.cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.transcriber.Transcribe(ctx, req)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNoSpeech
	}

	log.Printf("[asr] session=%s transcript length=%d duration=%dms", sessionID, len(text), resp.Duration)
	return text, nil
}
