package speech

import (
	"io"
	"time"
)

// ASRRequest describes one transcription job.
type ASRRequest struct {
	SessionID string    `json:"sessionId"`
	AudioData io.Reader `json:"-"`
	Format    string    `json:"format"`   // wav, pcm
	Language  string    `json:"language"` // en-US, hi-IN, ...
	// PCM parameters, filled by the wav decoder when Format is wav.
	SampleRate int `json:"sampleRate,omitempty"`
	Bits       int `json:"bits,omitempty"`
	Channels   int `json:"channels,omitempty"`
}

// ASRResponse is the transcriber's final result.
type ASRResponse struct {
	SessionID  string    `json:"sessionId"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Duration   int64     `json:"duration"` // milliseconds
	RequestID  string    `json:"requestId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Config carries the speech-recognition provider credentials and defaults.
type Config struct {
	AppID       string `json:"appId"`
	AccessToken string `json:"accessToken"`
	BaseURL     string `json:"baseUrl"`
	Language    string `json:"language"`
	Timeout     int    `json:"timeout"` // seconds
}
