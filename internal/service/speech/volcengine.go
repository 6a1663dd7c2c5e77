package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samcomdev/medichat/internal/model/speech"
)

// VolcengineClient recognizes speech over the Volcengine binary
// WebSocket protocol.
type VolcengineClient struct {
	config speech.Config
	dialer *websocket.Dialer
}

func NewVolcengineClient(config speech.Config) *VolcengineClient {
	return &VolcengineClient{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
	}
}

// wireRequest is the JSON payload of the opening frame.
type wireRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user,omitempty"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type wireResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   struct {
		Text       string `json:"text"`
		Utterances []struct {
			Text string `json:"text"`
		} `json:"utterances,omitempty"`
	} `json:"result,omitempty"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info,omitempty"`
}

// Transcribe streams the clip to the recognizer and returns the final text.
func (c *VolcengineClient) Transcribe(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	header := http.Header{}
	header.Set("X-Api-App-Key", c.config.AppID)
	header.Set("X-Api-Access-Key", c.config.AccessToken)
	header.Set("X-Api-Connect-Id", req.SessionID)

	conn, resp, err := c.dialer.DialContext(ctx, c.config.BaseURL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ASR WebSocket: %w", err)
	}
	defer conn.Close()

	if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
		log.Printf("[asr] connected with logid: %s", logid)
	}

	payloadData, err := json.Marshal(c.buildWireRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ASR request: %w", err)
	}

	compressedPayload, err := CompressPayload(payloadData, GzipCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}

	opening, err := EncodeMessage(CreateFullClientRequest(compressedPayload, GzipCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, opening); err != nil {
		return nil, fmt.Errorf("failed to send ASR request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Send and receive concurrently so a server-side error cancels the
	// upload instead of blocking behind it.
	respCh := make(chan *speech.ASRResponse, 1)
	recvErrCh := make(chan error, 1)
	go func() {
		result, err := c.receiveResults(ctx, conn, req.SessionID)
		if err != nil {
			recvErrCh <- err
			return
		}
		respCh <- result
	}()

	sendErrCh := make(chan error, 1)
	go func() {
		sendErrCh <- c.sendAudio(ctx, conn, req)
	}()

	var sendDone bool
	for {
		select {
		case err := <-sendErrCh:
			sendDone = true
			if err != nil {
				cancel()
				return nil, fmt.Errorf("failed to send audio data: %w", err)
			}
		case result := <-respCh:
			cancel()
			return result, nil
		case err := <-recvErrCh:
			cancel()
			return nil, err
		case <-ctx.Done():
			if !sendDone {
				return nil, ctx.Err()
			}
		}
	}
}

func (c *VolcengineClient) buildWireRequest(req *speech.ASRRequest) *wireRequest {
	wire := &wireRequest{}
	wire.User.UID = req.SessionID

	wire.Audio.Format = req.Format
	if wire.Audio.Format == "" {
		wire.Audio.Format = "wav"
	}
	wire.Audio.Language = req.Language
	if wire.Audio.Language == "" {
		wire.Audio.Language = c.config.Language
	}
	wire.Audio.Codec = "raw"
	wire.Audio.Rate = req.SampleRate
	if wire.Audio.Rate == 0 {
		wire.Audio.Rate = 16000
	}
	wire.Audio.Bits = req.Bits
	if wire.Audio.Bits == 0 {
		wire.Audio.Bits = 16
	}
	wire.Audio.Channel = req.Channels
	if wire.Audio.Channel == 0 {
		wire.Audio.Channel = 1
	}

	wire.Request.ModelName = "bigmodel"
	wire.Request.EnableITN = true
	wire.Request.EnablePunc = true
	wire.Request.ShowUtterances = true
	wire.Request.ResultType = "full"
	wire.Request.EndWindowSize = 800

	return wire
}

// sendAudio chunks the clip into ~200ms packets, pacing them like a live
// microphone stream.
func (c *VolcengineClient) sendAudio(ctx context.Context, conn *websocket.Conn, req *speech.ASRRequest) error {
	audioData, err := io.ReadAll(req.AudioData)
	if err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audioData) == 0 {
		return fmt.Errorf("no audio data to send")
	}

	const chunkSize = 6400 // 16kHz, 16bit, mono, 200ms
	sequence := int32(2)   // the opening request takes sequence 1

	for i := 0; i < len(audioData); i += chunkSize {
		end := i + chunkSize
		if end > len(audioData) {
			end = len(audioData)
		}
		isLast := end >= len(audioData)

		compressedChunk, err := CompressPayload(audioData[i:end], GzipCompression)
		if err != nil {
			return fmt.Errorf("failed to compress audio chunk: %w", err)
		}

		msgBytes, err := EncodeMessage(CreateAudioOnlyRequest(compressedChunk, sequence, isLast, GzipCompression))
		if err != nil {
			return fmt.Errorf("failed to encode audio message: %w", err)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, msgBytes); err != nil {
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}

		sequence++
		if isLast {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}

	return nil
}

func (c *VolcengineClient) receiveResults(ctx context.Context, conn *websocket.Conn, sessionID string) (*speech.ASRResponse, error) {
	var (
		finalText string
		duration  int64
	)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read ASR response: %w", err)
		}

		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode ASR message: %w", err)
		}

		if msg.IsErrorMessage() {
			payload, err := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if err != nil {
				return nil, fmt.Errorf("ASR error message decode failed: %w", err)
			}
			return nil, fmt.Errorf("ASR error %d: %s", msg.ErrorCode, string(payload))
		}

		switch msg.Header.MessageType {
		case FullServerResponse:
			payload, err := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if err != nil {
				return nil, fmt.Errorf("failed to decompress ASR payload: %w", err)
			}

			var serverResp wireResponse
			if err := json.Unmarshal(payload, &serverResp); err != nil {
				log.Printf("[asr] failed to unmarshal response: %v", err)
				continue
			}

			if serverResp.Code != 0 && serverResp.Code != 20000000 {
				return nil, fmt.Errorf("ASR API error %d: %s", serverResp.Code, serverResp.Message)
			}

			text := serverResp.Result.Text
			if text == "" && len(serverResp.Result.Utterances) > 0 {
				parts := make([]string, 0, len(serverResp.Result.Utterances))
				for _, u := range serverResp.Result.Utterances {
					parts = append(parts, u.Text)
				}
				text = strings.Join(parts, " ")
			}
			if text != "" {
				finalText = text
			}
			if serverResp.AudioInfo.Duration > 0 {
				duration = serverResp.AudioInfo.Duration
			}

			if msg.IsLastPacket() || serverResp.Sequence < 0 {
				if finalText == "" {
					log.Printf("[asr] empty transcript for session %s", sessionID)
				}
				return &speech.ASRResponse{
					SessionID:  sessionID,
					Text:       finalText,
					Confidence: confidenceFor(finalText),
					Duration:   duration,
					RequestID:  sessionID,
					CreatedAt:  time.Now(),
				}, nil
			}

		default:
			// Audio acks and other frames carry nothing we need.
		}
	}
}

func confidenceFor(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return 0.95
}
