package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/samcomdev/medichat/internal/model/chat"
	speechModel "github.com/samcomdev/medichat/internal/model/speech"
	chatService "github.com/samcomdev/medichat/internal/service/chat"
	speechService "github.com/samcomdev/medichat/internal/service/speech"
)

type fakeResponder struct {
	reply chat.Reply
}

func (f *fakeResponder) Respond(ctx context.Context, userID, message string, history []chat.Turn) (chat.Reply, error) {
	return f.reply, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req *speechModel.ASRRequest) (*speechModel.ASRResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &speechModel.ASRResponse{SessionID: req.SessionID, Text: f.text}, nil
}

func newTestServer(t *testing.T, transcriber *fakeTranscriber, reply chat.Reply) *httptest.Server {
	t.Helper()
	speechSvc := speechService.NewServiceWithTranscriber(transcriber, speechModel.Config{Language: "en-US"})
	chatSvc := chatService.NewService(&fakeResponder{reply: reply})

	r := chi.NewRouter()
	New(speechSvc, chatSvc).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postClip(t *testing.T, srvURL string, audio []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(audio); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	mw.Close()

	resp, err := http.Post(srvURL+"/speech", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /speech: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodePayload(t *testing.T, resp *http.Response) chat.Payload {
	t.Helper()
	var payload chat.Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload
}

func TestSpeechTranscribesAndReplies(t *testing.T) {
	srv := newTestServer(t,
		&fakeTranscriber{text: "book an appointment"},
		chat.Reply{Text: "Please select a specialty:"})

	resp := postClip(t, srv.URL, []byte("raw-pcm-bytes"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	payload := decodePayload(t, resp)
	if payload.Transcript == nil || *payload.Transcript != "book an appointment" {
		t.Fatalf("unexpected transcript: %v", payload.Transcript)
	}
	if payload.Response == nil || payload.Response.Text != "Please select a specialty:" {
		t.Fatalf("unexpected response: %+v", payload.Response)
	}
}

func TestSpeechMissingFileStillResponds(t *testing.T) {
	srv := newTestServer(t, &fakeTranscriber{text: "ignored"}, chat.Reply{})

	resp, err := http.Post(srv.URL+"/speech", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST /speech: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recognition failures must still return 200, got %d", resp.StatusCode)
	}
	payload := decodePayload(t, resp)
	if payload.Transcript == nil || *payload.Transcript != "" {
		t.Errorf("expected empty transcript, got %v", payload.Transcript)
	}
	if payload.Response == nil || payload.Response.Text != "No audio file received" {
		t.Errorf("unexpected response: %+v", payload.Response)
	}
}

func TestSpeechEmptyClip(t *testing.T) {
	srv := newTestServer(t, &fakeTranscriber{text: "ignored"}, chat.Reply{})

	resp := postClip(t, srv.URL, nil)
	payload := decodePayload(t, resp)
	if payload.Response == nil || payload.Response.Text != "No audio file received" {
		t.Errorf("unexpected response: %+v", payload.Response)
	}
}

func TestSpeechSilenceIsNotUnderstood(t *testing.T) {
	srv := newTestServer(t, &fakeTranscriber{text: "   "}, chat.Reply{})

	resp := postClip(t, srv.URL, []byte("silence"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodePayload(t, resp)
	if payload.Response == nil || payload.Response.Text != "Could not understand audio" {
		t.Errorf("unexpected response: %+v", payload.Response)
	}
}

func TestSpeechRecognizerFailure(t *testing.T) {
	srv := newTestServer(t, &fakeTranscriber{err: io.ErrUnexpectedEOF}, chat.Reply{})

	resp := postClip(t, srv.URL, []byte("clip"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodePayload(t, resp)
	if payload.Response == nil || payload.Response.Text != "Speech recognition error" {
		t.Errorf("unexpected response: %+v", payload.Response)
	}
}
