package client

import (
	"context"
	"errors"
	"testing"

	"github.com/samcomdev/medichat/internal/model/chat"
)

type fakeTransport struct {
	textPayload  chat.Payload
	audioPayload chat.Payload
	err          error
	textCalls    []string
	audioCalls   int
}

func (f *fakeTransport) SendText(ctx context.Context, message string) (chat.Payload, error) {
	f.textCalls = append(f.textCalls, message)
	return f.textPayload, f.err
}

func (f *fakeTransport) SendAudio(ctx context.Context, clip []byte) (chat.Payload, error) {
	f.audioCalls++
	return f.audioPayload, f.err
}

func reply(text string, buttons ...chat.Button) chat.Payload {
	return chat.Payload{Response: &chat.Reply{Text: text, Buttons: buttons}}
}

func TestSubmitTextAppendsUserTurnFirst(t *testing.T) {
	transport := &fakeTransport{textPayload: reply("Hello!")}
	ctrl := NewController(transport, nil)

	if err := ctrl.SubmitText(context.Background(), "hi"); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}

	turns := ctrl.Transcript()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != chat.RoleUser || turns[0].Text != "hi" {
		t.Errorf("first turn should be the user's: %+v", turns[0])
	}
	if turns[0].DeliveryState != chat.DeliveryDelivered {
		t.Errorf("user turn should be delivered after round trip")
	}
	if turns[1].Role != chat.RoleBot || turns[1].Text != "Hello!" {
		t.Errorf("second turn should be the bot reply: %+v", turns[1])
	}
}

func TestSubmitTextWhitespaceIsNoOp(t *testing.T) {
	transport := &fakeTransport{textPayload: reply("never")}
	ctrl := NewController(transport, nil)

	if err := ctrl.SubmitText(context.Background(), "   \n "); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}
	if len(ctrl.Transcript()) != 0 {
		t.Errorf("whitespace input must append nothing")
	}
	if len(transport.textCalls) != 0 {
		t.Errorf("whitespace input must issue no request")
	}
}

func TestTransportFailureKeepsUserTurn(t *testing.T) {
	transport := &fakeTransport{err: errors.New("network down")}
	ctrl := NewController(transport, nil)

	if err := ctrl.SubmitText(context.Background(), "hello"); err == nil {
		t.Fatalf("expected transport error")
	}

	turns := ctrl.Transcript()
	if len(turns) != 1 {
		t.Fatalf("expected only the user turn, got %d", len(turns))
	}
	if turns[0].DeliveryState != chat.DeliverySent {
		t.Errorf("failed send must stay in sent state")
	}
}

func TestQuickReplyActivationResubmitsValue(t *testing.T) {
	transport := &fakeTransport{textPayload: reply("Pick one", chat.Button{Text: "Yes", Value: "yes"})}

	var buttonsNode *DisplayNode
	ctrl := NewController(transport, func(n *DisplayNode) {
		if n.Class == "quick-replies" {
			buttonsNode = n
		}
	})

	if err := ctrl.SubmitText(context.Background(), "menu"); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}
	if buttonsNode == nil || len(buttonsNode.Children) != 1 {
		t.Fatalf("expected one quick-reply control")
	}
	if buttonsNode.Children[0].Text != "Yes" {
		t.Errorf("control label should be the button text")
	}

	transport.textPayload = reply("Confirmed")
	buttonsNode.Children[0].OnClick()

	if got := transport.textCalls[len(transport.textCalls)-1]; got != "yes" {
		t.Errorf("activation sent %q, want the button value %q", got, "yes")
	}
	last, _ := func() (chat.Turn, bool) {
		turns := ctrl.Transcript()
		if len(turns) == 0 {
			return chat.Turn{}, false
		}
		return turns[len(turns)-1], true
	}()
	if last.Text != "Confirmed" {
		t.Errorf("expected follow-up reply in transcript, got %q", last.Text)
	}
}

func TestSpeechPayloadRendersTranscriptFirst(t *testing.T) {
	transcript := "book appointment"
	transport := &fakeTransport{audioPayload: chat.Payload{
		Transcript: &transcript,
		Response:   &chat.Reply{Text: "Sure"},
	}}
	ctrl := NewController(transport, nil)

	if err := ctrl.SubmitAudio(context.Background(), []byte("clip")); err != nil {
		t.Fatalf("SubmitAudio: %v", err)
	}

	turns := ctrl.Transcript()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != chat.RoleUser || turns[0].Text != "book appointment" {
		t.Errorf("transcript turn must come first: %+v", turns[0])
	}
	if turns[1].Role != chat.RoleBot || turns[1].Text != "Sure" {
		t.Errorf("bot turn must follow the transcript: %+v", turns[1])
	}
}

func TestRenderSplitsLines(t *testing.T) {
	node := Render(chat.Turn{Role: chat.RoleBot, Text: "line one\nline two"})

	body := node.Children[0]
	var spans, breaks int
	for _, child := range body.Children {
		switch child.Tag {
		case "span":
			spans++
		case "br":
			breaks++
		}
	}
	if spans != 2 || breaks != 1 {
		t.Errorf("expected 2 spans and 1 break, got %d and %d", spans, breaks)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	turn := chat.Turn{Role: chat.RoleUser, Text: "hello", DeliveryState: chat.DeliverySent}
	first := Render(turn)
	second := Render(turn)
	if first == second {
		t.Fatalf("each call must build fresh nodes")
	}
	first.Text = "mutated"
	if second.Text == "mutated" {
		t.Errorf("renders must not share state")
	}
}

type fakeRecorder struct {
	startErr error
	stopped  int
	started  int
	clip     []byte
}

func (f *fakeRecorder) Start() error {
	f.started++
	return f.startErr
}

func (f *fakeRecorder) Stop() ([]byte, error) {
	f.stopped++
	return f.clip, nil
}

func TestVoiceDoubleStartIsNoOp(t *testing.T) {
	rec := &fakeRecorder{clip: []byte("audio")}
	ctrl := NewController(&fakeTransport{}, nil)
	vc := NewVoiceCapture(rec, ctrl, nil)

	if err := vc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := vc.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if rec.started != 1 {
		t.Errorf("microphone acquired %d times, want 1", rec.started)
	}
	if !vc.Recording() {
		t.Errorf("state must remain recording")
	}
}

func TestVoiceIdleStopIsNoOp(t *testing.T) {
	rec := &fakeRecorder{}
	ctrl := NewController(&fakeTransport{}, nil)
	vc := NewVoiceCapture(rec, ctrl, nil)

	if err := vc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if rec.stopped != 0 {
		t.Errorf("idle stop must not touch the recorder")
	}
}

func TestVoicePermissionFailureStaysIdle(t *testing.T) {
	rec := &fakeRecorder{startErr: errors.New("permission denied")}
	ctrl := NewController(&fakeTransport{}, nil)

	var notice string
	vc := NewVoiceCapture(rec, ctrl, func(m string) { notice = m })

	if err := vc.Start(); err == nil {
		t.Fatalf("expected permission error")
	}
	if vc.Recording() {
		t.Errorf("state must stay idle after permission failure")
	}
	if notice == "" {
		t.Errorf("permission failure must surface a notice")
	}
}

func TestVoiceStopUploadsClip(t *testing.T) {
	transcript := "hello"
	transport := &fakeTransport{audioPayload: chat.Payload{
		Transcript: &transcript,
		Response:   &chat.Reply{Text: "Hi there"},
	}}
	rec := &fakeRecorder{clip: []byte("audio-bytes")}
	ctrl := NewController(transport, nil)
	vc := NewVoiceCapture(rec, ctrl, nil)

	if err := vc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := vc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if transport.audioCalls != 1 {
		t.Fatalf("expected one upload, got %d", transport.audioCalls)
	}
	if vc.Recording() {
		t.Errorf("microphone must be released on stop")
	}
	if len(ctrl.Transcript()) != 2 {
		t.Errorf("expected transcript and reply rendered")
	}
}

func TestVoiceStartClearsStaleBuffer(t *testing.T) {
	rec := &fakeRecorder{}
	ctrl := NewController(&fakeTransport{}, nil)
	vc := NewVoiceCapture(rec, ctrl, nil)

	vc.buffer = []byte("stale audio from an aborted session")
	if err := vc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if vc.buffer != nil {
		t.Errorf("entering recording must clear the buffer")
	}
}

func TestVoiceBufferEmptyWhenIdle(t *testing.T) {
	transport := &fakeTransport{err: errors.New("upload failed")}
	rec := &fakeRecorder{clip: []byte("audio-bytes")}
	ctrl := NewController(transport, nil)
	vc := NewVoiceCapture(rec, ctrl, nil)

	if err := vc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := vc.Stop(context.Background()); err == nil {
		t.Fatalf("expected upload error")
	}

	if vc.Recording() {
		t.Errorf("microphone must be released despite the failed upload")
	}
	if len(vc.buffer) != 0 {
		t.Errorf("idle capture must not retain buffered audio")
	}
}

type fakeStorage struct {
	values map[string]string
	err    error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{values: map[string]string{}}
}

func (f *fakeStorage) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *fakeStorage) Set(key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	return nil
}

func TestThemeAmbientDefault(t *testing.T) {
	theme := NewTheme(newFakeStorage(), true)
	if !theme.Dark() {
		t.Errorf("absent preference must fall back to ambient dark")
	}
}

func TestThemeToggleIsInvolution(t *testing.T) {
	storage := newFakeStorage()
	theme := NewTheme(storage, false)

	before := theme.Dark()
	theme.Toggle()
	theme.Toggle()
	if theme.Dark() != before {
		t.Errorf("double toggle must restore the original value")
	}
	if storage.values[themeKey] != "light" {
		t.Errorf("persisted value should be light, got %q", storage.values[themeKey])
	}
}

func TestThemeDegradesToMemory(t *testing.T) {
	storage := newFakeStorage()
	storage.err = errors.New("quota exceeded")
	theme := NewTheme(storage, false)

	theme.SetDark(true)
	if !theme.Dark() {
		t.Errorf("preference must survive in memory when storage fails")
	}
	if len(storage.values) != 0 {
		t.Errorf("failed storage must hold nothing")
	}
}
