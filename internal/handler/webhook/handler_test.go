package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/samcomdev/medichat/internal/db"
	"github.com/samcomdev/medichat/internal/model/chat"
	"github.com/samcomdev/medichat/internal/service/bot"
	chatService "github.com/samcomdev/medichat/internal/service/chat"
	"github.com/samcomdev/medichat/internal/state"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []chat.Reply
	dests   []string
	started chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{started: make(chan struct{}, 8)}
}

func (f *fakeSender) Send(ctx context.Context, destination string, reply chat.Reply) error {
	f.mu.Lock()
	f.sent = append(f.sent, reply)
	f.dests = append(f.dests, destination)
	f.mu.Unlock()
	f.started <- struct{}{}
	return nil
}

func newTestServer(t *testing.T, sender Sender) *httptest.Server {
	t.Helper()
	store := db.NewMemorySeeded()
	states, err := state.NewStore(state.StoreTypeMemory)
	if err != nil {
		t.Fatalf("state store: %v", err)
	}
	engine := bot.NewEngine(store, states, db.NewMemoryFeed())
	chatSvc := chatService.NewService(engine)

	r := chi.NewRouter()
	New(chatSvc, engine, sender).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, srvURL, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srvURL+"/webhook/whatsapp", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST webhook: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func inboundMessage(phone, text string) string {
	return `{"type":"message","payload":{"type":"text","sender":{"phone":"` + phone + `"},"payload":{"text":"` + text + `"}}}`
}

func TestInboundMessageGetsReply(t *testing.T) {
	sender := newFakeSender()
	srv := newTestServer(t, sender)

	resp := postJSON(t, srv.URL, inboundMessage("919876543210", "hi"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var ack map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack["status"] != "success" {
		t.Fatalf("expected success ack, got %v", ack)
	}

	select {
	case <-sender.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("reply never sent")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if sender.dests[0] != "919876543210" {
		t.Errorf("reply sent to %q", sender.dests[0])
	}
	if !strings.Contains(sender.sent[0].Text, "Main Menu") {
		t.Errorf("expected greeting reply, got %q", sender.sent[0].Text)
	}
	if len(sender.sent[0].Buttons) == 0 {
		t.Errorf("expected menu buttons on greeting")
	}
}

func TestInboundPostbackText(t *testing.T) {
	sender := newFakeSender()
	srv := newTestServer(t, sender)

	// Establish the session so the quick reply resolves.
	postJSON(t, srv.URL, inboundMessage("918800112233", "hello"))
	select {
	case <-sender.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("greeting never sent")
	}

	body := `{"type":"message","payload":{"type":"quick_reply","sender":{"phone":"918800112233"},"payload":{"postbackText":"book"}}}`
	resp := postJSON(t, srv.URL, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	select {
	case <-sender.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("booking reply never sent")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if !strings.Contains(sender.sent[1].Text, "specialty") {
		t.Errorf("expected specialty prompt, got %q", sender.sent[1].Text)
	}
}

func TestNonMessageEventIgnored(t *testing.T) {
	sender := newFakeSender()
	srv := newTestServer(t, sender)

	resp := postJSON(t, srv.URL, `{"type":"message-event","payload":{}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var ack map[string]string
	json.NewDecoder(resp.Body).Decode(&ack)
	if ack["status"] != "ignored" {
		t.Errorf("expected ignored, got %v", ack)
	}

	select {
	case <-sender.started:
		t.Fatalf("no reply expected for delivery receipts")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	srv := newTestServer(t, newFakeSender())

	resp := postJSON(t, srv.URL, "not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var ack map[string]string
	json.NewDecoder(resp.Body).Decode(&ack)
	if ack["message"] != "No JSON data received" {
		t.Errorf("unexpected error body: %v", ack)
	}
}
