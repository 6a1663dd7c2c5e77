package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcomdev/medichat/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

// Responder turns one user message into a reply. Implemented by the bot
// engine.
type Responder interface {
	Respond(ctx context.Context, userID, message string, history []chat.Turn) (chat.Reply, error)
}

// Service owns chat sessions and their transcripts. A transcript is
// append-only; a turn's delivery state is the only field that changes
// after the append.
type Service struct {
	bot Responder

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu    sync.Mutex
	turns []chat.Turn
}

// NewService bootstraps the in-memory session registry.
func NewService(bot Responder) *Service {
	return &Service{
		bot:      bot,
		sessions: make(map[string]*session),
	}
}

// session returns the session for id, creating it on first contact.
func (s *Service) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{turns: make([]chat.Turn, 0, 16)}
		s.sessions[id] = sess
	}
	return sess
}

// SubmitText runs one chat turn: append the user turn, ask the bot, append
// the bot turn, mark the user turn delivered. Turns within a session are
// serialized; a blank message is a no-op with an empty payload.
func (s *Service) SubmitText(ctx context.Context, sessionID, text string) (chat.Payload, error) {
	reply, err := s.submit(ctx, sessionID, text)
	if err != nil {
		return chat.Payload{}, err
	}
	if reply == nil {
		return chat.Payload{}, nil
	}
	return chat.Payload{Response: reply}, nil
}

// SubmitTranscript is SubmitText for recognized speech: the payload also
// carries the transcript so the widget can echo what was heard.
func (s *Service) SubmitTranscript(ctx context.Context, sessionID, transcript string) (chat.Payload, error) {
	reply, err := s.submit(ctx, sessionID, transcript)
	if err != nil {
		return chat.Payload{}, err
	}
	payload := chat.Payload{Transcript: &transcript}
	payload.Response = reply
	return payload, nil
}

func (s *Service) submit(ctx context.Context, sessionID, text string) (*chat.Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	history := make([]chat.Turn, len(sess.turns))
	copy(history, sess.turns)

	userIdx := len(sess.turns)
	sess.turns = append(sess.turns, chat.Turn{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Role:          chat.RoleUser,
		Text:          text,
		DeliveryState: chat.DeliverySent,
		CreatedAt:     time.Now().UTC(),
	})

	reply, err := s.bot.Respond(ctx, sessionID, text, history)
	if err != nil {
		// The user turn stays at "sent": the cycle never completed.
		return nil, err
	}

	if reply.IsZero() {
		// A turn with nothing to render never enters the transcript.
		sess.turns[userIdx].DeliveryState = chat.DeliveryDelivered
		return nil, nil
	}

	sess.turns = append(sess.turns, chat.Turn{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Role:          chat.RoleBot,
		Text:          reply.Text,
		Buttons:       reply.Buttons,
		DeliveryState: chat.DeliveryDelivered,
		CreatedAt:     time.Now().UTC(),
	})
	sess.turns[userIdx].DeliveryState = chat.DeliveryDelivered

	return &reply, nil
}

// Transcript returns a copy of the session's turns in append order.
func (s *Service) Transcript(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	copied := make([]chat.Turn, len(sess.turns))
	copy(copied, sess.turns)
	return copied, nil
}
