// Package bot drives the conversation: a rule-based booking flow over a
// per-user dialog state machine, with an LLM fallback for free text.
package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/samcomdev/medichat/internal/db"
	"github.com/samcomdev/medichat/internal/model/chat"
	"github.com/samcomdev/medichat/internal/state"
)

// Dialog steps. The zero step behaves like the main menu.
const (
	stepMainMenu       = "main_menu"
	stepSpecialty      = "select_specialty"
	stepDoctor         = "select_doctor"
	stepDate           = "select_date"
	stepTimePreference = "select_time_preference"
	stepTime           = "select_time"
	stepName           = "collect_name"
	stepPhone          = "collect_phone"
	stepReason         = "collect_reason"
	stepConfirm        = "confirm"
)

// Dialog context keys.
const (
	ctxSpecialty  = "specialty"
	ctxDoctorID   = "doctor_id"
	ctxDoctorName = "doctor_name"
	ctxDate       = "date"
	ctxPreference = "preference"
	ctxMorning    = "morning"
	ctxEvening    = "evening"
	ctxTime       = "time"
	ctxName       = "name"
	ctxPhone      = "phone"
	ctxReason     = "reason"
	ctxPatientID  = "patient_id"
)

var startKeywords = []string{"hi", "hello", "start", "menu", "main menu", "home", "okay"}

var exitKeywords = []string{"exit", "bye", "goodbye", "quit"}

// Answerer produces a free-text answer when the rule engine has nothing
// better to say.
type Answerer interface {
	GenerateAnswer(ctx context.Context, sessionID string, history []chat.Turn, userMessage string) (string, error)
}

// Engine routes one user message to a reply based on dialog state.
type Engine struct {
	store  db.Store
	states state.Store
	feed   db.Feed
	ai     Answerer
	now    func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithAnswerer plugs in the LLM fallback. Without it, unmatched free
// text gets the menu reprompt.
func WithAnswerer(a Answerer) EngineOption {
	return func(e *Engine) { e.ai = a }
}

// WithClock overrides the booking-window clock, used by tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store db.Store, states state.Store, feed db.Feed, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  store,
		states: states,
		feed:   feed,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SeedPhone records the user's phone number before any turn runs, so the
// booking flow can skip asking for it. Used by channels that know the
// caller, like the WhatsApp webhook.
func (e *Engine) SeedPhone(ctx context.Context, userID, phone string) error {
	dlg, found, err := e.states.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load dialog state: %w", err)
	}
	if !found {
		dlg = state.NewDialog(stepMainMenu)
	}
	if dlg.Get(ctxPhone) == phone {
		return nil
	}
	dlg.Set(ctxPhone, phone)
	return e.states.Put(ctx, userID, dlg)
}

// Respond handles one inbound message for userID and returns the reply.
// history is the recent transcript, passed through to the LLM fallback.
func (e *Engine) Respond(ctx context.Context, userID, message string, history []chat.Turn) (chat.Reply, error) {
	message = strings.TrimSpace(message)
	lower := strings.ToLower(message)

	for _, word := range exitKeywords {
		if lower == word {
			if err := e.states.Delete(ctx, userID); err != nil {
				log.Printf("[bot] clear state for %s: %v", userID, err)
			}
			return chat.Reply{Text: goodbyeText}, nil
		}
	}

	dlg, found, err := e.states.Get(ctx, userID)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("load dialog state: %w", err)
	}
	if !found {
		dlg = state.NewDialog(stepMainMenu)
	}

	for _, word := range startKeywords {
		if lower == word {
			reset := state.NewDialog(stepMainMenu)
			// A returning patient keeps their identity across resets.
			if id := dlg.Get(ctxPatientID); id != "" {
				reset.Set(ctxPatientID, id)
			}
			if phone := dlg.Get(ctxPhone); phone != "" {
				reset.Set(ctxPhone, phone)
			}
			return e.finish(ctx, userID, reset, menuReply(welcomeText+"\n"+"Main Menu:"))
		}
	}

	// A quick-reply click submits the button's value. Resolve the label
	// form too, so typing the button text behaves the same.
	if value, ok := resolveButton(dlg, message); ok {
		message = value
		lower = strings.ToLower(value)
	}

	var reply chat.Reply
	switch dlg.Step {
	case stepSpecialty:
		reply, dlg, err = e.handleSpecialty(ctx, dlg, message)
	case stepDoctor:
		reply, dlg, err = e.handleDoctor(ctx, dlg, message)
	case stepDate:
		reply, dlg, err = e.handleDate(ctx, dlg, message)
	case stepTimePreference:
		reply, dlg, err = e.handleTimePreference(ctx, dlg, lower)
	case stepTime:
		reply, dlg, err = e.handleTime(ctx, dlg, message)
	case stepName:
		reply, dlg, err = e.handleName(ctx, dlg, message)
	case stepPhone:
		reply, dlg, err = e.handlePhone(ctx, dlg, message)
	case stepReason:
		reply, dlg, err = e.handleReason(ctx, dlg, message)
	case stepConfirm:
		reply, dlg, err = e.handleConfirm(ctx, userID, dlg, lower)
	default:
		reply, dlg, err = e.handleMainMenu(ctx, userID, dlg, message, history)
	}
	if err != nil {
		return chat.Reply{}, err
	}

	return e.finish(ctx, userID, dlg, reply)
}

// finish stores the dialog, retaining the reply's buttons for the next
// turn's quick-reply resolution.
func (e *Engine) finish(ctx context.Context, userID string, dlg state.Dialog, reply chat.Reply) (chat.Reply, error) {
	dlg.Buttons = reply.Buttons
	if err := e.states.Put(ctx, userID, dlg); err != nil {
		return chat.Reply{}, fmt.Errorf("save dialog state: %w", err)
	}
	return reply, nil
}

func (e *Engine) handleMainMenu(ctx context.Context, userID string, dlg state.Dialog, message string, history []chat.Turn) (chat.Reply, state.Dialog, error) {
	lower := strings.ToLower(message)

	if lower == "book" || lower == "1" || containsAny(lower, "book", "appointment", "schedule", "see a doctor") {
		return e.startBooking(ctx, dlg)
	}
	if lower == "view" || lower == "2" || strings.Contains(lower, "view") {
		reply, err := e.showAppointments(ctx, dlg)
		return reply, dlg, err
	}
	if lower == "help" || lower == "3" {
		return menuReply(helpText), dlg, nil
	}

	if e.ai != nil {
		answer, err := e.ai.GenerateAnswer(ctx, userID, history, message)
		if err != nil {
			log.Printf("[bot] ai fallback for %s: %v", userID, err)
			return menuReply(fallbackText), dlg, nil
		}
		return chat.Reply{Text: answer, Buttons: menuButtons()}, dlg, nil
	}

	return menuReply("Please choose a valid option:\nMain Menu:"), dlg, nil
}

func (e *Engine) showAppointments(ctx context.Context, dlg state.Dialog) (chat.Reply, error) {
	patientID := dlg.Get(ctxPatientID)
	if patientID == "" {
		return menuReply(noAppointmentsText), nil
	}

	appointments, err := e.store.ListAppointmentsForPatient(ctx, patientID)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("list appointments: %w", err)
	}
	if len(appointments) == 0 {
		return menuReply(noAppointmentsText), nil
	}

	lines := make([]string, 0, len(appointments))
	for _, appt := range appointments {
		doctorName := appt.DoctorID
		if doc, err := e.store.GetDoctor(ctx, appt.DoctorID); err == nil {
			doctorName = doc.Name
		}
		lines = append(lines, fmt.Sprintf("%s at %s with %s (%s)",
			prettyDate(appt.Date), appt.Time, doctorName, appt.Status))
	}
	return menuReply("Your appointments:\n" + strings.Join(lines, "\n")), nil
}

func resolveButton(dlg state.Dialog, message string) (string, bool) {
	for _, b := range dlg.Buttons {
		if b.Value == message || strings.EqualFold(b.Text, message) {
			return b.Value, true
		}
	}
	return "", false
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
