package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/samcomdev/medichat/internal/db"
	"github.com/samcomdev/medichat/internal/model/chat"
	"github.com/samcomdev/medichat/internal/model/clinic"
	"github.com/samcomdev/medichat/internal/state"
)

func newTestEngine(t *testing.T) (*Engine, *db.Memory, clinic.Doctor) {
	t.Helper()

	store := db.NewMemory()
	doc, err := store.CreateDoctor(context.Background(), clinic.Doctor{
		Name: "Dr. Neha Kulkarni", Specialty: "Dentist",
	})
	if err != nil {
		t.Fatalf("seed doctor: %v", err)
	}

	states, err := state.NewStore(state.StoreTypeMemory)
	if err != nil {
		t.Fatalf("state store: %v", err)
	}

	clock := func() time.Time {
		return time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	}
	engine := NewEngine(store, states, db.NewMemoryFeed(), WithClock(clock))
	return engine, store, doc
}

func respond(t *testing.T, e *Engine, userID, message string) chat.Reply {
	t.Helper()
	reply, err := e.Respond(context.Background(), userID, message, nil)
	if err != nil {
		t.Fatalf("respond %q: %v", message, err)
	}
	return reply
}

func TestGreetingShowsMainMenu(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	reply := respond(t, engine, "u1", "hello")
	if !strings.Contains(reply.Text, "Welcome") {
		t.Fatalf("unexpected text %q", reply.Text)
	}
	if len(reply.Buttons) != 3 {
		t.Fatalf("expected menu buttons, got %v", reply.Buttons)
	}
	if reply.Buttons[0].Value != "book" || reply.Buttons[1].Value != "view" || reply.Buttons[2].Value != "help" {
		t.Fatalf("unexpected button values %v", reply.Buttons)
	}
}

func TestHelpShowsGuidance(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	respond(t, engine, "u1", "hello")
	reply := respond(t, engine, "u1", "help")
	if !strings.Contains(reply.Text, "Book Appointment") {
		t.Fatalf("expected guidance text, got %q", reply.Text)
	}
	if len(reply.Buttons) != 3 {
		t.Fatalf("help should re-offer the menu, got %v", reply.Buttons)
	}
}

func TestFullBookingWalkthrough(t *testing.T) {
	engine, store, doc := newTestEngine(t)
	user := "u1"

	respond(t, engine, user, "hi")

	reply := respond(t, engine, user, "book")
	if len(reply.Buttons) != 1 || reply.Buttons[0].Value != "Dentist" {
		t.Fatalf("expected a Dentist specialty button, got %v", reply.Buttons)
	}

	reply = respond(t, engine, user, "Dentist")
	if len(reply.Buttons) != 1 || reply.Buttons[0].Value != doc.ID {
		t.Fatalf("expected a doctor button, got %v", reply.Buttons)
	}
	if !strings.Contains(reply.Text, "Dentist") {
		t.Fatalf("unexpected text %q", reply.Text)
	}

	reply = respond(t, engine, user, doc.ID)
	if len(reply.Buttons) != 14 {
		t.Fatalf("expected 14 date buttons, got %d", len(reply.Buttons))
	}
	if reply.Buttons[0].Value != "2026-08-21" {
		t.Fatalf("first date should be tomorrow, got %q", reply.Buttons[0].Value)
	}
	date := reply.Buttons[0].Value

	reply = respond(t, engine, user, date)
	if len(reply.Buttons) != 2 {
		t.Fatalf("expected morning/evening choice, got %v", reply.Buttons)
	}

	reply = respond(t, engine, user, "morning")
	if len(reply.Buttons) != 3 || reply.Buttons[1].Value != "10:00 AM" {
		t.Fatalf("expected morning slots, got %v", reply.Buttons)
	}

	reply = respond(t, engine, user, "10:00 AM")
	if reply.Text != askNameText {
		t.Fatalf("expected name prompt, got %q", reply.Text)
	}

	reply = respond(t, engine, user, "Jane Roe")
	if reply.Text != askPhoneText {
		t.Fatalf("expected phone prompt, got %q", reply.Text)
	}

	reply = respond(t, engine, user, "9876543210")
	if reply.Text != askReasonText {
		t.Fatalf("expected reason prompt, got %q", reply.Text)
	}

	reply = respond(t, engine, user, "Tooth pain")
	if len(reply.Buttons) != 2 || reply.Buttons[0].Value != "yes" {
		t.Fatalf("expected confirm buttons, got %v", reply.Buttons)
	}
	if !strings.Contains(reply.Text, "Jane Roe") || !strings.Contains(reply.Text, "10:00 AM") {
		t.Fatalf("summary missing details: %q", reply.Text)
	}

	reply = respond(t, engine, user, "yes")
	if !strings.Contains(reply.Text, "Appointment Successfully Booked") {
		t.Fatalf("unexpected confirmation %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "APPT-") {
		t.Fatalf("confirmation missing appointment ID: %q", reply.Text)
	}

	appointments, _ := store.ListAppointments(context.Background())
	if len(appointments) != 1 {
		t.Fatalf("expected one appointment, got %d", len(appointments))
	}
	appt := appointments[0]
	if appt.DoctorID != doc.ID || appt.Date != date || appt.Time != "10:00 AM" {
		t.Fatalf("unexpected appointment %+v", appt)
	}
	if appt.Status != clinic.StatusScheduled {
		t.Fatalf("unexpected status %q", appt.Status)
	}

	reply = respond(t, engine, user, "view")
	if !strings.Contains(reply.Text, "10:00 AM") || !strings.Contains(reply.Text, doc.Name) {
		t.Fatalf("view should list the booking: %q", reply.Text)
	}
}

func TestBookingPublishesEvent(t *testing.T) {
	engine, _, doc := newTestEngine(t)
	feed := db.NewMemoryFeed()
	engine.feed = feed
	events, cancel := feed.Subscribe()
	defer cancel()

	user := "u1"
	respond(t, engine, user, "book")
	respond(t, engine, user, "Dentist")
	reply := respond(t, engine, user, doc.ID)
	respond(t, engine, user, reply.Buttons[0].Value)
	respond(t, engine, user, "morning")
	respond(t, engine, user, "9:00 AM")
	respond(t, engine, user, "Jane Roe")
	respond(t, engine, user, "9876543210")
	respond(t, engine, user, "Checkup")
	respond(t, engine, user, "yes")

	select {
	case ev := <-events:
		if ev.Type != db.EventBooked || ev.Time != "9:00 AM" {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("no booking event published")
	}
}

func TestConfirmRechecksSlot(t *testing.T) {
	engine, store, doc := newTestEngine(t)
	user := "u1"

	respond(t, engine, user, "book")
	respond(t, engine, user, "Dentist")
	reply := respond(t, engine, user, doc.ID)
	date := reply.Buttons[0].Value
	respond(t, engine, user, date)
	respond(t, engine, user, "morning")
	respond(t, engine, user, "9:00 AM")
	respond(t, engine, user, "Jane Roe")
	respond(t, engine, user, "9876543210")
	respond(t, engine, user, "Checkup")

	// Another patient grabs the slot before the confirmation lands.
	store.CreateAppointment(context.Background(), clinic.Appointment{
		DoctorID: doc.ID, Date: date, Time: "9:00 AM",
	})

	reply = respond(t, engine, user, "yes")
	if reply.Text != slotTakenText {
		t.Fatalf("expected slot-taken message, got %q", reply.Text)
	}

	appointments, _ := store.ListAppointments(context.Background())
	if len(appointments) != 1 {
		t.Fatalf("double booking written: %d appointments", len(appointments))
	}
}

func TestGreetingResetsMidFlow(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	user := "u1"

	respond(t, engine, user, "book")
	reply := respond(t, engine, user, "menu")
	if !strings.Contains(reply.Text, "Main Menu") {
		t.Fatalf("expected a reset to the menu, got %q", reply.Text)
	}

	// The flow should be back at the top, not at specialty selection.
	reply = respond(t, engine, user, "view")
	if reply.Text != noAppointmentsText {
		t.Fatalf("expected empty appointment list, got %q", reply.Text)
	}
}

func TestCancelReturnsToMenu(t *testing.T) {
	engine, store, doc := newTestEngine(t)
	user := "u1"

	respond(t, engine, user, "book")
	respond(t, engine, user, "Dentist")
	reply := respond(t, engine, user, doc.ID)
	respond(t, engine, user, reply.Buttons[0].Value)
	respond(t, engine, user, "morning")
	respond(t, engine, user, "9:00 AM")
	respond(t, engine, user, "Jane Roe")
	respond(t, engine, user, "9876543210")
	respond(t, engine, user, "Checkup")

	reply = respond(t, engine, user, "no")
	if reply.Text != cancelledText {
		t.Fatalf("expected cancellation, got %q", reply.Text)
	}

	appointments, _ := store.ListAppointments(context.Background())
	if len(appointments) != 0 {
		t.Fatalf("cancelled flow wrote an appointment")
	}
}

func TestQuickReplyLabelMatchesValue(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	user := "u1"

	respond(t, engine, user, "hello")
	// Typing the button label should behave like clicking the button.
	reply := respond(t, engine, user, "Book Appointment")
	if !strings.Contains(reply.Text, "select a medical specialty") {
		t.Fatalf("label submission did not start booking: %q", reply.Text)
	}
}

func TestExitClearsState(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	user := "u1"

	respond(t, engine, user, "book")
	reply := respond(t, engine, user, "bye")
	if reply.Text != goodbyeText {
		t.Fatalf("expected goodbye, got %q", reply.Text)
	}
}

func TestCancelledAppointmentFreesSlot(t *testing.T) {
	engine, store, doc := newTestEngine(t)
	ctx := context.Background()

	appt, _ := store.CreateAppointment(ctx, clinic.Appointment{
		DoctorID: doc.ID, Date: "2026-08-21", Time: "9:00 AM",
	})
	appt.Status = clinic.StatusCancelled
	store.UpdateAppointment(ctx, appt)

	user := "u1"
	respond(t, engine, user, "book")
	respond(t, engine, user, "Dentist")
	respond(t, engine, user, doc.ID)
	reply := respond(t, engine, user, "2026-08-21")
	if len(reply.Buttons) != 2 {
		t.Fatalf("expected both sittings available, got %v", reply.Buttons)
	}
	reply = respond(t, engine, user, "morning")
	if len(reply.Buttons) != 3 {
		t.Fatalf("cancelled booking should not block a slot: %v", reply.Buttons)
	}
}
