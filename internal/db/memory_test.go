package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samcomdev/medichat/internal/model/clinic"
)

func TestMemoryPatientLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	p, err := store.CreatePatient(ctx, clinic.Patient{Name: "Ravi Kumar", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected generated patient ID")
	}

	got, err := store.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Ravi Kumar" {
		t.Fatalf("got name %q", got.Name)
	}

	p.Phone = "9000000000"
	if err := store.UpdatePatient(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = store.GetPatient(ctx, p.ID)
	if got.Phone != "9000000000" {
		t.Fatalf("update did not stick, phone %q", got.Phone)
	}

	if _, err := store.GetPatient(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryFindPatient(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if _, ok, err := store.FindPatient(ctx, "Ravi Kumar", "9876543210"); err != nil || ok {
		t.Fatalf("expected no match, ok=%v err=%v", ok, err)
	}

	store.CreatePatient(ctx, clinic.Patient{Name: "Ravi Kumar", Phone: "9876543210"})
	got, ok, err := store.FindPatient(ctx, "Ravi Kumar", "9876543210")
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	if got.Name != "Ravi Kumar" {
		t.Fatalf("got %q", got.Name)
	}
}

func TestMemoryBookedSlotsIgnoresCancelled(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	doc, _ := store.CreateDoctor(ctx, clinic.Doctor{Name: "Dr. A", Specialty: "Dentist"})

	store.CreateAppointment(ctx, clinic.Appointment{
		DoctorID: doc.ID, Date: "2026-09-01", Time: "10:00 AM",
	})
	cancelled, _ := store.CreateAppointment(ctx, clinic.Appointment{
		DoctorID: doc.ID, Date: "2026-09-01", Time: "11:00 AM",
	})
	cancelled.Status = clinic.StatusCancelled
	if err := store.UpdateAppointment(ctx, cancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	slots, err := store.BookedSlots(ctx, doc.ID, "2026-09-01")
	if err != nil {
		t.Fatalf("booked slots: %v", err)
	}
	if len(slots) != 1 || slots[0] != "10:00 AM" {
		t.Fatalf("expected only the scheduled slot, got %v", slots)
	}
}

func TestMemorySeededDoctors(t *testing.T) {
	store := NewMemorySeeded()
	doctors, err := store.ListDoctors(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(doctors) == 0 {
		t.Fatal("expected seeded doctors")
	}
	for _, d := range doctors {
		if d.Specialty == "" {
			t.Fatalf("doctor %s has no specialty", d.Name)
		}
	}
}

func TestNewAppointmentID(t *testing.T) {
	id := NewAppointmentID()
	if !strings.HasPrefix(id, "APPT-") {
		t.Fatalf("unexpected id %q", id)
	}
	if len(id) != len("APPT-")+8 {
		t.Fatalf("unexpected id length %q", id)
	}
	if id == NewAppointmentID() {
		t.Fatal("ids should not repeat")
	}
}

func TestMemoryFeedFanOut(t *testing.T) {
	feed := NewMemoryFeed()
	ch, cancel := feed.Subscribe()
	defer cancel()

	ev := Event{Type: EventBooked, AppointmentID: "APPT-00000001"}
	if err := feed.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ch:
		if got.AppointmentID != ev.AppointmentID {
			t.Fatalf("got %+v", got)
		}
	default:
		t.Fatal("no event delivered")
	}
}
