// Package db persists the clinic records behind the admin dashboard and the
// booking flow. A Postgres implementation backs deployments; a memory
// implementation backs development and tests.
package db

import (
	"context"
	"errors"

	"github.com/samcomdev/medichat/internal/model/clinic"
)

var ErrNotFound = errors.New("record not found")

// Store exposes the clinic records. All methods are safe for concurrent use.
type Store interface {
	ListPatients(ctx context.Context) ([]clinic.Patient, error)
	GetPatient(ctx context.Context, id string) (clinic.Patient, error)
	CreatePatient(ctx context.Context, p clinic.Patient) (clinic.Patient, error)
	UpdatePatient(ctx context.Context, p clinic.Patient) error
	// FindPatient locates a patient by exact name and phone, as the booking
	// flow does before creating a duplicate record.
	FindPatient(ctx context.Context, name, phone string) (clinic.Patient, bool, error)

	ListDoctors(ctx context.Context) ([]clinic.Doctor, error)
	GetDoctor(ctx context.Context, id string) (clinic.Doctor, error)
	CreateDoctor(ctx context.Context, d clinic.Doctor) (clinic.Doctor, error)
	UpdateDoctor(ctx context.Context, d clinic.Doctor) error

	ListAppointments(ctx context.Context) ([]clinic.Appointment, error)
	ListAppointmentsForPatient(ctx context.Context, patientID string) ([]clinic.Appointment, error)
	GetAppointment(ctx context.Context, id string) (clinic.Appointment, error)
	CreateAppointment(ctx context.Context, a clinic.Appointment) (clinic.Appointment, error)
	UpdateAppointment(ctx context.Context, a clinic.Appointment) error
	// BookedSlots returns the time labels still blocked for a doctor on a
	// date. Cancelled appointments do not appear.
	BookedSlots(ctx context.Context, doctorID, date string) ([]string, error)
}
