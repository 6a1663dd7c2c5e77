// Package clinic defines the administrative record types managed through the
// dashboard and consulted by the booking flow.
package clinic

import "time"

// AppointmentStatus enumerates the lifecycle of a booked appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// ValidStatus reports whether s is one of the known appointment statuses.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Patient is a person known to the clinic, created either through the admin
// dashboard or implicitly by the booking flow.
type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// Doctor is a bookable practitioner with a single specialty.
type Doctor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Appointment records one booked slot. Date uses YYYY-MM-DD, Time one of the
// clinic's fixed slot labels ("9:00 AM" ... "3:00 PM").
type Appointment struct {
	ID        string            `json:"id"`
	PatientID string            `json:"patientId"`
	DoctorID  string            `json:"doctorId"`
	Name      string            `json:"name"`
	Phone     string            `json:"phone"`
	Date      string            `json:"date"`
	Time      string            `json:"time"`
	Reason    string            `json:"reason"`
	Status    AppointmentStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Blocks reports whether the appointment still occupies its slot. Cancelled
// appointments never block a slot.
func (a Appointment) Blocks() bool {
	return a.Status != StatusCancelled
}
