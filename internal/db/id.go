package db

import (
	"strings"

	"github.com/google/uuid"
)

// NewAppointmentID returns a short reference like APPT-3F9A12E0 that
// patients can read back over the phone.
func NewAppointmentID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "APPT-" + strings.ToUpper(raw[:8])
}
