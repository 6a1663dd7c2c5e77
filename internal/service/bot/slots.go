package bot

import (
	"context"
	"time"

	"github.com/samcomdev/medichat/internal/model/clinic"
)

// The clinic runs two sittings a day. Slot labels double as wire values
// so the widget's quick replies round-trip unchanged.
var (
	morningSlots = []string{"9:00 AM", "10:00 AM", "11:00 AM"}
	eveningSlots = []string{"1:00 PM", "2:00 PM", "3:00 PM"}
)

// bookingWindowDays is how far ahead patients may book, starting tomorrow.
const bookingWindowDays = 14

const dateLayout = "2006-01-02"

func remove(pool, taken []string) []string {
	var free []string
	for _, slot := range pool {
		booked := false
		for _, t := range taken {
			if t == slot {
				booked = true
				break
			}
		}
		if !booked {
			free = append(free, slot)
		}
	}
	return free
}

// freeSlotsOn splits a doctor's open slots on a date into the two sittings.
func (e *Engine) freeSlotsOn(ctx context.Context, doctorID, date string) (morning, evening []string, err error) {
	taken, err := e.store.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, nil, err
	}
	return remove(morningSlots, taken), remove(eveningSlots, taken), nil
}

// availableDates returns the dates in the booking window on which the
// doctor still has at least one open slot.
func (e *Engine) availableDates(ctx context.Context, doctorID string) ([]string, error) {
	var dates []string
	today := e.now().Truncate(24 * time.Hour)
	for offset := 1; offset <= bookingWindowDays; offset++ {
		date := today.AddDate(0, 0, offset).Format(dateLayout)
		morning, evening, err := e.freeSlotsOn(ctx, doctorID, date)
		if err != nil {
			return nil, err
		}
		if len(morning)+len(evening) > 0 {
			dates = append(dates, date)
		}
	}
	return dates, nil
}

// doctorsWithAvailability filters the roster down to doctors who can
// still be booked inside the window.
func (e *Engine) doctorsWithAvailability(ctx context.Context) ([]clinic.Doctor, error) {
	doctors, err := e.store.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}

	var available []clinic.Doctor
	for _, doc := range doctors {
		dates, err := e.availableDates(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		if len(dates) > 0 {
			available = append(available, doc)
		}
	}
	return available, nil
}

func prettyDate(date string) string {
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return parsed.Format("Monday, January 2, 2006")
}
