package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/samcomdev/medichat/internal/db"
	"github.com/samcomdev/medichat/internal/model/chat"
	"github.com/samcomdev/medichat/internal/model/clinic"
	"github.com/samcomdev/medichat/internal/state"
)

// startBooking begins a fresh flow at specialty selection, offering only
// specialties that still have a bookable doctor.
func (e *Engine) startBooking(ctx context.Context, dlg state.Dialog) (chat.Reply, state.Dialog, error) {
	doctors, err := e.doctorsWithAvailability(ctx)
	if err != nil {
		return chat.Reply{}, dlg, fmt.Errorf("check availability: %w", err)
	}

	seen := map[string]bool{}
	var specialties []string
	for _, doc := range doctors {
		if !seen[doc.Specialty] {
			seen[doc.Specialty] = true
			specialties = append(specialties, doc.Specialty)
		}
	}
	sort.Strings(specialties)

	if len(specialties) == 0 {
		return menuReply(fullyBookedText), dlg, nil
	}

	fresh := state.NewDialog(stepSpecialty)
	if id := dlg.Get(ctxPatientID); id != "" {
		fresh.Set(ctxPatientID, id)
	}
	if phone := dlg.Get(ctxPhone); phone != "" {
		// Channels that know the caller, like WhatsApp, pre-seed the
		// phone so the flow skips asking for it.
		fresh.Set(ctxPhone, phone)
	}
	return specialtyReply("Let's book your appointment. First, please select a medical specialty:", specialties), fresh, nil
}

func (e *Engine) handleSpecialty(ctx context.Context, dlg state.Dialog, message string) (chat.Reply, state.Dialog, error) {
	doctors, err := e.doctorsWithAvailability(ctx)
	if err != nil {
		return chat.Reply{}, dlg, fmt.Errorf("check availability: %w", err)
	}

	var matched []clinic.Doctor
	var specialty string
	for _, doc := range doctors {
		if strings.EqualFold(doc.Specialty, message) ||
			strings.Contains(strings.ToLower(message), strings.ToLower(doc.Specialty)) {
			matched = append(matched, doc)
			specialty = doc.Specialty
		}
	}

	if len(matched) == 0 {
		reply := specialtyReply("I couldn't identify which specialty you'd like. Please select from the options below:",
			buttonValues(dlg.Buttons))
		return reply, dlg, nil
	}

	dlg.Step = stepDoctor
	dlg.Set(ctxSpecialty, specialty)
	return doctorReply(specialty, matched), dlg, nil
}

func (e *Engine) handleDoctor(ctx context.Context, dlg state.Dialog, message string) (chat.Reply, state.Dialog, error) {
	doctor, ok, err := e.matchDoctor(ctx, dlg, message)
	if err != nil {
		return chat.Reply{}, dlg, err
	}
	if !ok {
		return chat.Reply{
			Text:    "I couldn't identify which doctor you'd like to see. Please select from the options below:",
			Buttons: dlg.Buttons,
		}, dlg, nil
	}

	dates, err := e.availableDates(ctx, doctor.ID)
	if err != nil {
		return chat.Reply{}, dlg, fmt.Errorf("check availability: %w", err)
	}
	if len(dates) == 0 {
		return chat.Reply{
			Text:    fmt.Sprintf("I apologize, but %s has no available appointments at this time. Please select another doctor.", doctor.Name),
			Buttons: dlg.Buttons,
		}, dlg, nil
	}

	dlg.Step = stepDate
	dlg.Set(ctxDoctorID, doctor.ID)
	dlg.Set(ctxDoctorName, doctor.Name)
	return dateReply(doctor.Name, dates), dlg, nil
}

func (e *Engine) matchDoctor(ctx context.Context, dlg state.Dialog, message string) (clinic.Doctor, bool, error) {
	// Button values carry doctor IDs; free text may carry the name.
	if doc, err := e.store.GetDoctor(ctx, message); err == nil {
		return doc, true, nil
	}
	doctors, err := e.store.ListDoctors(ctx)
	if err != nil {
		return clinic.Doctor{}, false, fmt.Errorf("list doctors: %w", err)
	}
	for _, doc := range doctors {
		if doc.Specialty == dlg.Get(ctxSpecialty) &&
			strings.Contains(strings.ToLower(message), strings.ToLower(doc.Name)) {
			return doc, true, nil
		}
	}
	return clinic.Doctor{}, false, nil
}

func (e *Engine) handleDate(ctx context.Context, dlg state.Dialog, message string) (chat.Reply, state.Dialog, error) {
	doctorName := dlg.Get(ctxDoctorName)

	selected := ""
	for _, value := range buttonValues(dlg.Buttons) {
		if value == strings.TrimSpace(message) {
			selected = value
			break
		}
	}
	if selected == "" {
		return chat.Reply{
			Text: fmt.Sprintf("I'm sorry, but that date is not available with %s. Please select one of the available dates:",
				doctorName),
			Buttons: dlg.Buttons,
		}, dlg, nil
	}

	morning, evening, err := e.freeSlotsOn(ctx, dlg.Get(ctxDoctorID), selected)
	if err != nil {
		return chat.Reply{}, dlg, fmt.Errorf("check availability: %w", err)
	}

	dlg.Set(ctxDate, selected)
	dlg.Set(ctxMorning, strings.Join(morning, ","))
	dlg.Set(ctxEvening, strings.Join(evening, ","))

	switch {
	case len(morning) > 0 && len(evening) > 0:
		dlg.Step = stepTimePreference
		return preferenceReply(doctorName, selected), dlg, nil
	case len(morning) > 0:
		dlg.Step = stepTime
		dlg.Set(ctxPreference, "morning")
		return slotReply(doctorName, selected, morning), dlg, nil
	case len(evening) > 0:
		dlg.Step = stepTime
		dlg.Set(ctxPreference, "evening")
		return slotReply(doctorName, selected, evening), dlg, nil
	default:
		return chat.Reply{
			Text: fmt.Sprintf("I apologize, but there are no available time slots for %s on %s. Please select another date.",
				doctorName, prettyDate(selected)),
			Buttons: dlg.Buttons,
		}, dlg, nil
	}
}

func (e *Engine) handleTimePreference(ctx context.Context, dlg state.Dialog, lower string) (chat.Reply, state.Dialog, error) {
	doctorName := dlg.Get(ctxDoctorName)
	date := dlg.Get(ctxDate)
	morning := splitSlots(dlg.Get(ctxMorning))
	evening := splitSlots(dlg.Get(ctxEvening))

	switch {
	case strings.Contains(lower, "morning") && len(morning) > 0:
		dlg.Step = stepTime
		dlg.Set(ctxPreference, "morning")
		return slotReply(doctorName, date, morning), dlg, nil
	case strings.Contains(lower, "evening") && len(evening) > 0:
		dlg.Step = stepTime
		dlg.Set(ctxPreference, "evening")
		return slotReply(doctorName, date, evening), dlg, nil
	default:
		return preferenceReply(doctorName, date), dlg, nil
	}
}

func (e *Engine) handleTime(ctx context.Context, dlg state.Dialog, message string) (chat.Reply, state.Dialog, error) {
	var available []string
	switch dlg.Get(ctxPreference) {
	case "morning":
		available = splitSlots(dlg.Get(ctxMorning))
	case "evening":
		available = splitSlots(dlg.Get(ctxEvening))
	default:
		available = append(splitSlots(dlg.Get(ctxMorning)), splitSlots(dlg.Get(ctxEvening))...)
	}

	selected := ""
	for _, slot := range available {
		if strings.Contains(strings.ToLower(message), strings.ToLower(slot)) {
			selected = slot
			break
		}
	}
	if selected == "" {
		return slotReply(dlg.Get(ctxDoctorName), dlg.Get(ctxDate), available), dlg, nil
	}

	dlg.Set(ctxTime, selected)
	dlg.Step = stepName
	return chat.Reply{Text: askNameText}, dlg, nil
}

func (e *Engine) handleName(ctx context.Context, dlg state.Dialog, message string) (chat.Reply, state.Dialog, error) {
	name := strings.TrimSpace(message)
	if name == "" {
		return chat.Reply{Text: nameRequiredText}, dlg, nil
	}

	dlg.Set(ctxName, name)
	if dlg.Get(ctxPhone) != "" {
		dlg.Step = stepReason
		return chat.Reply{Text: askReasonText}, dlg, nil
	}
	dlg.Step = stepPhone
	return chat.Reply{Text: askPhoneText}, dlg, nil
}

func (e *Engine) handlePhone(ctx context.Context, dlg state.Dialog, message string) (chat.Reply, state.Dialog, error) {
	phone := strings.TrimSpace(message)
	if phone == "" {
		return chat.Reply{Text: phoneRequiredText}, dlg, nil
	}

	dlg.Set(ctxPhone, phone)
	dlg.Step = stepReason
	return chat.Reply{Text: askReasonText}, dlg, nil
}

func (e *Engine) handleReason(ctx context.Context, dlg state.Dialog, message string) (chat.Reply, state.Dialog, error) {
	reason := strings.TrimSpace(message)
	if reason == "" {
		return chat.Reply{Text: askReasonText}, dlg, nil
	}

	dlg.Set(ctxReason, reason)
	dlg.Step = stepConfirm
	return confirmReply(
		dlg.Get(ctxDoctorName), dlg.Get(ctxSpecialty), dlg.Get(ctxDate), dlg.Get(ctxTime),
		dlg.Get(ctxName), dlg.Get(ctxPhone), reason,
	), dlg, nil
}

func (e *Engine) handleConfirm(ctx context.Context, userID string, dlg state.Dialog, lower string) (chat.Reply, state.Dialog, error) {
	switch {
	case strings.Contains(lower, "yes") || strings.Contains(lower, "confirm"):
		return e.book(ctx, dlg)
	case strings.Contains(lower, "no") || strings.Contains(lower, "cancel"):
		reset := state.NewDialog(stepMainMenu)
		if id := dlg.Get(ctxPatientID); id != "" {
			reset.Set(ctxPatientID, id)
		}
		return menuReply(cancelledText), reset, nil
	default:
		return confirmReply(
			dlg.Get(ctxDoctorName), dlg.Get(ctxSpecialty), dlg.Get(ctxDate), dlg.Get(ctxTime),
			dlg.Get(ctxName), dlg.Get(ctxPhone), dlg.Get(ctxReason),
		), dlg, nil
	}
}

// book re-checks the slot, then writes the patient and appointment.
func (e *Engine) book(ctx context.Context, dlg state.Dialog) (chat.Reply, state.Dialog, error) {
	doctorID := dlg.Get(ctxDoctorID)
	date := dlg.Get(ctxDate)
	slot := dlg.Get(ctxTime)
	name := dlg.Get(ctxName)
	phone := dlg.Get(ctxPhone)

	if doctorID == "" || date == "" || slot == "" || name == "" || phone == "" {
		reset := state.NewDialog(stepMainMenu)
		return menuReply("Missing appointment details. The booking has been reset. Please try again by asking to book an appointment."), reset, nil
	}

	// Someone else may have taken the slot while this patient typed.
	taken, err := e.store.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return chat.Reply{}, dlg, fmt.Errorf("check slot: %w", err)
	}
	for _, t := range taken {
		if t == slot {
			reset := state.NewDialog(stepMainMenu)
			if id := dlg.Get(ctxPatientID); id != "" {
				reset.Set(ctxPatientID, id)
			}
			return menuReply(slotTakenText), reset, nil
		}
	}

	patientID := dlg.Get(ctxPatientID)
	if patientID == "" {
		patient, found, err := e.store.FindPatient(ctx, name, phone)
		if err != nil {
			return chat.Reply{}, dlg, fmt.Errorf("find patient: %w", err)
		}
		if !found {
			patient, err = e.store.CreatePatient(ctx, clinic.Patient{Name: name, Phone: phone})
			if err != nil {
				return chat.Reply{}, dlg, fmt.Errorf("create patient: %w", err)
			}
		}
		patientID = patient.ID
	}

	appt, err := e.store.CreateAppointment(ctx, clinic.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Name:      name,
		Phone:     phone,
		Date:      date,
		Time:      slot,
		Reason:    dlg.Get(ctxReason),
		Status:    clinic.StatusScheduled,
	})
	if err != nil {
		return chat.Reply{}, dlg, fmt.Errorf("create appointment: %w", err)
	}

	if e.feed != nil {
		ev := db.Event{
			Type:          db.EventBooked,
			AppointmentID: appt.ID,
			DoctorName:    dlg.Get(ctxDoctorName),
			PatientName:   name,
			Date:          date,
			Time:          slot,
			Status:        string(appt.Status),
		}
		if err := e.feed.Publish(ctx, ev); err != nil {
			// The booking stands, the dashboard just misses the event.
			log.Printf("[bot] publish booking event %s: %v", appt.ID, err)
		}
	}

	reset := state.NewDialog(stepMainMenu)
	reset.Set(ctxPatientID, patientID)
	reply := bookedReply(appt, dlg.Get(ctxDoctorName), dlg.Get(ctxSpecialty))
	reply.Buttons = menuButtons()
	return reply, reset, nil
}

func buttonValues(buttons []chat.Button) []string {
	values := make([]string, 0, len(buttons))
	for _, b := range buttons {
		values = append(values, b.Value)
	}
	return values
}

func splitSlots(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}
