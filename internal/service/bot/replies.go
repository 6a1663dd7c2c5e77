package bot

import (
	"fmt"
	"strings"

	"github.com/samcomdev/medichat/internal/model/chat"
	"github.com/samcomdev/medichat/internal/model/clinic"
)

const (
	welcomeText = "Welcome to the clinic! How can I help you today?"

	goodbyeText = "Thank you for chatting with us. Goodbye!"

	fullyBookedText = "We're sorry, but all doctors are fully booked at this time. " +
		"Please try again later or contact our office directly for assistance."

	askNameText   = "Please enter your full name for booking:"
	askPhoneText  = "Okay, please enter your phone number:"
	askReasonText = "Lastly, please provide the reason for your visit."

	nameRequiredText  = "Your name is required. Please enter your full name:"
	phoneRequiredText = "Your phone number is required. Please enter your phone number:"

	slotTakenText = "We're sorry, but this time slot has just been booked by another patient. " +
		"Please start the booking process again."

	cancelledText = "Booking cancelled. Type 'menu' to start over."

	noAppointmentsText = "No appointments found. Type 'menu' to book one."

	fallbackText = "I'm not sure how to help with that. Please choose one of the options below."

	helpText = "Here's what I can do:\n" +
		"- Book Appointment: pick a specialty, doctor, date and time.\n" +
		"- View Appointments: see your upcoming visits.\n" +
		"- Or just ask me a general health question.\n" +
		"Type 'menu' anytime to come back here, or 'exit' to end the chat."
)

func menuButtons() []chat.Button {
	return []chat.Button{
		{Text: "Book Appointment", Value: "book"},
		{Text: "View Appointments", Value: "view"},
		{Text: "Help", Value: "help"},
	}
}

func menuReply(text string) chat.Reply {
	return chat.Reply{Text: text, Buttons: menuButtons()}
}

func specialtyReply(intro string, specialties []string) chat.Reply {
	buttons := make([]chat.Button, 0, len(specialties))
	for _, s := range specialties {
		buttons = append(buttons, chat.Button{Text: s, Value: s})
	}
	return chat.Reply{Text: intro, Buttons: buttons}
}

func doctorReply(specialty string, doctors []clinic.Doctor) chat.Reply {
	buttons := make([]chat.Button, 0, len(doctors))
	for _, d := range doctors {
		buttons = append(buttons, chat.Button{
			Text:  fmt.Sprintf("%s (%s)", d.Name, d.Specialty),
			Value: d.ID,
		})
	}
	text := fmt.Sprintf("Great! You've selected %s. Please select a doctor:", specialty)
	return chat.Reply{Text: text, Buttons: buttons}
}

func dateReply(doctorName string, dates []string) chat.Reply {
	buttons := make([]chat.Button, 0, len(dates))
	for _, date := range dates {
		buttons = append(buttons, chat.Button{Text: prettyDate(date), Value: date})
	}
	text := fmt.Sprintf("When would you like to book your appointment with %s? Please pick a date:", doctorName)
	return chat.Reply{Text: text, Buttons: buttons}
}

func preferenceReply(doctorName, date string) chat.Reply {
	text := fmt.Sprintf("For your appointment with %s on %s, do you prefer a morning or evening slot?",
		doctorName, prettyDate(date))
	return chat.Reply{Text: text, Buttons: []chat.Button{
		{Text: "Morning", Value: "morning"},
		{Text: "Evening", Value: "evening"},
	}}
}

func slotReply(doctorName, date string, slots []string) chat.Reply {
	buttons := make([]chat.Button, 0, len(slots))
	for _, slot := range slots {
		buttons = append(buttons, chat.Button{Text: slot, Value: slot})
	}
	text := fmt.Sprintf("For %s with %s, we have the following slots available. What time works for you?",
		prettyDate(date), doctorName)
	return chat.Reply{Text: text, Buttons: buttons}
}

func confirmReply(doctorName, specialty, date, slot, name, phone, reason string) chat.Reply {
	var b strings.Builder
	b.WriteString("Please confirm your appointment:\n")
	fmt.Fprintf(&b, "Doctor: %s\n", doctorName)
	fmt.Fprintf(&b, "Specialty: %s\n", specialty)
	fmt.Fprintf(&b, "Date: %s\n", prettyDate(date))
	fmt.Fprintf(&b, "Time: %s\n", slot)
	fmt.Fprintf(&b, "Patient: %s\n", name)
	fmt.Fprintf(&b, "Phone: %s\n", phone)
	fmt.Fprintf(&b, "Reason: %s", reason)
	return chat.Reply{Text: b.String(), Buttons: []chat.Button{
		{Text: "Confirm", Value: "yes"},
		{Text: "Cancel", Value: "no"},
	}}
}

func bookedReply(appt clinic.Appointment, doctorName, specialty string) chat.Reply {
	var b strings.Builder
	b.WriteString("Appointment Successfully Booked! 🎉\n\n")
	fmt.Fprintf(&b, "Appointment ID: %s\n", appt.ID)
	fmt.Fprintf(&b, "Patient: %s\n", appt.Name)
	fmt.Fprintf(&b, "Doctor: %s\n", doctorName)
	fmt.Fprintf(&b, "Specialty: %s\n", specialty)
	fmt.Fprintf(&b, "Date: %s\n", appt.Date)
	fmt.Fprintf(&b, "Time: %s\n", appt.Time)
	fmt.Fprintf(&b, "Phone: %s\n", appt.Phone)
	fmt.Fprintf(&b, "Reason: %s\n\n", appt.Reason)
	b.WriteString("Thank you for booking with us. If you need to reschedule or cancel, " +
		"please contact us and reference your Appointment ID.")
	return chat.Reply{Text: b.String()}
}
