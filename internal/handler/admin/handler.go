// Package admin serves the clinic dashboard: CRUD pages for patients,
// doctors and appointments, plus a live booking feed.
package admin

import (
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/samcomdev/medichat/internal/db"
	"github.com/samcomdev/medichat/internal/model/clinic"
	"github.com/samcomdev/medichat/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

const flashCookie = "admin_flash"

// Appointment slots offered in the booking form, mirroring the chatbot.
var slotOptions = []string{"9:00 AM", "10:00 AM", "11:00 AM", "1:00 PM", "2:00 PM", "3:00 PM"}

type Handler struct {
	store     db.Store
	feed      db.Feed
	templates *template.Template
}

func New(store db.Store, feed db.Feed) *Handler {
	return &Handler{
		store:     store,
		feed:      feed,
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(admin chi.Router) {
		admin.Get("/", h.handleDashboard)
		admin.Get("/events", h.handleEvents)

		admin.Get("/patients/new", h.handlePatientForm)
		admin.Post("/patients/new", h.handlePatientCreate)
		admin.Get("/patients/{id}/edit", h.handlePatientForm)
		admin.Post("/patients/{id}/edit", h.handlePatientUpdate)

		admin.Get("/doctors/new", h.handleDoctorForm)
		admin.Post("/doctors/new", h.handleDoctorCreate)
		admin.Get("/doctors/{id}/edit", h.handleDoctorForm)
		admin.Post("/doctors/{id}/edit", h.handleDoctorUpdate)

		admin.Get("/appointments/new", h.handleAppointmentForm)
		admin.Post("/appointments/new", h.handleAppointmentCreate)
		admin.Get("/appointments/{id}/edit", h.handleAppointmentForm)
		admin.Post("/appointments/{id}/edit", h.handleAppointmentUpdate)
	})
}

type dashboardData struct {
	Flash        string
	Patients     []clinic.Patient
	Doctors      []clinic.Doctor
	Appointments []appointmentRow
}

type appointmentRow struct {
	clinic.Appointment
	DoctorName string
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patients, err := h.store.ListPatients(ctx)
	if err != nil {
		h.renderError(w, err)
		return
	}
	doctors, err := h.store.ListDoctors(ctx)
	if err != nil {
		h.renderError(w, err)
		return
	}
	appointments, err := h.store.ListAppointments(ctx)
	if err != nil {
		h.renderError(w, err)
		return
	}

	names := make(map[string]string, len(doctors))
	for _, d := range doctors {
		names[d.ID] = d.Name
	}
	rows := make([]appointmentRow, 0, len(appointments))
	for _, a := range appointments {
		rows = append(rows, appointmentRow{Appointment: a, DoctorName: names[a.DoctorID]})
	}

	h.render(w, "dashboard.html", dashboardData{
		Flash:        popFlash(w, r),
		Patients:     patients,
		Doctors:      doctors,
		Appointments: rows,
	})
}

// handleEvents streams booking events to the dashboard.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	events, cancel := h.feed.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			utils.SendSSEEvent(w, flusher, "appointment", ev)
		}
	}
}

type patientFormData struct {
	Patient clinic.Patient
	Editing bool
}

func (h *Handler) handlePatientForm(w http.ResponseWriter, r *http.Request) {
	data := patientFormData{}
	if id := chi.URLParam(r, "id"); id != "" {
		patient, err := h.store.GetPatient(r.Context(), id)
		if err != nil {
			h.renderError(w, err)
			return
		}
		data.Patient = patient
		data.Editing = true
	}
	h.render(w, "patient_form.html", data)
}

func (h *Handler) handlePatientCreate(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	phone := strings.TrimSpace(r.FormValue("phone"))
	if name == "" || phone == "" {
		h.redirectFlash(w, r, "/admin/patients/new", "Name and phone are required.")
		return
	}

	if _, err := h.store.CreatePatient(r.Context(), clinic.Patient{Name: name, Phone: phone}); err != nil {
		h.renderError(w, err)
		return
	}
	h.redirectFlash(w, r, "/admin/", "Patient created.")
}

func (h *Handler) handlePatientUpdate(w http.ResponseWriter, r *http.Request) {
	patient := clinic.Patient{
		ID:    chi.URLParam(r, "id"),
		Name:  strings.TrimSpace(r.FormValue("name")),
		Phone: strings.TrimSpace(r.FormValue("phone")),
	}
	if err := h.store.UpdatePatient(r.Context(), patient); err != nil {
		h.renderError(w, err)
		return
	}
	h.redirectFlash(w, r, "/admin/", "Patient updated.")
}

type doctorFormData struct {
	Doctor  clinic.Doctor
	Editing bool
}

func (h *Handler) handleDoctorForm(w http.ResponseWriter, r *http.Request) {
	data := doctorFormData{}
	if id := chi.URLParam(r, "id"); id != "" {
		doctor, err := h.store.GetDoctor(r.Context(), id)
		if err != nil {
			h.renderError(w, err)
			return
		}
		data.Doctor = doctor
		data.Editing = true
	}
	h.render(w, "doctor_form.html", data)
}

func (h *Handler) handleDoctorCreate(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	specialty := strings.TrimSpace(r.FormValue("specialty"))
	if name == "" || specialty == "" {
		h.redirectFlash(w, r, "/admin/doctors/new", "Name and specialty are required.")
		return
	}

	if _, err := h.store.CreateDoctor(r.Context(), clinic.Doctor{Name: name, Specialty: specialty}); err != nil {
		h.renderError(w, err)
		return
	}
	h.redirectFlash(w, r, "/admin/", "Doctor created.")
}

func (h *Handler) handleDoctorUpdate(w http.ResponseWriter, r *http.Request) {
	doctor := clinic.Doctor{
		ID:        chi.URLParam(r, "id"),
		Name:      strings.TrimSpace(r.FormValue("name")),
		Specialty: strings.TrimSpace(r.FormValue("specialty")),
	}
	if err := h.store.UpdateDoctor(r.Context(), doctor); err != nil {
		h.renderError(w, err)
		return
	}
	h.redirectFlash(w, r, "/admin/", "Doctor updated.")
}

type appointmentFormData struct {
	Appointment clinic.Appointment
	Patients    []clinic.Patient
	Doctors     []clinic.Doctor
	Slots       []string
	Statuses    []clinic.AppointmentStatus
	Editing     bool
}

func (h *Handler) handleAppointmentForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := appointmentFormData{
		Slots: slotOptions,
		Statuses: []clinic.AppointmentStatus{
			clinic.StatusScheduled, clinic.StatusCompleted, clinic.StatusCancelled,
		},
	}

	var err error
	if data.Patients, err = h.store.ListPatients(ctx); err != nil {
		h.renderError(w, err)
		return
	}
	if data.Doctors, err = h.store.ListDoctors(ctx); err != nil {
		h.renderError(w, err)
		return
	}

	if id := chi.URLParam(r, "id"); id != "" {
		appointment, err := h.store.GetAppointment(ctx, id)
		if err != nil {
			h.renderError(w, err)
			return
		}
		data.Appointment = appointment
		data.Editing = true
	}
	h.render(w, "appointment_form.html", data)
}

func (h *Handler) appointmentFromForm(r *http.Request) (clinic.Appointment, error) {
	appt := clinic.Appointment{
		ID:        chi.URLParam(r, "id"),
		PatientID: r.FormValue("patient_id"),
		DoctorID:  r.FormValue("doctor_id"),
		Date:      strings.TrimSpace(r.FormValue("date")),
		Time:      r.FormValue("time"),
		Reason:    strings.TrimSpace(r.FormValue("reason")),
		Status:    clinic.AppointmentStatus(r.FormValue("status")),
	}
	if appt.Status == "" {
		appt.Status = clinic.StatusScheduled
	}
	if !clinic.ValidStatus(appt.Status) {
		return appt, errors.New("invalid appointment status")
	}
	if appt.PatientID == "" || appt.DoctorID == "" || appt.Date == "" || appt.Time == "" {
		return appt, errors.New("patient, doctor, date and time are required")
	}

	patient, err := h.store.GetPatient(r.Context(), appt.PatientID)
	if err != nil {
		return appt, err
	}
	appt.Name = patient.Name
	appt.Phone = patient.Phone
	return appt, nil
}

func (h *Handler) handleAppointmentCreate(w http.ResponseWriter, r *http.Request) {
	appt, err := h.appointmentFromForm(r)
	if err != nil {
		h.redirectFlash(w, r, "/admin/appointments/new", err.Error())
		return
	}

	created, err := h.store.CreateAppointment(r.Context(), appt)
	if err != nil {
		h.renderError(w, err)
		return
	}
	h.publish(r, db.EventBooked, created)
	h.redirectFlash(w, r, "/admin/", "Appointment created.")
}

func (h *Handler) handleAppointmentUpdate(w http.ResponseWriter, r *http.Request) {
	appt, err := h.appointmentFromForm(r)
	if err != nil {
		h.redirectFlash(w, r, "/admin/", err.Error())
		return
	}

	if err := h.store.UpdateAppointment(r.Context(), appt); err != nil {
		h.renderError(w, err)
		return
	}
	h.publish(r, db.EventUpdated, appt)
	h.redirectFlash(w, r, "/admin/", "Appointment updated.")
}

func (h *Handler) publish(r *http.Request, eventType string, appt clinic.Appointment) {
	doctorName := appt.DoctorID
	if doc, err := h.store.GetDoctor(r.Context(), appt.DoctorID); err == nil {
		doctorName = doc.Name
	}
	ev := db.Event{
		Type:          eventType,
		AppointmentID: appt.ID,
		DoctorName:    doctorName,
		PatientName:   appt.Name,
		Date:          appt.Date,
		Time:          appt.Time,
		Status:        string(appt.Status),
	}
	if err := h.feed.Publish(r.Context(), ev); err != nil {
		log.Printf("[admin] publish %s event: %v", eventType, err)
	}
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("[admin] render %s: %v", name, err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	log.Printf("[admin] %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (h *Handler) redirectFlash(w http.ResponseWriter, r *http.Request, target, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:  flashCookie,
		Value: url.QueryEscape(message),
		Path:  "/admin",
	})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:   flashCookie,
		Value:  "",
		Path:   "/admin",
		MaxAge: -1,
	})
	message, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return message
}
