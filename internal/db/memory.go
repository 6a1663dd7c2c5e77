package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcomdev/medichat/internal/model/clinic"
)

// Memory is an in-process Store used when no DATABASE_URL is configured
// and by tests. Safe for concurrent use.
type Memory struct {
	mu           sync.RWMutex
	patients     map[string]clinic.Patient
	doctors      map[string]clinic.Doctor
	appointments map[string]clinic.Appointment
}

func NewMemory() *Memory {
	return &Memory{
		patients:     make(map[string]clinic.Patient),
		doctors:      make(map[string]clinic.Doctor),
		appointments: make(map[string]clinic.Appointment),
	}
}

// NewMemorySeeded returns a Memory store preloaded with a small roster of
// doctors so the booking flow works out of the box in dev mode.
func NewMemorySeeded() *Memory {
	m := NewMemory()
	seed := []clinic.Doctor{
		{Name: "Dr. Asha Verma", Specialty: "General Physician"},
		{Name: "Dr. Rohit Menon", Specialty: "General Physician"},
		{Name: "Dr. Neha Kulkarni", Specialty: "Dentist"},
		{Name: "Dr. Vikram Shah", Specialty: "Cardiologist"},
		{Name: "Dr. Priya Nair", Specialty: "Dermatologist"},
	}
	for _, d := range seed {
		m.CreateDoctor(context.Background(), d)
	}
	return m
}

func (m *Memory) ListPatients(ctx context.Context) ([]clinic.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]clinic.Patient, 0, len(m.patients))
	for _, p := range m.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GetPatient(ctx context.Context, id string) (clinic.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return clinic.Patient{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) CreatePatient(ctx context.Context, p clinic.Patient) (clinic.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.patients[p.ID] = p
	return p, nil
}

func (m *Memory) UpdatePatient(ctx context.Context, p clinic.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = p.Name
	existing.Phone = p.Phone
	m.patients[p.ID] = existing
	return nil
}

func (m *Memory) FindPatient(ctx context.Context, name, phone string) (clinic.Patient, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found clinic.Patient
	var ok bool
	for _, p := range m.patients {
		if p.Name != name || p.Phone != phone {
			continue
		}
		if !ok || p.CreatedAt.After(found.CreatedAt) {
			found = p
			ok = true
		}
	}
	return found, ok, nil
}

func (m *Memory) ListDoctors(ctx context.Context) ([]clinic.Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]clinic.Doctor, 0, len(m.doctors))
	for _, d := range m.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetDoctor(ctx context.Context, id string) (clinic.Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[id]
	if !ok {
		return clinic.Doctor{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) CreateDoctor(ctx context.Context, d clinic.Doctor) (clinic.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	m.doctors[d.ID] = d
	return d, nil
}

func (m *Memory) UpdateDoctor(ctx context.Context, d clinic.Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.doctors[d.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = d.Name
	existing.Specialty = d.Specialty
	m.doctors[d.ID] = existing
	return nil
}

func (m *Memory) ListAppointments(ctx context.Context) ([]clinic.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]clinic.Appointment, 0, len(m.appointments))
	for _, a := range m.appointments {
		out = append(out, a)
	}
	sortAppointments(out)
	return out, nil
}

func (m *Memory) ListAppointmentsForPatient(ctx context.Context, patientID string) ([]clinic.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []clinic.Appointment
	for _, a := range m.appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (m *Memory) GetAppointment(ctx context.Context, id string) (clinic.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	if !ok {
		return clinic.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) CreateAppointment(ctx context.Context, a clinic.Appointment) (clinic.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = NewAppointmentID()
	}
	if a.Status == "" {
		a.Status = clinic.StatusScheduled
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.appointments[a.ID] = a
	return a, nil
}

func (m *Memory) UpdateAppointment(ctx context.Context, a clinic.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[a.ID]; !ok {
		return ErrNotFound
	}
	m.appointments[a.ID] = a
	return nil
}

func (m *Memory) BookedSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var slots []string
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.Blocks() {
			slots = append(slots, a.Time)
		}
	}
	return slots, nil
}

func sortAppointments(list []clinic.Appointment) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date < list[j].Date
		}
		return list[i].Time < list[j].Time
	})
}
