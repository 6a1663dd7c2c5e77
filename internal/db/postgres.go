package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/samcomdev/medichat/internal/model/clinic"
)

// Postgres implements Store over a Postgres database via database/sql.
// The caller owns the *sql.DB lifecycle.
type Postgres struct {
	DB *sql.DB
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{DB: db} }

func (s *Postgres) ListPatients(ctx context.Context) ([]clinic.Patient, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, phone, created_at FROM patients ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []clinic.Patient
	for rows.Next() {
		var p clinic.Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.CreatedAt); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (s *Postgres) GetPatient(ctx context.Context, id string) (clinic.Patient, error) {
	var p clinic.Patient
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, phone, created_at FROM patients WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Phone, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return clinic.Patient{}, ErrNotFound
	}
	return p, err
}

func (s *Postgres) CreatePatient(ctx context.Context, p clinic.Patient) (clinic.Patient, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO patients (id, name, phone, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.Phone, p.CreatedAt)
	return p, err
}

func (s *Postgres) UpdatePatient(ctx context.Context, p clinic.Patient) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE patients SET name = $1, phone = $2 WHERE id = $3`,
		p.Name, p.Phone, p.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Postgres) FindPatient(ctx context.Context, name, phone string) (clinic.Patient, bool, error) {
	var p clinic.Patient
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, phone, created_at FROM patients
         WHERE name = $1 AND phone = $2
         ORDER BY created_at DESC
         LIMIT 1`, name, phone).
		Scan(&p.ID, &p.Name, &p.Phone, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return clinic.Patient{}, false, nil
	}
	if err != nil {
		return clinic.Patient{}, false, err
	}
	return p, true, nil
}

func (s *Postgres) ListDoctors(ctx context.Context) ([]clinic.Doctor, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, specialty, created_at FROM doctors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []clinic.Doctor
	for rows.Next() {
		var d clinic.Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt); err != nil {
			return nil, err
		}
		doctors = append(doctors, d)
	}
	return doctors, rows.Err()
}

func (s *Postgres) GetDoctor(ctx context.Context, id string) (clinic.Doctor, error) {
	var d clinic.Doctor
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, specialty, created_at FROM doctors WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return clinic.Doctor{}, ErrNotFound
	}
	return d, err
}

func (s *Postgres) CreateDoctor(ctx context.Context, d clinic.Doctor) (clinic.Doctor, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO doctors (id, name, specialty, created_at) VALUES ($1, $2, $3, $4)`,
		d.ID, d.Name, d.Specialty, d.CreatedAt)
	return d, err
}

func (s *Postgres) UpdateDoctor(ctx context.Context, d clinic.Doctor) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE doctors SET name = $1, specialty = $2 WHERE id = $3`,
		d.Name, d.Specialty, d.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

const appointmentColumns = `id, patient_id, doctor_id, name, phone, date, time, reason, status, created_at`

func scanAppointment(row interface{ Scan(...any) error }) (clinic.Appointment, error) {
	var a clinic.Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Name, &a.Phone,
		&a.Date, &a.Time, &a.Reason, &a.Status, &a.CreatedAt)
	return a, err
}

func (s *Postgres) ListAppointments(ctx context.Context) ([]clinic.Appointment, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments ORDER BY date, time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []clinic.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

func (s *Postgres) ListAppointmentsForPatient(ctx context.Context, patientID string) ([]clinic.Appointment, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments
         WHERE patient_id = $1 ORDER BY date, time`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []clinic.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

func (s *Postgres) GetAppointment(ctx context.Context, id string) (clinic.Appointment, error) {
	a, err := scanAppointment(s.DB.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return clinic.Appointment{}, ErrNotFound
	}
	return a, err
}

func (s *Postgres) CreateAppointment(ctx context.Context, a clinic.Appointment) (clinic.Appointment, error) {
	if a.ID == "" {
		a.ID = NewAppointmentID()
	}
	if a.Status == "" {
		a.Status = clinic.StatusScheduled
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO appointments (`+appointmentColumns+`)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.PatientID, a.DoctorID, a.Name, a.Phone,
		a.Date, a.Time, a.Reason, a.Status, a.CreatedAt)
	return a, err
}

func (s *Postgres) UpdateAppointment(ctx context.Context, a clinic.Appointment) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE appointments
         SET patient_id = $1, doctor_id = $2, name = $3, phone = $4,
             date = $5, time = $6, reason = $7, status = $8
         WHERE id = $9`,
		a.PatientID, a.DoctorID, a.Name, a.Phone,
		a.Date, a.Time, a.Reason, a.Status, a.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Postgres) BookedSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT time FROM appointments
         WHERE doctor_id = $1 AND date = $2 AND status <> 'cancelled'`,
		doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
