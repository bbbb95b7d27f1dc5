package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/notify"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	monday = calendar.NewDate(2024, time.January, 15)
	sunday = calendar.NewDate(2024, time.January, 14)
)

func at(s string) calendar.TimeOfDay { return calendar.MustParseTimeOfDay(s) }

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollector("test", prometheus.NewRegistry())
}

// ---- appointments ----

type mockAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*appointment.Appointment

	markReminderErr error
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{items: make(map[uuid.UUID]*appointment.Appointment)}
}

func (m *mockAppointmentRepo) put(a *appointment.Appointment) *appointment.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	m.items[a.ID] = &cp
	return a
}

func (m *mockAppointmentRepo) get(id uuid.UUID) *appointment.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.items[id]
	return &cp
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *appointment.Appointment) error {
	m.put(a)
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) GetDetail(ctx context.Context, id uuid.UUID) (*appointment.Detail, error) {
	a, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return appointment.DetailOf(a), nil
}

func (m *mockAppointmentRepo) List(_ context.Context, q *appointment.ListQuery) (*appointment.PagedDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*appointment.Detail, 0)
	for _, a := range m.items {
		if q.DoctorID != nil && a.DoctorID != *q.DoctorID {
			continue
		}
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		out = append(out, appointment.DetailOf(a))
	}
	return &appointment.PagedDetails{Appointments: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize}, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, id uuid.UUID, cmd *appointment.UpdateCommand) error {
	return m.update(id, func(a *appointment.Appointment) { cmd.Apply(a) })
}

func (m *mockAppointmentRepo) update(id uuid.UUID, fn func(a *appointment.Appointment)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return appointment.ErrAppointmentNotFound
	}
	fn(a)
	return nil
}

func (m *mockAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status appointment.Status) error {
	return m.update(id, func(a *appointment.Appointment) { a.Status = status })
}

func (m *mockAppointmentRepo) MarkNotificationSent(_ context.Context, id uuid.UUID) error {
	return m.update(id, func(a *appointment.Appointment) { a.NotificationSent = true })
}

func (m *mockAppointmentRepo) MarkReminderSent(_ context.Context, id uuid.UUID) error {
	if m.markReminderErr != nil {
		return m.markReminderErr
	}
	return m.update(id, func(a *appointment.Appointment) { a.ReminderSent = true })
}

func (m *mockAppointmentRepo) ListBooked(_ context.Context, doctorID uuid.UUID, date calendar.Date, excludeID *uuid.UUID) ([]*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range m.items {
		if a.DoctorID != doctorID || !a.Date.Equal(date) || !a.Status.Occupies() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockAppointmentRepo) ListDueReminders(_ context.Context, date calendar.Date) ([]*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range m.items {
		if a.Date.Equal(date) && a.Status == appointment.StatusConfirmed && !a.ReminderSent {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- doctors ----

type mockDoctorRepo struct {
	items map[uuid.UUID]*doctor.Doctor
}

func newMockDoctorRepo(doctors ...*doctor.Doctor) *mockDoctorRepo {
	m := &mockDoctorRepo{items: make(map[uuid.UUID]*doctor.Doctor)}
	for _, d := range doctors {
		m.items[d.ID] = d
	}
	return m
}

func (m *mockDoctorRepo) Create(_ context.Context, d *doctor.Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.items[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	return d, nil
}

func (m *mockDoctorRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*doctor.Doctor, error) {
	for _, d := range m.items {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, doctor.ErrDoctorNotFound
}

func (m *mockDoctorRepo) Update(_ context.Context, d *doctor.Doctor) error {
	m.items[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) List(_ context.Context, q *doctor.ListQuery) ([]*doctor.Doctor, int64, error) {
	var out []*doctor.Doctor
	for _, d := range m.items {
		out = append(out, d)
	}
	return out, int64(len(out)), nil
}

func (m *mockDoctorRepo) ExistsByLicense(_ context.Context, license string, excludeID *uuid.UUID) (bool, error) {
	for _, d := range m.items {
		if d.LicenseNumber == license && (excludeID == nil || d.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDoctorRepo) ExistsByNationalID(_ context.Context, nationalID string, excludeID *uuid.UUID) (bool, error) {
	for _, d := range m.items {
		if d.NationalID == nationalID && (excludeID == nil || d.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

// ---- patients ----

type mockPatientRepo struct {
	items map[uuid.UUID]*patient.Patient
}

func newMockPatientRepo(patients ...*patient.Patient) *mockPatientRepo {
	m := &mockPatientRepo{items: make(map[uuid.UUID]*patient.Patient)}
	for _, p := range patients {
		m.items[p.ID] = p
	}
	return m
}

func (m *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.items[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	p, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.FirstName != nil {
		p.FirstName = *cmd.FirstName
	}
	if cmd.City != nil {
		p.City = *cmd.City
	}
	return p, nil
}

func (m *mockPatientRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	p, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	p.Status = patient.StatusInactive
	p.DeletedAt = &now
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	var out []*patient.Patient
	for _, p := range m.items {
		out = append(out, p)
	}
	return &patient.PagedPatients{Patients: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize}, nil
}

func (m *mockPatientRepo) ExistsByNationalID(_ context.Context, nationalID string, excludeID *uuid.UUID) (bool, error) {
	for _, p := range m.items {
		if p.NationalID == nationalID && (excludeID == nil || p.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

// ---- users ----

type mockUserRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.User
}

func newMockUserRepo(users ...*domain.User) *mockUserRepo {
	m := &mockUserRepo{items: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		m.items[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.items[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepo) RecordLoginSuccess(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.items[id]
	now := time.Now()
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
	return nil
}

func (m *mockUserRepo) RecordLoginFailure(_ context.Context, id uuid.UUID, maxAttempts int, lockFor time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.items[id]
	u.FailedLoginCount++
	if u.FailedLoginCount >= maxAttempts {
		until := time.Now().Add(lockFor)
		u.LockedUntil = &until
		u.FailedLoginCount = 0
	}
	return nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id].PasswordHash = hash
	return nil
}

// ---- notifier ----

type mockNotifier struct {
	mu        sync.Mutex
	bookings  []notify.Message
	reminders []notify.Message
	failFor   map[string]bool // patient emails that fail
	failAll   bool
}

func (n *mockNotifier) send(kind notify.Kind, msg notify.Message, sent *[]notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failAll || n.failFor[msg.PatientEmail] {
		return &notify.DeliveryError{Kind: kind, Recipient: msg.PatientEmail, Err: errors.New("mailbox unavailable")}
	}
	*sent = append(*sent, msg)
	return nil
}

func (n *mockNotifier) SendBookingNotification(_ context.Context, msg notify.Message) error {
	return n.send(notify.KindBooking, msg, &n.bookings)
}

func (n *mockNotifier) SendReminder(_ context.Context, msg notify.Message) error {
	return n.send(notify.KindReminder, msg, &n.reminders)
}

func (n *mockNotifier) bookingCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bookings)
}

// ---- audit ----

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
	block   chan struct{}
}

func (m *mockAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ---- fixtures ----

func testDoctor() *doctor.Doctor {
	userID := uuid.New()
	return &doctor.Doctor{
		ID:            uuid.New(),
		UserID:        userID,
		User:          &domain.User{ID: userID, FirstName: "Gregory", LastName: "House", Role: domain.RoleDoctor, IsActive: true},
		LicenseNumber: "LIC-1",
		Specialty:     "Diagnostics",
		NationalID:    "D-1",
		DayStart:      at("08:00"),
		DayEnd:        at("12:00"),
		WorkingDays:   calendar.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday),
		SlotMinutes:   30,
	}
}

func testPatient(name, email string) *patient.Patient {
	return &patient.Patient{
		ID:          uuid.New(),
		FirstName:   name,
		LastName:    "Lima",
		NationalID:  "P-" + name,
		Status:      patient.StatusActive,
		ContactInfo: patient.ContactInfo{Email: email},
	}
}

var receptionist = domain.Caller{UserID: uuid.New(), Role: domain.RoleReceptionist}

type appointmentFixture struct {
	svc      *AppointmentService
	repo     *mockAppointmentRepo
	notifier *mockNotifier
	metrics  *metrics.Collector
	doctor   *doctor.Doctor
	patient  *patient.Patient
}

func newAppointmentFixture(t *testing.T, opts ...AppointmentOption) *appointmentFixture {
	t.Helper()
	f := &appointmentFixture{
		repo:     newMockAppointmentRepo(),
		notifier: &mockNotifier{},
		metrics:  newTestMetrics(),
		doctor:   testDoctor(),
		patient:  testPatient("Ana", "ana@example.test"),
	}
	f.svc = NewAppointmentService(
		f.repo,
		newMockDoctorRepo(f.doctor),
		newMockPatientRepo(f.patient),
		lockLocal(),
		f.notifier,
		nil,
		f.metrics,
		zapNop(),
		opts...,
	)
	return f
}

func (f *appointmentFixture) create(t *testing.T, date calendar.Date, start string) (*appointment.Detail, error) {
	t.Helper()
	return f.svc.Create(context.Background(), &appointment.CreateCommand{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      date,
		StartTime: at(start),
	}, receptionist)
}

func (f *appointmentFixture) mustCreate(t *testing.T, date calendar.Date, start string) *appointment.Detail {
	t.Helper()
	d, err := f.create(t, date, start)
	if err != nil {
		t.Fatalf("creating appointment at %s: %v", start, err)
	}
	return d
}
