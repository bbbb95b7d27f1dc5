package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var admin = domain.Caller{UserID: uuid.New(), Role: domain.RoleAdmin}

func newDoctorFixture() (*DoctorService, *mockDoctorRepo, *mockUserRepo, *domain.User) {
	u := &domain.User{ID: uuid.New(), Email: "wilson@clinic.test", FirstName: "James", LastName: "Wilson", Role: domain.RoleDoctor, IsActive: true}
	users := newMockUserRepo(u)
	repo := newMockDoctorRepo()
	return NewDoctorService(repo, users, nil, zap.NewNop()), repo, users, u
}

func createDoctorCmd(userID uuid.UUID) *doctor.CreateCommand {
	return &doctor.CreateCommand{
		UserID:        userID,
		LicenseNumber: "LIC-9",
		Specialty:     "Oncology",
		Phone:         "555-0199",
		DateOfBirth:   calendar.NewDate(1972, time.March, 1),
		NationalID:    "N-9",
	}
}

func TestCreateDoctor_Defaults(t *testing.T) {
	svc, _, _, u := newDoctorFixture()

	p, err := svc.CreateDoctor(context.Background(), createDoctorCmd(u.ID), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "James Wilson" || p.Email != "wilson@clinic.test" || !p.Active {
		t.Errorf("unexpected profile: %+v", p)
	}
	cal := p.Calendar
	if cal.DayStart.String() != "08:00" || cal.DayEnd.String() != "18:00" || cal.SlotMinutes != 30 {
		t.Errorf("expected default calendar, got %+v", cal)
	}
	if cal.WorkingDays.String() != "1,2,3,4,5" {
		t.Errorf("expected Mon-Fri, got %s", cal.WorkingDays)
	}
}

func TestCreateDoctor_CustomCalendar(t *testing.T) {
	svc, _, _, u := newDoctorFixture()
	cmd := createDoctorCmd(u.ID)
	start, end := at("13:00"), at("17:00")
	days := calendar.NewWeekdaySet(time.Saturday)
	slot := 20
	cmd.DayStart, cmd.DayEnd, cmd.WorkingDays, cmd.SlotMinutes = &start, &end, &days, &slot

	p, err := svc.CreateDoctor(context.Background(), cmd, admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Calendar.SlotMinutes != 20 || !p.Calendar.WorkingDays.Has(time.Saturday) {
		t.Errorf("expected custom calendar, got %+v", p.Calendar)
	}
}

func TestCreateDoctor_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid calendar", func(t *testing.T) {
		svc, _, _, u := newDoctorFixture()
		cmd := createDoctorCmd(u.ID)
		start, end := at("18:00"), at("08:00")
		cmd.DayStart, cmd.DayEnd = &start, &end
		var ve *ValidationError
		if _, err := svc.CreateDoctor(ctx, cmd, admin); !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("user is not a doctor", func(t *testing.T) {
		svc, _, users, u := newDoctorFixture()
		users.items[u.ID].Role = domain.RoleReceptionist
		if _, err := svc.CreateDoctor(ctx, createDoctorCmd(u.ID), admin); !errors.Is(err, doctor.ErrUserNotDoctor) {
			t.Fatalf("expected ErrUserNotDoctor, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _, _, _ := newDoctorFixture()
		if _, err := svc.CreateDoctor(ctx, createDoctorCmd(uuid.New()), admin); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("already linked", func(t *testing.T) {
		svc, _, _, u := newDoctorFixture()
		if _, err := svc.CreateDoctor(ctx, createDoctorCmd(u.ID), admin); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.CreateDoctor(ctx, createDoctorCmd(u.ID), admin); !errors.Is(err, doctor.ErrUserAlreadyDoctor) {
			t.Fatalf("expected ErrUserAlreadyDoctor, got %v", err)
		}
	})

	t.Run("license taken", func(t *testing.T) {
		svc, repo, _, u := newDoctorFixture()
		repo.items[uuid.New()] = &doctor.Doctor{LicenseNumber: "LIC-9"}
		if _, err := svc.CreateDoctor(ctx, createDoctorCmd(u.ID), admin); !errors.Is(err, doctor.ErrLicenseTaken) {
			t.Fatalf("expected ErrLicenseTaken, got %v", err)
		}
	})
}

func TestUpdateDoctor(t *testing.T) {
	svc, repo, _, u := newDoctorFixture()
	ctx := context.Background()
	created, err := svc.CreateDoctor(ctx, createDoctorCmd(u.ID), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	slot := 45
	p, err := svc.UpdateDoctor(ctx, created.ID, &doctor.UpdateCommand{SlotMinutes: &slot}, admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Calendar.SlotMinutes != 45 {
		t.Errorf("expected slot 45, got %d", p.Calendar.SlotMinutes)
	}

	// Its own license does not count as taken.
	license := "LIC-9"
	if _, err := svc.UpdateDoctor(ctx, created.ID, &doctor.UpdateCommand{LicenseNumber: &license}, admin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo.items[uuid.New()] = &doctor.Doctor{LicenseNumber: "LIC-10"}
	other := "LIC-10"
	if _, err := svc.UpdateDoctor(ctx, created.ID, &doctor.UpdateCommand{LicenseNumber: &other}, admin); !errors.Is(err, doctor.ErrLicenseTaken) {
		t.Fatalf("expected ErrLicenseTaken, got %v", err)
	}

	zero := 0
	var ve *ValidationError
	if _, err := svc.UpdateDoctor(ctx, created.ID, &doctor.UpdateCommand{SlotMinutes: &zero}, admin); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDeactivateDoctor(t *testing.T) {
	svc, _, users, u := newDoctorFixture()
	ctx := context.Background()
	created, err := svc.CreateDoctor(ctx, createDoctorCmd(u.ID), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeactivateDoctor(ctx, created.ID, admin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if users.items[u.ID].IsActive {
		t.Error("expected the linked login to be disabled")
	}
	p, _ := svc.GetDoctor(ctx, created.ID)
	if p.Active {
		t.Error("expected profile to report inactive")
	}
}
