package v1

import (
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth           *AuthHandler
	Doctors        *DoctorHandler
	Patients       *PatientHandler
	Appointments   *AppointmentHandler
	MedicalRecords *MedicalRecordHandler
}

// Register mounts the v1 API on rg. authenticate validates bearer tokens;
// authLimit guards the unauthenticated login and refresh endpoints.
func Register(rg *gin.RouterGroup, h Handlers, authenticate, authLimit gin.HandlerFunc) {
	var (
		admin    = middleware.RequireRoles(domain.RoleAdmin)
		staff    = middleware.RequireRoles(domain.RoleAdmin, domain.RoleReceptionist)
		anyone   = middleware.RequireRoles(domain.RoleAdmin, domain.RoleReceptionist, domain.RoleDoctor)
		clinical = middleware.RequireRoles(domain.RoleAdmin, domain.RoleDoctor)
	)

	authGroup := rg.Group("/auth")
	authGroup.POST("/login", authLimit, h.Auth.Login)
	authGroup.POST("/refresh", authLimit, h.Auth.Refresh)

	protected := rg.Group("", authenticate)

	protected.GET("/auth/me", h.Auth.Me)
	protected.PUT("/auth/password", h.Auth.ChangePassword)
	protected.POST("/users", admin, h.Auth.CreateUser)

	doctors := protected.Group("/doctors")
	doctors.GET("", anyone, h.Doctors.List)
	doctors.GET("/:id", anyone, h.Doctors.Get)
	doctors.POST("", admin, h.Doctors.Create)
	doctors.PUT("/:id", admin, h.Doctors.Update)
	doctors.DELETE("/:id", admin, h.Doctors.Deactivate)

	patients := protected.Group("/patients")
	patients.GET("", anyone, h.Patients.List)
	patients.GET("/:id", anyone, h.Patients.Get)
	patients.GET("/:id/medical-records", clinical, h.Patients.MedicalRecords)
	patients.POST("", staff, h.Patients.Create)
	patients.PUT("/:id", staff, h.Patients.Update)
	patients.DELETE("/:id", staff, h.Patients.Deactivate)

	appts := protected.Group("/appointments")
	appts.GET("/availability", anyone, h.Appointments.Availability)
	appts.GET("/mine", clinical, h.Appointments.Mine)
	appts.POST("/reminders", staff, h.Appointments.RunReminders)
	appts.GET("", anyone, h.Appointments.List)
	appts.GET("/:id", anyone, h.Appointments.Get)
	appts.GET("/:id/medical-record", clinical, h.MedicalRecords.GetByAppointment)
	appts.POST("", staff, h.Appointments.Create)
	appts.PUT("/:id", staff, h.Appointments.Update)
	appts.PATCH("/:id/status", anyone, h.Appointments.PatchStatus)
	appts.DELETE("/:id", staff, h.Appointments.Cancel)

	records := protected.Group("/medical-records", clinical)
	records.POST("", h.MedicalRecords.Create)
	records.GET("/:id", h.MedicalRecords.Get)
	records.POST("/:id/addenda", h.MedicalRecords.AddAddendum)
}
