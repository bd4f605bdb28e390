package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"clinic-appointments-server/internal/config"
	"clinic-appointments-server/internal/handlers"
	"clinic-appointments-server/internal/middleware"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/services"
)

// Services bundles the engine components the routes dispatch to.
type Services struct {
	Registry  *services.ScheduleRegistry
	Intake    *services.AppointmentIntake
	Lifecycle *services.LifecycleManager
	Queries   *services.AppointmentQueries
	Directory *services.DoctorDirectory
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, svc Services, gatherer prometheus.Gatherer) {
	authHandler := handlers.NewAuthHandler(db, cfg)
	appointmentHandler := handlers.NewAppointmentHandler(svc.Intake, svc.Lifecycle, svc.Queries)
	doctorHandler := handlers.NewDoctorHandler(svc.Directory, svc.Registry, svc.Queries)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		RegisterEngineRoutes(private, appointmentHandler, doctorHandler)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// RegisterEngineRoutes mounts the appointment and doctor routes on an
// authenticated group.
func RegisterEngineRoutes(group *gin.RouterGroup, appointments *handlers.AppointmentHandler, doctors *handlers.DoctorHandler) {
	staff := middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin)

	appointmentRoutes := group.Group("/appointments")
	{
		// Role rules live in the lifecycle; the route guards only short-circuit.
		appointmentRoutes.POST("", appointments.CreateAppointment)
		appointmentRoutes.GET("", appointments.GetAppointments)
		appointmentRoutes.GET("/stats", appointments.GetAppointmentStats)
		appointmentRoutes.GET("/:id", appointments.GetAppointmentByID)
		appointmentRoutes.POST("/:id/confirm", appointments.ConfirmAppointment)
		appointmentRoutes.POST("/:id/reject", appointments.RejectAppointment)
		appointmentRoutes.POST("/:id/cancel", appointments.CancelAppointment)
		appointmentRoutes.POST("/:id/complete", staff, appointments.CompleteAppointment)
		appointmentRoutes.POST("/:id/no-show", staff, appointments.MarkNoShow)
		appointmentRoutes.PATCH("/:id/status", appointments.UpdateAppointmentStatus)
	}

	doctorRoutes := group.Group("/doctors")
	{
		doctorRoutes.GET("", doctors.GetDoctors)
		doctorRoutes.GET("/specialties", doctors.GetSpecialties)
		doctorRoutes.GET("/:id", doctors.GetDoctorByID)
		doctorRoutes.PATCH("/:id", staff, doctors.UpdateDoctor)
		doctorRoutes.GET("/:id/schedule", doctors.GetSchedule)
		doctorRoutes.PUT("/:id/schedule", staff, doctors.UpsertSchedule)
		doctorRoutes.GET("/:id/stats", staff, doctors.GetDoctorStats)
	}
}
