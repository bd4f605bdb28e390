package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"clinic-appointments-server/internal/cache"
	"clinic-appointments-server/internal/config"
	"clinic-appointments-server/internal/middleware"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/observability"
	"clinic-appointments-server/internal/repository"
	"clinic-appointments-server/internal/routes"
	"clinic-appointments-server/internal/services"
)

const serviceName = "clinic-appointments-server"

func main() {
	// A missing .env is fine when the environment is set directly.
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		observability.InitLogger(serviceName, "production", "info")
		log.Fatal().Err(err).Msg("Error loading config")
	}
	observability.InitLogger(serviceName, cfg.Environment, cfg.LogLevel)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("No .env file loaded, using process environment")
	}

	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewSchedulingMetrics(reg)
	settings := services.SettingsFromConfig(cfg, metrics)

	appointments := repository.NewGormAppointmentRepository(db)
	schedules := repository.NewGormScheduleRepository(db)
	doctors := repository.NewGormDoctorRepository(db)
	patients := repository.NewGormPatientDirectory(db)

	registry := services.NewScheduleRegistry(schedules, doctors, settings)
	if cfg.Redis.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.NewClient(ctx, cfg.Redis)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Schedule cache disabled")
		} else {
			defer client.Close()
			registry.WithCache(cache.NewScheduleCache(client, cfg.Redis.ScheduleTTL))
			log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.ScheduleTTL).Msg("Schedule cache enabled")
		}
	}

	svc := routes.Services{
		Registry:  registry,
		Intake:    services.NewAppointmentIntake(appointments, doctors, patients, registry, settings),
		Lifecycle: services.NewLifecycleManager(appointments, settings),
		Queries:   services.NewAppointmentQueries(appointments, doctors, settings),
		Directory: services.NewDoctorDirectory(doctors, settings),
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, db, cfg, svc, reg)

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	log.Info().
		Str("addr", serverAddr).
		Str("env", cfg.Environment).
		Bool("enforce_windows", cfg.Booking.EnforceWindows).
		Str("timezone", cfg.Booking.Location.String()).
		Msg("Server running")
	if err := router.Run(serverAddr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
