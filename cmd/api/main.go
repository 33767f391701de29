package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/classhub-api/internal/config"
	"github.com/noah-isme/classhub-api/internal/database"
	"github.com/noah-isme/classhub-api/internal/event"
	"github.com/noah-isme/classhub-api/internal/handler"
	"github.com/noah-isme/classhub-api/internal/mailer"
	"github.com/noah-isme/classhub-api/internal/middleware"
	"github.com/noah-isme/classhub-api/internal/models"
	"github.com/noah-isme/classhub-api/internal/repository"
	"github.com/noah-isme/classhub-api/internal/router"
	"github.com/noah-isme/classhub-api/internal/service"
	cloud "github.com/noah-isme/classhub-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.TeacherProfile{},
		&models.Classroom{},
		&models.ClassroomMembership{},
		&models.ProjectSubmission{},
		&models.SubmissionGradeHistory{},
		&models.Notification{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, stats caching and fanout disabled")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, cross-node fanout disabled")
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}

	var uploader service.FileUploader
	if cfg.CloudName != "" {
		uploader, err = cloud.New(cloud.Config{
			CloudName: cfg.CloudName,
			APIKey:    cfg.CloudAPIKey,
			APISecret: cfg.CloudAPISecret,
			Folder:    cfg.CloudFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
	}

	from := mailer.Address{Name: cfg.MailFromName, Email: cfg.MailFromAddress}
	var mail mailer.Mailer
	switch cfg.MailProvider {
	case "sendgrid":
		mail = mailer.NewSendGridMailer(cfg.SendGridAPIKey, from, cfg.AppName, logger)
	default:
		mail = mailer.NewConsoleMailer(from, cfg.AppName, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	dispatcher := event.NewDispatcher(logger)

	userRepo := repository.NewUserRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	authService := service.NewAuthService(userRepo, validate, cfg.JWTSecret, cfg.JWTTokenTTL, cfg.BcryptCost, logger)
	classroomService := service.NewClassroomService(classroomRepo, membershipRepo, validate, uploader, redisClient, cfg.StatsCacheTTL, cfg.MaxUploadSizeMB, logger)
	membershipService := service.NewMembershipService(membershipRepo, classroomRepo, submissionRepo, validate, dispatcher, logger)
	submissionService := service.NewSubmissionService(submissionRepo, membershipRepo, userRepo, validate, dispatcher, logger)
	gradingService := service.NewGradingService(submissionRepo, activityRepo, validate, dispatcher, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, submissionRepo, membershipRepo, mail, dispatcher, service.NotificationConfig{
		EmailEnabled: cfg.NotificationsOn,
		SiteURL:      cfg.SiteURL,
		Redis:        redisClient,
		NATS:         natsConn,
		ChannelBase:  cfg.FanoutChannelKey,
	}, logger)

	runCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	notificationService.Start(runCtx)

	authHandler := handler.NewAuthHandler(authService, logger)
	classroomHandler := handler.NewClassroomHandler(classroomService, membershipService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, gradingService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, 30*time.Second)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.MaxUploadSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         authHandler,
		ClassroomHandler:    classroomHandler,
		SubmissionHandler:   submissionHandler,
		NotificationHandler: notificationHandler,
		ActivityHandler:     activityHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		CurrentUser:         middleware.LoadCurrentUser(userRepo),
		AuthRateLimit:       middleware.RateLimit("auth", 20, time.Minute),
		TeacherOnly:         middleware.RequireRole(string(models.RoleTeacher)),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, dispatcher, stopConsumers)
}

func waitForShutdown(app *fiber.App, dispatcher *event.LocalDispatcher, stopConsumers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	stopConsumers()
	dispatcher.Wait()

	log.Println("server stopped")
}
