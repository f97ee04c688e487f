package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"etalase/internal/config"
	"etalase/internal/database"
	"etalase/internal/jobs"
	"etalase/internal/logger"
	"etalase/internal/mailer"
	"etalase/internal/repositories"
	"etalase/internal/server"
	"etalase/internal/services"
	"etalase/internal/storage"
	"etalase/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel, cfg.LogPretty)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config) error {
	if cfg.SecretFromFallback {
		log.Warn().Msg("JWT_SECRET_KEY is not set, signing tokens with the built-in fallback secret")
	}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}

	images, err := newImageStore(context.Background(), cfg)
	if err != nil {
		return err
	}

	smtp := mailer.NewSMTPMailer(cfg.Mail)
	var outbound mailer.Mailer = smtp
	if cfg.MailTransport == "queue" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:         cfg.RabbitMQURL,
			Queues:      []string{mailer.EmailQueue},
			MaxAttempts: cfg.MailMaxAttempts,
		})
		if err != nil {
			return err
		}
		defer mq.Close()

		if err := mq.Consume(mailer.EmailQueue, mailer.NewWorker(smtp).Handle); err != nil {
			return err
		}
		outbound = mailer.NewQueueMailer(mq)
	}

	app, notifications := newApplication(cfg, db, images, outbound)

	scheduler, err := jobs.NewScheduler(cfg.ReportSchedule, jobs.NewReportJob(notifications, cfg.ReportRecipient))
	if err != nil {
		return err
	}
	scheduler.Start()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.AppPort).Msg("starting server")
		serverErr <- app.Listen(cfg.AppPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		<-scheduler.Stop().Done()
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	// Let an in-flight report finish before closing the mail transport.
	<-scheduler.Stop().Done()
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("error during fiber shutdown")
	}
	log.Info().Msg("server gracefully stopped")
	return nil
}

// newImageStore picks the image backend named by STORAGE_DRIVER.
func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	if cfg.StorageDriver == "s3" {
		store, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := storage.NewDiskStore(cfg.UploadsDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// newApplication wires repositories, services and handlers into a fiber app.
// The notification service is returned for the report scheduler.
func newApplication(cfg *config.Config, db *gorm.DB, images storage.ImageStore, outbound mailer.Mailer) (*fiber.App, *services.NotificationService) {
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authService := services.NewAuthService(userRepo, tokens)
	productService := services.NewProductService(productRepo, images)
	notifications := services.NewNotificationService(outbound, productRepo, cfg.Mail.User).
		WithAttachmentsDir(cfg.AttachmentsDir)

	uploadsDir := ""
	if disk, ok := images.(*storage.DiskStore); ok {
		uploadsDir = disk.Dir()
	}

	app := server.New(server.Options{
		AuthService:         authService,
		ProductService:      productService,
		NotificationService: notifications,
		Images:              images,
		UploadsDir:          uploadsDir,
		PublicBaseURL:       cfg.PublicBaseURL,
		CORSOrigin:          cfg.CORSOrigin,
		BodyLimitMB:         cfg.BodyLimitMB,
	})
	return app, notifications
}
