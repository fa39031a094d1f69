// Package server initializes and runs the portal: it opens the database,
// applies migrations, wires services to the HTTP API and handles graceful
// shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/logging"
	"github.com/dmitrijs2005/xrayportal/internal/server/archive"
	"github.com/dmitrijs2005/xrayportal/internal/server/audit"
	"github.com/dmitrijs2005/xrayportal/internal/server/auth"
	"github.com/dmitrijs2005/xrayportal/internal/server/config"
	"github.com/dmitrijs2005/xrayportal/internal/server/httpapi"
	"github.com/dmitrijs2005/xrayportal/internal/server/mailer"
	"github.com/dmitrijs2005/xrayportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/xrayportal/internal/server/services"
	"github.com/dmitrijs2005/xrayportal/internal/server/vision"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"
)

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

const (
	otpPurgeInterval  = time.Hour
	otpPurgeRetention = 24 * time.Hour
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	server    *httpapi.HTTPServer
	otp       *services.OTPService
	publisher audit.Publisher
	closers   []func() error
}

// NewLogger picks the logging backend named in the config.
func NewLogger(c *config.Config) (logging.Logger, func() error, error) {
	if c.LogBackend == "zap" {
		z, err := logging.BuildZap(c.IsProduction())
		if err != nil {
			return nil, nil, fmt.Errorf("zap init: %w", err)
		}
		zl := logging.NewZapLogger(z)
		return zl, zl.Sync, nil
	}

	level := slog.LevelInfo
	if !c.IsProduction() {
		level = slog.LevelDebug
	}
	return logging.NewJSONSlogLogger(os.Stdout, level), func() error { return nil }, nil
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if c.IsProduction() && c.SecretKey == "secretKey" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	db, err := sqlOpen("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	db.SetMaxOpenConns(c.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(c.DatabaseMaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	app := &App{config: c, logger: logger, db: db}
	app.closers = append(app.closers, db.Close)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	revoker, err := app.newRevoker()
	if err != nil {
		app.Close()
		return nil, err
	}

	ml, err := app.newMailer()
	if err != nil {
		app.Close()
		return nil, err
	}

	archiver, err := app.newArchiver(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.publisher = audit.Nop{}
	if len(c.KafkaBrokers) > 0 {
		kp := audit.NewKafkaPublisher(c.KafkaBrokers, c.KafkaAuditTopic)
		app.publisher = kp
		app.closers = append(app.closers, kp.Close)
	}

	sessions := auth.NewSessions(c.SecretKey, c.SessionTokenValidityDuration, revoker)
	auditSvc := services.NewAuditService(db, rm, app.publisher, logger.With("module", "audit"))
	otpSvc := services.NewOTPService(rm, ml, c.OTPValidityDuration)
	app.otp = otpSvc
	userSvc := services.NewUserService(db, rm, otpSvc, sessions, auditSvc, logger.With("module", "users"))

	model := vision.NewClient(vision.Config{
		APIKey:  c.VisionAPIKey,
		BaseURL: c.VisionBaseURL,
		Model:   c.VisionModel,
		Timeout: c.VisionTimeout,
	})
	analysisSvc := services.NewAnalysisService(model, archiver, logger.With("module", "analysis"))

	app.server = httpapi.NewHTTPServer(httpapi.Options{
		Address:          c.EndpointAddrHTTP,
		SecureCookies:    c.IsProduction(),
		MaxUploadBytes:   c.MaxUploadBytes,
		AllowedOrigins:   c.AllowedOrigins,
		WebRoot:          c.WebRoot,
		VisionConfigured: c.VisionAPIKey != "",
		ShutdownTimeout:  30 * time.Second,
	}, logger, userSvc, analysisSvc, db)

	return app, nil
}

func (app *App) newRevoker() (auth.Revoker, error) {
	if app.config.RedisURL == "" {
		app.logger.Info(context.Background(), "REDIS_URL not set, session revocation is process-local")
		return auth.NewMemoryRevoker(), nil
	}
	r, err := auth.NewRedisRevokerFromURL(app.config.RedisURL)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, r.Close)
	return r, nil
}

func (app *App) newMailer() (mailer.Mailer, error) {
	c := app.config
	if c.SMTPUser == "" {
		if c.IsProduction() {
			return nil, fmt.Errorf("EMAIL_USER must be set in production")
		}
		return mailer.NewLogMailer(app.logger.With("module", "mailer")), nil
	}
	return mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
	})
}

func (app *App) newArchiver(ctx context.Context) (archive.Archiver, error) {
	c := app.config
	if c.S3Bucket == "" {
		return archive.Nop{}, nil
	}
	return archive.NewS3Archiver(ctx, archive.Config{
		Bucket:         c.S3Bucket,
		Region:         c.S3Region,
		AccessKey:      c.S3RootUser,
		SecretKey:      c.S3RootPassword,
		BaseEndpoint:   c.S3BaseEndpoint,
		SealPassphrase: c.ArchiveSealPassphrase,
	})
}

// Close releases everything NewApp opened, newest first.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err.Error())
		}
	}
	app.closers = nil
}

// Run serves until SIGINT, SIGTERM or SIGQUIT, or until ctx is cancelled.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(gctx)
	})
	g.Go(func() error {
		return app.otp.RunPurger(gctx, app.db, otpPurgeInterval, otpPurgeRetention, app.logger.With("module", "otp_purger"))
	})

	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err.Error())
		return err
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}
