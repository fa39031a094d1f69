// Package httpapi exposes the portal over HTTP: the JSON auth and analysis
// API, the page access gate and the static front-end.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/logging"
	"github.com/dmitrijs2005/xrayportal/internal/server/auth"
	"github.com/dmitrijs2005/xrayportal/internal/server/models"
	"github.com/dmitrijs2005/xrayportal/internal/server/services"
)

// UserService is the account API used by the handlers.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput, meta services.RequestMeta) error
	VerifyOTP(ctx context.Context, email, code string, meta services.RequestMeta) (*services.Session, error)
	Login(ctx context.Context, email, password string, meta services.RequestMeta) (*services.Session, error)
	Logout(ctx context.Context, token string, meta services.RequestMeta) error
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
	CurrentUser(ctx context.Context, userID int64) (*models.PublicUser, error)
	SessionValidity() time.Duration
}

// AnalysisService runs the image pipeline.
type AnalysisService interface {
	Analyze(ctx context.Context, userID int64, data []byte) (string, error)
}

// Pinger reports database liveness for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	Address          string
	SecureCookies    bool
	MaxUploadBytes   int64
	AllowedOrigins   []string
	WebRoot          string
	VisionConfigured bool
	ShutdownTimeout  time.Duration
}

type HTTPServer struct {
	opts     Options
	users    UserService
	analysis AnalysisService
	db       Pinger
	logger   logging.Logger
}

func NewHTTPServer(opts Options, l logging.Logger, us UserService, as AnalysisService, db Pinger) *HTTPServer {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	return &HTTPServer{
		opts:     opts,
		users:    us,
		analysis: as,
		db:       db,
		logger:   l.With("module", "http_server"),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to the shutdown timeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}
