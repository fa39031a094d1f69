package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/common"
	"github.com/dmitrijs2005/xrayportal/internal/server/auth"
	"github.com/dmitrijs2005/xrayportal/internal/server/models"
	"github.com/dmitrijs2005/xrayportal/internal/server/services"
)

const validToken = "valid-token"

type fakeUsers struct {
	registerErr error
	lastRegister services.RegisterInput
	lastMeta     services.RequestMeta

	verifyOut *services.Session
	verifyErr error

	loginOut *services.Session
	loginErr error

	logoutErr   error
	logoutToken string

	authErr error

	current    *models.PublicUser
	currentErr error
}

func (f *fakeUsers) Register(ctx context.Context, in services.RegisterInput, meta services.RequestMeta) error {
	f.lastRegister = in
	f.lastMeta = meta
	return f.registerErr
}

func (f *fakeUsers) VerifyOTP(ctx context.Context, email, code string, meta services.RequestMeta) (*services.Session, error) {
	return f.verifyOut, f.verifyErr
}

func (f *fakeUsers) Login(ctx context.Context, email, password string, meta services.RequestMeta) (*services.Session, error) {
	return f.loginOut, f.loginErr
}

func (f *fakeUsers) Logout(ctx context.Context, token string, meta services.RequestMeta) error {
	f.logoutToken = token
	return f.logoutErr
}

func (f *fakeUsers) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == validToken {
		return &auth.Claims{UserID: 7, Email: "alice@example.com"}, nil
	}
	if f.authErr != nil {
		return nil, f.authErr
	}
	return nil, common.ErrInvalidToken
}

func (f *fakeUsers) CurrentUser(ctx context.Context, userID int64) (*models.PublicUser, error) {
	return f.current, f.currentErr
}

func (f *fakeUsers) SessionValidity() time.Duration { return 24 * time.Hour }

type fakeAnalysis struct {
	out    string
	err    error
	calls  int
	gotLen int
	userID int64
}

func (f *fakeAnalysis) Analyze(ctx context.Context, userID int64, data []byte) (string, error) {
	f.calls++
	f.gotLen = len(data)
	f.userID = userID
	return f.out, f.err
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }
