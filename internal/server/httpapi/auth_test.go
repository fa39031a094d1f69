package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/xrayportal/internal/common"
	"github.com/dmitrijs2005/xrayportal/internal/logging"
	"github.com/dmitrijs2005/xrayportal/internal/server/models"
	"github.com/dmitrijs2005/xrayportal/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(us *fakeUsers, as *fakeAnalysis, opts Options) *HTTPServer {
	if as == nil {
		as = &fakeAnalysis{}
	}
	return NewHTTPServer(opts, logging.Nop(), us, as, fakePinger{})
}

func do(t *testing.T, s *HTTPServer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.SessionCookieName {
			return c
		}
	}
	return nil
}

func jsonReq(method, path, body string) *http.Request {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestRegister_Success(t *testing.T) {
	us := &fakeUsers{}
	s := newTestServer(us, nil, Options{})

	req := jsonReq(http.MethodPost, "/api/auth/register", `{"email":"a@b.c","password":"secret1","username":"alice"}`)
	req.Header.Set("User-Agent", "ua-1")
	rec := do(t, s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["requiresOTP"])
	assert.Equal(t, "a@b.c", body["email"])
	assert.Equal(t, "alice", us.lastRegister.UserName)
	assert.Equal(t, "ua-1", us.lastMeta.UserAgent)
	assert.NotEmpty(t, us.lastMeta.IPAddress)
	assert.Nil(t, sessionCookie(rec))
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"duplicate", common.ErrDuplicateIdentity, http.StatusBadRequest, "Email or username already exists"},
		{"validation", errors.Join(common.ErrInvalidInput), http.StatusBadRequest, "Invalid input"},
		{"delivery", common.ErrDeliveryFailed, http.StatusInternalServerError, "Failed to send verification email"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "An error occurred during registration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeUsers{registerErr: tt.err}, nil, Options{})
			rec := do(t, s, jsonReq(http.MethodPost, "/api/auth/register", `{"email":"a@b.c","password":"secret1","username":"u"}`))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decodeBody(t, rec)["error"])
		})
	}
}

func TestRegister_BadBody(t *testing.T) {
	s := newTestServer(&fakeUsers{}, nil, Options{})
	rec := do(t, s, jsonReq(http.MethodPost, "/api/auth/register", `{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeBody(t, rec)["error"])
}

func TestVerifyOTP_SetsCookie(t *testing.T) {
	us := &fakeUsers{verifyOut: &services.Session{Token: "tok-1"}}
	s := newTestServer(us, nil, Options{SecureCookies: true})

	rec := do(t, s, jsonReq(http.MethodPost, "/api/auth/verify-otp", `{"email":"a@b.c","otp":"123456"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email verified successfully", decodeBody(t, rec)["message"])

	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.Equal(t, "tok-1", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 86400, c.MaxAge)
}

func TestVerifyOTP_Invalid(t *testing.T) {
	s := newTestServer(&fakeUsers{verifyErr: common.ErrInvalidOrExpired}, nil, Options{})

	rec := do(t, s, jsonReq(http.MethodPost, "/api/auth/verify-otp", `{"email":"a@b.c","otp":"000000"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired verification code", decodeBody(t, rec)["error"])
	assert.Nil(t, sessionCookie(rec))
}

func TestLogin_Success(t *testing.T) {
	us := &fakeUsers{loginOut: &services.Session{Token: "tok-2", User: models.PublicUser{ID: 3, UserName: "carol", Email: "c@x.y"}}}
	s := newTestServer(us, nil, Options{})

	rec := do(t, s, jsonReq(http.MethodPost, "/api/auth/login", `{"email":"c@x.y","password":"secret1"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]any)
	assert.EqualValues(t, 3, user["id"])
	assert.Equal(t, "carol", user["username"])
	assert.Equal(t, "c@x.y", user["email"])

	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.Equal(t, "tok-2", c.Value)
	assert.False(t, c.Secure)
	assert.Equal(t, 86400, c.MaxAge)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(&fakeUsers{loginErr: common.ErrInvalidCredentials}, nil, Options{})

	rec := do(t, s, jsonReq(http.MethodPost, "/api/auth/login", `{"email":"c@x.y","password":"nope"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["error"])
}

func TestLogout_ClearsCookie(t *testing.T) {
	us := &fakeUsers{}
	s := newTestServer(us, nil, Options{})

	req := jsonReq(http.MethodPost, "/api/auth/logout", "")
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: validToken})
	rec := do(t, s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", decodeBody(t, rec)["message"])
	assert.Equal(t, validToken, us.logoutToken)

	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestLogout_ErrorStillClearsCookie(t *testing.T) {
	s := newTestServer(&fakeUsers{logoutErr: errors.New("redis down")}, nil, Options{})

	rec := do(t, s, jsonReq(http.MethodPost, "/api/auth/logout", ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, sessionCookie(rec))
}

func TestCurrentUser(t *testing.T) {
	us := &fakeUsers{current: &models.PublicUser{ID: 7, UserName: "alice", Email: "alice@example.com"}}
	s := newTestServer(us, nil, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: validToken})
	rec := do(t, s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
}

func TestCurrentUser_Unauthenticated(t *testing.T) {
	s := newTestServer(&fakeUsers{}, nil, Options{})

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", decodeBody(t, rec)["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: "forged"})
	rec = do(t, s, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", decodeBody(t, rec)["error"])
}

func TestCurrentUser_NotFound(t *testing.T) {
	s := newTestServer(&fakeUsers{currentErr: common.ErrorNotFound}, nil, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: validToken})
	rec := do(t, s, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["error"])
}

func TestAPI_UnknownRoute(t *testing.T) {
	s := newTestServer(&fakeUsers{}, nil, Options{})
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
