package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/xrayportal/internal/common"
	"github.com/dmitrijs2005/xrayportal/internal/server/models"
	"github.com/dmitrijs2005/xrayportal/internal/server/services"
)

const maxJSONBody = 1 << 20

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type registerResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RequiresOTP bool   `json:"requiresOTP"`
	Email       string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type loginResponse struct {
	Success bool              `json:"success"`
	User    models.PublicUser `json:"user"`
}

type userResponse struct {
	User *models.PublicUser `json:"user"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", common.ErrInvalidInput)
	}
	return nil
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	err := s.users.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		UserName: req.Username,
	}, requestMeta(r))
	if err != nil {
		s.logError(r, "registration failed", err)
		writeError(w, err, "An error occurred during registration")
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		Success:     true,
		Message:     "Please check your email for verification code",
		RequiresOTP: true,
		Email:       req.Email,
	})
}

func (s *HTTPServer) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	sess, err := s.users.VerifyOTP(r.Context(), req.Email, req.OTP, requestMeta(r))
	if err != nil {
		s.logError(r, "otp verification failed", err)
		writeError(w, err, "An error occurred during verification")
		return
	}

	s.setSessionCookie(w, sess.Token)
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Email verified successfully"})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	sess, err := s.users.Login(r.Context(), req.Email, req.Password, requestMeta(r))
	if err != nil {
		s.logError(r, "login failed", err)
		writeError(w, err, "An error occurred during login")
		return
	}

	s.setSessionCookie(w, sess.Token)
	writeJSON(w, http.StatusOK, loginResponse{Success: true, User: sess.User})
}

// handleLogout always clears the cookie, even when revocation fails.
func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := s.users.Logout(r.Context(), sessionToken(r), requestMeta(r))
	s.clearSessionCookie(w)
	if err != nil {
		s.logError(r, "logout failed", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "An error occurred during logout"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}

func (s *HTTPServer) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthenticated, "")
		return
	}

	u, err := s.users.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		s.logError(r, "current user lookup failed", err)
		writeError(w, err, "Error fetching user data")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: u})
}

func (s *HTTPServer) logError(r *http.Request, msg string, err error) {
	status, _ := statusFor(err, "")
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), msg, "error", err.Error())
		return
	}
	s.logger.Info(r.Context(), msg, "error", err.Error())
}
