package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/xrayportal/internal/common"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps err to a status and user-facing message. Unknown errors
// become 500 with fallback.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status, msg := statusFor(err, fallback)
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), common.ErrInvalidInput.Error()+": ")
		return http.StatusBadRequest, upperFirst(msg)
	case errors.Is(err, common.ErrDuplicateIdentity):
		return http.StatusBadRequest, "Email or username already exists"
	case errors.Is(err, common.ErrInvalidOrExpired):
		return http.StatusBadRequest, "Invalid or expired verification code"
	case errors.Is(err, common.ErrDeliveryFailed):
		return http.StatusInternalServerError, "Failed to send verification email"
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, common.ErrInvalidSession),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, common.ErrNoImage):
		return http.StatusBadRequest, "No image provided"
	case errors.Is(err, common.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, "Image is too large"
	case errors.Is(err, common.ErrNotMedicalImage):
		return http.StatusBadRequest, "Sorry, the uploaded image is not an X-ray or CT scan. Please upload a valid medical imaging scan."
	case errors.Is(err, common.ErrNoContent):
		return http.StatusInternalServerError, "No analysis content received from API"
	case errors.Is(err, common.ErrUpstreamFailure):
		return http.StatusInternalServerError, "Error calling vision API"
	case errors.Is(err, common.ErrConfiguration):
		return http.StatusInternalServerError, "API configuration error"
	}
	return http.StatusInternalServerError, fallback
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
