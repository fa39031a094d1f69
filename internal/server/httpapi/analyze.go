package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/xrayportal/internal/common"
)

const imageField = "image"

type analysisResponse struct {
	Analysis string `json:"analysis"`
}

func (s *HTTPServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !s.opts.VisionConfigured {
		s.logger.Error(r.Context(), "vision api key is not configured")
		writeError(w, common.ErrConfiguration, "")
		return
	}

	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthenticated, "")
		return
	}

	data, err := s.readImage(w, r)
	if err != nil {
		s.logError(r, "upload rejected", err)
		writeError(w, err, "Error processing image")
		return
	}

	report, err := s.analysis.Analyze(r.Context(), claims.UserID, data)
	if err != nil {
		s.logError(r, "analysis failed", err)
		writeError(w, err, "Error processing image")
		return
	}

	writeJSON(w, http.StatusOK, analysisResponse{Analysis: report})
}

// readImage reads the multipart image field, refusing bodies larger than
// the upload limit plus room for multipart framing.
func (s *HTTPServer) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.opts.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)

	if err := r.ParseMultipartForm(limit); err != nil {
		if isBodyTooLarge(err) {
			return nil, common.ErrImageTooLarge
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, common.ErrNoImage
		}
		return nil, err
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, common.ErrNoImage
		}
		return nil, err
	}
	defer file.Close()

	if header.Size > limit {
		return nil, common.ErrImageTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, common.ErrImageTooLarge
		}
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, common.ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, common.ErrNoImage
	}
	return data, nil
}

// isBodyTooLarge matches MaxBytesReader overflow, also when the multipart
// reader flattened the error to text.
func isBodyTooLarge(err error) bool {
	var tooBig *http.MaxBytesError
	return errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large")
}
