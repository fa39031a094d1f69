package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/xrayportal/internal/common"
	"github.com/dmitrijs2005/xrayportal/internal/logging"
	"github.com/dmitrijs2005/xrayportal/internal/server/archive"
	"github.com/dmitrijs2005/xrayportal/internal/server/vision"
)

// VisionModel is the part of the vision client the pipeline needs.
type VisionModel interface {
	IsMedicalImage(ctx context.Context, img vision.Image) (bool, error)
	Analyze(ctx context.Context, img vision.Image) (string, error)
}

// AnalysisService runs the two-step pipeline: a yes/no classification gate,
// then the report request for images that pass it.
type AnalysisService struct {
	model    VisionModel
	archiver archive.Archiver
	logger   logging.Logger
}

func NewAnalysisService(model VisionModel, archiver archive.Archiver, logger logging.Logger) *AnalysisService {
	if archiver == nil {
		archiver = archive.Nop{}
	}
	return &AnalysisService{model: model, archiver: archiver, logger: logger}
}

// Analyze returns the sanitized report for data. Non-medical images fail
// with common.ErrNotMedicalImage and never reach the report step.
func (s *AnalysisService) Analyze(ctx context.Context, userID int64, data []byte) (string, error) {
	if len(data) == 0 {
		return "", common.ErrNoImage
	}

	img := vision.Image{Data: data, ContentType: http.DetectContentType(data)}

	ok, err := s.model.IsMedicalImage(ctx, img)
	if err != nil {
		return "", fmt.Errorf("classification: %w", err)
	}
	if !ok {
		s.logger.Info(ctx, "image rejected by classification gate", "user_id", userID)
		return "", common.ErrNotMedicalImage
	}

	report, err := s.model.Analyze(ctx, img)
	if err != nil {
		return "", fmt.Errorf("analysis: %w", err)
	}

	if key, err := s.archiver.Store(ctx, userID, data, img.ContentType, report); err != nil {
		s.logger.Warn(ctx, "scan archive failed", "user_id", userID, "error", err.Error())
	} else if key != "" {
		s.logger.Debug(ctx, "scan archived", "user_id", userID, "key", key)
	}

	return report, nil
}
