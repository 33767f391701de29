package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/classhub-api/internal/dto"
	"github.com/noah-isme/classhub-api/internal/models"
	"github.com/noah-isme/classhub-api/internal/repository"
)

// ActivityService exposes the audit trail of notable platform actions.
type ActivityService interface {
	Recent(ctx context.Context, actor models.User, limit int) ([]dto.ActivityResponse, error)
}

type activityService struct {
	activity repository.ActivityLogRepository
	logger   zerolog.Logger
}

// NewActivityService constructs an ActivityService instance.
func NewActivityService(activity repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		activity: activity,
		logger:   logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Recent(ctx context.Context, actor models.User, limit int) ([]dto.ActivityResponse, error) {
	if !actor.IsTeacher() {
		return nil, ErrTeacherRequired
	}

	entries, err := s.activity.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	return dto.NewActivityResponseSlice(entries), nil
}
