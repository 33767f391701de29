package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/access"
	"github.com/noah-isme/classhub-api/internal/dto"
	"github.com/noah-isme/classhub-api/internal/event"
	"github.com/noah-isme/classhub-api/internal/models"
	"github.com/noah-isme/classhub-api/internal/repository"
)

// ErrGradeOutOfRange indicates a score outside the 1..20 scale.
var ErrGradeOutOfRange = errors.New("grade must be between 1 and 20")

// ErrNotSubmitted indicates grading was attempted on a draft.
var ErrNotSubmitted = errors.New("only submitted projects can be graded")

// GradingService encapsulates the teacher grading workflow.
type GradingService interface {
	Grade(ctx context.Context, actor models.User, submissionID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	activity    repository.ActivityLogRepository
	validator   *validator.Validate
	dispatcher  event.Dispatcher
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradingService constructs a GradingService instance.
func NewGradingService(submissions repository.SubmissionRepository, activity repository.ActivityLogRepository, validate *validator.Validate, dispatcher event.Dispatcher, logger zerolog.Logger) GradingService {
	return &gradingService{
		submissions: submissions,
		activity:    activity,
		validator:   validate,
		dispatcher:  dispatcher,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, actor models.User, submissionID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/classhub-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.grade")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	if !models.IsValidGrade(payload.Score) {
		span.SetStatus(codes.Error, "grade_out_of_range")
		return dto.SubmissionResponse{}, ErrGradeOutOfRange
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if !access.IsClassroomTeacher(actor, submission.Classroom) {
		span.SetStatus(codes.Error, "not_classroom_teacher")
		return dto.SubmissionResponse{}, ErrNotClassroomTeacher
	}

	if submission.Status != models.SubmissionStatusSubmitted {
		span.SetStatus(codes.Error, "not_submitted")
		return dto.SubmissionResponse{}, ErrNotSubmitted
	}

	notes := strings.TrimSpace(s.sanitizer.Sanitize(payload.Notes))

	// Compare the prior persisted grade against the new value; the event is
	// tied to the value changing, not to the grade having been null before.
	previousGrade := submission.Grade
	gradeChanged := previousGrade == nil || *previousGrade != payload.Score

	score := payload.Score
	submission.Grade = &score
	submission.TeacherNotes = notes

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	history := models.SubmissionGradeHistory{
		SubmissionID: submission.ID,
		Score:        payload.Score,
		Notes:        notes,
		GradedBy:     actor.ID,
		GradedAt:     s.now(),
	}
	if err := s.submissions.CreateGradeHistory(ctx, &history); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to persist grade history")
	}

	if s.activity != nil {
		entityID := submission.ID
		entry := models.ActivityLog{
			ActorID:    actor.ID,
			ActorRole:  string(actor.Role),
			Action:     "submission.graded",
			EntityType: "submission",
			EntityID:   &entityID,
			Metadata: datatypes.JSONMap{
				"classroom_id": submission.ClassroomID,
				"student_id":   submission.CreatedByID,
				"score":        payload.Score,
			},
		}
		if err := s.activity.Create(ctx, &entry); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record grading activity")
		}
	}

	if gradeChanged {
		s.dispatcher.Dispatch(ctx, event.SubmissionGraded{
			SubmissionID:  submission.ID,
			Score:         payload.Score,
			PreviousScore: previousGrade,
		})
	}

	span.SetAttributes(
		attribute.Int("grading.score", payload.Score),
		attribute.Bool("grading.changed", gradeChanged),
	)

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Int("score", payload.Score).
		Bool("grade_changed", gradeChanged).
		Msg("submission graded")

	return dto.NewSubmissionResponse(submission), nil
}
