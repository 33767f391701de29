package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/access"
	"github.com/noah-isme/classhub-api/internal/dto"
	"github.com/noah-isme/classhub-api/internal/event"
	"github.com/noah-isme/classhub-api/internal/models"
	"github.com/noah-isme/classhub-api/internal/repository"
)

// ErrInvalidJoinCode indicates the code is malformed or matches no classroom.
var ErrInvalidJoinCode = errors.New("invalid join code")

// ErrClassroomInactive indicates the classroom no longer accepts joins.
var ErrClassroomInactive = errors.New("classroom is not accepting new members")

// ErrTeacherCannotJoin indicates a teacher tried to join a classroom as a student.
var ErrTeacherCannotJoin = errors.New("teachers cannot join classrooms as students")

// ErrMembershipNotFound indicates no membership exists for the pair.
var ErrMembershipNotFound = errors.New("membership not found")

// ErrHasSubmission indicates a student cannot leave while a submission exists.
var ErrHasSubmission = errors.New("cannot leave classroom: a project submission exists")

// MembershipService orchestrates joining and leaving classrooms.
type MembershipService interface {
	JoinByCode(ctx context.Context, actor models.User, payload dto.JoinClassroomRequest) (dto.MembershipResponse, error)
	Leave(ctx context.Context, actor models.User, classroomID uint) error
	ListMembers(ctx context.Context, actor models.User, classroomID uint) ([]dto.MembershipResponse, error)
}

type membershipService struct {
	memberships repository.MembershipRepository
	classrooms  repository.ClassroomRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	dispatcher  event.Dispatcher
	logger      zerolog.Logger
}

// NewMembershipService constructs a MembershipService instance.
func NewMembershipService(memberships repository.MembershipRepository, classrooms repository.ClassroomRepository, submissions repository.SubmissionRepository, validate *validator.Validate, dispatcher event.Dispatcher, logger zerolog.Logger) MembershipService {
	return &membershipService{
		memberships: memberships,
		classrooms:  classrooms,
		submissions: submissions,
		validator:   validate,
		dispatcher:  dispatcher,
		logger:      logger.With().Str("component", "membership_service").Logger(),
	}
}

func (s *membershipService) JoinByCode(ctx context.Context, actor models.User, payload dto.JoinClassroomRequest) (dto.MembershipResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MembershipResponse{}, err
	}

	if access.IsTeacher(actor) {
		return dto.MembershipResponse{}, ErrTeacherCannotJoin
	}

	code := models.NormalizeJoinCode(payload.Code)
	if !models.IsValidJoinCode(code) {
		return dto.MembershipResponse{}, ErrInvalidJoinCode
	}

	classroom, err := s.classrooms.GetByJoinCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MembershipResponse{}, ErrInvalidJoinCode
		}
		return dto.MembershipResponse{}, err
	}

	// Re-joining is a no-op success, consistent with the uniqueness invariant.
	if existing, err := s.memberships.Get(ctx, classroom.ID, actor.ID); err == nil {
		return dto.NewMembershipResponse(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.MembershipResponse{}, err
	}

	if !classroom.IsActive {
		return dto.MembershipResponse{}, ErrClassroomInactive
	}

	membership := models.ClassroomMembership{
		ClassroomID: classroom.ID,
		StudentID:   actor.ID,
	}
	if err := s.memberships.Create(ctx, &membership); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race against a concurrent join by the same student;
			// the row exists, which is exactly what we wanted.
			existing, getErr := s.memberships.Get(ctx, classroom.ID, actor.ID)
			if getErr != nil {
				return dto.MembershipResponse{}, getErr
			}
			return dto.NewMembershipResponse(existing), nil
		}
		return dto.MembershipResponse{}, err
	}

	created, err := s.memberships.Get(ctx, classroom.ID, actor.ID)
	if err != nil {
		return dto.MembershipResponse{}, err
	}

	s.logger.Info().Uint("classroom_id", classroom.ID).Uint("student_id", actor.ID).Msg("student joined classroom")

	s.dispatcher.Dispatch(ctx, event.MembershipCreated{
		MembershipID: created.ID,
		ClassroomID:  classroom.ID,
		StudentID:    actor.ID,
	})

	return dto.NewMembershipResponse(created), nil
}

func (s *membershipService) Leave(ctx context.Context, actor models.User, classroomID uint) error {
	membership, err := s.memberships.Get(ctx, classroomID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMembershipNotFound
		}
		return err
	}

	hasSubmission, err := s.submissions.ExistsForCreator(ctx, classroomID, actor.ID)
	if err != nil {
		return err
	}
	if hasSubmission {
		return ErrHasSubmission
	}

	if err := s.memberships.Delete(ctx, membership.ID); err != nil {
		return err
	}

	s.logger.Info().Uint("classroom_id", classroomID).Uint("student_id", actor.ID).Msg("student left classroom")

	return nil
}

func (s *membershipService) ListMembers(ctx context.Context, actor models.User, classroomID uint) ([]dto.MembershipResponse, error) {
	classroom, err := s.classrooms.GetByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassroomNotFound
		}
		return nil, err
	}

	allowed, err := access.CanAccessClassroom(ctx, s.memberships, actor, classroom)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrClassroomNotFound
	}

	memberships, err := s.memberships.ListByClassroom(ctx, classroomID)
	if err != nil {
		return nil, err
	}

	return dto.NewMembershipResponseSlice(memberships), nil
}
