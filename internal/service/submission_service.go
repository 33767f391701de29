package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/access"
	"github.com/noah-isme/classhub-api/internal/dto"
	"github.com/noah-isme/classhub-api/internal/event"
	"github.com/noah-isme/classhub-api/internal/models"
	"github.com/noah-isme/classhub-api/internal/repository"
)

// ErrSubmissionNotFound indicates a submission could not be found or the
// actor may not see it. Unauthorized viewers are told "not found" rather
// than having the submission's existence confirmed.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrDuplicateSubmission indicates the student already has a submission in the classroom.
var ErrDuplicateSubmission = errors.New("a submission already exists for this classroom")

// ErrNotClassroomMember indicates the actor is not a member of the classroom.
var ErrNotClassroomMember = errors.New("you must be a member of this classroom")

// ErrSubmissionLocked indicates the submission was already submitted and is
// read-only to its creator.
var ErrSubmissionLocked = errors.New("submission can no longer be edited")

// ErrNotSubmissionCreator indicates only the creator may perform the operation.
var ErrNotSubmissionCreator = errors.New("only the submission creator may perform this action")

// ErrCollaboratorNotMember indicates a proposed collaborator does not belong
// to the submission's classroom.
var ErrCollaboratorNotMember = errors.New("all collaborators must be members of the classroom")

// ErrCollaboratorIsCreator indicates the creator was listed as a collaborator.
var ErrCollaboratorIsCreator = errors.New("the creator cannot be added as a collaborator")

// ErrInvalidRepositoryURL indicates the repository URL is not a GitHub/GitLab link.
var ErrInvalidRepositoryURL = errors.New("repository url must point to a github or gitlab repository")

// SubmissionService orchestrates the draft/submit lifecycle.
type SubmissionService interface {
	Create(ctx context.Context, actor models.User, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Update(ctx context.Context, actor models.User, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error)
	SetCollaborators(ctx context.Context, actor models.User, id uint, payload dto.CollaboratorsRequest) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, actor models.User, id uint) (dto.SubmissionResponse, error)
	Get(ctx context.Context, actor models.User, id uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, actor models.User, filter dto.SubmissionFilter) (dto.SubmissionListResponse, error)
	Delete(ctx context.Context, actor models.User, id uint) error
}

type submissionService struct {
	submissions repository.SubmissionRepository
	memberships repository.MembershipRepository
	users       repository.UserRepository
	validator   *validator.Validate
	dispatcher  event.Dispatcher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(submissions repository.SubmissionRepository, memberships repository.MembershipRepository, users repository.UserRepository, validate *validator.Validate, dispatcher event.Dispatcher, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: submissions,
		memberships: memberships,
		users:       users,
		validator:   validate,
		dispatcher:  dispatcher,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Create(ctx context.Context, actor models.User, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if !models.IsValidRepositoryURL(payload.RepositoryURL) {
		return dto.SubmissionResponse{}, ErrInvalidRepositoryURL
	}

	isMember, err := s.memberships.IsMember(ctx, payload.ClassroomID, actor.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !isMember {
		return dto.SubmissionResponse{}, ErrNotClassroomMember
	}

	exists, err := s.submissions.ExistsForCreator(ctx, payload.ClassroomID, actor.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if exists {
		return dto.SubmissionResponse{}, ErrDuplicateSubmission
	}

	submission := models.ProjectSubmission{
		ClassroomID:   payload.ClassroomID,
		CreatedByID:   actor.ID,
		Title:         payload.Title,
		Description:   payload.Description,
		RepositoryURL: payload.RepositoryURL,
		DeployedURL:   payload.DeployedURL,
		Status:        models.SubmissionStatusDraft,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// The composite unique index caught a concurrent duplicate.
			return dto.SubmissionResponse{}, ErrDuplicateSubmission
		}
		return dto.SubmissionResponse{}, err
	}

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", created.ID).Uint("classroom_id", created.ClassroomID).Msg("draft submission created")

	return dto.NewSubmissionResponse(created), nil
}

func (s *submissionService) Update(ctx context.Context, actor models.User, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.getEditable(ctx, actor, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if payload.RepositoryURL != nil && !models.IsValidRepositoryURL(*payload.RepositoryURL) {
		return dto.SubmissionResponse{}, ErrInvalidRepositoryURL
	}

	if payload.Title != nil {
		submission.Title = *payload.Title
	}
	if payload.Description != nil {
		submission.Description = *payload.Description
	}
	if payload.RepositoryURL != nil {
		submission.RepositoryURL = *payload.RepositoryURL
	}
	if payload.DeployedURL != nil {
		submission.DeployedURL = *payload.DeployedURL
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) SetCollaborators(ctx context.Context, actor models.User, id uint, payload dto.CollaboratorsRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.getEditable(ctx, actor, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	// Membership is checked at the moment of mutation; a stale roster from
	// draft creation time is not good enough.
	memberIDs, err := s.memberships.MemberIDs(ctx, submission.ClassroomID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	seen := make(map[uint]struct{}, len(payload.CollaboratorIDs))
	collaborators := make([]models.User, 0, len(payload.CollaboratorIDs))
	for _, collaboratorID := range payload.CollaboratorIDs {
		if collaboratorID == submission.CreatedByID {
			return dto.SubmissionResponse{}, ErrCollaboratorIsCreator
		}
		if _, ok := memberIDs[collaboratorID]; !ok {
			return dto.SubmissionResponse{}, ErrCollaboratorNotMember
		}
		if _, dup := seen[collaboratorID]; dup {
			continue
		}
		seen[collaboratorID] = struct{}{}

		user, err := s.users.GetByID(ctx, collaboratorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.SubmissionResponse{}, ErrCollaboratorNotMember
			}
			return dto.SubmissionResponse{}, err
		}
		collaborators = append(collaborators, user)
	}

	// All collaborators validated; the replacement is committed as a whole.
	if err := s.submissions.ReplaceCollaborators(ctx, &submission, collaborators); err != nil {
		return dto.SubmissionResponse{}, err
	}

	updated, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(updated), nil
}

func (s *submissionService) Submit(ctx context.Context, actor models.User, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if submission.CreatedByID != actor.ID {
		return dto.SubmissionResponse{}, ErrNotSubmissionCreator
	}
	if submission.Status != models.SubmissionStatusDraft {
		return dto.SubmissionResponse{}, ErrSubmissionLocked
	}

	submission.Status = models.SubmissionStatusSubmitted
	if submission.SubmittedAt == nil {
		submittedAt := s.now()
		submission.SubmittedAt = &submittedAt
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submission.ID).Msg("submission handed in")

	// The event fires strictly after the status write has been committed.
	s.dispatcher.Dispatch(ctx, event.SubmissionSubmitted{SubmissionID: submission.ID})

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Get(ctx context.Context, actor models.User, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) List(ctx context.Context, actor models.User, filter dto.SubmissionFilter) (dto.SubmissionListResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return dto.SubmissionListResponse{}, err
	}

	repoFilter := repository.SubmissionFilter{
		ClassroomID: filter.ClassroomID,
		CreatedByID: filter.StudentID,
		Status:      filter.Status,
		GradeMin:    filter.GradeMin,
		GradeMax:    filter.GradeMax,
		Search:      filter.Search,
		Page:        filter.Page,
		PageSize:    filter.PageSize,
		VisibleToID: &actor.ID,
	}

	submissions, total, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	return dto.SubmissionListResponse{
		Submissions: dto.NewSubmissionResponseSlice(submissions),
		Total:       total,
	}, nil
}

func (s *submissionService) Delete(ctx context.Context, actor models.User, id uint) error {
	submission, err := s.getEditable(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.submissions.Delete(ctx, submission.ID); err != nil {
		return err
	}

	s.logger.Info().Uint("submission_id", id).Msg("draft submission deleted")

	return nil
}

// getVisible loads a submission and enforces the visibility rule: the
// classroom teacher, the creator, and current collaborators see it; everyone
// else gets not-found.
func (s *submissionService) getVisible(ctx context.Context, actor models.User, id uint) (models.ProjectSubmission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ProjectSubmission{}, ErrSubmissionNotFound
		}
		return models.ProjectSubmission{}, err
	}

	if !access.CanViewSubmission(submission, actor) {
		return models.ProjectSubmission{}, ErrSubmissionNotFound
	}

	return submission, nil
}

// getEditable loads a visible submission and enforces the edit rule: only
// the creator, only while the submission is a draft.
func (s *submissionService) getEditable(ctx context.Context, actor models.User, id uint) (models.ProjectSubmission, error) {
	submission, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return models.ProjectSubmission{}, err
	}

	if submission.CreatedByID != actor.ID {
		return models.ProjectSubmission{}, ErrNotSubmissionCreator
	}
	if !access.CanEditSubmission(submission, actor) {
		return models.ProjectSubmission{}, ErrSubmissionLocked
	}

	return submission, nil
}
