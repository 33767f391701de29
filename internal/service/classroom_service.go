package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/access"
	"github.com/noah-isme/classhub-api/internal/dto"
	"github.com/noah-isme/classhub-api/internal/models"
	"github.com/noah-isme/classhub-api/internal/repository"
)

// ErrClassroomNotFound indicates a classroom could not be found.
var ErrClassroomNotFound = errors.New("classroom not found")

// ErrNotClassroomTeacher indicates the actor does not own the classroom.
var ErrNotClassroomTeacher = errors.New("only the classroom teacher may perform this action")

// ErrTeacherRequired indicates the operation is reserved for teachers.
var ErrTeacherRequired = errors.New("teacher role required")

// ErrRequirementsFileType indicates an unsupported requirements document type.
var ErrRequirementsFileType = errors.New("unsupported requirements file type")

// joinCodeAttempts bounds the collision retry loop at creation time.
const joinCodeAttempts = 5

// FileUploader abstracts requirements-document storage.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ClassroomService orchestrates classroom workflows.
type ClassroomService interface {
	Create(ctx context.Context, actor models.User, payload dto.ClassroomCreateRequest) (dto.ClassroomResponse, error)
	Update(ctx context.Context, actor models.User, id uint, payload dto.ClassroomUpdateRequest) (dto.ClassroomResponse, error)
	Delete(ctx context.Context, actor models.User, id uint) error
	Get(ctx context.Context, actor models.User, id uint) (dto.ClassroomResponse, error)
	List(ctx context.Context, actor models.User, filter dto.ClassroomFilter) (dto.ClassroomListResponse, error)
	RegenerateJoinCode(ctx context.Context, actor models.User, id uint) (dto.ClassroomResponse, error)
	UploadRequirements(ctx context.Context, actor models.User, id uint, file *multipart.FileHeader) (dto.ClassroomResponse, error)
	Stats(ctx context.Context, actor models.User, id uint) (dto.ClassroomStatsResponse, error)
}

type classroomService struct {
	classrooms  repository.ClassroomRepository
	memberships repository.MembershipRepository
	validator   *validator.Validate
	uploader    FileUploader
	cache       *redis.Client
	cacheTTL    time.Duration
	maxUpload   int64
	logger      zerolog.Logger
}

// NewClassroomService constructs a ClassroomService instance. The redis
// client is optional; without it stats are computed on every call.
func NewClassroomService(classrooms repository.ClassroomRepository, memberships repository.MembershipRepository, validate *validator.Validate, uploader FileUploader, cache *redis.Client, cacheTTL time.Duration, maxUploadMB int, logger zerolog.Logger) ClassroomService {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &classroomService{
		classrooms:  classrooms,
		memberships: memberships,
		validator:   validate,
		uploader:    uploader,
		cache:       cache,
		cacheTTL:    cacheTTL,
		maxUpload:   int64(maxUploadMB) * 1024 * 1024,
		logger:      logger.With().Str("component", "classroom_service").Logger(),
	}
}

func (s *classroomService) Create(ctx context.Context, actor models.User, payload dto.ClassroomCreateRequest) (dto.ClassroomResponse, error) {
	if !access.IsTeacher(actor) {
		return dto.ClassroomResponse{}, ErrTeacherRequired
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassroomResponse{}, err
	}

	classroom := models.Classroom{
		Title:       payload.Title,
		Description: payload.Description,
		Subject:     payload.Subject,
		TeacherID:   actor.ID,
		IsActive:    true,
	}

	// The join code is unique by constraint; regenerate on the rare collision.
	var err error
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		classroom.JoinCode = models.GenerateJoinCode()
		err = s.classrooms.Create(ctx, &classroom)
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return dto.ClassroomResponse{}, err
	}

	created, err := s.classrooms.GetByID(ctx, classroom.ID)
	if err != nil {
		return dto.ClassroomResponse{}, err
	}

	s.logger.Info().Uint("classroom_id", created.ID).Str("join_code", created.JoinCode).Msg("classroom created")

	return dto.NewClassroomResponse(created, true), nil
}

func (s *classroomService) Update(ctx context.Context, actor models.User, id uint, payload dto.ClassroomUpdateRequest) (dto.ClassroomResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassroomResponse{}, err
	}

	classroom, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return dto.ClassroomResponse{}, err
	}

	if payload.Title != nil {
		classroom.Title = *payload.Title
	}
	if payload.Description != nil {
		classroom.Description = *payload.Description
	}
	if payload.Subject != nil {
		classroom.Subject = *payload.Subject
	}
	if payload.IsActive != nil {
		classroom.IsActive = *payload.IsActive
	}

	if err := s.classrooms.Update(ctx, &classroom); err != nil {
		return dto.ClassroomResponse{}, err
	}

	return dto.NewClassroomResponse(classroom, true), nil
}

func (s *classroomService) Delete(ctx context.Context, actor models.User, id uint) error {
	if _, err := s.getOwned(ctx, actor, id); err != nil {
		return err
	}

	if err := s.classrooms.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateStats(ctx, id)
	s.logger.Info().Uint("classroom_id", id).Msg("classroom deleted")

	return nil
}

func (s *classroomService) Get(ctx context.Context, actor models.User, id uint) (dto.ClassroomResponse, error) {
	classroom, err := s.classrooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassroomResponse{}, ErrClassroomNotFound
		}
		return dto.ClassroomResponse{}, err
	}

	allowed, err := access.CanAccessClassroom(ctx, s.memberships, actor, classroom)
	if err != nil {
		return dto.ClassroomResponse{}, err
	}
	if !allowed {
		return dto.ClassroomResponse{}, ErrClassroomNotFound
	}

	return dto.NewClassroomResponse(classroom, access.IsClassroomTeacher(actor, classroom)), nil
}

func (s *classroomService) List(ctx context.Context, actor models.User, filter dto.ClassroomFilter) (dto.ClassroomListResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return dto.ClassroomListResponse{}, err
	}

	repoFilter := repository.ClassroomFilter{
		Search:   filter.Search,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if access.IsTeacher(actor) {
		repoFilter.TeacherID = &actor.ID
	} else {
		repoFilter.StudentID = &actor.ID
	}

	classrooms, total, err := s.classrooms.List(ctx, repoFilter)
	if err != nil {
		return dto.ClassroomListResponse{}, err
	}

	responses := make([]dto.ClassroomResponse, 0, len(classrooms))
	for _, classroom := range classrooms {
		responses = append(responses, dto.NewClassroomResponse(classroom, access.IsClassroomTeacher(actor, classroom)))
	}

	return dto.ClassroomListResponse{Classrooms: responses, Total: total}, nil
}

func (s *classroomService) RegenerateJoinCode(ctx context.Context, actor models.User, id uint) (dto.ClassroomResponse, error) {
	classroom, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return dto.ClassroomResponse{}, err
	}

	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		classroom.JoinCode = models.GenerateJoinCode()
		err = s.classrooms.Update(ctx, &classroom)
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return dto.ClassroomResponse{}, err
	}

	s.logger.Info().Uint("classroom_id", id).Msg("join code regenerated")

	return dto.NewClassroomResponse(classroom, true), nil
}

func (s *classroomService) UploadRequirements(ctx context.Context, actor models.User, id uint, file *multipart.FileHeader) (dto.ClassroomResponse, error) {
	classroom, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return dto.ClassroomResponse{}, err
	}

	if file == nil {
		return dto.ClassroomResponse{}, fmt.Errorf("requirements file is required")
	}
	if file.Size > s.maxUpload {
		return dto.ClassroomResponse{}, fmt.Errorf("requirements file exceeds %d bytes", s.maxUpload)
	}

	if err := validateRequirementsType(file); err != nil {
		return dto.ClassroomResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.ClassroomResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	url, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.ClassroomResponse{}, fmt.Errorf("failed to upload requirements file: %w", err)
	}

	classroom.RequirementsURL = url
	if err := s.classrooms.Update(ctx, &classroom); err != nil {
		return dto.ClassroomResponse{}, err
	}

	s.logger.Info().Uint("classroom_id", id).Msg("requirements document uploaded")

	return dto.NewClassroomResponse(classroom, true), nil
}

func (s *classroomService) Stats(ctx context.Context, actor models.User, id uint) (dto.ClassroomStatsResponse, error) {
	classroom, err := s.classrooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassroomStatsResponse{}, ErrClassroomNotFound
		}
		return dto.ClassroomStatsResponse{}, err
	}

	allowed, err := access.CanAccessClassroom(ctx, s.memberships, actor, classroom)
	if err != nil {
		return dto.ClassroomStatsResponse{}, err
	}
	if !allowed {
		return dto.ClassroomStatsResponse{}, ErrClassroomNotFound
	}

	cacheKey := fmt.Sprintf("classhub:stats:%d", id)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ClassroomStatsResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				return response, nil
			}
		}
	}

	stats, err := s.classrooms.Stats(ctx, id)
	if err != nil {
		return dto.ClassroomStatsResponse{}, err
	}

	response := dto.NewClassroomStatsResponse(stats)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache classroom stats")
			}
		}
	}

	return response, nil
}

func (s *classroomService) getOwned(ctx context.Context, actor models.User, id uint) (models.Classroom, error) {
	classroom, err := s.classrooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Classroom{}, ErrClassroomNotFound
		}
		return models.Classroom{}, err
	}

	if !access.IsClassroomTeacher(actor, classroom) {
		return models.Classroom{}, ErrNotClassroomTeacher
	}

	return classroom, nil
}

func (s *classroomService) invalidateStats(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, fmt.Sprintf("classhub:stats:%d", id)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("classroom_id", id).Msg("failed to invalidate stats cache")
	}
}

func validateRequirementsType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{
		"application/pdf",
		"application/zip",
		"application/x-zip-compressed",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
	}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrRequirementsFileType, mime.String())
}
