package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/models"
)

// SubmissionFilter narrows submission list queries.
type SubmissionFilter struct {
	ClassroomID *uint
	CreatedByID *uint
	Status      *string
	GradeMin    *int
	GradeMax    *int
	Search      string
	Page        int
	PageSize    int

	// VisibleToID restricts results to submissions the given user may see:
	// submissions in classrooms they teach, submissions they created, and
	// submissions they collaborate on.
	VisibleToID *uint
}

// SubmissionRepository defines data operations for project submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.ProjectSubmission, int64, error)
	GetByID(ctx context.Context, id uint) (models.ProjectSubmission, error)
	GetByClassroomAndCreator(ctx context.Context, classroomID, creatorID uint) (models.ProjectSubmission, error)
	ExistsForCreator(ctx context.Context, classroomID, creatorID uint) (bool, error)
	Create(ctx context.Context, submission *models.ProjectSubmission) error
	Update(ctx context.Context, submission *models.ProjectSubmission) error
	ReplaceCollaborators(ctx context.Context, submission *models.ProjectSubmission, collaborators []models.User) error
	Delete(ctx context.Context, id uint) error
	CreateGradeHistory(ctx context.Context, history *models.SubmissionGradeHistory) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ProjectSubmission{}).
		Preload("Classroom").
		Preload("Classroom.Teacher").
		Preload("CreatedBy").
		Preload("Collaborators")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.ProjectSubmission, int64, error) {
	query := r.baseQuery(ctx)

	if filter.ClassroomID != nil {
		query = query.Where("project_submissions.classroom_id = ?", *filter.ClassroomID)
	}

	if filter.CreatedByID != nil {
		query = query.Where("project_submissions.created_by_id = ?", *filter.CreatedByID)
	}

	if filter.Status != nil {
		query = query.Where("project_submissions.status = ?", strings.ToUpper(*filter.Status))
	}

	if filter.GradeMin != nil {
		query = query.Where("project_submissions.grade >= ?", *filter.GradeMin)
	}

	if filter.GradeMax != nil {
		query = query.Where("project_submissions.grade <= ?", *filter.GradeMax)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(project_submissions.title) LIKE ? OR LOWER(project_submissions.description) LIKE ?", pattern, pattern)
	}

	if filter.VisibleToID != nil {
		userID := *filter.VisibleToID
		query = query.Where(
			"project_submissions.created_by_id = ?"+
				" OR project_submissions.classroom_id IN (?)"+
				" OR project_submissions.id IN (?)",
			userID,
			r.db.WithContext(ctx).Model(&models.Classroom{}).Select("id").Where("teacher_id = ?", userID),
			r.db.WithContext(ctx).Table("submission_collaborators").Select("project_submission_id").Where("user_id = ?", userID),
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var submissions []models.ProjectSubmission
	if err := query.Order("project_submissions.created_at DESC").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.ProjectSubmission, error) {
	var submission models.ProjectSubmission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.ProjectSubmission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByClassroomAndCreator(ctx context.Context, classroomID, creatorID uint) (models.ProjectSubmission, error) {
	var submission models.ProjectSubmission
	if err := r.baseQuery(ctx).
		Where("project_submissions.classroom_id = ?", classroomID).
		Where("project_submissions.created_by_id = ?", creatorID).
		First(&submission).Error; err != nil {
		return models.ProjectSubmission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) ExistsForCreator(ctx context.Context, classroomID, creatorID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProjectSubmission{}).
		Where("classroom_id = ?", classroomID).
		Where("created_by_id = ?", creatorID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.ProjectSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.ProjectSubmission) error {
	// Save would rewrite the collaborator association as a side effect;
	// collaborators change only through ReplaceCollaborators.
	return r.db.WithContext(ctx).Omit("Collaborators").Save(submission).Error
}

func (r *submissionRepository) ReplaceCollaborators(ctx context.Context, submission *models.ProjectSubmission, collaborators []models.User) error {
	return r.db.WithContext(ctx).Model(submission).Association("Collaborators").Replace(collaborators)
}

func (r *submissionRepository) Delete(ctx context.Context, id uint) error {
	// Collaborator links and grade history rows go with the submission.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM submission_collaborators WHERE project_submission_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("submission_id = ?", id).Delete(&models.SubmissionGradeHistory{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.ProjectSubmission{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *submissionRepository) CreateGradeHistory(ctx context.Context, history *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}
