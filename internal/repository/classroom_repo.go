package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/models"
)

// ClassroomFilter narrows classroom list queries.
type ClassroomFilter struct {
	TeacherID  *uint
	StudentID  *uint
	ActiveOnly bool
	Search     string
	Page       int
	PageSize   int
}

// ClassroomStats aggregates per-classroom submission figures.
type ClassroomStats struct {
	MemberCount     int64    `json:"member_count"`
	SubmissionCount int64    `json:"submission_count"`
	SubmittedCount  int64    `json:"submitted_count"`
	GradedCount     int64    `json:"graded_count"`
	AverageGrade    *float64 `json:"average_grade"`
}

// ClassroomRepository defines data operations for classrooms.
type ClassroomRepository interface {
	List(ctx context.Context, filter ClassroomFilter) ([]models.Classroom, int64, error)
	GetByID(ctx context.Context, id uint) (models.Classroom, error)
	GetByJoinCode(ctx context.Context, code string) (models.Classroom, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	Update(ctx context.Context, classroom *models.Classroom) error
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context, id uint) (ClassroomStats, error)
}

type classroomRepository struct {
	db *gorm.DB
}

// NewClassroomRepository instantiates the repository.
func NewClassroomRepository(db *gorm.DB) ClassroomRepository {
	return &classroomRepository{db: db}
}

func (r *classroomRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Classroom{}).Preload("Teacher")
}

func (r *classroomRepository) List(ctx context.Context, filter ClassroomFilter) ([]models.Classroom, int64, error) {
	query := r.baseQuery(ctx)

	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}

	if filter.StudentID != nil {
		query = query.Where(
			"id IN (?)",
			r.db.WithContext(ctx).Model(&models.ClassroomMembership{}).Select("classroom_id").Where("student_id = ?", *filter.StudentID),
		)
	}

	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(subject) LIKE ?", pattern, pattern)
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

	var classrooms []models.Classroom
	if err := query.Order("created_at DESC").Find(&classrooms).Error; err != nil {
		return nil, 0, err
	}

	return classrooms, total, nil
}

func (r *classroomRepository) GetByID(ctx context.Context, id uint) (models.Classroom, error) {
	var classroom models.Classroom
	if err := r.baseQuery(ctx).First(&classroom, id).Error; err != nil {
		return models.Classroom{}, err
	}

	return classroom, nil
}

func (r *classroomRepository) GetByJoinCode(ctx context.Context, code string) (models.Classroom, error) {
	var classroom models.Classroom
	if err := r.baseQuery(ctx).Where("join_code = ?", code).First(&classroom).Error; err != nil {
		return models.Classroom{}, err
	}

	return classroom, nil
}

func (r *classroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	return r.db.WithContext(ctx).Create(classroom).Error
}

func (r *classroomRepository) Update(ctx context.Context, classroom *models.Classroom) error {
	return r.db.WithContext(ctx).Save(classroom).Error
}

func (r *classroomRepository) Delete(ctx context.Context, id uint) error {
	// Memberships, submissions, collaborator links and grade history all
	// go with the classroom.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("classroom_id = ?", id).Delete(&models.ClassroomMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			"DELETE FROM submission_collaborators WHERE project_submission_id IN (?)",
			tx.Model(&models.ProjectSubmission{}).Select("id").Where("classroom_id = ?", id),
		).Error; err != nil {
			return err
		}
		if err := tx.Where(
			"submission_id IN (?)",
			tx.Model(&models.ProjectSubmission{}).Select("id").Where("classroom_id = ?", id),
		).Delete(&models.SubmissionGradeHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("classroom_id = ?", id).Delete(&models.ProjectSubmission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Classroom{}, id).Error
	})
}

func (r *classroomRepository) Stats(ctx context.Context, id uint) (ClassroomStats, error) {
	var stats ClassroomStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.ClassroomMembership{}).Where("classroom_id = ?", id).Count(&stats.MemberCount).Error; err != nil {
		return ClassroomStats{}, err
	}

	if err := db.Model(&models.ProjectSubmission{}).Where("classroom_id = ?", id).Count(&stats.SubmissionCount).Error; err != nil {
		return ClassroomStats{}, err
	}

	if err := db.Model(&models.ProjectSubmission{}).
		Where("classroom_id = ? AND status = ?", id, models.SubmissionStatusSubmitted).
		Count(&stats.SubmittedCount).Error; err != nil {
		return ClassroomStats{}, err
	}

	if err := db.Model(&models.ProjectSubmission{}).
		Where("classroom_id = ? AND grade IS NOT NULL", id).
		Count(&stats.GradedCount).Error; err != nil {
		return ClassroomStats{}, err
	}

	if stats.GradedCount > 0 {
		var average float64
		if err := db.Model(&models.ProjectSubmission{}).
			Where("classroom_id = ? AND grade IS NOT NULL", id).
			Select("AVG(grade)").Scan(&average).Error; err != nil {
			return ClassroomStats{}, err
		}
		stats.AverageGrade = &average
	}

	return stats, nil
}
