package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/models"
)

// MembershipRepository defines data operations for classroom memberships.
type MembershipRepository interface {
	ListByClassroom(ctx context.Context, classroomID uint) ([]models.ClassroomMembership, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.ClassroomMembership, error)
	Get(ctx context.Context, classroomID, studentID uint) (models.ClassroomMembership, error)
	IsMember(ctx context.Context, classroomID, studentID uint) (bool, error)
	MemberIDs(ctx context.Context, classroomID uint) (map[uint]struct{}, error)
	Create(ctx context.Context, membership *models.ClassroomMembership) error
	Delete(ctx context.Context, id uint) error
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository instantiates the repository.
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ClassroomMembership{}).
		Preload("Classroom").
		Preload("Classroom.Teacher").
		Preload("Student")
}

func (r *membershipRepository) ListByClassroom(ctx context.Context, classroomID uint) ([]models.ClassroomMembership, error) {
	var memberships []models.ClassroomMembership
	if err := r.baseQuery(ctx).
		Where("classroom_id = ?", classroomID).
		Order("joined_at DESC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}

	return memberships, nil
}

func (r *membershipRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.ClassroomMembership, error) {
	var memberships []models.ClassroomMembership
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Order("joined_at DESC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}

	return memberships, nil
}

func (r *membershipRepository) Get(ctx context.Context, classroomID, studentID uint) (models.ClassroomMembership, error) {
	var membership models.ClassroomMembership
	if err := r.baseQuery(ctx).
		Where("classroom_id = ?", classroomID).
		Where("student_id = ?", studentID).
		First(&membership).Error; err != nil {
		return models.ClassroomMembership{}, err
	}

	return membership, nil
}

func (r *membershipRepository) IsMember(ctx context.Context, classroomID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ClassroomMembership{}).
		Where("classroom_id = ?", classroomID).
		Where("student_id = ?", studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *membershipRepository) MemberIDs(ctx context.Context, classroomID uint) (map[uint]struct{}, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.ClassroomMembership{}).
		Where("classroom_id = ?", classroomID).
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}

	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set, nil
}

func (r *membershipRepository) Create(ctx context.Context, membership *models.ClassroomMembership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *membershipRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.ClassroomMembership{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
