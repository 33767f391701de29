// Package access holds the authorization predicates gating every read and
// write operation. Each predicate is a pure function over already-loaded
// data; membership lookups are abstracted behind MembershipChecker so the
// predicates stay independently testable.
package access

import (
	"context"

	"github.com/noah-isme/classhub-api/internal/models"
)

// MembershipChecker answers whether a student currently belongs to a classroom.
type MembershipChecker interface {
	IsMember(ctx context.Context, classroomID, studentID uint) (bool, error)
}

// IsTeacher reports whether the user holds the teacher role.
func IsTeacher(user models.User) bool {
	return user.Role == models.RoleTeacher
}

// IsStudent reports whether the user holds the student role. The check
// mirrors models.User.IsStudent so an unset role matches neither predicate.
func IsStudent(user models.User) bool {
	return user.Role == models.RoleStudent
}

// IsClassroomTeacher reports whether the user owns the classroom.
func IsClassroomTeacher(user models.User, classroom models.Classroom) bool {
	return classroom.TeacherID == user.ID
}

// CanAccessClassroom reports whether the user may see a classroom roster and
// its detail view: the owning teacher and current members may.
func CanAccessClassroom(ctx context.Context, memberships MembershipChecker, user models.User, classroom models.Classroom) (bool, error) {
	if IsClassroomTeacher(user, classroom) {
		return true, nil
	}
	return memberships.IsMember(ctx, classroom.ID, user.ID)
}

// CanViewSubmission reports whether the user may see a submission: the
// classroom teacher, the creator, and current collaborators may; nobody else.
// The collaborator set must be loaded on the submission.
func CanViewSubmission(submission models.ProjectSubmission, user models.User) bool {
	if submission.Classroom.TeacherID == user.ID {
		return true
	}
	if submission.CreatedByID == user.ID {
		return true
	}
	for _, collaborator := range submission.Collaborators {
		if collaborator.ID == user.ID {
			return true
		}
	}
	return false
}

// CanEditSubmission reports whether the user may modify a submission. Only
// the creator may edit, and only while the submission is still a draft.
func CanEditSubmission(submission models.ProjectSubmission, user models.User) bool {
	return submission.IsEditable() && submission.CreatedByID == user.ID
}
