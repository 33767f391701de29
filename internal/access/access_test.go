package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classhub-api/internal/models"
)

type staticMembership struct {
	members map[uint]struct{}
}

func (s staticMembership) IsMember(_ context.Context, _ uint, studentID uint) (bool, error) {
	_, ok := s.members[studentID]
	return ok, nil
}

func TestRolePredicates(t *testing.T) {
	teacher := models.User{ID: 1, Role: models.RoleTeacher}
	student := models.User{ID: 2, Role: models.RoleStudent}

	require.True(t, IsTeacher(teacher))
	require.False(t, IsTeacher(student))
	require.True(t, IsStudent(student))
	require.False(t, IsStudent(teacher))

	// A zero-value role is neither teacher nor student, here and on the
	// model methods.
	unset := models.User{ID: 3}
	require.False(t, IsTeacher(unset))
	require.False(t, IsStudent(unset))
	require.False(t, unset.IsTeacher())
	require.False(t, unset.IsStudent())
}

func TestCanAccessClassroom(t *testing.T) {
	owner := models.User{ID: 1, Role: models.RoleTeacher}
	member := models.User{ID: 2, Role: models.RoleStudent}
	stranger := models.User{ID: 3, Role: models.RoleStudent}
	otherTeacher := models.User{ID: 4, Role: models.RoleTeacher}

	classroom := models.Classroom{ID: 10, TeacherID: owner.ID}
	memberships := staticMembership{members: map[uint]struct{}{member.ID: {}}}

	for _, tc := range []struct {
		name string
		user models.User
		want bool
	}{
		{"owner", owner, true},
		{"member", member, true},
		{"stranger", stranger, false},
		{"unrelated teacher", otherTeacher, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			allowed, err := CanAccessClassroom(context.Background(), memberships, tc.user, classroom)
			require.NoError(t, err)
			require.Equal(t, tc.want, allowed)
		})
	}
}

func TestCanViewSubmission(t *testing.T) {
	teacher := models.User{ID: 1, Role: models.RoleTeacher}
	creator := models.User{ID: 2, Role: models.RoleStudent}
	collaborator := models.User{ID: 3, Role: models.RoleStudent}
	classmate := models.User{ID: 4, Role: models.RoleStudent}

	submission := models.ProjectSubmission{
		ClassroomID:   10,
		Classroom:     models.Classroom{ID: 10, TeacherID: teacher.ID},
		CreatedByID:   creator.ID,
		Collaborators: []models.User{collaborator},
	}

	require.True(t, CanViewSubmission(submission, teacher))
	require.True(t, CanViewSubmission(submission, creator))
	require.True(t, CanViewSubmission(submission, collaborator))
	require.False(t, CanViewSubmission(submission, classmate), "a plain classroom member does not see another student's submission")
}

func TestCanEditSubmission(t *testing.T) {
	creator := models.User{ID: 2, Role: models.RoleStudent}
	collaborator := models.User{ID: 3, Role: models.RoleStudent}

	draft := models.ProjectSubmission{
		CreatedByID:   creator.ID,
		Collaborators: []models.User{collaborator},
		Status:        models.SubmissionStatusDraft,
	}
	require.True(t, CanEditSubmission(draft, creator))
	require.False(t, CanEditSubmission(draft, collaborator), "collaborators read, never write")

	submitted := draft
	submitted.Status = models.SubmissionStatusSubmitted
	require.False(t, CanEditSubmission(submitted, creator))
}
