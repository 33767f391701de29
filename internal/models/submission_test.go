package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidRepositoryURL(t *testing.T) {
	valid := []string{
		"https://github.com/alice/project",
		"https://github.com/alice/project.git",
		"https://gitlab.com/team-x/final-project/",
		"http://github.com/alice/my.project",
	}
	for _, url := range valid {
		require.True(t, IsValidRepositoryURL(url), url)
	}

	invalid := []string{
		"https://bitbucket.org/alice/project",
		"https://github.com/alice",
		"github.com/alice/project",
		"https://github.com/alice/project/tree/main",
		"",
	}
	for _, url := range invalid {
		require.False(t, IsValidRepositoryURL(url), url)
	}
}

func TestIsValidGrade(t *testing.T) {
	require.False(t, IsValidGrade(0))
	require.True(t, IsValidGrade(GradeMin))
	require.True(t, IsValidGrade(10))
	require.True(t, IsValidGrade(GradeMax))
	require.False(t, IsValidGrade(21))
	require.False(t, IsValidGrade(-5))
}

func TestParticipantsCreatorFirstWithoutDuplicates(t *testing.T) {
	creator := User{ID: 1, Name: "Alice"}
	bob := User{ID: 2, Name: "Bob"}
	carol := User{ID: 3, Name: "Carol"}

	submission := ProjectSubmission{
		CreatedByID:   creator.ID,
		CreatedBy:     creator,
		Collaborators: []User{bob, creator, carol},
	}

	participants := submission.Participants()
	require.Len(t, participants, 3)
	require.Equal(t, creator.ID, participants[0].ID)
	require.Equal(t, bob.ID, participants[1].ID)
	require.Equal(t, carol.ID, participants[2].ID)
}

func TestSubmissionLifecyclePredicates(t *testing.T) {
	draft := ProjectSubmission{Status: SubmissionStatusDraft}
	require.True(t, draft.IsEditable())
	require.False(t, draft.IsGraded())

	submitted := ProjectSubmission{Status: SubmissionStatusSubmitted}
	require.False(t, submitted.IsEditable())

	grade := 15
	graded := ProjectSubmission{Status: SubmissionStatusSubmitted, Grade: &grade}
	require.True(t, graded.IsGraded())
}
