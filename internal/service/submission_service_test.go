package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classhub-api/internal/dto"
	"github.com/noah-isme/classhub-api/internal/event"
	"github.com/noah-isme/classhub-api/internal/models"
)

type submissionFixture struct {
	submissions *fakeSubmissionRepo
	memberships *fakeMembershipRepo
	users       *fakeUserRepo
	dispatcher  *event.LocalDispatcher
	svc         SubmissionService
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()
	f := &submissionFixture{
		submissions: newFakeSubmissionRepo(),
		memberships: newFakeMembershipRepo(),
		users:       newFakeUserRepo(),
		dispatcher:  event.NewSyncDispatcher(testLogger()),
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	f.svc = NewSubmissionService(f.submissions, f.memberships, f.users, validate, f.dispatcher, testLogger())
	return f
}

func (f *submissionFixture) addMember(classroomID uint, user models.User) {
	f.users.users[user.ID] = user
	if user.ID >= f.users.nextID {
		f.users.nextID = user.ID + 1
	}
	_ = f.memberships.Create(context.Background(), &models.ClassroomMembership{
		ClassroomID: classroomID,
		StudentID:   user.ID,
	})
}

func validCreateRequest() dto.SubmissionCreateRequest {
	return dto.SubmissionCreateRequest{
		ClassroomID:   1,
		Title:         "Final Project",
		Description:   "A REST API",
		RepositoryURL: "https://github.com/alice/final-project",
	}
}

func TestSubmissionCreateAsDraft(t *testing.T) {
	f := newSubmissionFixture(t)
	alice := models.User{ID: 7, Role: models.RoleStudent}
	f.addMember(1, alice)

	submission, err := f.svc.Create(context.Background(), alice, validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusDraft, submission.Status)
	require.Nil(t, submission.SubmittedAt)
	require.Nil(t, submission.Grade)
}

func TestSubmissionCreateRequiresMembership(t *testing.T) {
	f := newSubmissionFixture(t)
	outsider := models.User{ID: 9, Role: models.RoleStudent}

	_, err := f.svc.Create(context.Background(), outsider, validCreateRequest())
	require.ErrorIs(t, err, ErrNotClassroomMember)
}

func TestSubmissionCreateRejectsSecondSubmission(t *testing.T) {
	f := newSubmissionFixture(t)
	alice := models.User{ID: 7, Role: models.RoleStudent}
	f.addMember(1, alice)

	_, err := f.svc.Create(context.Background(), alice, validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), alice, validCreateRequest())
	require.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestSubmissionCreateRejectsForeignRepositoryHost(t *testing.T) {
	f := newSubmissionFixture(t)
	alice := models.User{ID: 7, Role: models.RoleStudent}
	f.addMember(1, alice)

	payload := validCreateRequest()
	payload.RepositoryURL = "https://bitbucket.org/alice/final-project"

	_, err := f.svc.Create(context.Background(), alice, payload)
	require.ErrorIs(t, err, ErrInvalidRepositoryURL)
}

func TestSubmitFiresEventAndLocksEditing(t *testing.T) {
	f := newSubmissionFixture(t)
	alice := models.User{ID: 7, Role: models.RoleStudent}
	f.addMember(1, alice)

	var submittedEvents []event.SubmissionSubmitted
	f.dispatcher.Subscribe(event.TypeSubmissionSubmitted, func(_ context.Context, evt event.Event) error {
		submittedEvents = append(submittedEvents, evt.(event.SubmissionSubmitted))
		return nil
	})

	draft, err := f.svc.Create(context.Background(), alice, validCreateRequest())
	require.NoError(t, err)

	submitted, err := f.svc.Submit(context.Background(), alice, draft.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	require.Len(t, submittedEvents, 1)
	require.Equal(t, draft.ID, submittedEvents[0].SubmissionID)

	// Once handed in, the creator can no longer edit or re-submit.
	title := "Changed"
	_, err = f.svc.Update(context.Background(), alice, draft.ID, dto.SubmissionUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrSubmissionLocked)

	_, err = f.svc.Submit(context.Background(), alice, draft.ID)
	require.ErrorIs(t, err, ErrSubmissionLocked)
	require.Len(t, submittedEvents, 1, "a locked re-submit fires nothing")
}

func TestSubmitPreservesOriginalTimestamp(t *testing.T) {
	f := newSubmissionFixture(t)
	alice := models.User{ID: 7, Role: models.RoleStudent}
	f.addMember(1, alice)

	earlier := time.Now().Add(-time.Hour)
	submission := models.ProjectSubmission{
		ClassroomID:   1,
		CreatedByID:   alice.ID,
		Title:         "Final Project",
		RepositoryURL: "https://github.com/alice/final-project",
		Status:        models.SubmissionStatusDraft,
		SubmittedAt:   &earlier,
	}
	require.NoError(t, f.submissions.Create(context.Background(), &submission))

	result, err := f.svc.Submit(context.Background(), alice, submission.ID)
	require.NoError(t, err)
	require.NotNil(t, result.SubmittedAt)
	require.True(t, result.SubmittedAt.Equal(earlier), "an existing timestamp is never overwritten")
}

func TestSubmitOnlyByCreator(t *testing.T) {
	f := newSubmissionFixture(t)
	alice := models.User{ID: 7, Role: models.RoleStudent}
	bob := models.User{ID: 8, Role: models.RoleStudent}
	f.addMember(1, alice)
	f.addMember(1, bob)

	draft, err := f.svc.Create(context.Background(), alice, validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.SetCollaborators(context.Background(), alice, draft.ID, dto.CollaboratorsRequest{CollaboratorIDs: []uint{bob.ID}})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), bob, draft.ID)
	require.ErrorIs(t, err, ErrNotSubmissionCreator, "collaborators see the draft but cannot hand it in")
}

func TestSetCollaboratorsValidation(t *testing.T) {
	f := newSubmissionFixture(t)
	alice := models.User{ID: 7, Role: models.RoleStudent}
	bob := models.User{ID: 8, Role: models.RoleStudent}
	outsider := models.User{ID: 9, Role: models.RoleStudent}
	f.addMember(1, alice)
	f.addMember(1, bob)
	f.users.users[outsider.ID] = outsider

	draft, err := f.svc.Create(context.Background(), alice, validCreateRequest())
	require.NoError(t, err)

	// The creator cannot be their own collaborator.
	_, err = f.svc.SetCollaborators(context.Background(), alice, draft.ID, dto.CollaboratorsRequest{CollaboratorIDs: []uint{alice.ID}})
	require.ErrorIs(t, err, ErrCollaboratorIsCreator)

	// Non-members are rejected and nothing is applied.
	_, err = f.svc.SetCollaborators(context.Background(), alice, draft.ID, dto.CollaboratorsRequest{CollaboratorIDs: []uint{bob.ID, outsider.ID}})
	require.ErrorIs(t, err, ErrCollaboratorNotMember)

	current, err := f.submissions.GetByID(context.Background(), draft.ID)
	require.NoError(t, err)
	require.Empty(t, current.Collaborators, "a rejected list leaves the previous set untouched")

	// Duplicates collapse to one entry.
	updated, err := f.svc.SetCollaborators(context.Background(), alice, draft.ID, dto.CollaboratorsRequest{CollaboratorIDs: []uint{bob.ID, bob.ID}})
	require.NoError(t, err)
	require.Len(t, updated.Collaborators, 1)
}

func TestGetHidesSubmissionFromNonParticipants(t *testing.T) {
	f := newSubmissionFixture(t)
	alice := models.User{ID: 7, Role: models.RoleStudent}
	classmate := models.User{ID: 8, Role: models.RoleStudent}
	f.addMember(1, alice)
	f.addMember(1, classmate)

	draft, err := f.svc.Create(context.Background(), alice, validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), classmate, draft.ID)
	require.ErrorIs(t, err, ErrSubmissionNotFound, "existence is not confirmed to unauthorized viewers")

	_, err = f.svc.Get(context.Background(), alice, draft.ID)
	require.NoError(t, err)
}

func TestDeleteOnlyWhileDraft(t *testing.T) {
	f := newSubmissionFixture(t)
	alice := models.User{ID: 7, Role: models.RoleStudent}
	f.addMember(1, alice)

	draft, err := f.svc.Create(context.Background(), alice, validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), alice, draft.ID)
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), alice, draft.ID)
	require.ErrorIs(t, err, ErrSubmissionLocked)
}

func TestListScopedToVisibleSubmissions(t *testing.T) {
	f := newSubmissionFixture(t)
	alice := models.User{ID: 7, Role: models.RoleStudent}
	bob := models.User{ID: 8, Role: models.RoleStudent}
	f.addMember(1, alice)
	f.addMember(1, bob)

	_, err := f.svc.Create(context.Background(), alice, validCreateRequest())
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), bob, validCreateRequest())
	require.NoError(t, err)

	page, err := f.svc.List(context.Background(), alice, dto.SubmissionFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	require.Len(t, page.Submissions, 1)
	require.Equal(t, alice.ID, page.Submissions[0].CreatedBy.ID)
}
