package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/models"
	"github.com/noah-isme/classhub-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	users  map[uint]models.User
	nextID uint
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uint]models.User), nextID: 1}
	for _, user := range users {
		if user.ID >= repo.nextID {
			repo.nextID = user.ID + 1
		}
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uint) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = *user
	return nil
}

// fakeClassroomRepo is an in-memory repository.ClassroomRepository.
type fakeClassroomRepo struct {
	classrooms map[uint]models.Classroom
	nextID     uint
	stats      repository.ClassroomStats
	statsCalls int
}

func newFakeClassroomRepo(classrooms ...models.Classroom) *fakeClassroomRepo {
	repo := &fakeClassroomRepo{classrooms: make(map[uint]models.Classroom), nextID: 1}
	for _, classroom := range classrooms {
		if classroom.ID >= repo.nextID {
			repo.nextID = classroom.ID + 1
		}
		repo.classrooms[classroom.ID] = classroom
	}
	return repo
}

func (f *fakeClassroomRepo) List(_ context.Context, filter repository.ClassroomFilter) ([]models.Classroom, int64, error) {
	var result []models.Classroom
	for _, classroom := range f.classrooms {
		if filter.TeacherID != nil && classroom.TeacherID != *filter.TeacherID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(classroom.Title), strings.ToLower(filter.Search)) {
			continue
		}
		result = append(result, classroom)
	}
	return result, int64(len(result)), nil
}

func (f *fakeClassroomRepo) GetByID(_ context.Context, id uint) (models.Classroom, error) {
	classroom, ok := f.classrooms[id]
	if !ok {
		return models.Classroom{}, gorm.ErrRecordNotFound
	}
	return classroom, nil
}

func (f *fakeClassroomRepo) GetByJoinCode(_ context.Context, code string) (models.Classroom, error) {
	for _, classroom := range f.classrooms {
		if classroom.JoinCode == code {
			return classroom, nil
		}
	}
	return models.Classroom{}, gorm.ErrRecordNotFound
}

func (f *fakeClassroomRepo) Create(_ context.Context, classroom *models.Classroom) error {
	for _, existing := range f.classrooms {
		if existing.JoinCode == classroom.JoinCode {
			return gorm.ErrDuplicatedKey
		}
	}
	classroom.ID = f.nextID
	f.nextID++
	if classroom.Teacher.ID == 0 {
		// Mimic the association preload the real repository performs.
		classroom.Teacher = models.User{ID: classroom.TeacherID}
	}
	f.classrooms[classroom.ID] = *classroom
	return nil
}

func (f *fakeClassroomRepo) Update(_ context.Context, classroom *models.Classroom) error {
	if _, ok := f.classrooms[classroom.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.classrooms[classroom.ID] = *classroom
	return nil
}

func (f *fakeClassroomRepo) Delete(_ context.Context, id uint) error {
	delete(f.classrooms, id)
	return nil
}

func (f *fakeClassroomRepo) Stats(_ context.Context, _ uint) (repository.ClassroomStats, error) {
	f.statsCalls++
	return f.stats, nil
}

// fakeMembershipRepo is an in-memory repository.MembershipRepository.
type fakeMembershipRepo struct {
	memberships map[uint]models.ClassroomMembership
	nextID      uint
}

func newFakeMembershipRepo(memberships ...models.ClassroomMembership) *fakeMembershipRepo {
	repo := &fakeMembershipRepo{memberships: make(map[uint]models.ClassroomMembership), nextID: 1}
	for _, membership := range memberships {
		if membership.ID >= repo.nextID {
			repo.nextID = membership.ID + 1
		}
		repo.memberships[membership.ID] = membership
	}
	return repo
}

func (f *fakeMembershipRepo) ListByClassroom(_ context.Context, classroomID uint) ([]models.ClassroomMembership, error) {
	var result []models.ClassroomMembership
	for _, membership := range f.memberships {
		if membership.ClassroomID == classroomID {
			result = append(result, membership)
		}
	}
	return result, nil
}

func (f *fakeMembershipRepo) ListByStudent(_ context.Context, studentID uint) ([]models.ClassroomMembership, error) {
	var result []models.ClassroomMembership
	for _, membership := range f.memberships {
		if membership.StudentID == studentID {
			result = append(result, membership)
		}
	}
	return result, nil
}

func (f *fakeMembershipRepo) Get(_ context.Context, classroomID, studentID uint) (models.ClassroomMembership, error) {
	for _, membership := range f.memberships {
		if membership.ClassroomID == classroomID && membership.StudentID == studentID {
			return membership, nil
		}
	}
	return models.ClassroomMembership{}, gorm.ErrRecordNotFound
}

func (f *fakeMembershipRepo) IsMember(_ context.Context, classroomID, studentID uint) (bool, error) {
	for _, membership := range f.memberships {
		if membership.ClassroomID == classroomID && membership.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembershipRepo) MemberIDs(_ context.Context, classroomID uint) (map[uint]struct{}, error) {
	ids := make(map[uint]struct{})
	for _, membership := range f.memberships {
		if membership.ClassroomID == classroomID {
			ids[membership.StudentID] = struct{}{}
		}
	}
	return ids, nil
}

func (f *fakeMembershipRepo) Create(_ context.Context, membership *models.ClassroomMembership) error {
	for _, existing := range f.memberships {
		if existing.ClassroomID == membership.ClassroomID && existing.StudentID == membership.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	membership.ID = f.nextID
	f.nextID++
	if membership.Student.ID == 0 {
		// Mimic the association preload the real repository performs.
		membership.Student = models.User{ID: membership.StudentID}
	}
	f.memberships[membership.ID] = *membership
	return nil
}

func (f *fakeMembershipRepo) Delete(_ context.Context, id uint) error {
	if _, ok := f.memberships[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.memberships, id)
	return nil
}

// fakeSubmissionRepo is an in-memory repository.SubmissionRepository.
type fakeSubmissionRepo struct {
	submissions map[uint]models.ProjectSubmission
	history     []models.SubmissionGradeHistory
	nextID      uint
	updateCalls int
}

func newFakeSubmissionRepo(submissions ...models.ProjectSubmission) *fakeSubmissionRepo {
	repo := &fakeSubmissionRepo{submissions: make(map[uint]models.ProjectSubmission), nextID: 1}
	for _, submission := range submissions {
		if submission.ID >= repo.nextID {
			repo.nextID = submission.ID + 1
		}
		repo.submissions[submission.ID] = submission
	}
	return repo
}

func (f *fakeSubmissionRepo) List(_ context.Context, filter repository.SubmissionFilter) ([]models.ProjectSubmission, int64, error) {
	var result []models.ProjectSubmission
	for _, submission := range f.submissions {
		if filter.ClassroomID != nil && submission.ClassroomID != *filter.ClassroomID {
			continue
		}
		if filter.CreatedByID != nil && submission.CreatedByID != *filter.CreatedByID {
			continue
		}
		if filter.Status != nil && submission.Status != strings.ToUpper(*filter.Status) {
			continue
		}
		if filter.VisibleToID != nil {
			viewer := *filter.VisibleToID
			visible := submission.CreatedByID == viewer || submission.Classroom.TeacherID == viewer
			for _, collaborator := range submission.Collaborators {
				if collaborator.ID == viewer {
					visible = true
				}
			}
			if !visible {
				continue
			}
		}
		result = append(result, submission)
	}
	return result, int64(len(result)), nil
}

func (f *fakeSubmissionRepo) GetByID(_ context.Context, id uint) (models.ProjectSubmission, error) {
	submission, ok := f.submissions[id]
	if !ok {
		return models.ProjectSubmission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (f *fakeSubmissionRepo) GetByClassroomAndCreator(_ context.Context, classroomID, creatorID uint) (models.ProjectSubmission, error) {
	for _, submission := range f.submissions {
		if submission.ClassroomID == classroomID && submission.CreatedByID == creatorID {
			return submission, nil
		}
	}
	return models.ProjectSubmission{}, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) ExistsForCreator(_ context.Context, classroomID, creatorID uint) (bool, error) {
	for _, submission := range f.submissions {
		if submission.ClassroomID == classroomID && submission.CreatedByID == creatorID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubmissionRepo) Create(_ context.Context, submission *models.ProjectSubmission) error {
	for _, existing := range f.submissions {
		if existing.ClassroomID == submission.ClassroomID && existing.CreatedByID == submission.CreatedByID {
			return gorm.ErrDuplicatedKey
		}
	}
	submission.ID = f.nextID
	f.nextID++
	if submission.CreatedBy.ID == 0 {
		// Mimic the association preload the real repository performs.
		submission.CreatedBy = models.User{ID: submission.CreatedByID}
	}
	f.submissions[submission.ID] = *submission
	return nil
}

func (f *fakeSubmissionRepo) Update(_ context.Context, submission *models.ProjectSubmission) error {
	if _, ok := f.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.updateCalls++
	f.submissions[submission.ID] = *submission
	return nil
}

func (f *fakeSubmissionRepo) ReplaceCollaborators(_ context.Context, submission *models.ProjectSubmission, collaborators []models.User) error {
	stored, ok := f.submissions[submission.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Collaborators = collaborators
	f.submissions[submission.ID] = stored
	submission.Collaborators = collaborators
	return nil
}

func (f *fakeSubmissionRepo) Delete(_ context.Context, id uint) error {
	if _, ok := f.submissions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.submissions, id)
	return nil
}

func (f *fakeSubmissionRepo) CreateGradeHistory(_ context.Context, history *models.SubmissionGradeHistory) error {
	history.ID = uint(len(f.history) + 1)
	f.history = append(f.history, *history)
	return nil
}

// fakeNotificationRepo is an in-memory repository.NotificationRepository.
type fakeNotificationRepo struct {
	notifications map[uint]models.Notification
	nextID        uint
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[uint]models.Notification), nextID: 1}
}

func (f *fakeNotificationRepo) Create(_ context.Context, notification *models.Notification) error {
	notification.ID = f.nextID
	f.nextID++
	f.notifications[notification.ID] = *notification
	return nil
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID uint, _, _ int) ([]models.Notification, error) {
	var result []models.Notification
	for _, notification := range f.notifications {
		if notification.UserID == userID {
			result = append(result, notification)
		}
	}
	return result, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id, userID uint) (models.Notification, error) {
	notification, ok := f.notifications[id]
	if !ok || notification.UserID != userID {
		return models.Notification{}, gorm.ErrRecordNotFound
	}
	notification.Read = true
	f.notifications[id] = notification
	return notification, nil
}

func (f *fakeNotificationRepo) byUser(userID uint) []models.Notification {
	var result []models.Notification
	for _, notification := range f.notifications {
		if notification.UserID == userID {
			result = append(result, notification)
		}
	}
	return result
}

// fakeActivityRepo is an in-memory repository.ActivityLogRepository.
type fakeActivityRepo struct {
	entries []models.ActivityLog
}

func (f *fakeActivityRepo) Create(_ context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(f.entries) + 1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeActivityRepo) ListRecent(_ context.Context, _ int) ([]models.ActivityLog, error) {
	return f.entries, nil
}
