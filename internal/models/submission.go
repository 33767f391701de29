package models

import (
	"regexp"
	"time"
)

// Submission lifecycle states. The transition is one-way: a draft becomes
// submitted and never reverts through any user-facing operation.
const (
	// SubmissionStatusDraft indicates the submission is still editable by its creator.
	SubmissionStatusDraft = "DRAFT"
	// SubmissionStatusSubmitted indicates the submission has been handed in and is read-only to the creator.
	SubmissionStatusSubmitted = "SUBMITTED"
)

// Grade bounds on the French 1..20 scale.
const (
	GradeMin = 1
	GradeMax = 20
)

var repositoryURLPattern = regexp.MustCompile(`^https?://(github|gitlab)\.com/[\w-]+/[\w.-]+(\.git)?/?$`)

// ProjectSubmission is one student's project work within a classroom. At most
// one submission exists per (classroom, creator) pair, enforced by the
// composite unique index as well as at the service layer.
type ProjectSubmission struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ClassroomID   uint       `gorm:"not null;uniqueIndex:idx_classroom_creator" json:"classroom_id"`
	CreatedByID   uint       `gorm:"not null;uniqueIndex:idx_classroom_creator" json:"created_by_id"`
	Classroom     Classroom  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"classroom"`
	CreatedBy     User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"created_by"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	RepositoryURL string     `gorm:"size:512;not null" json:"repository_url"`
	DeployedURL   string     `gorm:"size:512" json:"deployed_url"`
	Collaborators []User     `gorm:"many2many:submission_collaborators" json:"collaborators"`
	Status        string     `gorm:"size:10;not null;default:DRAFT" json:"status"`
	Grade         *int       `json:"grade"`
	TeacherNotes  string     `gorm:"type:text" json:"teacher_notes"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	SubmittedAt   *time.Time `json:"submitted_at"`
}

// IsEditable reports whether the submission can still be modified by its creator.
func (s ProjectSubmission) IsEditable() bool {
	return s.Status == SubmissionStatusDraft
}

// IsGraded reports whether a grade has been assigned.
func (s ProjectSubmission) IsGraded() bool {
	return s.Grade != nil
}

// Participants returns the creator plus all collaborators, creator first,
// without duplicates.
func (s ProjectSubmission) Participants() []User {
	participants := make([]User, 0, len(s.Collaborators)+1)
	participants = append(participants, s.CreatedBy)
	for _, c := range s.Collaborators {
		if c.ID != s.CreatedByID {
			participants = append(participants, c)
		}
	}
	return participants
}

// IsValidGrade reports whether a score sits inside the 1..20 scale.
func IsValidGrade(score int) bool {
	return score >= GradeMin && score <= GradeMax
}

// IsValidRepositoryURL reports whether the URL points at a GitHub or GitLab repository.
func IsValidRepositoryURL(url string) bool {
	return repositoryURLPattern.MatchString(url)
}

// SubmissionGradeHistory records every grading pass over a submission.
type SubmissionGradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"index;not null" json:"submission_id"`
	Score        int       `gorm:"not null" json:"score"`
	Notes        string    `gorm:"type:text" json:"notes"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}
