package dto

import (
	"time"

	"github.com/noah-isme/classhub-api/internal/models"
)

// SubmissionCreateRequest is the payload for creating a draft submission.
type SubmissionCreateRequest struct {
	ClassroomID   uint   `json:"classroom_id" validate:"required,gt=0"`
	Title         string `json:"title" validate:"required,min=3,max=200"`
	Description   string `json:"description" validate:"required"`
	RepositoryURL string `json:"repository_url" validate:"required,url"`
	DeployedURL   string `json:"deployed_url" validate:"omitempty,url"`
}

// SubmissionUpdateRequest is the payload for editing a draft.
type SubmissionUpdateRequest struct {
	Title         *string `json:"title" validate:"omitempty,min=3,max=200"`
	Description   *string `json:"description"`
	RepositoryURL *string `json:"repository_url" validate:"omitempty,url"`
	DeployedURL   *string `json:"deployed_url" validate:"omitempty,url"`
}

// CollaboratorsRequest replaces a draft's collaborator set.
type CollaboratorsRequest struct {
	CollaboratorIDs []uint `json:"collaborator_ids" validate:"required,dive,gt=0"`
}

// GradeRequest is the payload for grading a submitted project.
type GradeRequest struct {
	Score int    `json:"score" validate:"required,gte=1,lte=20"`
	Notes string `json:"notes" validate:"omitempty,max=4000"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	ClassroomID *uint   `query:"classroom"`
	StudentID   *uint   `query:"student"`
	Status      *string `query:"status" validate:"omitempty,oneof=DRAFT SUBMITTED draft submitted"`
	GradeMin    *int    `query:"grade_min" validate:"omitempty,gte=1,lte=20"`
	GradeMax    *int    `query:"grade_max" validate:"omitempty,gte=1,lte=20"`
	Search      string  `query:"search"`
	Page        int     `query:"page" validate:"omitempty,gte=1"`
	PageSize    int     `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID            uint          `json:"id"`
	ClassroomID   uint          `json:"classroom_id"`
	Classroom     ClassroomLite `json:"classroom"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	RepositoryURL string        `json:"repository_url"`
	DeployedURL   string        `json:"deployed_url,omitempty"`
	CreatedBy     UserLite      `json:"created_by"`
	Collaborators []UserLite    `json:"collaborators"`
	Status        string        `json:"status"`
	Grade         *int          `json:"grade"`
	TeacherNotes  string        `json:"teacher_notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	SubmittedAt   *time.Time    `json:"submitted_at"`
}

// ClassroomLite summarizes a classroom in submission responses.
type ClassroomLite struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

// SubmissionListResponse pairs a page of submissions with the total count.
type SubmissionListResponse struct {
	Submissions []SubmissionResponse `json:"submissions"`
	Total       int64                `json:"total"`
}

// NewSubmissionResponse converts a ProjectSubmission model into a DTO.
func NewSubmissionResponse(model models.ProjectSubmission) SubmissionResponse {
	collaborators := make([]UserLite, 0, len(model.Collaborators))
	for _, collaborator := range model.Collaborators {
		collaborators = append(collaborators, NewUserLite(collaborator))
	}

	return SubmissionResponse{
		ID:            model.ID,
		ClassroomID:   model.ClassroomID,
		Classroom:     ClassroomLite{ID: model.Classroom.ID, Title: model.Classroom.Title},
		Title:         model.Title,
		Description:   model.Description,
		RepositoryURL: model.RepositoryURL,
		DeployedURL:   model.DeployedURL,
		CreatedBy:     NewUserLite(model.CreatedBy),
		Collaborators: collaborators,
		Status:        model.Status,
		Grade:         model.Grade,
		TeacherNotes:  model.TeacherNotes,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
		SubmittedAt:   model.SubmittedAt,
	}
}

// NewSubmissionResponseSlice converts a slice of submissions.
func NewSubmissionResponseSlice(submissions []models.ProjectSubmission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
