package dto

import (
	"time"

	"github.com/noah-isme/classhub-api/internal/models"
	"github.com/noah-isme/classhub-api/internal/repository"
)

// ClassroomCreateRequest is the payload for creating a classroom.
type ClassroomCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"required"`
	Subject     string `json:"subject" validate:"omitempty,max=100"`
}

// ClassroomUpdateRequest is the payload for updating classroom metadata.
type ClassroomUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string `json:"description"`
	Subject     *string `json:"subject" validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
}

// JoinClassroomRequest carries a join code redemption. Length and alphabet
// are checked after normalization, so no shape tags here beyond required.
type JoinClassroomRequest struct {
	Code string `json:"code" validate:"required"`
}

// ClassroomFilter describes query string filters for listing classrooms.
type ClassroomFilter struct {
	Search   string `query:"search"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// ClassroomResponse is returned to API clients when viewing classrooms.
type ClassroomResponse struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Subject         string    `json:"subject"`
	RequirementsURL string    `json:"requirements_url,omitempty"`
	JoinCode        string    `json:"join_code,omitempty"`
	Teacher         UserLite  `json:"teacher"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UserLite summarizes a user in nested responses.
type UserLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MembershipResponse serializes a roster entry.
type MembershipResponse struct {
	ID        uint      `json:"id"`
	Classroom uint      `json:"classroom_id"`
	Student   UserLite  `json:"student"`
	JoinedAt  time.Time `json:"joined_at"`
}

// ClassroomListResponse pairs a page of classrooms with the total count.
type ClassroomListResponse struct {
	Classrooms []ClassroomResponse `json:"classrooms"`
	Total      int64               `json:"total"`
}

// ClassroomStatsResponse reports aggregate figures for one classroom.
type ClassroomStatsResponse struct {
	MemberCount     int64    `json:"member_count"`
	SubmissionCount int64    `json:"submission_count"`
	SubmittedCount  int64    `json:"submitted_count"`
	GradedCount     int64    `json:"graded_count"`
	AverageGrade    *float64 `json:"average_grade"`
}

// NewUserLite converts a User model into its nested summary.
func NewUserLite(model models.User) UserLite {
	return UserLite{ID: model.ID, Name: model.Name, Email: model.Email}
}

// NewClassroomResponse converts a Classroom model into a DTO. The join code
// is included only when includeCode is true (owner views).
func NewClassroomResponse(model models.Classroom, includeCode bool) ClassroomResponse {
	response := ClassroomResponse{
		ID:              model.ID,
		Title:           model.Title,
		Description:     model.Description,
		Subject:         model.Subject,
		RequirementsURL: model.RequirementsURL,
		Teacher:         NewUserLite(model.Teacher),
		IsActive:        model.IsActive,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
	if includeCode {
		response.JoinCode = model.JoinCode
	}
	return response
}

// NewMembershipResponse converts a membership model into a DTO.
func NewMembershipResponse(model models.ClassroomMembership) MembershipResponse {
	return MembershipResponse{
		ID:        model.ID,
		Classroom: model.ClassroomID,
		Student:   NewUserLite(model.Student),
		JoinedAt:  model.JoinedAt,
	}
}

// NewMembershipResponseSlice converts a slice of memberships.
func NewMembershipResponseSlice(memberships []models.ClassroomMembership) []MembershipResponse {
	responses := make([]MembershipResponse, 0, len(memberships))
	for _, membership := range memberships {
		responses = append(responses, NewMembershipResponse(membership))
	}
	return responses
}

// NewClassroomStatsResponse converts repository stats into a DTO.
func NewClassroomStatsResponse(stats repository.ClassroomStats) ClassroomStatsResponse {
	return ClassroomStatsResponse(stats)
}
