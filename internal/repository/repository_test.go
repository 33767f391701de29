package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.TeacherProfile{},
		&models.Classroom{},
		&models.ClassroomMembership{},
		&models.ProjectSubmission{},
		&models.SubmissionGradeHistory{},
		&models.Notification{},
		&models.ActivityLog{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string, role models.Role) models.User {
	t.Helper()
	user := models.User{
		Name:         name,
		Email:        strings.ToLower(name) + "@example.com",
		PasswordHash: "irrelevant",
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedClassroom(t *testing.T, db *gorm.DB, teacher models.User, title, code string) models.Classroom {
	t.Helper()
	classroom := models.Classroom{
		Title:     title,
		JoinCode:  code,
		TeacherID: teacher.ID,
		Teacher:   teacher,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&classroom).Error)
	return classroom
}
