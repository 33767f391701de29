package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/models"
)

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "irrelevant",
		Role:         models.RoleStudent,
	}))

	err := repo.Create(ctx, &models.User{
		Name:         "Imposter",
		Email:        "alice@example.com",
		PasswordHash: "irrelevant",
		Role:         models.RoleStudent,
	})
	require.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	teacher := models.User{
		Name:         "Morel",
		Email:        "morel@example.com",
		PasswordHash: "irrelevant",
		Role:         models.RoleTeacher,
		Profile:      &models.TeacherProfile{Department: "Computer Science"},
	}
	require.NoError(t, repo.Create(ctx, &teacher))

	found, err := repo.GetByEmail(ctx, "morel@example.com")
	require.NoError(t, err)
	require.Equal(t, teacher.ID, found.ID)
	require.NotNil(t, found.Profile)
	require.Equal(t, "Computer Science", found.Profile.Department)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
