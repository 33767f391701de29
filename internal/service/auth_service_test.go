package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/classhub-api/internal/dto"
)

func newAuthService(users *fakeUserRepo) AuthService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewAuthService(users, validate, "test-secret", time.Hour, bcrypt.MinCost, testLogger())
}

func TestAuthServiceRegisterStudent(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAuthService(users)

	auth, err := svc.RegisterStudent(context.Background(), dto.RegisterRequest{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, auth.Token)
	require.Equal(t, "student", auth.User.Role)
	require.Equal(t, "alice@example.com", auth.User.Email, "email is normalized before storage")

	stored, err := users.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Nil(t, stored.Profile)
	require.NotEqual(t, "correct horse", stored.PasswordHash)
}

func TestAuthServiceRegisterTeacherCreatesProfile(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAuthService(users)

	auth, err := svc.RegisterTeacher(context.Background(), dto.RegisterRequest{
		Name:       "Prof. Martin",
		Email:      "martin@univ.example",
		Password:   "lecture notes",
		Department: "Computer Science",
	})
	require.NoError(t, err)
	require.Equal(t, "teacher", auth.User.Role)

	stored, err := users.GetByEmail(context.Background(), "martin@univ.example")
	require.NoError(t, err)
	require.NotNil(t, stored.Profile)
	require.Equal(t, "Computer Science", stored.Profile.Department)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAuthService(users)

	payload := dto.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "correct horse"}
	_, err := svc.RegisterStudent(context.Background(), payload)
	require.NoError(t, err)

	_, err = svc.RegisterStudent(context.Background(), payload)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthServiceRegisterRejectsShortPassword(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	_, err := svc.RegisterStudent(context.Background(), dto.RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "short",
	})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}

func TestAuthServiceLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAuthService(users)

	_, err := svc.RegisterStudent(context.Background(), dto.RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	auth, err := svc.Login(context.Background(), dto.LoginRequest{Email: "ALICE@example.com", Password: "correct horse"})
	require.NoError(t, err)

	token, err := jwt.Parse(auth.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, "student", claims["role"])
}

func TestAuthServiceLoginFailures(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAuthService(users)

	_, err := svc.RegisterStudent(context.Background(), dto.RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	require.ErrorIs(t, err, ErrInvalidCredentials, "unknown accounts and bad passwords are indistinguishable")
}
