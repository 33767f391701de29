package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classhub-api/internal/models"
)

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

// withActor mimics the authentication middleware by placing a resolved
// account into request locals.
func withActor(user models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("current_user", user)
		c.Locals("user_id", user.ID)
		c.Locals("user_role", string(user.Role))
		return c.Next()
	}
}

func testTeacher() models.User {
	return models.User{ID: 1, Name: "Morel", Email: "morel@example.com", Role: models.RoleTeacher}
}

func testStudent() models.User {
	return models.User{ID: 7, Name: "Alice", Email: "alice@example.com", Role: models.RoleStudent}
}
